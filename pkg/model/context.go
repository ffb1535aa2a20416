package model

import (
	stdmath "math"

	"github.com/Faultbox/l2drt/pkg/math"
)

// DefaultParamMin and DefaultParamMax bound parameters that are added at
// runtime without explicit limits, and parameters referenced by pivot
// tables but missing from the parameter table.
const (
	DefaultParamMin = -1000
	DefaultParamMax = 1000
)

// Context is a live instance of a Model.
type Context struct {
	model *Model

	initialized bool
	initVersion int

	ids        []ParamID
	values     []float32
	minValues  []float32
	maxValues  []float32
	defaults   []float32
	saved      []float32
	dirty      []bool
	paramIndex map[ParamID]int

	pivots []pivotCache
	bases  []baseState
	draws  []drawState
	order  []int // draw indices in draw order

	partsOpacity []float32

	textures map[int]int
}

// NewContext creates a context bound to m and registers the model's
// parameters. Call Init before Update.
func NewContext(m *Model) (*Context, error) {
	if err := m.Prepare(); err != nil {
		return nil, err
	}
	c := &Context{
		model:      m,
		paramIndex: make(map[ParamID]int, len(m.Params)),
		textures:   make(map[int]int),
	}
	for _, p := range m.Params {
		c.AddFloatParam(p.ID, p.Default, p.Min, p.Max)
	}
	return c, nil
}

// Model returns the template the context evaluates.
func (c *Context) Model() *Model { return c.model }

// InitVersion returns a counter that changes whenever cached indices may
// have become stale.
func (c *Context) InitVersion() int { return c.initVersion }

// Init allocates per-entity runtime state. Parameters referenced by pivot
// tables but absent from the parameter table are registered with a zero
// default. Calling Init again resets all runtime state.
func (c *Context) Init() {
	m := c.model
	for _, b := range m.bases {
		c.registerPivotParams(b.Pivots)
	}
	for _, d := range m.draws {
		c.registerPivotParams(d.Pivots)
	}

	c.pivots = make([]pivotCache, m.pivotSlots)
	c.bases = make([]baseState, len(m.bases))
	for i, b := range m.bases {
		c.bases[i].init(b)
	}
	c.draws = make([]drawState, len(m.draws))
	c.order = make([]int, len(m.draws))
	for i, d := range m.draws {
		c.draws[i].init(d)
		c.order[i] = i
	}
	c.partsOpacity = make([]float32, len(m.Parts))
	for i := range c.partsOpacity {
		c.partsOpacity[i] = 1
	}
	for i := range c.dirty {
		c.dirty[i] = true
	}
	c.initialized = true
	c.initVersion++
}

func (c *Context) registerPivotParams(pm *PivotManager) {
	for _, pp := range pm.Params {
		if _, ok := c.paramIndex[pp.ParamID]; !ok {
			c.AddFloatParam(pp.ParamID, 0, DefaultParamMin, DefaultParamMax)
		}
	}
}

// Release frees the runtime state. The parameter table is kept.
func (c *Context) Release() {
	c.pivots = nil
	c.bases = nil
	c.draws = nil
	c.order = nil
	c.partsOpacity = nil
	c.initialized = false
	c.initVersion++
}

// Initialized reports whether Init has run since creation or Release.
func (c *Context) Initialized() bool { return c.initialized }

// ParamCount returns the number of registered parameters.
func (c *Context) ParamCount() int { return len(c.values) }

// ParamIndex returns the index of id, or -1 if it is not registered.
func (c *Context) ParamIndex(id ParamID) int {
	if i, ok := c.paramIndex[id]; ok {
		return i
	}
	return -1
}

// ParamIDAt returns the id of parameter i.
func (c *Context) ParamIDAt(i int) ParamID {
	c.check(i)
	return c.ids[i]
}

// ParamRange returns the limits and default of parameter i.
func (c *Context) ParamRange(i int) (lo, hi, def float32) {
	c.check(i)
	return c.minValues[i], c.maxValues[i], c.defaults[i]
}

// ResolveParam returns the index ref points at in this context, or -1 if
// the parameter is not registered. The result is cached in ref.
func (c *Context) ResolveParam(ref *ParamRef) int {
	if i, ok := ref.cached(c); ok {
		return i
	}
	return ref.store(c, c.ParamIndex(ref.ID))
}

// AddFloatParam registers a parameter and returns its index. An existing
// id returns its index unchanged. Every new parameter bumps the init
// version, so references cached as missing resolve again.
func (c *Context) AddFloatParam(id ParamID, def, lo, hi float32) int {
	if i, ok := c.paramIndex[id]; ok {
		return i
	}
	i := len(c.values)
	v := math.Clamp(def, lo, hi)
	c.paramIndex[id] = i
	c.ids = append(c.ids, id)
	c.values = append(c.values, v)
	c.minValues = append(c.minValues, lo)
	c.maxValues = append(c.maxValues, hi)
	c.defaults = append(c.defaults, def)
	c.saved = append(c.saved, v)
	c.dirty = append(c.dirty, true)
	c.initVersion++
	return i
}

func (c *Context) check(i int) {
	if i < 0 || i >= len(c.values) {
		panic(&ParamIndexError{Index: i, Len: len(c.values)})
	}
}

func (c *Context) mustIndex(id ParamID) int {
	i, ok := c.paramIndex[id]
	if !ok {
		panic(&ParamIndexError{Index: -1, ID: id, Len: len(c.values)})
	}
	return i
}

// Param returns the current value of parameter i.
func (c *Context) Param(i int) float32 {
	c.check(i)
	return c.values[i]
}

// ParamByID returns the current value of id.
func (c *Context) ParamByID(id ParamID) float32 {
	return c.values[c.mustIndex(id)]
}

// SetParam blends v into parameter i as old*(1-w) + v*w, clamped to the
// parameter range. The parameter is marked dirty only if the stored bits
// change.
func (c *Context) SetParam(i int, v, w float32) {
	c.check(i)
	old := c.values[i]
	c.store(i, old*(1-w)+v*w)
}

// AddParam adds v*w to parameter i.
func (c *Context) AddParam(i int, v, w float32) {
	c.check(i)
	c.store(i, c.values[i]+v*w)
}

// MultParam scales parameter i by 1 + (v-1)*w.
func (c *Context) MultParam(i int, v, w float32) {
	c.check(i)
	c.store(i, c.values[i]*(1+(v-1)*w))
}

// SetParamByID is SetParam by id.
func (c *Context) SetParamByID(id ParamID, v, w float32) { c.SetParam(c.mustIndex(id), v, w) }

// AddParamByID is AddParam by id.
func (c *Context) AddParamByID(id ParamID, v, w float32) { c.AddParam(c.mustIndex(id), v, w) }

// MultParamByID is MultParam by id.
func (c *Context) MultParamByID(id ParamID, v, w float32) { c.MultParam(c.mustIndex(id), v, w) }

func (c *Context) store(i int, v float32) {
	if stdmath.IsNaN(float64(v)) {
		return
	}
	v = math.Clamp(v, c.minValues[i], c.maxValues[i])
	if stdmath.Float32bits(v) == stdmath.Float32bits(c.values[i]) {
		return
	}
	c.values[i] = v
	c.dirty[i] = true
}

// IsDirty reports whether parameter i changed since the last Update.
func (c *Context) IsDirty(i int) bool {
	c.check(i)
	return c.dirty[i]
}

// SaveParam snapshots every parameter value.
func (c *Context) SaveParam() {
	copy(c.saved, c.values)
}

// LoadParam restores the last snapshot.
func (c *Context) LoadParam() {
	for i, v := range c.saved {
		c.store(i, v)
	}
}

// ResetParams restores every parameter to its default.
func (c *Context) ResetParams() {
	for i, d := range c.defaults {
		c.store(i, d)
	}
}

// PartsDataIndex returns the index of part id, or -1.
func (c *Context) PartsDataIndex(id PartsDataID) int {
	if i, ok := c.model.partsIndex[id]; ok {
		return i
	}
	return -1
}

// ResolveParts returns the index ref points at, or -1. The result is
// cached in ref.
func (c *Context) ResolveParts(ref *PartsRef) int {
	if i, ok := ref.cached(c); ok {
		return i
	}
	return ref.store(c, c.PartsDataIndex(ref.ID))
}

// PartsOpacity returns the opacity of part i.
func (c *Context) PartsOpacity(i int) float32 {
	return c.partsOpacity[i]
}

// SetPartsOpacity sets the opacity of part i, clamped to [0, 1].
func (c *Context) SetPartsOpacity(i int, v float32) {
	c.partsOpacity[i] = math.Clamp(v, 0, 1)
}

// SetPartsOpacityByID sets the opacity of part id. Unknown parts are
// ignored.
func (c *Context) SetPartsOpacityByID(id PartsDataID, v float32) {
	if i := c.PartsDataIndex(id); i >= 0 {
		c.SetPartsOpacity(i, v)
	}
}

// PartsOpacityByID returns the opacity of part id, or 0 if it is unknown.
func (c *Context) PartsOpacityByID(id PartsDataID) float32 {
	if i := c.PartsDataIndex(id); i >= 0 {
		return c.partsOpacity[i]
	}
	return 0
}

// BaseDataIndex returns the flat index of deformer id, or -1.
func (c *Context) BaseDataIndex(id BaseDataID) int {
	if i, ok := c.model.baseIndex[id]; ok {
		return i
	}
	return -1
}

// DrawDataIndex returns the flat index of mesh id, or -1.
func (c *Context) DrawDataIndex(id DrawDataID) int {
	if i, ok := c.model.drawIndex[id]; ok {
		return i
	}
	return -1
}
