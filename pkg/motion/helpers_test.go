package motion

import (
	stdmath "math"
	"slices"

	"github.com/Faultbox/l2drt/pkg/model"
)

// fakeTarget is an unclamped parameter store.
type fakeTarget struct {
	ids     []model.ParamID
	values  []float32
	parts   []model.PartsDataID
	opacity []float32
}

func newFakeTarget(ids ...model.ParamID) *fakeTarget {
	return &fakeTarget{ids: ids, values: make([]float32, len(ids))}
}

func (f *fakeTarget) withParts(ids ...model.PartsDataID) *fakeTarget {
	f.parts = ids
	f.opacity = make([]float32, len(ids))
	return f
}

func (f *fakeTarget) ResolveParam(ref *model.ParamRef) int { return slices.Index(f.ids, ref.ID) }
func (f *fakeTarget) Param(i int) float32                  { return f.values[i] }
func (f *fakeTarget) SetParam(i int, v, w float32)         { f.values[i] = f.values[i]*(1-w) + v*w }
func (f *fakeTarget) AddParam(i int, v, w float32)         { f.values[i] += v * w }
func (f *fakeTarget) MultParam(i int, v, w float32)        { f.values[i] *= 1 + (v-1)*w }
func (f *fakeTarget) ResolveParts(ref *model.PartsRef) int { return slices.Index(f.parts, ref.ID) }
func (f *fakeTarget) SetPartsOpacity(i int, v float32)     { f.opacity[i] = v }

func (f *fakeTarget) get(id model.ParamID) float32 {
	return f.values[slices.Index(f.ids, id)]
}

func (f *fakeTarget) set(id model.ParamID, v float32) {
	f.values[slices.Index(f.ids, id)] = v
}

// recMotion records the weight of its last update.
type recMotion struct {
	cfg   Config
	dur   int64
	last  float32
	calls int
}

func (m *recMotion) Settings() *Config  { return &m.cfg }
func (m *recMotion) Duration() int64    { return m.dur }
func (m *recMotion) LoopDuration() int64 { return m.dur }

func (m *recMotion) UpdateParam(_ Target, _ *QueueEnt, _ int64, w float32) {
	m.last = w
	m.calls++
}

func approxEqual(a, b, eps float32) bool {
	return float32(stdmath.Abs(float64(a-b))) <= eps
}
