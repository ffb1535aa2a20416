package model

import "github.com/Faultbox/l2drt/pkg/moc"

// ParamID names a parameter.
type ParamID string

// BaseDataID names a deformer.
type BaseDataID string

// PartsDataID names a part.
type PartsDataID string

// DrawDataID names a mesh.
type DrawDataID string

// DstBaseID is the target of deformers and meshes that sit directly on the
// canvas. An empty target means the same.
const DstBaseID BaseDataID = "DST_BASE"

// IsRoot reports whether id refers to the canvas rather than a deformer.
func (id BaseDataID) IsRoot() bool {
	return id == "" || id == DstBaseID
}

func (ParamID) MOCClass() int     { return moc.ClassParamID }
func (BaseDataID) MOCClass() int  { return moc.ClassBaseDataID }
func (PartsDataID) MOCClass() int { return moc.ClassPartsDataID }
func (DrawDataID) MOCClass() int  { return moc.ClassDrawDataID }

func (id ParamID) EncodeMOC(w *moc.Writer)     { w.WriteString(string(id)) }
func (id BaseDataID) EncodeMOC(w *moc.Writer)  { w.WriteString(string(id)) }
func (id PartsDataID) EncodeMOC(w *moc.Writer) { w.WriteString(string(id)) }
func (id DrawDataID) EncodeMOC(w *moc.Writer)  { w.WriteString(string(id)) }

// Ref caches the index an ID resolves to in one Context. The cache is
// dropped whenever the context changes or its init version moves, so a Ref
// can be shared between contexts at the cost of re-resolving.
type Ref[T ~string] struct {
	ID T

	owner   *Context
	version int
	index   int
}

// ParamRef is a cached parameter lookup.
type ParamRef = Ref[ParamID]

// PartsRef is a cached part lookup.
type PartsRef = Ref[PartsDataID]

// NewParamRef returns an unresolved reference to id.
func NewParamRef(id ParamID) *ParamRef {
	return &ParamRef{ID: id}
}

// NewPartsRef returns an unresolved reference to id.
func NewPartsRef(id PartsDataID) *PartsRef {
	return &PartsRef{ID: id}
}

func (r *Ref[T]) cached(c *Context) (int, bool) {
	if r.owner == c && r.version == c.initVersion {
		return r.index, true
	}
	return 0, false
}

func (r *Ref[T]) store(c *Context, index int) int {
	r.owner = c
	r.version = c.initVersion
	r.index = index
	return index
}
