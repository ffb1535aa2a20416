// Package model holds character model templates and the live contexts that
// evaluate them.
//
// A Model is decoded once and never mutated afterwards; any number of
// Contexts can share it. A Context owns the parameter values and every
// per-frame buffer, and is not safe for concurrent use.
package model

import (
	"sync"
)

// ParamDef describes one parameter of the model.
type ParamDef struct {
	ID      ParamID
	Min     float32
	Max     float32
	Default float32
}

// ParamPivots is the ascending list of pivot values one parameter takes in
// a PivotManager.
type ParamPivots struct {
	ParamID ParamID
	Values  []float32

	slot int // index into Context pivot caches, assigned by Prepare
}

// Count returns the number of pivots.
func (p *ParamPivots) Count() int { return len(p.Values) }

// PivotManager lists the parameters that drive one deformer or mesh.
// Samples are stored with the first parameter varying fastest.
type PivotManager struct {
	Params []*ParamPivots
}

// SampleCount returns the number of samples the pivot grid addresses.
func (pm *PivotManager) SampleCount() int {
	n := 1
	for _, p := range pm.Params {
		n *= p.Count()
	}
	return n
}

// BaseKind tags the deformer variants.
type BaseKind uint8

const (
	BaseAffine BaseKind = iota
	BaseBoxGrid
)

func (k BaseKind) String() string {
	switch k {
	case BaseAffine:
		return "affine"
	case BaseBoxGrid:
		return "boxgrid"
	default:
		return "unknown"
	}
}

// AffineEnt is one affine deformer sample.
type AffineEnt struct {
	OriginX   float32
	OriginY   float32
	ScaleX    float32
	ScaleY    float32
	RotateDeg float32
	ReflectX  bool // v10+
	ReflectY  bool // v10+
}

// BaseData is a deformer. Kind selects which sample fields are used:
// Affines for BaseAffine, Col/Row/GridPoints for BaseBoxGrid.
type BaseData struct {
	Kind         BaseKind
	ID           BaseDataID
	TargetID     BaseDataID
	Pivots       *PivotManager
	PivotOpacity []float32 // per sample, nil means fully opaque (v10+)

	Affines []*AffineEnt

	Col        int
	Row        int
	GridPoints [][]float32 // per sample, NumPts()*2 floats
}

// NumPts returns the number of grid points of a BoxGrid deformer.
func (b *BaseData) NumPts() int {
	return (b.Col + 1) * (b.Row + 1)
}

// DrawKind tags the mesh variants. The format defines only textured meshes.
type DrawKind uint8

const (
	DrawTexture DrawKind = iota
)

// BlendMode is the color composition of a mesh.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendScreen
	BlendMultiply
)

func (b BlendMode) String() string {
	switch b {
	case BlendScreen:
		return "screen"
	case BlendMultiply:
		return "multiply"
	default:
		return "normal"
	}
}

const optionColorComposition = 0x1E

// DrawData is a textured triangle mesh bound to one deformer.
type DrawData struct {
	Kind             DrawKind
	ID               DrawDataID
	TargetID         BaseDataID
	Pivots           *PivotManager
	AverageDrawOrder int32
	PivotDrawOrder   []int32
	PivotOpacity     []float32 // v7+, nil means fully opaque
	ClipID           string    // v10+

	TextureNo   int
	NumPts      int
	NumPolygons int
	Indices     []uint16
	PivotPoints [][]float32 // per sample, NumPts*2 floats
	UVs         []float32
	OptionFlag  int32 // v8+
	Culling     bool  // v11+
}

// BlendMode decodes the color composition bits of OptionFlag.
func (d *DrawData) BlendMode() BlendMode {
	switch (d.OptionFlag & optionColorComposition) >> 1 {
	case 1:
		return BlendScreen
	case 2:
		return BlendMultiply
	default:
		return BlendNormal
	}
}

// SetBlendMode stores mode in the color composition bits of OptionFlag.
func (d *DrawData) SetBlendMode(mode BlendMode) {
	d.OptionFlag = d.OptionFlag&^optionColorComposition | int32(mode)<<1
}

// PartsData groups deformers and meshes that are shown and hidden together.
type PartsData struct {
	ID       PartsDataID
	Visible  bool
	Locked   bool
	BaseData []*BaseData
	DrawData []*DrawData
}

// AvatarPartsItem is a replacement set of deformers and meshes for a part
// (v9+).
type AvatarPartsItem struct {
	PartsID  PartsDataID
	BaseData []*BaseData
	DrawData []*DrawData
}

// Model is an immutable character template.
type Model struct {
	Version      int
	LittleEndian bool
	CanvasWidth  int
	CanvasHeight int
	Params       []*ParamDef
	Parts        []*PartsData
	AvatarParts  []*AvatarPartsItem

	once    sync.Once
	prepErr error

	pivotSlots int
	paramIndex map[ParamID]int

	bases     []*BaseData
	baseParts []int
	baseIndex map[BaseDataID]int
	baseOrder []int // parents before children
	baseTgt   []int // parent base index, -1 for the canvas

	draws     []*DrawData
	drawParts []int
	drawIndex map[DrawDataID]int
	drawTgt   []int

	partsIndex map[PartsDataID]int
}

// BaseDataCount returns the number of deformers across all parts.
func (m *Model) BaseDataCount() int { return len(m.bases) }

// DrawDataCount returns the number of meshes across all parts.
func (m *Model) DrawDataCount() int { return len(m.draws) }

// BaseDataAt returns the deformer with the given flat index.
func (m *Model) BaseDataAt(i int) *BaseData { return m.bases[i] }

// DrawDataAt returns the mesh with the given flat index.
func (m *Model) DrawDataAt(i int) *DrawData { return m.draws[i] }

// AvatarPart returns the replacement set registered for id, if any.
func (m *Model) AvatarPart(id PartsDataID) *AvatarPartsItem {
	for _, a := range m.AvatarParts {
		if a.PartsID == id {
			return a
		}
	}
	return nil
}

// TextureCount returns one more than the highest texture number used.
func (m *Model) TextureCount() int {
	n := 0
	for _, d := range m.draws {
		if d.TextureNo+1 > n {
			n = d.TextureNo + 1
		}
	}
	return n
}
