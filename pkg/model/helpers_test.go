package model

import (
	stdmath "math"
	"testing"

	"github.com/Faultbox/l2drt/pkg/moc"
)

const (
	testParam = ParamID("PARAM_X")
	testBase  = BaseDataID("B_ROOT")
	testMesh  = DrawDataID("D_FACE")
	testParts = PartsDataID("PARTS_FACE")
)

func approxEqual(a, b, eps float32) bool {
	return float32(stdmath.Abs(float64(a-b))) <= eps
}

func pivots(id ParamID, values ...float32) *PivotManager {
	return &PivotManager{Params: []*ParamPivots{{ParamID: id, Values: values}}}
}

// buildSyntheticModel returns a model with one parameter PARAM_X in
// [0, 10], one affine deformer with pivots at 0 and 10, and one textured
// triangle bound to it.
func buildSyntheticModel() *Model {
	base := &BaseData{
		Kind:     BaseAffine,
		ID:       testBase,
		TargetID: DstBaseID,
		Pivots:   pivots(testParam, 0, 10),
		Affines: []*AffineEnt{
			{OriginX: 0, OriginY: 0, ScaleX: 1, ScaleY: 1, RotateDeg: 0},
			{OriginX: 100, OriginY: 50, ScaleX: 2, ScaleY: 2, RotateDeg: 90},
		},
	}
	mesh := &DrawData{
		Kind:             DrawTexture,
		ID:               testMesh,
		TargetID:         testBase,
		Pivots:           pivots(testParam, 0),
		AverageDrawOrder: 500,
		PivotDrawOrder:   []int32{500},
		TextureNo:        0,
		NumPts:           3,
		NumPolygons:      1,
		Indices:          []uint16{0, 1, 2},
		PivotPoints:      [][]float32{{0, 0, 1, 0, 0, 1}},
		UVs:              []float32{0, 0, 1, 0, 0, 1},
	}
	return &Model{
		CanvasWidth:  1024,
		CanvasHeight: 1024,
		Params:       []*ParamDef{{ID: testParam, Min: 0, Max: 10, Default: 0}},
		Parts: []*PartsData{{
			ID:       testParts,
			Visible:  true,
			BaseData: []*BaseData{base},
			DrawData: []*DrawData{mesh},
		}},
	}
}

func newTestContext(t *testing.T, m *Model) *Context {
	t.Helper()
	c, err := NewContext(m)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	c.Init()
	return c
}

func encodeModel(t *testing.T, m *Model, version int, le bool) []byte {
	t.Helper()
	data, err := Encode(m, moc.Header{Version: version, LittleEndian: le})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

type drawCall struct {
	tex      int
	vertices []float32
	opacity  float32
	mode     BlendMode
}

type recordingRenderer struct {
	calls    []drawCall
	next     int
	released []int
}

func (r *recordingRenderer) DrawMesh(tex int, indices []uint16, vertices, uvs []float32, opacity float32, mode BlendMode) {
	r.calls = append(r.calls, drawCall{tex: tex, vertices: append([]float32(nil), vertices...), opacity: opacity, mode: mode})
}

func (r *recordingRenderer) GenerateTextureSlot() int {
	r.next++
	return r.next
}

func (r *recordingRenderer) ReleaseTextureSlot(slot int) {
	r.released = append(r.released, slot)
}
