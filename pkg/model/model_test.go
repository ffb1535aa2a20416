package model

import (
	"errors"
	stdmath "math"
	"slices"
	"testing"

	"github.com/Faultbox/l2drt/pkg/moc"
)

func TestMidpointTransform(t *testing.T) {
	for _, le := range []bool{false, true} {
		data := encodeModel(t, buildSyntheticModel(), moc.VersionCurrent, le)
		m, err := Load(data)
		if err != nil {
			t.Fatalf("Load(le=%v): %v", le, err)
		}
		c := newTestContext(t, m)
		c.SetParamByID(testParam, 5, 1)
		c.Update()

		// t = 0.5: origin (50, 25), scale 1.5, rotation 45 degrees.
		s := 1.5 * float32(stdmath.Sqrt2/2)
		want := []float32{
			50, 25,
			50 + s, 25 + s,
			50 - s, 25 + s,
		}
		d := c.DrawDataIndex(testMesh)
		got := c.TransformedPoints(d)
		for k := range want {
			if !approxEqual(got[k], want[k], 1e-4) {
				t.Errorf("le=%v: point[%d] = %v, want %v", le, k, got[k], want[k])
			}
		}
		if st := c.DrawStage(d); st != StageTransformed {
			t.Errorf("mesh stage %v", st)
		}
		b := c.BaseDataIndex(testBase)
		if got := c.BaseScale(b); !approxEqual(got, 1.5, 1e-6) {
			t.Errorf("total scale %v", got)
		}
	}
}

func TestUpdateOnlyOnChange(t *testing.T) {
	c := newTestContext(t, buildSyntheticModel())
	c.SetParamByID(testParam, 10, 1)
	c.Update()
	d := c.DrawDataIndex(testMesh)
	first := slices.Clone(c.TransformedPoints(d))

	c.Update()
	if !slices.Equal(first, c.TransformedPoints(d)) {
		t.Error("points changed without a parameter change")
	}
	// sample 1: origin (100, 50), scale 2, rotation 90
	if !approxEqual(first[2], 100, 1e-4) || !approxEqual(first[3], 52, 1e-4) {
		t.Errorf("point 1 = (%v, %v), want (100, 52)", first[2], first[3])
	}
}

func TestOutsideParamHidesMesh(t *testing.T) {
	m := buildSyntheticModel()
	m.Params[0].Min, m.Params[0].Max = -20, 20
	c := newTestContext(t, m)
	d := c.DrawDataIndex(testMesh)

	c.SetParamByID(testParam, 5, 1)
	c.Update()
	if !c.IsDrawAvailable(d) {
		t.Fatal("mesh unavailable inside the pivot range")
	}
	c.SetParamByID(testParam, 11, 1)
	c.Update()
	if c.IsDrawAvailable(d) || c.BaseAvailable(c.BaseDataIndex(testBase)) {
		t.Error("entity available outside the pivot range")
	}
}

func meshAt(id DrawDataID, target BaseDataID, pm *PivotManager, orders ...int32) *DrawData {
	n := pm.SampleCount()
	pts := make([][]float32, n)
	for i := range pts {
		pts[i] = []float32{0, 0, 1, 0, 0, 1}
	}
	return &DrawData{
		ID:               id,
		TargetID:         target,
		Pivots:           pm,
		AverageDrawOrder: orders[0],
		PivotDrawOrder:   orders,
		NumPts:           3,
		NumPolygons:      1,
		Indices:          []uint16{0, 1, 2},
		PivotPoints:      pts,
		UVs:              []float32{0, 0, 1, 0, 0, 1},
	}
}

func TestDrawOrderStable(t *testing.T) {
	m := buildSyntheticModel()
	parts := m.Parts[0]
	parts.DrawData = []*DrawData{
		meshAt("A", DstBaseID, pivots(testParam, 0), 500),
		meshAt("B", DstBaseID, pivots(testParam, 0, 10), 900, 100),
		meshAt("C", DstBaseID, pivots(testParam, 0), 500),
	}
	c := newTestContext(t, m)
	names := func() []DrawDataID {
		var out []DrawDataID
		for _, i := range c.DrawOrder() {
			out = append(out, m.DrawDataAt(i).ID)
		}
		return out
	}

	tests := []struct {
		v    float32
		want []DrawDataID
	}{
		{0, []DrawDataID{"A", "C", "B"}},
		{10, []DrawDataID{"B", "A", "C"}},
		{5, []DrawDataID{"A", "B", "C"}}, // tie at 500 keeps declaration order
		{6, []DrawDataID{"B", "A", "C"}}, // round(420)
		{4, []DrawDataID{"A", "C", "B"}}, // round(580)
	}
	for _, tt := range tests {
		c.SetParamByID(testParam, tt.v, 1)
		c.Update()
		if got := names(); !slices.Equal(got, tt.want) {
			t.Errorf("v=%v: order %v, want %v", tt.v, got, tt.want)
		}
	}
}

func gridModel() *Model {
	m := buildSyntheticModel()
	grid := &BaseData{
		Kind:     BaseBoxGrid,
		ID:       "B_GRID",
		TargetID: DstBaseID,
		Pivots:   pivots(testParam, 0),
		Col:      1,
		Row:      1,
		GridPoints: [][]float32{{
			0, 0, 10, 0,
			0, 20, 10, 20,
		}},
	}
	child := &BaseData{
		Kind:     BaseAffine,
		ID:       "B_CHILD",
		TargetID: "B_GRID",
		Pivots:   pivots(testParam, 0),
		Affines:  []*AffineEnt{{OriginX: 0.5, OriginY: 0.5, ScaleX: 1, ScaleY: 1}},
	}
	onGrid := meshAt("D_GRID", "B_GRID", pivots(testParam, 0), 100)
	onGrid.PivotPoints = [][]float32{{0.5, 0.5, 1.5, 0, 0, 1}}
	onChild := meshAt("D_CHILD", "B_CHILD", pivots(testParam, 0), 200)
	// declared before its parent: evaluation order must not depend on it
	m.Parts[0].BaseData = []*BaseData{child, grid}
	m.Parts[0].DrawData = []*DrawData{onGrid, onChild}
	return m
}

func TestBoxGridMapping(t *testing.T) {
	c := newTestContext(t, gridModel())
	c.Update()

	got := c.TransformedPoints(c.DrawDataIndex("D_GRID"))
	want := []float32{5, 10, 15, 0, 0, 20}
	for k := range want {
		if !approxEqual(got[k], want[k], 1e-4) {
			t.Errorf("grid point[%d] = %v, want %v", k, got[k], want[k])
		}
	}

	// origin maps to (5, 10); the grid is axis aligned so no rotation.
	got = c.TransformedPoints(c.DrawDataIndex("D_CHILD"))
	want = []float32{5, 10, 6, 10, 5, 11}
	for k := range want {
		if !approxEqual(got[k], want[k], 1e-4) {
			t.Errorf("child point[%d] = %v, want %v", k, got[k], want[k])
		}
	}
}

func TestGridRoundTrip(t *testing.T) {
	m, err := Load(encodeModel(t, gridModel(), moc.VersionCurrent, false))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := m.BaseDataAt(1)
	if b.Kind != BaseBoxGrid || b.Col != 1 || b.Row != 1 || len(b.GridPoints[0]) != 8 {
		t.Errorf("grid decoded as %+v", b)
	}
}

func TestDrawOpacityAndBinding(t *testing.T) {
	m := buildSyntheticModel()
	base := m.Parts[0].BaseData[0]
	base.PivotOpacity = []float32{1, 0}
	mesh := m.Parts[0].DrawData[0]
	mesh.PivotOpacity = []float32{0.5}
	mesh.SetBlendMode(BlendMultiply)

	loaded, err := Load(encodeModel(t, m, moc.VersionCurrent, false))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := newTestContext(t, loaded)
	c.SetParamByID(testParam, 5, 1)
	c.SetPartsOpacityByID(testParts, 0.8)
	c.Update()

	r := &recordingRenderer{}
	c.Draw(r)
	if len(r.calls) != 0 {
		t.Fatalf("unbound texture drawn: %+v", r.calls)
	}

	slot := r.GenerateTextureSlot()
	c.BindTexture(0, slot)
	c.Draw(r)
	if len(r.calls) != 1 {
		t.Fatalf("got %d draw calls", len(r.calls))
	}
	call := r.calls[0]
	if call.tex != slot || call.mode != BlendMultiply {
		t.Errorf("call %+v", call)
	}
	if want := float32(0.5 * 0.8 * 0.5); !approxEqual(call.opacity, want, 1e-6) {
		t.Errorf("opacity %v, want %v", call.opacity, want)
	}

	c.SetParamByID(testParam, 10, 1) // base opacity 0
	c.Update()
	r.calls = nil
	c.Draw(r)
	if len(r.calls) != 0 {
		t.Error("transparent mesh drawn")
	}

	c.ReleaseTextures(r)
	if !slices.Equal(r.released, []int{slot}) {
		t.Errorf("released %v", r.released)
	}
}

func TestVersionGating(t *testing.T) {
	src := buildSyntheticModel()
	src.Parts[0].BaseData[0].PivotOpacity = []float32{1, 0.5}
	src.Parts[0].BaseData[0].Affines[1].ReflectX = true
	mesh := src.Parts[0].DrawData[0]
	mesh.PivotOpacity = []float32{0.25}
	mesh.ClipID = "D_MASK"
	mesh.OptionFlag = 1 << 1
	mesh.Culling = true

	tests := []struct {
		version     int
		meshOpacity bool
		option      bool
		sdk2        bool
		culling     bool
		avatarParts bool
	}{
		{moc.VersionInitial, false, false, false, false, false},
		{moc.VersionOpacity, true, false, false, false, false},
		{moc.VersionTextureOption, true, true, false, false, false},
		{moc.VersionAvatarParts, true, true, false, false, true},
		{moc.VersionSDK2, true, true, true, false, true},
		{moc.VersionSDK21, true, true, true, true, true},
	}
	for _, tt := range tests {
		src.AvatarParts = []*AvatarPartsItem{{PartsID: testParts}}
		m, err := Load(encodeModel(t, src, tt.version, tt.version%2 == 0))
		if err != nil {
			t.Fatalf("v%d: %v", tt.version, err)
		}
		if m.Version != tt.version {
			t.Errorf("v%d: decoded version %d", tt.version, m.Version)
		}
		d := m.DrawDataAt(0)
		b := m.BaseDataAt(0)
		if got := d.PivotOpacity != nil; got != tt.meshOpacity {
			t.Errorf("v%d: mesh opacity present = %v", tt.version, got)
		}
		if got := d.BlendMode() == BlendScreen; got != tt.option {
			t.Errorf("v%d: option flag = %d", tt.version, d.OptionFlag)
		}
		if got := b.PivotOpacity != nil && b.Affines[1].ReflectX && d.ClipID == "D_MASK"; got != tt.sdk2 {
			t.Errorf("v%d: sdk2 fields present = %v", tt.version, got)
		}
		if d.Culling != tt.culling {
			t.Errorf("v%d: culling = %v", tt.version, d.Culling)
		}
		if got := m.AvatarPart(testParts) != nil; got != tt.avatarParts {
			t.Errorf("v%d: avatar parts present = %v", tt.version, got)
		}
	}
}

func TestSharedIDsInterned(t *testing.T) {
	m, err := Load(encodeModel(t, buildSyntheticModel(), moc.VersionCurrent, false))
	if err != nil {
		t.Fatal(err)
	}
	b := m.BaseDataAt(0)
	d := m.DrawDataAt(0)
	if d.TargetID != b.ID {
		t.Errorf("target %q, id %q", d.TargetID, b.ID)
	}
	if m.TextureCount() != 1 {
		t.Errorf("texture count %d", m.TextureCount())
	}
}

func TestLoadErrors(t *testing.T) {
	good := encodeModel(t, buildSyntheticModel(), moc.VersionCurrent, false)

	degenerate := buildSyntheticModel()
	degenerate.Parts[0].BaseData[0].Pivots = pivots(testParam)

	unknown := buildSyntheticModel()
	unknown.Parts[0].DrawData[0].TargetID = "B_NOWHERE"

	cyclic := buildSyntheticModel()
	cyclic.Parts[0].BaseData[0].TargetID = testBase

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated", good[:len(good)-7], moc.ErrEOF},
		{"no end marker", good[:len(good)-4], moc.ErrEOF},
		{"bad magic", append([]byte("MOC"), good[3:]...), moc.ErrInvalidMagic},
		{"degenerate pivots", encodeModel(t, degenerate, moc.VersionCurrent, false), ErrPivotTableDegenerate},
		{"unknown target", encodeModel(t, unknown, moc.VersionCurrent, false), ErrUnknownTarget},
		{"cycle", encodeModel(t, cyclic, moc.VersionCurrent, false), ErrTargetCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if m != nil {
				t.Error("model returned with error")
			}
		})
	}
}

func TestLoadArenaStats(t *testing.T) {
	main, scratch := moc.NewArena(256), moc.NewArena(256)
	data := encodeModel(t, buildSyntheticModel(), moc.VersionCurrent, false)
	m, err := LoadWithOptions(data, LoadOptions{Main: main, Scratch: scratch})
	if err != nil {
		t.Fatal(err)
	}
	if s := main.Stats(); s.Allocs == 0 || s.Bytes == 0 {
		t.Errorf("main pool unused: %+v", s)
	}
	if s := scratch.Stats(); s.Allocs == 0 || s.Clears != 1 || s.Bytes != 0 {
		t.Errorf("scratch pool not cleared: %+v", s)
	}
	if got := m.DrawDataAt(0).Indices; !slices.Equal(got, []uint16{0, 1, 2}) {
		t.Errorf("indices %v", got)
	}
}
