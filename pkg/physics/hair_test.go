package physics

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/Faultbox/l2drt/pkg/model"
)

type fakeParams struct {
	ids    []model.ParamID
	values []float32
}

func newFakeParams(ids ...model.ParamID) *fakeParams {
	return &fakeParams{ids: ids, values: make([]float32, len(ids))}
}

func (f *fakeParams) ResolveParam(ref *model.ParamRef) int { return slices.Index(f.ids, ref.ID) }
func (f *fakeParams) Param(i int) float32                  { return f.values[i] }
func (f *fakeParams) SetParam(i int, v, w float32)         { f.values[i] = f.values[i]*(1-w) + v*w }
func (f *fakeParams) AddParam(i int, v, w float32)         { f.values[i] += v * w }

func (f *fakeParams) get(id model.ParamID) float32 { return f.values[slices.Index(f.ids, id)] }
func (f *fakeParams) set(id model.ParamID, v float32) {
	f.values[slices.Index(f.ids, id)] = v
}

func TestFirstUpdatePlacesHairAtRest(t *testing.T) {
	p := newFakeParams("SRC_X", "SRC_Y", "OUT")
	p.set("SRC_X", 2)
	p.set("SRC_Y", 3)
	p.set("OUT", 7)

	h := NewHair()
	h.Setup(0.5, 0.5, 1)
	h.AddSrcParam(SrcX, "SRC_X", 1, 1)
	h.AddSrcParam(SrcY, "SRC_Y", 1, 1)
	h.AddTargetParam(TargetAngle, "OUT", 1, 1, ModeSet)
	h.Update(p, 1000)

	if h.P1 != (Point{X: 2, Y: 3}) || h.P2 != (Point{X: 2, Y: 3.5}) {
		t.Errorf("P1 %+v P2 %+v", h.P1, h.P2)
	}
	if h.Angle() != 0 || p.get("OUT") != 0 {
		t.Errorf("angle %v out %v", h.Angle(), p.get("OUT"))
	}
}

func TestHangingHairStaysAtRest(t *testing.T) {
	h := NewHair()
	p := newFakeParams()
	for now := int64(0); now <= 2000; now += 16 {
		h.Update(p, now)
	}
	if math.Abs(h.Angle()) > 1e-9 || h.KineticEnergy() > 1e-12 {
		t.Errorf("angle %v energy %v", h.Angle(), h.KineticEnergy())
	}
}

func TestStepRecordsForceAndSnapshot(t *testing.T) {
	h := NewHair()
	h.Setup(1, 0, 2)
	h.Step = 1
	p := newFakeParams()
	h.Update(p, 0)
	before := h.P2

	h.Update(p, 100)
	if h.P2.LastX != before.X || h.P2.LastY != before.Y || h.P2.LastVY != before.VY {
		t.Errorf("snapshot %+v, state before %+v", h.P2, before)
	}
	// hanging straight down without drag: gravity is the whole force
	if h.P2.AX != 0 || math.Abs(h.P2.AY-h.Gravity) > 1e-12 {
		t.Errorf("acceleration (%v, %v), want (0, %v)", h.P2.AX, h.P2.AY, h.Gravity)
	}
	if h.P2.FY != h.Mass*h.P2.AY {
		t.Errorf("force %v, mass %v, acceleration %v", h.P2.FY, h.Mass, h.P2.AY)
	}
	if h.P1.FX != 0 || h.P1.FY != 0 {
		t.Errorf("anchor force (%v, %v)", h.P1.FX, h.P1.FY)
	}
}

func TestEnergyDecaysWithoutGravity(t *testing.T) {
	h := NewHair()
	h.Gravity = 0
	h.Setup(1, 0.8, 1)
	p := newFakeParams()
	h.Update(p, 0)
	h.P2.VX = 2

	prev := h.KineticEnergy()
	for now := int64(16); now <= 3000; now += 16 {
		h.Update(p, now)
		e := h.KineticEnergy()
		if !(e < prev) {
			t.Fatalf("t=%d: energy %v did not drop below %v", now, e, prev)
		}
		prev = e
		d := math.Hypot(h.P2.X-h.P1.X, h.P2.Y-h.P1.Y)
		if math.Abs(d-h.Length) > 1e-9 {
			t.Fatalf("t=%d: rod length %v", now, d)
		}
	}
}

func TestAnchorMoveSwingsHair(t *testing.T) {
	p := newFakeParams("PARAM_ANGLE_X", "PARAM_HAIR", "PARAM_HAIR_V")
	h := NewHair()
	h.AddSrcParam(SrcX, "PARAM_ANGLE_X", 1, 1)
	h.AddTargetParam(TargetAngle, "PARAM_HAIR", 1, 1, ModeSet)
	h.AddTargetParam(TargetAngleV, "PARAM_HAIR_V", 1, 1, ModeSet)
	h.Update(p, 0)

	p.set("PARAM_ANGLE_X", 0.5)
	h.Update(p, 100)
	if h.P1.X != 0.5 {
		t.Errorf("anchor x %v", h.P1.X)
	}
	if got := p.get("PARAM_HAIR"); got >= 0 {
		t.Errorf("hair angle %v, want trailing (negative)", got)
	}
	if got := p.get("PARAM_HAIR_V"); got >= 0 {
		t.Errorf("angular velocity %v, want negative", got)
	}

	angle := h.Angle()
	h.Update(p, 100) // no time passed
	if h.Angle() != angle {
		t.Error("zero dt changed the state")
	}
}

func TestGravityAngleSource(t *testing.T) {
	p := newFakeParams("PARAM_TILT")
	p.set("PARAM_TILT", 90)
	h := NewHair()
	h.Setup(1, 2, 1)
	h.AddSrcParam(SrcAngle, "PARAM_TILT", 1, 1)
	for now := int64(0); now <= 10_000; now += 16 {
		h.Update(p, now)
	}
	if math.Abs(h.Angle()-90) > 1 {
		t.Errorf("angle %v, want about 90", h.Angle())
	}
}

func TestLongGapIsBounded(t *testing.T) {
	h := NewHair()
	p := newFakeParams()
	h.Update(p, 0)
	h.P2.VX = 5
	h.Update(p, 60_000)
	if math.IsNaN(h.Angle()) || math.IsInf(h.AngularVelocity(), 0) {
		t.Errorf("angle %v velocity %v", h.Angle(), h.AngularVelocity())
	}
}

func TestAddMode(t *testing.T) {
	p := newFakeParams("SRC", "OUT")
	p.set("OUT", 10)
	h := NewHair()
	h.AddSrcParam(SrcX, "SRC", 1, 1)
	h.AddTargetParam(TargetAngle, "OUT", 2, 0.5, ModeAdd)
	h.Update(p, 0)
	p.set("SRC", 1)
	h.Update(p, 50)
	want := 10 + float32(h.Angle())*2*0.5
	if got := p.get("OUT"); math.Abs(float64(got-want)) > 1e-4 {
		t.Errorf("out %v, want %v", got, want)
	}
}

const samplePhysics = `{
	"type": "Live2D Physics",
	"physics_hair": [
		{
			"comment": "front",
			"setup": {"length": 0.2, "regist": 0.5, "mass": 0.14},
			"src": [
				{"id": "PARAM_ANGLE_X", "ptype": "x", "scale": 0.02, "weight": 1},
				{"id": "PARAM_ANGLE_Z", "ptype": "angle", "scale": 0.8, "weight": 0.5}
			],
			"targets": [
				{"id": "PARAM_HAIR_FRONT", "ptype": "angle", "scale": 0.1, "weight": 1},
				{"id": "PARAM_HAIR_FRONT_V", "ptype": "angle_v", "scale": 0.01, "weight": 1, "mode": "add"}
			]
		},
		{
			"setup": {"length": 0.24, "regist": 0.2},
			"src": [{"id": "PARAM_ANGLE_X", "ptype": "x"}],
			"targets": [{"id": "PARAM_HAIR_BACK", "ptype": "angle"}]
		}
	]
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(samplePhysics))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Hairs) != 2 {
		t.Fatalf("%d hairs", len(s.Hairs))
	}
	front := s.Hairs[0]
	if front.Length != 0.2 || front.AirResistance != 0.5 || front.Mass != 0.14 {
		t.Errorf("setup %v %v %v", front.Length, front.AirResistance, front.Mass)
	}
	if len(front.Srcs) != 2 || front.Srcs[1].Type != SrcAngle || front.Srcs[1].Weight != 0.5 {
		t.Errorf("srcs %+v", front.Srcs)
	}
	if len(front.Targets) != 2 || front.Targets[1].Type != TargetAngleV || front.Targets[1].Mode != ModeAdd {
		t.Errorf("targets %+v", front.Targets)
	}
	back := s.Hairs[1]
	if back.Mass != 1 || back.Srcs[0].Scale != 1 || back.Targets[0].Weight != 1 {
		t.Errorf("defaults not applied: %+v", back)
	}

	s.SetGravity(5)
	s.SetStep(0.01)
	if back.Gravity != 5 || back.Step != 0.01 {
		t.Error("set-wide settings not applied")
	}

	p := newFakeParams("PARAM_ANGLE_X", "PARAM_HAIR_FRONT", "PARAM_HAIR_BACK")
	s.Update(p, 0)
	p.set("PARAM_ANGLE_X", 30)
	s.Update(p, 33)
	if p.get("PARAM_HAIR_FRONT") == 0 || p.get("PARAM_HAIR_BACK") == 0 {
		t.Error("targets not driven")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`{"physics_hair": [`,
		`{"physics_hair": [{"setup": {"length": 0}}]}`,
		`{"physics_hair": [{"setup": {"length": 1, "mass": -1}}]}`,
		`{"physics_hair": [{"setup": {"length": 1}, "src": [{"id": "A", "ptype": "z"}]}]}`,
		`{"physics_hair": [{"setup": {"length": 1}, "targets": [{"id": "A", "ptype": "speed"}]}]}`,
	}
	for _, src := range tests {
		if _, err := Parse([]byte(src)); !errors.Is(err, ErrInvalidPhysics) {
			t.Errorf("%s: err = %v", src, err)
		}
	}
}
