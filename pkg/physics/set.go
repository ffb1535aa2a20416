package physics

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/Faultbox/l2drt/pkg/encoding"
	"github.com/Faultbox/l2drt/pkg/model"
)

// Set is every hair of a model, updated in declaration order.
type Set struct {
	Hairs []*Hair
}

// Load reads and parses a physics file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes physics JSON:
//
//	{"physics_hair": [{
//	  "setup":   {"length": 0.2, "regist": 0.5, "mass": 0.14},
//	  "src":     [{"id": "PARAM_ANGLE_X", "ptype": "x", "scale": 0.02, "weight": 1}],
//	  "targets": [{"id": "PARAM_HAIR_FRONT", "ptype": "angle", "scale": 0.1, "weight": 1}]
//	}]}
func Parse(data []byte) (*Set, error) {
	data = encoding.DecodeBytes(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidPhysics)
	}
	root := gjson.ParseBytes(data)
	s := &Set{}

	var err error
	root.Get("physics_hair").ForEach(func(key, v gjson.Result) bool {
		var h *Hair
		h, err = parseHair(v)
		if err != nil {
			err = fmt.Errorf("hair %d: %w", key.Int(), err)
			return false
		}
		s.Hairs = append(s.Hairs, h)
		return true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseHair(v gjson.Result) (*Hair, error) {
	h := NewHair()
	setup := v.Get("setup")
	length := setup.Get("length").Float()
	if length <= 0 {
		return nil, fmt.Errorf("%w: length %v", ErrInvalidPhysics, length)
	}
	mass := 1.0
	if m := setup.Get("mass"); m.Exists() {
		mass = m.Float()
	}
	if mass <= 0 {
		return nil, fmt.Errorf("%w: mass %v", ErrInvalidPhysics, mass)
	}
	h.Setup(length, setup.Get("regist").Float(), mass)

	var err error
	v.Get("src").ForEach(func(_, s gjson.Result) bool {
		var typ SrcType
		switch s.Get("ptype").String() {
		case "x":
			typ = SrcX
		case "y":
			typ = SrcY
		case "angle":
			typ = SrcAngle
		default:
			err = fmt.Errorf("%w: source type %q", ErrInvalidPhysics, s.Get("ptype").String())
			return false
		}
		h.AddSrcParam(typ, model.ParamID(s.Get("id").String()), scaleOf(s), weightOf(s))
		return true
	})
	if err != nil {
		return nil, err
	}

	v.Get("targets").ForEach(func(_, t gjson.Result) bool {
		var typ TargetType
		switch t.Get("ptype").String() {
		case "angle":
			typ = TargetAngle
		case "angle_v":
			typ = TargetAngleV
		default:
			err = fmt.Errorf("%w: target type %q", ErrInvalidPhysics, t.Get("ptype").String())
			return false
		}
		mode := ModeSet
		if t.Get("mode").String() == "add" {
			mode = ModeAdd
		}
		h.AddTargetParam(typ, model.ParamID(t.Get("id").String()), scaleOf(t), weightOf(t), mode)
		return true
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func scaleOf(v gjson.Result) float32 {
	if s := v.Get("scale"); s.Exists() {
		return float32(s.Float())
	}
	return 1
}

func weightOf(v gjson.Result) float32 {
	if w := v.Get("weight"); w.Exists() {
		return float32(w.Float())
	}
	return 1
}

// Update advances every hair to now (ms).
func (s *Set) Update(p Params, now int64) {
	for _, h := range s.Hairs {
		h.Update(p, now)
	}
}

// SetGravity changes the gravity magnitude of every hair.
func (s *Set) SetGravity(g float64) {
	for _, h := range s.Hairs {
		h.Gravity = g
	}
}

// SetStep changes the integration sub-step of every hair.
func (s *Set) SetStep(step float64) {
	for _, h := range s.Hairs {
		h.Step = step
	}
}
