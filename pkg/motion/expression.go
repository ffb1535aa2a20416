package motion

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/Faultbox/l2drt/pkg/encoding"
	"github.com/Faultbox/l2drt/pkg/model"
)

// Calc is how an expression combines with the current parameter value.
type Calc uint8

const (
	CalcAdd Calc = iota
	CalcMult
	CalcSet
)

func (c Calc) String() string {
	switch c {
	case CalcMult:
		return "mult"
	case CalcSet:
		return "set"
	default:
		return "add"
	}
}

// ExpressionParam is one parameter offset of an expression. Value is
// already relative for CalcAdd (val - def) and CalcMult (val / def).
type ExpressionParam struct {
	ID    model.ParamID
	Value float32
	Calc  Calc

	ref model.ParamRef
}

// Expression holds a facial pose that persists until replaced.
type Expression struct {
	Config
	Params []*ExpressionParam
}

// LoadExpression reads and parses an expression file.
func LoadExpression(path string) (*Expression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e, err := ParseExpression(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return e, nil
}

// ParseExpression parses expression JSON:
//
//	{"fade_in": 500, "fade_out": 500,
//	 "params": [{"id": "PARAM_EYE_L_OPEN", "val": 0, "def": 1, "calc": "mult"}]}
func ParseExpression(data []byte) (*Expression, error) {
	data = encoding.DecodeBytes(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed expression json", ErrInvalidMotion)
	}
	root := gjson.ParseBytes(data)

	e := &Expression{Config: DefaultConfig()}
	if v := root.Get("fade_in"); v.Exists() {
		e.FadeIn = v.Int()
	}
	if v := root.Get("fade_out"); v.Exists() {
		e.FadeOut = v.Int()
	}

	var err error
	root.Get("params").ForEach(func(_, p gjson.Result) bool {
		id := p.Get("id").String()
		if id == "" {
			err = fmt.Errorf("%w: expression parameter without id", ErrInvalidMotion)
			return false
		}
		val := float32(p.Get("val").Float())
		ep := &ExpressionParam{ID: model.ParamID(id), ref: model.ParamRef{ID: model.ParamID(id)}}
		switch p.Get("calc").String() {
		case "mult":
			def := float32(1)
			if d := p.Get("def"); d.Exists() && d.Float() != 0 {
				def = float32(d.Float())
			}
			ep.Calc, ep.Value = CalcMult, val/def
		case "set":
			ep.Calc, ep.Value = CalcSet, val
		default:
			ep.Calc, ep.Value = CalcAdd, val-float32(p.Get("def").Float())
		}
		e.Params = append(e.Params, ep)
		return true
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Expression) Settings() *Config { return &e.Config }

// Duration is -1: an expression holds until faded out.
func (e *Expression) Duration() int64 { return -1 }

func (e *Expression) LoopDuration() int64 { return -1 }

func (e *Expression) UpdateParam(t Target, _ *QueueEnt, _ int64, weight float32) {
	for _, p := range e.Params {
		i := t.ResolveParam(&p.ref)
		if i < 0 {
			continue
		}
		switch p.Calc {
		case CalcMult:
			t.MultParam(i, p.Value, weight)
		case CalcSet:
			t.SetParam(i, p.Value, weight)
		default:
			t.AddParam(i, p.Value, weight)
		}
	}
}
