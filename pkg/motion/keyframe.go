package motion

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/l2drt/pkg/encoding"
	"github.com/Faultbox/l2drt/pkg/model"
)

// DefaultFPS is the frame rate of keyframe files that do not declare one.
const DefaultFPS = 30

// CurveKind is what a keyframe curve drives.
type CurveKind uint8

const (
	CurveParam   CurveKind = iota // a model parameter
	CurveVisible                  // a part's opacity, written without weight
	CurveLayout                   // layout values, kept for the application
)

const (
	prefixVisible = "VISIBLE:"
	prefixLayout  = "LAYOUT:"
)

// Curve is one animated value, sampled once per frame.
type Curve struct {
	Kind   CurveKind
	ID     string
	Values []float32
	// FadeIn and FadeOut override the motion's fades for this curve when
	// non-negative.
	FadeIn  int64
	FadeOut int64

	param model.ParamRef
	parts model.PartsRef
}

// Keyframe is a motion made of per-frame curves.
type Keyframe struct {
	Config
	FPS    float32
	Curves []*Curve

	maxFrames int
}

// LoadKeyframe reads and parses a keyframe motion file.
func LoadKeyframe(path string) (*Keyframe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := ParseKeyframe(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return k, nil
}

// ParseKeyframe parses keyframe motion text. Shift_JIS and UTF-16 input is
// converted first.
func ParseKeyframe(data []byte) (*Keyframe, error) {
	k := &Keyframe{Config: DefaultConfig(), FPS: DefaultFPS}
	fadeIn := map[string]int64{}
	fadeOut := map[string]int64{}

	sc := bufio.NewScanner(bytes.NewReader(encoding.DecodeBytes(data)))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing '='", ErrInvalidMotion, line)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if setting, found := strings.CutPrefix(key, "$"); found {
			if err := k.applySetting(setting, value, fadeIn, fadeOut); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidMotion, line, err)
			}
			continue
		}

		c, err := parseCurve(key, value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidMotion, line, err)
		}
		k.Curves = append(k.Curves, c)
		k.maxFrames = max(k.maxFrames, len(c.Values))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMotion, err)
	}

	for _, c := range k.Curves {
		if v, ok := fadeIn[c.ID]; ok {
			c.FadeIn = v
		}
		if v, ok := fadeOut[c.ID]; ok {
			c.FadeOut = v
		}
	}
	return k, nil
}

func (k *Keyframe) applySetting(key, value string, fadeIn, fadeOut map[string]int64) error {
	name, id, perCurve := strings.Cut(key, ":")
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return fmt.Errorf("setting %q: %v", key, err)
	}
	switch strings.ToLower(name) {
	case "fps":
		if perCurve || f <= 0 {
			return fmt.Errorf("bad fps %q", value)
		}
		k.FPS = float32(f)
	case "fadein":
		if perCurve {
			fadeIn[id] = int64(f)
		} else {
			k.FadeIn = int64(f)
		}
	case "fadeout":
		if perCurve {
			fadeOut[id] = int64(f)
		} else {
			k.FadeOut = int64(f)
		}
	}
	// unknown settings are ignored
	return nil
}

func parseCurve(key, value string) (*Curve, error) {
	c := &Curve{Kind: CurveParam, ID: key, FadeIn: -1, FadeOut: -1}
	if id, ok := strings.CutPrefix(key, prefixVisible); ok {
		c.Kind, c.ID = CurveVisible, id
	} else if id, ok := strings.CutPrefix(key, prefixLayout); ok {
		c.Kind, c.ID = CurveLayout, id
	}
	if c.ID == "" {
		return nil, fmt.Errorf("empty curve id")
	}
	c.param.ID = model.ParamID(c.ID)
	c.parts.ID = model.PartsDataID(c.ID)
	if c.Kind == CurveVisible {
		// Pose groups select their part through this parameter.
		c.param.ID = model.ParamID(prefixVisible + c.ID)
	}

	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, fmt.Errorf("curve %q: %v", key, err)
		}
		c.Values = append(c.Values, float32(v))
	}
	return c, nil
}

func (k *Keyframe) Settings() *Config { return &k.Config }

// MaxFrames is the length of the longest curve.
func (k *Keyframe) MaxFrames() int { return k.maxFrames }

// LoopDuration is the play length of one pass in ms.
func (k *Keyframe) LoopDuration() int64 {
	return int64(float64(k.maxFrames) * 1000 / float64(k.FPS))
}

// Duration is LoopDuration, or -1 when looping.
func (k *Keyframe) Duration() int64 {
	if k.Loop {
		return -1
	}
	return k.LoopDuration()
}

// Sample returns the value of c ms milliseconds into the motion. Curves
// shorter than the motion hold their last value.
func (k *Keyframe) Sample(c *Curve, ms int64) float32 {
	n := len(c.Values)
	if n == 0 {
		return 0
	}
	frame := float64(ms) * float64(k.FPS) / 1000
	if frame <= 0 {
		return c.Values[0]
	}
	i := int(math.Floor(frame))
	if i >= n-1 {
		return c.Values[n-1]
	}
	r := float32(frame - float64(i))
	return c.Values[i] + (c.Values[i+1]-c.Values[i])*r
}

// Curve returns the curve with the given kind and id, or nil.
func (k *Keyframe) Curve(kind CurveKind, id string) *Curve {
	for _, c := range k.Curves {
		if c.Kind == kind && c.ID == id {
			return c
		}
	}
	return nil
}

// Layout returns the layout values at ms.
func (k *Keyframe) Layout(ms int64) map[string]float32 {
	out := map[string]float32{}
	for _, c := range k.Curves {
		if c.Kind == CurveLayout {
			out[c.ID] = k.Sample(c, ms)
		}
	}
	return out
}

func (k *Keyframe) UpdateParam(t Target, ent *QueueEnt, now int64, weight float32) {
	elapsed := now - ent.StartTime()
	for _, c := range k.Curves {
		switch c.Kind {
		case CurveParam:
			i := t.ResolveParam(&c.param)
			if i < 0 {
				continue
			}
			w := weight
			if c.FadeIn >= 0 || c.FadeOut >= 0 {
				fi, fo := c.FadeIn, c.FadeOut
				if fi < 0 {
					fi = k.FadeIn
				}
				if fo < 0 {
					fo = k.FadeOut
				}
				w = k.Weight * ent.Fade(now, fi, fo)
			}
			t.SetParam(i, k.Sample(c, elapsed), w)
		case CurveVisible:
			v := k.Sample(c, elapsed)
			if i := t.ResolveParts(&c.parts); i >= 0 {
				t.SetPartsOpacity(i, v)
			}
			if i := t.ResolveParam(&c.param); i >= 0 {
				t.SetParam(i, v, 1)
			}
		}
	}
}
