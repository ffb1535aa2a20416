package motion

import (
	"math/rand/v2"

	"github.com/Faultbox/l2drt/pkg/model"
)

// Default eye parameters.
const (
	ParamEyeLOpen model.ParamID = "PARAM_EYE_L_OPEN"
	ParamEyeROpen model.ParamID = "PARAM_EYE_R_OPEN"
)

type blinkState uint8

const (
	blinkFirst blinkState = iota
	blinkInterval
	blinkClosing
	blinkClosed
	blinkOpening
)

// EyeBlink closes and opens both eyes at random intervals. It runs either
// standalone through Update or queued as a Motion.
type EyeBlink struct {
	Config
	Interval int64 // mean time between blinks, ms
	Closing  int64
	Closed   int64
	Opening  int64
	// CloseIfZero is true when a parameter value of 0 means closed.
	CloseIfZero bool
	// Rand returns values in [0, 1). Nil means math/rand/v2.
	Rand func() float64

	left, right model.ParamRef

	state      blinkState
	stateStart int64
	nextBlink  int64
}

// NewEyeBlink returns a blinker with the usual timings.
func NewEyeBlink() *EyeBlink {
	return &EyeBlink{
		Config:      Config{Weight: 1},
		Interval:    4000,
		Closing:     200,
		Closed:      50,
		Opening:     250,
		CloseIfZero: true,
		left:        model.ParamRef{ID: ParamEyeLOpen},
		right:       model.ParamRef{ID: ParamEyeROpen},
	}
}

// SetEyeIDs changes the parameters the blinker drives.
func (b *EyeBlink) SetEyeIDs(left, right model.ParamID) {
	b.left = model.ParamRef{ID: left}
	b.right = model.ParamRef{ID: right}
}

func (b *EyeBlink) nextBlinkAt(now int64) int64 {
	r := rand.Float64
	if b.Rand != nil {
		r = b.Rand
	}
	return now + int64(r()*float64(2*b.Interval-1))
}

func (b *EyeBlink) enter(s blinkState, now int64) {
	b.state = s
	b.stateStart = now
}

// Value advances the blink state machine to now and returns the eye
// openness.
func (b *EyeBlink) Value(now int64) float32 {
	var v float32
	progress := func(span int64) float32 {
		if span <= 0 {
			return 1
		}
		return float32(now-b.stateStart) / float32(span)
	}

	switch b.state {
	case blinkInterval:
		if now > b.nextBlink {
			b.enter(blinkClosing, now)
		}
		v = 1
	case blinkClosing:
		t := progress(b.Closing)
		if t >= 1 {
			t = 1
			b.enter(blinkClosed, now)
		}
		v = 1 - t
	case blinkClosed:
		if progress(b.Closed) >= 1 {
			b.enter(blinkOpening, now)
		}
		v = 0
	case blinkOpening:
		t := progress(b.Opening)
		if t >= 1 {
			t = 1
			b.enter(blinkInterval, now)
			b.nextBlink = b.nextBlinkAt(now)
		}
		v = t
	default:
		b.enter(blinkInterval, now)
		b.nextBlink = b.nextBlinkAt(now)
		v = 1
	}

	if !b.CloseIfZero {
		v = -v
	}
	return v
}

// Update writes the eye openness at now with full weight.
func (b *EyeBlink) Update(t Target, now int64) {
	b.write(t, b.Value(now), 1)
}

func (b *EyeBlink) write(t Target, v, w float32) {
	if i := t.ResolveParam(&b.left); i >= 0 {
		t.SetParam(i, v, w)
	}
	if i := t.ResolveParam(&b.right); i >= 0 {
		t.SetParam(i, v, w)
	}
}

func (b *EyeBlink) Settings() *Config { return &b.Config }

func (b *EyeBlink) Duration() int64 { return -1 }

func (b *EyeBlink) LoopDuration() int64 { return -1 }

func (b *EyeBlink) UpdateParam(t Target, _ *QueueEnt, now int64, weight float32) {
	b.write(t, b.Value(now), weight)
}
