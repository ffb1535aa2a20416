// Package motion drives model parameters over time.
//
// A Motion writes parameter values into a Target each tick, scaled by a
// weight. A QueueManager runs several motions at once and fades them in
// and out; PriorityQueueManager adds the idle/normal/force arbitration
// applications use to decide whether a new motion may interrupt.
//
// Times are integer milliseconds from a Clock.
package motion

import (
	"errors"

	"github.com/Faultbox/l2drt/pkg/model"
)

// ErrInvalidMotion is returned for malformed motion or expression files.
var ErrInvalidMotion = errors.New("invalid motion")

// Target is the parameter store motions write to. *model.Context
// implements it.
type Target interface {
	ResolveParam(ref *model.ParamRef) int
	Param(i int) float32
	SetParam(i int, v, w float32)
	AddParam(i int, v, w float32)
	MultParam(i int, v, w float32)
	ResolveParts(ref *model.PartsRef) int
	SetPartsOpacity(i int, v float32)
}

// Config holds the fade and loop settings every motion carries.
type Config struct {
	FadeIn     int64   // ms; 0 starts at full weight
	FadeOut    int64   // ms; 0 ends at full weight
	Weight     float32 // overall scale of the motion's effect
	Loop       bool
	LoopFadeIn bool // fade in again on every loop
}

// DefaultConfig is the configuration new motions start from.
func DefaultConfig() Config {
	return Config{FadeIn: 1000, FadeOut: 1000, Weight: 1}
}

// Motion is a time-driven parameter writer.
type Motion interface {
	Settings() *Config
	// Duration returns the play length in ms, or -1 for motions that never
	// finish on their own.
	Duration() int64
	// LoopDuration returns the length of one loop in ms, or -1.
	LoopDuration() int64
	// UpdateParam writes the motion's values for time now. weight already
	// includes the entry's fades.
	UpdateParam(t Target, ent *QueueEnt, now int64, weight float32)
}

// Priority ranks queued motions.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityIdle
	PriorityNormal
	PriorityForce
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityNormal:
		return "normal"
	case PriorityForce:
		return "force"
	default:
		return "none"
	}
}
