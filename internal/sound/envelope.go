package sound

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// DefaultWindow is the RMS window, one frame at 30 fps.
const DefaultWindow = time.Second / 30

// Envelope is the RMS level of a clip sampled per window.
type Envelope struct {
	Values   []float32
	WindowMS int64
}

// NewEnvelope computes the RMS of both channels for each window of buf.
func NewEnvelope(buf *beep.Buffer, window time.Duration) *Envelope {
	n := buf.Format().SampleRate.N(window)
	if n < 1 {
		n = 1
	}
	env := &Envelope{WindowMS: max(1, window.Milliseconds())}

	s := buf.Streamer(0, buf.Len())
	chunk := make([][2]float64, n)
	for {
		got, ok := s.Stream(chunk)
		if got > 0 {
			var sum float64
			for _, smp := range chunk[:got] {
				sum += smp[0]*smp[0] + smp[1]*smp[1]
			}
			env.Values = append(env.Values, float32(math.Sqrt(sum/float64(2*got))))
		}
		if !ok || got < n {
			break
		}
	}
	return env
}

// Duration returns the clip length covered by the envelope in ms.
func (e *Envelope) Duration() int64 {
	return int64(len(e.Values)) * e.WindowMS
}

// At returns the level at ms into the clip, clamped to [0, 1]. Times
// outside the clip are silent.
func (e *Envelope) At(ms int64) float32 {
	if ms < 0 || e.WindowMS <= 0 {
		return 0
	}
	i := ms / e.WindowMS
	if i >= int64(len(e.Values)) {
		return 0
	}
	return min(1, e.Values[i])
}

// Peak returns the largest level.
func (e *Envelope) Peak() float32 {
	var p float32
	for _, v := range e.Values {
		p = max(p, v)
	}
	return p
}
