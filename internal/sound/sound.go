// Package sound plays motion voice clips and derives a lip-sync level from them.
package sound

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/internal/logger"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// Manager plays voice clips through a single mixer. Without Init it still
// decodes clips and tracks envelopes, so lip sync works headless.
type Manager struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate
	volume      float64
	mixer       *beep.Mixer
	current     *Voice
	log         *zap.Logger
}

// New creates a manager with volume in [0, 1].
func New(volume float64) *Manager {
	return &Manager{
		sampleRate: DefaultSampleRate,
		volume:     clamp(volume, 0, 1),
		mixer:      &beep.Mixer{},
		log:        logger.Named("sound"),
	}
}

// Init opens the audio device.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(m.mixer)
	m.initialized = true
	return nil
}

// Close stops playback and releases the device.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		speaker.Clear()
	}
	m.initialized = false
	m.current = nil
}

// IsInitialized returns whether the audio device is open.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetVolume sets the volume (0.0 to 1.0) for clips started afterwards.
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp(vol, 0, 1)
}

// Volume returns the volume.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Voice is one started clip.
type Voice struct {
	Name     string
	Start    int64 // clock ms the clip started at
	Envelope *Envelope
	ctrl     *beep.Ctrl
}

// Level returns the envelope value at clock time now.
func (v *Voice) Level(now int64) float32 {
	return v.Envelope.At(now - v.Start)
}

// Done reports whether the clip has ended at clock time now.
func (v *Voice) Done(now int64) bool {
	return now-v.Start >= v.Envelope.Duration()
}

// Play decodes WAV data, starts it at clock time now and makes it the
// voice that drives lip sync. The previous voice is stopped.
func (m *Manager) Play(data []byte, name string, now int64) (*Voice, error) {
	buf, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	v := &Voice{
		Name:     name,
		Start:    now,
		Envelope: NewEnvelope(buf, DefaultWindow),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.ctrl != nil {
		speaker.Lock()
		m.current.ctrl.Paused = true
		m.current.ctrl.Streamer = nil
		speaker.Unlock()
	}
	m.current = v

	if !m.initialized {
		m.log.Debug("voice tracked without device", zap.String("name", name))
		return v, nil
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if f := buf.Format(); f.SampleRate != m.sampleRate {
		s = beep.Resample(4, f.SampleRate, m.sampleRate, s)
	}
	v.ctrl = &beep.Ctrl{Streamer: s}
	vol := &effects.Volume{
		Streamer: v.ctrl,
		Base:     2,
		Volume:   volumeExponent(m.volume),
		Silent:   m.volume <= 0,
	}
	speaker.Lock()
	m.mixer.Add(vol)
	speaker.Unlock()

	m.log.Debug("voice started", zap.String("name", name), zap.Int64("ms", v.Envelope.Duration()))
	return v, nil
}

// Current returns the voice driving lip sync, or nil.
func (m *Manager) Current() *Voice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Level returns the lip-sync level of the current voice at now, or 0.
func (m *Manager) Level(now int64) float32 {
	v := m.Current()
	if v == nil {
		return 0
	}
	return v.Level(now)
}

// DecodeWAV decodes a WAV clip fully into memory.
func DecodeWAV(data []byte) (*beep.Buffer, error) {
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return buf, nil
}

// volumeExponent converts a 0-1 volume to the base-2 exponent effects.Volume
// expects: vol=1 -> 0, vol=0.5 -> -1.
func volumeExponent(vol float64) float64 {
	if vol <= 0 {
		return -100 // Effectively silent
	}
	return math.Log2(vol)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
