// Package player runs an avatar headless: a fixed-rate frame loop that
// updates the model, rasterizes it and writes snapshots.
package player

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/internal/avatar"
	"github.com/Faultbox/l2drt/internal/config"
	"github.com/Faultbox/l2drt/internal/logger"
	"github.com/Faultbox/l2drt/internal/raster"
	"github.com/Faultbox/l2drt/internal/sound"
	"github.com/Faultbox/l2drt/pkg/motion"
)

// Player owns one avatar and the renderer it draws into.
type Player struct {
	cfg      *config.Config
	log      *zap.Logger
	manual   *motion.ManualClock // nil when running on wall time
	clock    motion.Clock
	avatar   *avatar.Avatar
	renderer *raster.Renderer
	snap     *raster.Snapshotter
	sound    *sound.Manager
	frame    int
	written  []string
}

// New loads the configured model and prepares the renderer.
func New(cfg *config.Config) (*Player, error) {
	if cfg.Model.Path == "" {
		return nil, fmt.Errorf("no model configured")
	}
	bg, err := raster.ParseColor(cfg.Render.Background)
	if err != nil {
		return nil, fmt.Errorf("render.background: %w", err)
	}

	p := &Player{
		cfg: cfg,
		log: logger.Named("player"),
	}
	if cfg.Runtime.Realtime {
		p.clock = motion.NewSystemClock()
	} else {
		p.manual = &motion.ManualClock{}
		p.clock = p.manual
	}

	if cfg.Audio.Enabled {
		p.sound = sound.New(float64(cfg.Audio.Volume))
		if err := p.sound.Init(); err != nil {
			// Lip sync still follows the clips without a device.
			p.log.Warn("audio device unavailable", zap.Error(err))
		}
	}

	seed := cfg.Runtime.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts := avatar.Options{
		Clock:          p.clock,
		Rand:           rand.New(rand.NewPCG(seed, seed>>1|1)),
		Sound:          p.sound,
		MaxTextureSize: cfg.Render.MaxTextureSize,
		IdleGroup:      cfg.Model.IdleGroup,
		Physics:        cfg.Runtime.Physics,
		EyeBlink:       cfg.Runtime.EyeBlink,
		Breath:         cfg.Runtime.Breath,
		LipSync:        cfg.Audio.LipSync,
	}
	if p.avatar, err = avatar.Load(cfg.Model.Path, opts); err != nil {
		p.Close()
		return nil, err
	}
	if name := cfg.Model.Expression; name != "" {
		if err := p.avatar.SetExpression(name); err != nil {
			p.log.Warn("startup expression", zap.Error(err))
		}
	}

	p.renderer = raster.New(cfg.Render.Width, cfg.Render.Height)
	p.renderer.SetBackground(bg)
	p.renderer.SetProjection(p.avatar.Projection(cfg.Render.Width, cfg.Render.Height))
	p.avatar.BindTextures(p.renderer)

	if cfg.Render.SnapshotEvery > 0 {
		base := filepath.Base(cfg.Model.Path)
		prefix := strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), ".model")
		p.snap = raster.NewSnapshotter(cfg.Render.OutputDir, prefix, cfg.Render.Format)
	}

	p.log.Info("player ready",
		zap.String("model", cfg.Model.Path),
		zap.Int("width", cfg.Render.Width),
		zap.Int("height", cfg.Render.Height),
		zap.Int("fps", cfg.Runtime.FPS),
		zap.Bool("realtime", cfg.Runtime.Realtime),
		zap.Uint64("seed", seed))
	return p, nil
}

// Avatar returns the playing avatar.
func (p *Player) Avatar() *avatar.Avatar { return p.avatar }

// Renderer returns the frame renderer.
func (p *Player) Renderer() *raster.Renderer { return p.renderer }

// Frame returns the number of frames stepped so far.
func (p *Player) Frame() int { return p.frame }

// Written lists the snapshot files written so far.
func (p *Player) Written() []string { return p.written }

// Frames returns how many frames the configured duration covers, or 0 for
// an unbounded run.
func (p *Player) Frames() int {
	return int(p.cfg.Runtime.Duration * float64(p.cfg.Runtime.FPS))
}

// Step advances one frame: time, avatar update, rasterization and, when
// due, a snapshot.
func (p *Player) Step() error {
	if p.manual != nil {
		p.manual.Set(int64(p.frame) * 1000 / int64(p.cfg.Runtime.FPS))
	}
	p.avatar.Update()
	p.renderer.Begin()
	p.avatar.Draw(p.renderer)

	if p.snap != nil && p.frame%p.cfg.Render.SnapshotEvery == 0 {
		path, err := p.snap.Capture(p.renderer.Image(), p.frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", p.frame, err)
		}
		p.written = append(p.written, path)
		p.log.Debug("snapshot", zap.String("path", path))
	}
	p.frame++
	return nil
}

// Run steps frames until the configured duration is covered or ctx is
// done. In realtime mode frames are paced to the wall clock.
func (p *Player) Run(ctx context.Context) error {
	total := p.Frames()
	interval := time.Second / time.Duration(p.cfg.Runtime.FPS)

	var tick <-chan time.Time
	if p.cfg.Runtime.Realtime {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	p.log.Info("starting frame loop", zap.Int("frames", total))
	statsTimer := time.Now()
	statsFrames := 0
	for total == 0 || p.frame < total {
		if err := ctx.Err(); err != nil {
			p.log.Info("frame loop interrupted", zap.Int("frame", p.frame))
			return nil
		}
		if err := p.Step(); err != nil {
			return err
		}

		statsFrames++
		if time.Since(statsTimer) >= time.Second {
			st := p.renderer.Stats()
			p.log.Debug("fps",
				zap.Int("count", statsFrames),
				zap.Int("meshes", st.Meshes),
				zap.Int("triangles", st.Triangles))
			statsFrames = 0
			statsTimer = time.Now()
		}

		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}
	p.log.Info("frame loop finished", zap.Int("frames", p.frame), zap.Int("snapshots", len(p.written)))
	return nil
}

// Close releases textures and the audio device.
func (p *Player) Close() {
	if p.avatar != nil && p.renderer != nil {
		p.avatar.ReleaseTextures(p.renderer)
	}
	if p.sound != nil {
		p.sound.Close()
	}
}
