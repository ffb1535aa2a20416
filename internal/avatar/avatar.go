// Package avatar assembles a playable character from a model.json: the
// model context, its textures, motions, expressions, physics and pose,
// driven through one Update per frame.
package avatar

import (
	"fmt"
	"image"
	stdmath "math"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/internal/logger"
	"github.com/Faultbox/l2drt/internal/sound"
	"github.com/Faultbox/l2drt/internal/texture"
	"github.com/Faultbox/l2drt/pkg/math"
	"github.com/Faultbox/l2drt/pkg/model"
	"github.com/Faultbox/l2drt/pkg/motion"
	"github.com/Faultbox/l2drt/pkg/physics"
)

// Standard parameters driven by the avatar itself.
const (
	ParamAngleX     model.ParamID = "PARAM_ANGLE_X"
	ParamAngleY     model.ParamID = "PARAM_ANGLE_Y"
	ParamAngleZ     model.ParamID = "PARAM_ANGLE_Z"
	ParamBodyAngleX model.ParamID = "PARAM_BODY_ANGLE_X"
	ParamEyeBallX   model.ParamID = "PARAM_EYE_BALL_X"
	ParamEyeBallY   model.ParamID = "PARAM_EYE_BALL_Y"
	ParamBreath     model.ParamID = "PARAM_BREATH"
	ParamMouthOpenY model.ParamID = "PARAM_MOUTH_OPEN_Y"
)

// Motion groups and hit areas with built-in meaning.
const (
	GroupIdle    = "idle"
	GroupTapBody = "tap_body"
	HitAreaHead  = "head"
	HitAreaBody  = "body"
)

const lipSyncWeight = 0.8

// Options controls what an Avatar drives on its own.
type Options struct {
	Clock motion.Clock
	Rand  *rand.Rand
	// Sound plays motion sounds and feeds lip sync. Nil disables both.
	Sound *sound.Manager
	// Textures shares decoded images between avatars. Nil uses a private cache.
	Textures *texture.Cache
	// MaxTextureSize downscales larger textures; 0 keeps them as they are.
	MaxTextureSize int

	IdleGroup string
	Physics   bool
	EyeBlink  bool
	Breath    bool
	LipSync   bool
}

// DefaultOptions enables every automatic behavior on the system clock.
func DefaultOptions() Options {
	return Options{
		Clock:     motion.NewSystemClock(),
		IdleGroup: GroupIdle,
		Physics:   true,
		EyeBlink:  true,
		Breath:    true,
		LipSync:   true,
	}
}

// Avatar is a loaded character.
type Avatar struct {
	Settings *Settings
	dir      string
	opts     Options
	log      *zap.Logger
	rnd      *rand.Rand

	ctx    *model.Context
	matrix *ModelMatrix

	textures []*image.NRGBA

	motions     *motion.PriorityQueueManager
	expressions *motion.QueueManager
	preloaded   map[string]*motion.Keyframe
	sounds      map[string][]byte

	exprNames []string
	exprs     map[string]*motion.Expression

	physics *physics.Set
	pose    *Pose
	blink   *motion.EyeBlink
	target  TargetPoint

	refs     stdRefs
	lastTime int64
	started  bool
}

type stdRefs struct {
	angleX, angleY, angleZ *model.ParamRef
	bodyAngleX             *model.ParamRef
	eyeBallX, eyeBallY     *model.ParamRef
	breath, mouthOpenY     *model.ParamRef
}

func newStdRefs() stdRefs {
	return stdRefs{
		angleX:     model.NewParamRef(ParamAngleX),
		angleY:     model.NewParamRef(ParamAngleY),
		angleZ:     model.NewParamRef(ParamAngleZ),
		bodyAngleX: model.NewParamRef(ParamBodyAngleX),
		eyeBallX:   model.NewParamRef(ParamEyeBallX),
		eyeBallY:   model.NewParamRef(ParamEyeBallY),
		breath:     model.NewParamRef(ParamBreath),
		mouthOpenY: model.NewParamRef(ParamMouthOpenY),
	}
}

// Load opens a model.json, or a bare .moc file with no extras.
func Load(path string, opts Options) (*Avatar, error) {
	var s *Settings
	if strings.EqualFold(filepath.Ext(path), ".moc") {
		s = &Settings{Model: filepath.Base(path)}
	} else {
		var err error
		if s, err = LoadSettings(path); err != nil {
			return nil, err
		}
	}
	return New(s, filepath.Dir(path), opts)
}

// New builds an avatar from settings whose paths are relative to dir.
// Missing optional files are logged and skipped; only the model itself is
// required.
func New(s *Settings, dir string, opts Options) (*Avatar, error) {
	if opts.Clock == nil {
		opts.Clock = motion.NewSystemClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.IdleGroup == "" {
		opts.IdleGroup = GroupIdle
	}
	if opts.Textures == nil {
		opts.Textures = texture.NewCache(opts.MaxTextureSize)
	}

	a := &Avatar{
		Settings:    s,
		dir:         dir,
		opts:        opts,
		log:         logger.Named("avatar").With(zap.String("model", s.Model)),
		rnd:         opts.Rand,
		motions:     motion.NewPriorityQueueManager(opts.Clock),
		expressions: motion.NewQueueManager(opts.Clock),
		preloaded:   make(map[string]*motion.Keyframe),
		sounds:      make(map[string][]byte),
		exprs:       make(map[string]*motion.Expression),
		refs:        newStdRefs(),
	}

	m, err := model.LoadFile(a.path(s.Model))
	if err != nil {
		return nil, err
	}
	if a.ctx, err = model.NewContext(m); err != nil {
		return nil, fmt.Errorf("preparing %s: %w", s.Model, err)
	}
	a.ctx.Init()
	a.matrix = NewModelMatrix(float32(m.CanvasWidth), float32(m.CanvasHeight))
	a.matrix.SetupLayout(s.Layout)

	a.loadTextures()
	a.loadExpressions()
	a.loadPhysics()
	a.loadPose()
	a.applyInitValues()
	a.preloadMotions()

	if opts.EyeBlink {
		a.blink = motion.NewEyeBlink()
		a.blink.Rand = a.rnd.Float64
	}

	if a.pose != nil {
		a.pose.Update(a.ctx, 0)
	}
	a.ctx.SaveParam()

	a.log.Info("avatar loaded",
		zap.Int("params", a.ctx.ParamCount()),
		zap.Int("textures", len(a.textures)),
		zap.Int("expressions", len(a.exprNames)),
		zap.Int("motion_groups", len(s.Motions)))
	return a, nil
}

func (a *Avatar) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.dir, name)
}

func (a *Avatar) loadTextures() {
	paths := make([]string, len(a.Settings.Textures))
	for i, t := range a.Settings.Textures {
		paths[i] = a.path(t)
	}
	imgs, errs := a.opts.Textures.LoadAll(paths)
	for i, err := range errs {
		if err != nil {
			a.log.Warn("texture unavailable", zap.Int("texture", i), zap.Error(err))
		}
	}
	a.textures = imgs
}

func (a *Avatar) loadExpressions() {
	for _, e := range a.Settings.Expressions {
		expr, err := motion.LoadExpression(a.path(e.File))
		if err != nil {
			a.log.Warn("expression unavailable", zap.String("expression", e.Name), zap.Error(err))
			continue
		}
		if _, dup := a.exprs[e.Name]; !dup {
			a.exprNames = append(a.exprNames, e.Name)
		}
		a.exprs[e.Name] = expr
	}
}

func (a *Avatar) loadPhysics() {
	if a.Settings.Physics == "" || !a.opts.Physics {
		return
	}
	set, err := physics.Load(a.path(a.Settings.Physics))
	if err != nil {
		a.log.Warn("physics unavailable", zap.Error(err))
		return
	}
	a.physics = set
}

func (a *Avatar) loadPose() {
	if a.Settings.Pose == "" {
		return
	}
	p, err := LoadPose(a.path(a.Settings.Pose))
	if err != nil {
		a.log.Warn("pose unavailable", zap.Error(err))
		return
	}
	a.pose = p
}

func (a *Avatar) applyInitValues() {
	for _, v := range a.Settings.InitParams {
		if i := a.ctx.ParamIndex(model.ParamID(v.ID)); i >= 0 {
			a.ctx.SetParam(i, v.Value, 1)
		} else {
			a.log.Debug("init_param for unknown parameter", zap.String("id", v.ID))
		}
	}
	for _, v := range a.Settings.InitParts {
		a.ctx.SetPartsOpacityByID(model.PartsDataID(v.ID), v.Value)
	}
}

// preloadMotions keeps the idle group in memory; other groups load on
// demand.
func (a *Avatar) preloadMotions() {
	for no, e := range a.Settings.Motions[a.opts.IdleGroup] {
		name := motionName(a.opts.IdleGroup, no)
		k, err := a.loadMotion(e)
		if err != nil {
			a.log.Warn("motion unavailable", zap.String("motion", name), zap.Error(err))
			continue
		}
		a.preloaded[name] = k
	}
}

func (a *Avatar) loadMotion(e MotionEntry) (*motion.Keyframe, error) {
	k, err := motion.LoadKeyframe(a.path(e.File))
	if err != nil {
		return nil, err
	}
	if e.FadeIn != nil {
		k.FadeIn = *e.FadeIn
	}
	if e.FadeOut != nil {
		k.FadeOut = *e.FadeOut
	}
	return k, nil
}

func motionName(group string, no int) string {
	return fmt.Sprintf("%s_%d", group, no)
}

// Context returns the model context.
func (a *Avatar) Context() *model.Context { return a.ctx }

// Matrix returns the model matrix.
func (a *Avatar) Matrix() *ModelMatrix { return a.matrix }

// Motions returns the main motion queue.
func (a *Avatar) Motions() *motion.PriorityQueueManager { return a.motions }

// Expressions lists the loaded expression names in file order.
func (a *Avatar) Expressions() []string { return slices.Clone(a.exprNames) }

// Textures returns the decoded texture images; unavailable ones are nil.
func (a *Avatar) Textures() []*image.NRGBA { return a.textures }

// Update advances the avatar to the clock's current time.
func (a *Avatar) Update() {
	now := a.opts.Clock.Now()
	var dt float64
	if a.started {
		dt = float64(now-a.lastTime) / 1000
	}
	a.lastTime, a.started = now, true

	a.ctx.LoadParam()
	if a.motions.IsFinished() {
		a.StartRandomMotion(a.opts.IdleGroup, motion.PriorityIdle)
	} else {
		a.motions.Update(a.ctx)
	}
	a.ctx.SaveParam()

	a.expressions.Update(a.ctx)

	a.target.Update(dt)
	dx, dy := float32(a.target.X), float32(a.target.Y)
	a.add(a.refs.angleX, dx*30, 1)
	a.add(a.refs.angleY, dy*30, 1)
	a.add(a.refs.angleZ, dx*dy, 1)
	a.add(a.refs.bodyAngleX, dx*10, 1)
	a.add(a.refs.eyeBallX, dx, 1)
	a.add(a.refs.eyeBallY, dy, 1)

	if a.opts.Breath {
		a.breathe(now)
	}
	if a.physics != nil {
		a.physics.Update(a.ctx, now)
	}
	if a.blink != nil {
		a.blink.Update(a.ctx, now)
	}
	if a.opts.LipSync && a.opts.Sound != nil {
		if lv := a.opts.Sound.Level(now); lv > 0 {
			a.set(a.refs.mouthOpenY, lv, lipSyncWeight)
		}
	}
	if a.pose != nil {
		a.pose.Update(a.ctx, dt)
	}
	a.ctx.Update()
}

func (a *Avatar) breathe(now int64) {
	t := float64(now) / 1000 * 2 * stdmath.Pi
	wave := func(amp, period float64) float32 {
		return float32(amp * stdmath.Sin(t/period))
	}
	a.add(a.refs.angleX, wave(15, 6.5345), 0.5)
	a.add(a.refs.angleY, wave(8, 3.5345), 0.5)
	a.add(a.refs.angleZ, wave(10, 5.5345), 0.5)
	a.add(a.refs.bodyAngleX, wave(4, 15.5345), 0.5)
	a.set(a.refs.breath, 0.5+wave(0.5, 3.2345), 1)
}

func (a *Avatar) add(ref *model.ParamRef, v, w float32) {
	if i := a.ctx.ResolveParam(ref); i >= 0 {
		a.ctx.AddParam(i, v, w)
	}
}

func (a *Avatar) set(ref *model.ParamRef, v, w float32) {
	if i := a.ctx.ResolveParam(ref); i >= 0 {
		a.ctx.SetParam(i, v, w)
	}
}

// TextureUploader takes decoded images and returns the renderer slot
// holding each.
type TextureUploader interface {
	UploadTexture(img *image.NRGBA) int
}

// BindTextures uploads every available texture and binds it to its
// texture number. Unavailable textures stay unbound and their meshes are
// skipped when drawing.
func (a *Avatar) BindTextures(u TextureUploader) {
	for no, img := range a.textures {
		if img == nil {
			continue
		}
		a.ctx.BindTexture(no, u.UploadTexture(img))
	}
}

// ReleaseTextures frees the renderer slots bound by BindTextures.
func (a *Avatar) ReleaseTextures(r model.Renderer) {
	a.ctx.ReleaseTextures(r)
}

// Draw renders the current state.
func (a *Avatar) Draw(r model.Renderer) {
	a.ctx.Draw(r)
}

// Projection maps canvas coordinates to NDC for a w×h viewport.
func (a *Avatar) Projection(w, h int) math.Mat4 {
	return a.matrix.Projection(w, h)
}
