// Package physics simulates secondary motion: a two-point pendulum whose
// anchor follows model parameters and whose swing drives other parameters.
package physics

import (
	"errors"
	"math"

	"github.com/Faultbox/l2drt/pkg/model"
)

// ErrInvalidPhysics is returned for malformed physics files.
var ErrInvalidPhysics = errors.New("invalid physics")

// Defaults for new hairs.
const (
	DefaultGravity = 9.8
	DefaultStep    = 1.0 / 60
	// MaxDelta caps the time simulated by one update, in seconds. Longer
	// gaps (a paused application) are not replayed.
	MaxDelta = 1.0
)

// Params is the parameter store a hair reads and writes. *model.Context
// implements it.
type Params interface {
	ResolveParam(ref *model.ParamRef) int
	Param(i int) float32
	SetParam(i int, v, w float32)
	AddParam(i int, v, w float32)
}

// SrcType selects what a source parameter drives.
type SrcType uint8

const (
	SrcX     SrcType = iota // anchor x
	SrcY                    // anchor y
	SrcAngle                // gravity direction, degrees
)

// TargetType selects which output a target parameter receives.
type TargetType uint8

const (
	TargetAngle  TargetType = iota // pendulum angle, degrees
	TargetAngleV                   // angular velocity, degrees per second
)

// WriteMode is how a target is written.
type WriteMode uint8

const (
	ModeSet WriteMode = iota
	ModeAdd
)

// Src binds a parameter to an input of the pendulum.
type Src struct {
	Type   SrcType
	ID     model.ParamID
	Scale  float32
	Weight float32

	ref model.ParamRef
}

// Target binds an output of the pendulum to a parameter.
type Target struct {
	Type   TargetType
	ID     model.ParamID
	Scale  float32
	Weight float32
	Mode   WriteMode

	ref model.ParamRef
}

// Point is a simulated mass. The acceleration and force are those of the
// last integration step; Last* hold the state before it.
type Point struct {
	X, Y   float64
	VX, VY float64
	AX, AY float64
	FX, FY float64

	LastX, LastY   float64
	LastVX, LastVY float64
}

func (p *Point) snapshot() {
	p.LastX, p.LastY = p.X, p.Y
	p.LastVX, p.LastVY = p.VX, p.VY
}

// Hair is a pendulum of fixed length. P1 is the anchor, moved by the
// source parameters; P2 swings under gravity and air resistance.
type Hair struct {
	P1, P2 Point

	Length        float64
	AirResistance float64
	Mass          float64
	Gravity       float64 // acceleration magnitude
	GravityAngle  float64 // degrees; 0 pulls toward +Y
	Step          float64 // fixed integration sub-step, seconds

	Srcs    []*Src
	Targets []*Target

	initialized bool
	lastTime    int64
	angle       float64
	angleV      float64
}

// NewHair returns a hair with unit length and mass.
func NewHair() *Hair {
	h := &Hair{Gravity: DefaultGravity, Step: DefaultStep}
	h.Setup(1, 0.5, 1)
	return h
}

// Setup sets the pendulum length, air resistance and mass of P2. The hair
// restarts at rest on its next update.
func (h *Hair) Setup(length, regist, mass float64) {
	h.Length = length
	h.AirResistance = regist
	h.Mass = mass
	h.initialized = false
}

// AddSrcParam binds parameter id to an input.
func (h *Hair) AddSrcParam(typ SrcType, id model.ParamID, scale, weight float32) {
	h.Srcs = append(h.Srcs, &Src{Type: typ, ID: id, Scale: scale, Weight: weight, ref: model.ParamRef{ID: id}})
}

// AddTargetParam binds an output to parameter id.
func (h *Hair) AddTargetParam(typ TargetType, id model.ParamID, scale, weight float32, mode WriteMode) {
	h.Targets = append(h.Targets, &Target{Type: typ, ID: id, Scale: scale, Weight: weight, Mode: mode, ref: model.ParamRef{ID: id}})
}

// Angle returns the angle from P1 to P2 in degrees, 0 along +Y.
func (h *Hair) Angle() float64 { return h.angle }

// AngularVelocity returns the last angle change rate in degrees per second.
func (h *Hair) AngularVelocity() float64 { return h.angleV }

// KineticEnergy returns the kinetic energy of P2.
func (h *Hair) KineticEnergy() float64 {
	return 0.5 * h.Mass * (h.P2.VX*h.P2.VX + h.P2.VY*h.P2.VY)
}

// Update reads the sources, advances the simulation to now (ms) and writes
// the targets. The first call only places the hair at rest.
func (h *Hair) Update(p Params, now int64) {
	ax, ay := h.P1.X, h.P1.Y
	for _, s := range h.Srcs {
		i := p.ResolveParam(&s.ref)
		if i < 0 {
			continue
		}
		v := float64(p.Param(i) * s.Scale)
		w := float64(s.Weight)
		switch s.Type {
		case SrcX:
			ax = ax*(1-w) + v*w
		case SrcY:
			ay = ay*(1-w) + v*w
		case SrcAngle:
			h.GravityAngle = h.GravityAngle*(1-w) + v*w
		}
	}

	if !h.initialized {
		h.P1 = Point{X: ax, Y: ay}
		h.P2 = Point{X: ax, Y: ay + h.Length}
		h.angle, h.angleV = 0, 0
		h.lastTime = now
		h.initialized = true
	} else if dt := float64(now-h.lastTime) / 1000; dt > 0 {
		dt = min(dt, MaxDelta)
		prev := h.angle
		h.simulate(ax, ay, dt)
		h.angle = h.angleP1toP2()
		h.angleV = wrapDeg(h.angle-prev) / dt
		h.lastTime = now
	}

	h.writeTargets(p)
}

func (h *Hair) simulate(ax, ay, dt float64) {
	step := h.Step
	if step <= 0 {
		step = DefaultStep
	}
	n := int(math.Ceil(dt / step))
	sub := dt / float64(n)

	// the anchor is moved kinematically, so it carries no force
	h.P1.snapshot()
	sx, sy := h.P1.X, h.P1.Y
	h.P1.VX = (ax - sx) / dt
	h.P1.VY = (ay - sy) / dt
	h.P1.AX = (h.P1.VX - h.P1.LastVX) / dt
	h.P1.AY = (h.P1.VY - h.P1.LastVY) / dt

	sin, cos := math.Sincos(h.GravityAngle * math.Pi / 180)
	gx, gy := h.Gravity*sin, h.Gravity*cos
	drag := 0.0
	if h.Mass > 0 {
		drag = h.AirResistance / h.Mass
	}

	for k := 1; k <= n; k++ {
		f := float64(k) / float64(n)
		h.P1.X = sx + (ax-sx)*f
		h.P1.Y = sy + (ay-sy)*f
		h.stepP2(gx, gy, drag, sub)
	}
}

// stepP2 advances P2 by one sub-step of length dt.
func (h *Hair) stepP2(gx, gy, drag, dt float64) {
	p := &h.P2
	p.snapshot()

	// semi-implicit Euler with implicit linear drag
	p.VX = (p.VX + gx*dt) / (1 + drag*dt)
	p.VY = (p.VY + gy*dt) / (1 + drag*dt)
	p.AX = gx - drag*p.VX
	p.AY = gy - drag*p.VY
	p.FX = h.Mass * p.AX
	p.FY = h.Mass * p.AY
	p.X += p.VX * dt
	p.Y += p.VY * dt

	// keep the rod length
	dx, dy := p.X-h.P1.X, p.Y-h.P1.Y
	if d := math.Hypot(dx, dy); d > 1e-12 {
		p.X = h.P1.X + dx*h.Length/d
		p.Y = h.P1.Y + dy*h.Length/d
	} else {
		p.X, p.Y = h.P1.X, h.P1.Y+h.Length
	}

	p.VX = (p.X - p.LastX) / dt
	p.VY = (p.Y - p.LastY) / dt
}

func (h *Hair) angleP1toP2() float64 {
	return math.Atan2(h.P2.X-h.P1.X, h.P2.Y-h.P1.Y) * 180 / math.Pi
}

func (h *Hair) writeTargets(p Params) {
	for _, t := range h.Targets {
		i := p.ResolveParam(&t.ref)
		if i < 0 {
			continue
		}
		var v float64
		switch t.Type {
		case TargetAngle:
			v = h.angle
		case TargetAngleV:
			v = h.angleV
		}
		val := float32(v) * t.Scale
		if t.Mode == ModeAdd {
			p.AddParam(i, val, t.Weight)
		} else {
			p.SetParam(i, val, t.Weight)
		}
	}
}

func wrapDeg(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}
