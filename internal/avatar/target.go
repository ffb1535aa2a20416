package avatar

import stdmath "math"

// Face tracking tuning: the face turns at most 40 units per 10 s and takes
// 0.15 s to reach full speed, expressed per frame at 30 fps.
const (
	targetFrameRate    = 30
	targetMaxSpeed     = 40.0 / 10 / targetFrameRate
	targetTimeToMax    = 0.15
	targetFramesToMaxV = targetTimeToMax * targetFrameRate
)

// TargetPoint eases the face direction toward a target in [-1, 1]² with
// bounded velocity and acceleration.
type TargetPoint struct {
	TargetX, TargetY float64
	X, Y             float64
	vx, vy           float64
}

// Set changes the target.
func (tp *TargetPoint) Set(x, y float64) {
	tp.TargetX, tp.TargetY = x, y
}

// Update advances by dt seconds.
func (tp *TargetPoint) Update(dt float64) {
	if dt <= 0 {
		return
	}
	weight := dt * targetFrameRate
	maxA := weight * targetMaxSpeed / targetFramesToMaxV

	dx := tp.TargetX - tp.X
	dy := tp.TargetY - tp.Y
	if dx == 0 && dy == 0 {
		return
	}
	d := stdmath.Hypot(dx, dy)

	// Accelerate toward the velocity pointing at the target.
	vx := targetMaxSpeed * dx / d
	vy := targetMaxSpeed * dy / d
	ax := vx - tp.vx
	ay := vy - tp.vy
	if a := stdmath.Hypot(ax, ay); a > maxA {
		ax *= maxA / a
		ay *= maxA / a
	}
	tp.vx += ax
	tp.vy += ay

	// Slow down so the remaining distance can be covered while braking at maxA.
	maxV := 0.5 * (stdmath.Sqrt(maxA*maxA+16*maxA*d-8*maxA*d) - maxA)
	if cur := stdmath.Hypot(tp.vx, tp.vy); cur > maxV {
		tp.vx *= maxV / cur
		tp.vy *= maxV / cur
	}

	tp.X += tp.vx
	tp.Y += tp.vy
}
