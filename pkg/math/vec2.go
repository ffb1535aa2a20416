// Package math provides the vector and matrix types used by the deformation
// runtime and its layout code.
package math

import "math"

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float32
}

// AngleTo returns the signed angle in radians that rotates v onto other.
func (v Vec2) AngleTo(other Vec2) float32 {
	a := math.Atan2(float64(other.Y), float64(other.X)) - math.Atan2(float64(v.Y), float64(v.X))
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return float32(a)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 limits x to [0, 1].
func Clamp01(x float32) float32 {
	return Clamp(x, 0, 1)
}
