package math

import "math"

// Affine is a 2D affine transform:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
type Affine struct {
	A, B, C, D float32
	Tx, Ty     float32
}

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return Affine{A: 1, D: 1}
}

// TRS builds translate(tx, ty) * rotate(deg) * scale(sx, sy).
func TRS(tx, ty, deg, sx, sy float32) Affine {
	s, c := math.Sincos(float64(deg) * math.Pi / 180)
	sin, cos := float32(s), float32(c)
	return Affine{
		A:  cos * sx,
		B:  sin * sx,
		C:  -sin * sy,
		D:  cos * sy,
		Tx: tx,
		Ty: ty,
	}
}

// Apply transforms one point.
func (m Affine) Apply(x, y float32) (float32, float32) {
	return m.A*x + m.C*y + m.Tx, m.B*x + m.D*y + m.Ty
}

// Mul returns m * n, the transform that applies n first.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		A:  m.A*n.A + m.C*n.B,
		B:  m.B*n.A + m.D*n.B,
		C:  m.A*n.C + m.C*n.D,
		D:  m.B*n.C + m.D*n.D,
		Tx: m.A*n.Tx + m.C*n.Ty + m.Tx,
		Ty: m.B*n.Tx + m.D*n.Ty + m.Ty,
	}
}

// Det returns the determinant of the linear part.
func (m Affine) Det() float32 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the inverse transform. ok is false for singular input, in
// which case the identity is returned.
func (m Affine) Invert() (inv Affine, ok bool) {
	det := m.Det()
	if det == 0 {
		return IdentityAffine(), false
	}
	id := 1 / det
	inv = Affine{
		A: m.D * id,
		B: -m.B * id,
		C: -m.C * id,
		D: m.A * id,
	}
	inv.Tx = -(inv.A*m.Tx + inv.C*m.Ty)
	inv.Ty = -(inv.B*m.Tx + inv.D*m.Ty)
	return inv, true
}
