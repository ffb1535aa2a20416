package avatar

import "github.com/Faultbox/l2drt/pkg/math"

// ModelMatrix maps canvas coordinates (y down) to logical coordinates
// (y up, origin centered) while keeping the canvas aspect ratio.
type ModelMatrix struct {
	m             math.Mat4
	width, height float32
}

// NewModelMatrix fits a width×height canvas to a logical width of 2,
// centered on the origin.
func NewModelMatrix(width, height float32) *ModelMatrix {
	mm := &ModelMatrix{m: math.Identity(), width: width, height: height}
	mm.SetWidth(2)
	mm.SetCenterPosition(0, 0)
	return mm
}

// Matrix returns the transform.
func (mm *ModelMatrix) Matrix() math.Mat4 { return mm.m }

// SetWidth scales the canvas to width logical units.
func (mm *ModelMatrix) SetWidth(width float32) {
	s := width / mm.width
	mm.m[0], mm.m[5] = s, -s
}

// SetHeight scales the canvas to height logical units.
func (mm *ModelMatrix) SetHeight(height float32) {
	s := height / mm.height
	mm.m[0], mm.m[5] = s, -s
}

// SetCenterPosition centers the canvas on (x, y).
func (mm *ModelMatrix) SetCenterPosition(x, y float32) {
	mm.SetCenterX(x)
	mm.SetCenterY(y)
}

func (mm *ModelMatrix) SetCenterX(x float32) { mm.m[12] = x - mm.width*mm.m[0]/2 }
func (mm *ModelMatrix) SetCenterY(y float32) { mm.m[13] = y - mm.height*mm.m[5]/2 }
func (mm *ModelMatrix) SetLeft(x float32)    { mm.m[12] = x }
func (mm *ModelMatrix) SetTop(y float32)     { mm.m[13] = y }
func (mm *ModelMatrix) SetRight(x float32)   { mm.m[12] = x - mm.width*mm.m[0] }
func (mm *ModelMatrix) SetBottom(y float32)  { mm.m[13] = y - mm.height*mm.m[5] }

// SetupLayout applies a settings layout. Size is applied before position.
func (mm *ModelMatrix) SetupLayout(l *Layout) {
	if l == nil {
		return
	}
	apply := func(v *float32, set func(float32)) {
		if v != nil {
			set(*v)
		}
	}
	apply(l.Width, mm.SetWidth)
	apply(l.Height, mm.SetHeight)
	apply(l.CenterX, mm.SetCenterX)
	apply(l.CenterY, mm.SetCenterY)
	apply(l.X, mm.SetLeft)
	apply(l.Y, mm.SetTop)
	apply(l.Left, mm.SetLeft)
	apply(l.Top, mm.SetTop)
	apply(l.Right, mm.SetRight)
	apply(l.Bottom, mm.SetBottom)
}

// ToCanvas maps a logical point back to canvas coordinates. ok is false
// while the matrix is singular.
func (mm *ModelMatrix) ToCanvas(x, y float32) (cx, cy float32, ok bool) {
	inv, ok := mm.m.Affine().Invert()
	if !ok {
		return 0, 0, false
	}
	cx, cy = inv.Apply(x, y)
	return cx, cy, true
}

// Projection returns the matrix taking canvas coordinates to NDC for a
// viewport of w×h pixels. Logical x spans the viewport width.
func (mm *ModelMatrix) Projection(w, h int) math.Mat4 {
	aspect := float32(1)
	if h > 0 {
		aspect = float32(w) / float32(h)
	}
	return math.Scale(1, aspect, 1).Mul(mm.m)
}
