package raster

import (
	stdmath "math"

	"github.com/Faultbox/l2drt/pkg/model"
)

// vertex is a projected vertex with its texture coordinate.
type vertex struct {
	x, y, u, v float32
}

// rasterizeTriangle fills the pixels whose centers fall inside the triangle,
// sampling tex and composing with mode. Both windings are drawn. Pixels on
// an edge shared by two triangles are filled exactly once.
func (r *Renderer) rasterizeTriangle(p0, p1, p2 vertex, tex *texSlot, opacity float32, mode model.BlendMode) int {
	fb := r.fb

	area := edge(p0, p1, p2.x, p2.y)
	if area > -1e-8 && area < 1e-8 {
		return 0
	}
	if area < 0 {
		p1, p2 = p2, p1
		area = -area
	}
	invArea := 1 / area

	minX := max(0, int(stdmath.Floor(float64(min(p0.x, p1.x, p2.x)))))
	maxX := min(fb.Width-1, int(stdmath.Ceil(float64(max(p0.x, p1.x, p2.x)))))
	minY := max(0, int(stdmath.Floor(float64(min(p0.y, p1.y, p2.y)))))
	maxY := min(fb.Height-1, int(stdmath.Ceil(float64(max(p0.y, p1.y, p2.y)))))
	if minX > maxX || minY > maxY {
		return 0
	}

	filled := 0
	for sy := minY; sy <= maxY; sy++ {
		cy := float32(sy) + 0.5
		row := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			cx := float32(sx) + 0.5
			w0 := edge(p1, p2, cx, cy)
			w1 := edge(p2, p0, cx, cy)
			w2 := edge(p0, p1, cx, cy)
			if !covers(w0, p1, p2) || !covers(w1, p2, p0) || !covers(w2, p0, p1) {
				continue
			}
			w0, w1, w2 = w0*invArea, w1*invArea, w2*invArea

			u := w0*p0.u + w1*p1.u + w2*p2.u
			v := w0*p0.v + w1*p1.v + w2*p2.v
			sr, sg, sb, sa := sampleTexture(tex.img, u, v)
			sr, sg, sb, sa = sr*opacity, sg*opacity, sb*opacity, sa*opacity
			if sa <= 0 {
				continue
			}

			blend(fb.Color[(row+sx)*4:], sr, sg, sb, sa, mode)
			filled++
		}
	}
	return filled
}

// edge is twice the signed area of (a, b, p). It is evaluated from the
// lower endpoint so both triangles sharing an edge see exactly opposite
// values.
func edge(a, b vertex, px, py float32) float32 {
	if b.y < a.y || (b.y == a.y && b.x < a.x) {
		return -((a.x-b.x)*(py-b.y) - (a.y-b.y)*(px-b.x))
	}
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// covers applies the fill rule: a point exactly on an edge belongs to the
// triangle that walks the edge downward, or leftward when horizontal.
func covers(w float32, a, b vertex) bool {
	if w != 0 {
		return w > 0
	}
	dy := b.y - a.y
	return dy > 0 || (dy == 0 && b.x < a.x)
}

// blend composes a premultiplied source into dst.
//
//	normal:   dst = src + dst*(1-srcA)
//	screen:   dst = src + dst         (additive, alpha as normal)
//	multiply: dst = src*dst + dst*(1-srcA)
func blend(dst []float32, sr, sg, sb, sa float32, mode model.BlendMode) {
	inv := 1 - sa
	switch mode {
	case model.BlendScreen:
		dst[0] = min(1, sr+dst[0])
		dst[1] = min(1, sg+dst[1])
		dst[2] = min(1, sb+dst[2])
		dst[3] = sa + dst[3]*inv
	case model.BlendMultiply:
		dst[0] = sr*dst[0] + dst[0]*inv
		dst[1] = sg*dst[1] + dst[1]*inv
		dst[2] = sb*dst[2] + dst[2]*inv
		dst[3] = sa*dst[3] + dst[3]*inv
	default:
		dst[0] = sr + dst[0]*inv
		dst[1] = sg + dst[1]*inv
		dst[2] = sb + dst[2]*inv
		dst[3] = sa + dst[3]*inv
	}
}
