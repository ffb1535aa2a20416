package raster

import (
	"image"

	"github.com/Faultbox/l2drt/pkg/math"
)

// sampleTexture performs bilinear filtering with clamped UVs and returns a
// premultiplied texel in [0, 1]. v grows downward in image space.
func sampleTexture(tex *image.NRGBA, u, v float32) (r, g, b, a float32) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()

	fx := math.Clamp01(u)*float32(w) - 0.5
	fy := math.Clamp01(v)*float32(h) - 0.5
	x0, y0 := floor(fx), floor(fy)
	dx, dy := fx-float32(x0), fy-float32(y0)
	x1, y1 := x0+1, y0+1
	x0, x1 = clampInt(x0, w-1), clampInt(x1, w-1)
	y0, y1 = clampInt(y0, h-1), clampInt(y1, h-1)

	stride := tex.Stride
	pix := tex.Pix

	// Four texels
	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	for _, t := range [4]struct {
		i int
		w float32
	}{{i00, w00}, {i10, w10}, {i01, w01}, {i11, w11}} {
		ta := float32(pix[t.i+3]) / 255 * t.w
		r += float32(pix[t.i]) / 255 * ta
		g += float32(pix[t.i+1]) / 255 * ta
		b += float32(pix[t.i+2]) / 255 * ta
		a += ta
	}
	return r, g, b, a
}

func floor(x float32) int {
	i := int(x)
	if float32(i) > x {
		i--
	}
	return i
}

func clampInt(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
