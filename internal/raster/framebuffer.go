// Package raster is a headless software renderer for deformed meshes.
package raster

import (
	"image"
	"image/color"
)

// FrameBuffer holds premultiplied RGBA in [0, 1] as a flat slice.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []float32 // RGBA interleaved, len = W*H*4
}

// NewFrameBuffer allocates a transparent buffer. Sizes below 1 are raised to 1.
func NewFrameBuffer(w, h int) *FrameBuffer {
	w, h = max(w, 1), max(h, 1)
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]float32, w*h*4),
	}
}

// Clear fills the buffer with bg.
func (fb *FrameBuffer) Clear(bg color.NRGBA) {
	a := float32(bg.A) / 255
	px := [4]float32{
		float32(bg.R) / 255 * a,
		float32(bg.G) / 255 * a,
		float32(bg.B) / 255 * a,
		a,
	}
	for i := 0; i < len(fb.Color); i += 4 {
		copy(fb.Color[i:i+4], px[:])
	}
}

// Image converts the buffer to straight-alpha NRGBA.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i := 0; i < len(fb.Color); i += 4 {
		a := fb.Color[i+3]
		if a <= 0 {
			continue
		}
		inv := 1 / a
		img.Pix[i] = to8(fb.Color[i] * inv)
		img.Pix[i+1] = to8(fb.Color[i+1] * inv)
		img.Pix[i+2] = to8(fb.Color[i+2] * inv)
		img.Pix[i+3] = to8(a)
	}
	return img
}

// At returns the straight-alpha color of one pixel.
func (fb *FrameBuffer) At(x, y int) color.NRGBA {
	i := (y*fb.Width + x) * 4
	a := fb.Color[i+3]
	if a <= 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{
		R: to8(fb.Color[i] / a),
		G: to8(fb.Color[i+1] / a),
		B: to8(fb.Color[i+2] / a),
		A: to8(a),
	}
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
