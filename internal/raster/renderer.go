package raster

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/internal/logger"
	"github.com/Faultbox/l2drt/pkg/math"
	"github.com/Faultbox/l2drt/pkg/model"
)

// Stats counts work done since the last Begin.
type Stats struct {
	Meshes    int
	Triangles int
	Pixels    int
	Skipped   int // meshes drawn against an empty or unknown slot
}

type texSlot struct {
	img *image.NRGBA
}

// Renderer rasterizes meshes into a FrameBuffer. It implements
// model.Renderer. Not safe for concurrent use.
type Renderer struct {
	fb       *FrameBuffer
	slots    map[int]*texSlot
	nextSlot int
	free     []int

	projection math.Mat4 // model space to NDC
	toPixels   math.Affine
	bg         color.NRGBA
	stats      Stats
	log        *zap.Logger
}

var _ model.Renderer = (*Renderer)(nil)

// New creates a renderer with a w×h target. The projection starts as the
// identity, so NDC coordinates map straight onto the viewport.
func New(w, h int) *Renderer {
	r := &Renderer{
		fb:         NewFrameBuffer(w, h),
		slots:      make(map[int]*texSlot),
		projection: math.Identity(),
		log:        logger.Named("raster"),
	}
	r.updateViewport()
	return r
}

// Size returns the target dimensions.
func (r *Renderer) Size() (int, int) {
	return r.fb.Width, r.fb.Height
}

// Resize reallocates the target.
func (r *Renderer) Resize(w, h int) {
	r.fb = NewFrameBuffer(w, h)
	r.updateViewport()
}

// SetBackground sets the color Begin clears to.
func (r *Renderer) SetBackground(bg color.NRGBA) {
	r.bg = bg
}

// SetProjection sets the matrix taking model coordinates to NDC, where
// y points up and both axes span [-1, 1].
func (r *Renderer) SetProjection(m math.Mat4) {
	r.projection = m
	r.updateViewport()
}

func (r *Renderer) updateViewport() {
	w, h := float32(r.fb.Width), float32(r.fb.Height)
	viewport := math.Translate(w/2, h/2, 0).Mul(math.Scale(w/2, -h/2, 1))
	r.toPixels = viewport.Mul(r.projection).Affine()
}

// Begin clears the target and resets the counters.
func (r *Renderer) Begin() {
	r.fb.Clear(r.bg)
	r.stats = Stats{}
}

// Stats returns the counters accumulated since Begin.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Frame returns the current target.
func (r *Renderer) Frame() *FrameBuffer {
	return r.fb
}

// Image returns a copy of the current target.
func (r *Renderer) Image() *image.NRGBA {
	return r.fb.Image()
}

// GenerateTextureSlot reserves a slot, reusing released ones first.
func (r *Renderer) GenerateTextureSlot() int {
	var slot int
	if n := len(r.free); n > 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.nextSlot++
		slot = r.nextSlot
	}
	r.slots[slot] = &texSlot{}
	return slot
}

// ReleaseTextureSlot frees a slot. Unknown slots are ignored.
func (r *Renderer) ReleaseTextureSlot(slot int) {
	if _, ok := r.slots[slot]; !ok {
		return
	}
	delete(r.slots, slot)
	r.free = append(r.free, slot)
}

// Upload stores img in slot. It reports false for unknown slots.
func (r *Renderer) Upload(slot int, img *image.NRGBA) bool {
	s, ok := r.slots[slot]
	if !ok {
		return false
	}
	s.img = img
	return true
}

// UploadTexture reserves a slot and stores img in it.
func (r *Renderer) UploadTexture(img *image.NRGBA) int {
	slot := r.GenerateTextureSlot()
	r.slots[slot].img = img
	return slot
}

// DrawMesh rasterizes an indexed triangle list. vertices are model-space
// (x, y) pairs, uvs are (u, v) pairs in the same order.
func (r *Renderer) DrawMesh(tex int, indices []uint16, vertices, uvs []float32, opacity float32, mode model.BlendMode) {
	s, ok := r.slots[tex]
	if !ok || s.img == nil || s.img.Rect.Empty() {
		r.stats.Skipped++
		r.log.Debug("mesh skipped", zap.Int("slot", tex))
		return
	}
	if opacity <= 0 {
		return
	}
	opacity = min(opacity, 1)

	nv := min(len(vertices), len(uvs)) / 2
	project := func(i uint16) (vertex, bool) {
		if int(i) >= nv {
			return vertex{}, false
		}
		x, y := r.toPixels.Apply(vertices[2*i], vertices[2*i+1])
		return vertex{x: x, y: y, u: uvs[2*i], v: uvs[2*i+1]}, true
	}

	r.stats.Meshes++
	for t := 0; t+2 < len(indices); t += 3 {
		p0, ok0 := project(indices[t])
		p1, ok1 := project(indices[t+1])
		p2, ok2 := project(indices[t+2])
		if !ok0 || !ok1 || !ok2 {
			continue
		}
		r.stats.Triangles++
		r.stats.Pixels += r.rasterizeTriangle(p0, p1, p2, s, opacity, mode)
	}
}
