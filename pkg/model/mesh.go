package model

import (
	stdmath "math"
	"slices"
)

// Renderer receives the resolved draw inputs of each visible mesh.
type Renderer interface {
	DrawMesh(tex int, indices []uint16, vertices, uvs []float32, opacity float32, mode BlendMode)
	GenerateTextureSlot() int
	ReleaseTextureSlot(slot int)
}

type drawState struct {
	stage     Stage
	available bool
	outside   bool
	corners   corners

	interpPoints      []float32
	transformedPoints []float32

	drawOrder     int
	interpOpacity float32
	baseOpacity   float32
	partsOpacity  float32
	totalOpacity  float32
}

func (s *drawState) init(d *DrawData) {
	*s = drawState{
		interpPoints:      make([]float32, d.NumPts*2),
		transformedPoints: make([]float32, d.NumPts*2),
		drawOrder:         int(d.AverageDrawOrder),
		interpOpacity:     1,
	}
}

func (c *Context) updateDraw(i int) {
	m := c.model
	d := m.draws[i]
	st := &c.draws[i]
	tgt := m.drawTgt[i]

	interp := st.stage == StageUninitialized || c.pivotsChanged(d.Pivots)
	if interp {
		st.outside = c.setupCorners(d.Pivots, &st.corners)
		cs := &st.corners
		blendPoints(d.PivotPoints, cs, st.interpPoints)
		if len(d.PivotDrawOrder) > 0 {
			var o float32
			for k, idx := range cs.index {
				o += float32(d.PivotDrawOrder[idx]) * cs.weight[k]
			}
			st.drawOrder = int(stdmath.Round(float64(o)))
		}
		st.interpOpacity = 1
		if d.PivotOpacity != nil {
			st.interpOpacity = blendScalar(d.PivotOpacity, cs)
		}
		st.stage = StageInterpolated
	}

	// Mesh points follow their deformer, which may have moved even when
	// the mesh's own pivots did not.
	if interp || tgt < 0 || c.bases[tgt].changed || st.stage != StageTransformed {
		if tgt < 0 {
			copy(st.transformedPoints, st.interpPoints)
		} else {
			c.transformPoints(tgt, st.interpPoints, st.transformedPoints, d.NumPts, 0, 2)
		}
		st.stage = StageTransformed
	}

	parts := m.drawParts[i]
	st.baseOpacity = 1
	st.available = !st.outside && m.Parts[parts].Visible
	if tgt >= 0 {
		st.baseOpacity = c.bases[tgt].totalOpacity
		st.available = st.available && c.bases[tgt].available
	}
	st.partsOpacity = c.partsOpacity[parts]
	st.totalOpacity = st.baseOpacity * st.partsOpacity * st.interpOpacity
}

// Update re-evaluates every deformer and mesh whose driving parameters
// changed, re-sorts the draw order, and clears the dirty flags.
func (c *Context) Update() {
	if !c.initialized {
		c.Init()
	}
	for _, i := range c.model.baseOrder {
		c.updateBase(i)
	}
	for i := range c.draws {
		c.updateDraw(i)
	}
	// Ties keep declaration order, not last frame's order.
	for i := range c.order {
		c.order[i] = i
	}
	slices.SortStableFunc(c.order, func(a, b int) int {
		return c.draws[a].drawOrder - c.draws[b].drawOrder
	})
	clear(c.dirty)
}

// BindTexture maps texture number textureNo to a renderer slot.
func (c *Context) BindTexture(textureNo, slot int) {
	c.textures[textureNo] = slot
}

// ReleaseTextures returns every bound slot to r.
func (c *Context) ReleaseTextures(r Renderer) {
	for no, slot := range c.textures {
		r.ReleaseTextureSlot(slot)
		delete(c.textures, no)
	}
}

// Draw emits the visible meshes to r in draw order. Meshes whose texture
// is not bound are skipped.
func (c *Context) Draw(r Renderer) {
	for _, i := range c.order {
		st := &c.draws[i]
		if !st.available || st.totalOpacity <= 0 {
			continue
		}
		d := c.model.draws[i]
		slot, ok := c.textures[d.TextureNo]
		if !ok {
			continue
		}
		r.DrawMesh(slot, d.Indices, st.transformedPoints, d.UVs, st.totalOpacity, d.BlendMode())
	}
}

// DrawOrder returns the mesh indices in the order Draw emits them.
func (c *Context) DrawOrder() []int { return c.order }

// MeshDrawOrder returns the interpolated draw order of mesh i.
func (c *Context) MeshDrawOrder(i int) int { return c.draws[i].drawOrder }

// TransformedPoints returns the canvas-space vertices of mesh i.
func (c *Context) TransformedPoints(i int) []float32 { return c.draws[i].transformedPoints }

// DrawOpacity returns the resolved opacity of mesh i.
func (c *Context) DrawOpacity(i int) float32 { return c.draws[i].totalOpacity }

// IsDrawAvailable reports whether mesh i would be drawn.
func (c *Context) IsDrawAvailable(i int) bool { return c.draws[i].available }

// DrawStage returns the evaluation stage of mesh i.
func (c *Context) DrawStage(i int) Stage { return c.draws[i].stage }
