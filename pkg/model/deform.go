package model

import (
	stdmath "math"

	"github.com/Faultbox/l2drt/pkg/math"
)

// Stage is the per-frame evaluation state of a deformer.
type Stage uint8

const (
	StageUninitialized Stage = iota
	StageInterpolated
	StageTransformed
)

func (s Stage) String() string {
	switch s {
	case StageInterpolated:
		return "interpolated"
	case StageTransformed:
		return "transformed"
	default:
		return "uninitialized"
	}
}

// gridDirLen is the length, in grid units, of the probe vector used to
// find the local rotation of a grid at an affine deformer's origin.
const gridDirLen = 0.1

type baseState struct {
	stage     Stage
	available bool
	outside   bool
	changed   bool
	corners   corners

	interpAffine  AffineEnt
	matrix        math.Affine
	interpOpacity float32
	totalOpacity  float32
	totalScale    float32

	interpPoints      []float32 // grid only
	transformedPoints []float32 // grid only
}

func (s *baseState) init(b *BaseData) {
	*s = baseState{}
	if b.Kind == BaseBoxGrid {
		s.interpPoints = make([]float32, b.NumPts()*2)
		s.transformedPoints = make([]float32, b.NumPts()*2)
	}
}

// updateBase runs setupInterpolate and setupTransform for deformer i. The
// parent, if any, has already been updated this frame.
func (c *Context) updateBase(i int) {
	m := c.model
	b := m.bases[i]
	st := &c.bases[i]
	parent := m.baseTgt[i]

	interp := st.stage == StageUninitialized || c.pivotsChanged(b.Pivots)
	if interp {
		c.setupInterpolate(b, st)
	}

	parentChanged := parent >= 0 && c.bases[parent].changed
	st.changed = interp || parentChanged || st.stage != StageTransformed
	if st.changed {
		c.setupTransform(i, b, st)
	}

	st.available = !st.outside && m.Parts[m.baseParts[i]].Visible
	if parent >= 0 && !c.bases[parent].available {
		st.available = false
	}
}

func (c *Context) setupInterpolate(b *BaseData, st *baseState) {
	st.outside = c.setupCorners(b.Pivots, &st.corners)
	cs := &st.corners

	st.interpOpacity = 1
	if b.PivotOpacity != nil {
		st.interpOpacity = blendScalar(b.PivotOpacity, cs)
	}

	switch b.Kind {
	case BaseAffine:
		var a AffineEnt
		for k, idx := range cs.index {
			w := cs.weight[k]
			s := b.Affines[idx]
			a.OriginX += s.OriginX * w
			a.OriginY += s.OriginY * w
			a.ScaleX += s.ScaleX * w
			a.ScaleY += s.ScaleY * w
			a.RotateDeg += s.RotateDeg * w
		}
		// Reflection is boolean: taken from the heaviest sample.
		heaviest := b.Affines[cs.index[cs.max]]
		a.ReflectX = heaviest.ReflectX
		a.ReflectY = heaviest.ReflectY
		st.interpAffine = a
	case BaseBoxGrid:
		blendPoints(b.GridPoints, cs, st.interpPoints)
	}
	st.stage = StageInterpolated
}

func (c *Context) setupTransform(i int, b *BaseData, st *baseState) {
	parent := c.model.baseTgt[i]
	parentOpacity, parentScale := float32(1), float32(1)
	if parent >= 0 {
		ps := &c.bases[parent]
		parentOpacity, parentScale = ps.totalOpacity, ps.totalScale
	}
	st.totalOpacity = parentOpacity * st.interpOpacity

	switch b.Kind {
	case BaseAffine:
		a := st.interpAffine
		sx, sy := a.ScaleX, a.ScaleY
		if a.ReflectX {
			sx = -sx
		}
		if a.ReflectY {
			sy = -sy
		}
		switch {
		case parent < 0:
			st.matrix = math.TRS(a.OriginX, a.OriginY, a.RotateDeg, sx, sy)
		case c.model.bases[parent].Kind == BaseAffine:
			local := math.TRS(a.OriginX, a.OriginY, a.RotateDeg, sx, sy)
			st.matrix = c.bases[parent].matrix.Mul(local)
		default:
			ox, oy, rot := c.originOnGrid(parent, a.OriginX, a.OriginY)
			st.matrix = math.TRS(ox, oy, a.RotateDeg+rot, sx*parentScale, sy*parentScale)
		}
		st.totalScale = parentScale * abs32(a.ScaleX)

	case BaseBoxGrid:
		if parent < 0 {
			copy(st.transformedPoints, st.interpPoints)
		} else {
			c.transformPoints(parent, st.interpPoints, st.transformedPoints, b.NumPts(), 0, 2)
		}
		st.totalScale = parentScale
	}
	st.stage = StageTransformed
}

// originOnGrid maps an affine origin through grid deformer g and returns
// the mapped origin and the local rotation of the grid there, in degrees.
func (c *Context) originOnGrid(g int, x, y float32) (ox, oy, rotDeg float32) {
	var src, dst [4]float32
	dirLen := float32(gridDirLen)
	for try := 0; try < 4; try++ {
		src = [4]float32{x, y, x, y - dirLen}
		c.transformPoints(g, src[:], dst[:], 2, 0, 2)
		dx, dy := dst[2]-dst[0], dst[3]-dst[1]
		if dx*dx+dy*dy > 1e-12 {
			rot := math.Vec2{X: 0, Y: -dirLen}.AngleTo(math.Vec2{X: dx, Y: dy})
			return dst[0], dst[1], rot * 180 / stdmath.Pi
		}
		dirLen *= 10
	}
	return dst[0], dst[1], 0
}

// transformPoints maps n points through deformer i. Points are read from
// src and written to dst starting at offset, step floats apart, with x at
// the point position and y right after it.
func (c *Context) transformPoints(i int, src, dst []float32, n, offset, step int) {
	b := c.model.bases[i]
	st := &c.bases[i]
	switch b.Kind {
	case BaseAffine:
		m := st.matrix
		for k, p := 0, offset; k < n; k, p = k+1, p+step {
			dst[p], dst[p+1] = m.Apply(src[p], src[p+1])
		}
	case BaseBoxGrid:
		gridTransform(st.transformedPoints, b.Col, b.Row, src, dst, n, offset, step)
	}
}

// gridTransform maps points given in the unit square of a col x row grid
// bilinearly onto the grid's points. Points outside the unit square
// extrapolate from the nearest edge cell.
func gridTransform(grid []float32, col, row int, src, dst []float32, n, offset, step int) {
	stride := col + 1
	for k, p := 0, offset; k < n; k, p = k+1, p+step {
		fx := src[p] * float32(col)
		fy := src[p+1] * float32(row)
		ix := clampInt(int(stdmath.Floor(float64(fx))), 0, col-1)
		iy := clampInt(int(stdmath.Floor(float64(fy))), 0, row-1)
		tx := fx - float32(ix)
		ty := fy - float32(iy)

		i00 := (ix + iy*stride) * 2
		i10 := i00 + 2
		i01 := i00 + stride*2
		i11 := i01 + 2

		w00 := (1 - tx) * (1 - ty)
		w10 := tx * (1 - ty)
		w01 := (1 - tx) * ty
		w11 := tx * ty

		dst[p] = grid[i00]*w00 + grid[i10]*w10 + grid[i01]*w01 + grid[i11]*w11
		dst[p+1] = grid[i00+1]*w00 + grid[i10+1]*w10 + grid[i01+1]*w01 + grid[i11+1]*w11
	}
}

// TransformPoints maps n interleaved points through deformer i using its
// current transform. Update must have run.
func (c *Context) TransformPoints(i int, src, dst []float32, n, offset, step int) {
	c.transformPoints(i, src, dst, n, offset, step)
}

// BaseStage returns the evaluation stage of deformer i.
func (c *Context) BaseStage(i int) Stage { return c.bases[i].stage }

// BaseAvailable reports whether deformer i is visible and inside its pivot
// range.
func (c *Context) BaseAvailable(i int) bool { return c.bases[i].available }

// BaseOpacity returns the accumulated opacity of deformer i.
func (c *Context) BaseOpacity(i int) float32 { return c.bases[i].totalOpacity }

// BaseScale returns the accumulated scale of deformer i.
func (c *Context) BaseScale(i int) float32 { return c.bases[i].totalScale }

// InterpolatedAffine returns the blended sample of affine deformer i.
func (c *Context) InterpolatedAffine(i int) AffineEnt { return c.bases[i].interpAffine }

// BaseMatrix returns the local-to-canvas transform of affine deformer i.
func (c *Context) BaseMatrix(i int) math.Affine { return c.bases[i].matrix }

// GridPoints returns the transformed points of grid deformer i.
func (c *Context) GridPoints(i int) []float32 { return c.bases[i].transformedPoints }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
