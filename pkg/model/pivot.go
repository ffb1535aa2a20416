package model

import "sort"

// Locate finds the pivot bracket of v in the ascending pivots p. It returns
// the lower index i and the fraction t such that v = p[i]*(1-t) + p[i+1]*t.
// Values below p[0] clamp to (0, 0) and values above p[n-1] to (n-2, 1),
// both with outside set. A single pivot is a constant: (0, 0, false).
//
// hint is the index returned for the previous value; parameters mostly move
// continuously, so it is checked before falling back to binary search.
func Locate(p []float32, v float32, hint int) (i int, t float32, outside bool) {
	n := len(p)
	switch {
	case n == 0:
		return 0, 0, true
	case n == 1:
		return 0, 0, false
	case v < p[0]:
		return 0, 0, true
	case v > p[n-1]:
		return n - 2, 1, true
	}

	if hint >= 0 && hint < n-1 && p[hint] <= v && v <= p[hint+1] {
		i = hint
	} else {
		// first pivot greater than v, minus one
		i = sort.Search(n, func(k int) bool { return p[k] > v }) - 1
		if i > n-2 {
			i = n - 2
		}
	}
	t = (v - p[i]) / (p[i+1] - p[i])
	return i, t, false
}

// pivotCache is the per-context lookup state of one ParamPivots.
type pivotCache struct {
	version int // init version the entry was computed under
	param   int
	valid   bool
	index   int
	t       float32
	outside bool
}

// corners is the set of samples one pivot lookup blends, with weights.
type corners struct {
	index  []int
	weight []float32
	// max is the position in index of the heaviest sample; ties go to the
	// lower sample.
	max int
}

// setupCorners expands the per-parameter brackets of pm into the weighted
// samples to blend. Every parameter with more than one pivot doubles the
// corner count.
func (c *Context) setupCorners(pm *PivotManager, out *corners) (outside bool) {
	out.index = append(out.index[:0], 0)
	out.weight = append(out.weight[:0], 1)
	stride := 1
	for _, pp := range pm.Params {
		pc := c.locate(pp)
		outside = outside || pc.outside
		n := pp.Count()
		if n > 1 {
			base := len(out.index)
			for k := 0; k < base; k++ {
				idx, w := out.index[k], out.weight[k]
				out.index[k] = idx + pc.index*stride
				out.weight[k] = w * (1 - pc.t)
				out.index = append(out.index, idx+(pc.index+1)*stride)
				out.weight = append(out.weight, w*pc.t)
			}
		}
		stride *= n
	}

	// Corners are produced with the lower sample first along every axis, so
	// a strict comparison keeps the lower sample on ties.
	out.max = 0
	for k := 1; k < len(out.weight); k++ {
		if out.weight[k] > out.weight[out.max] {
			out.max = k
		}
	}
	return outside
}

// locate refreshes the cached bracket of pp if its parameter changed or the
// cache predates the current init version.
func (c *Context) locate(pp *ParamPivots) *pivotCache {
	pc := &c.pivots[pp.slot]
	if pc.version != c.initVersion {
		pc.version = c.initVersion
		pc.param = c.paramIndex[pp.ParamID]
		pc.valid = false
	}
	if !pc.valid || c.dirty[pc.param] {
		pc.index, pc.t, pc.outside = Locate(pp.Values, c.values[pc.param], pc.index)
		pc.valid = true
	}
	return pc
}

// pivotsChanged reports whether any driving parameter of pm moved since
// the last update.
func (c *Context) pivotsChanged(pm *PivotManager) bool {
	for _, pp := range pm.Params {
		pc := &c.pivots[pp.slot]
		if pc.version != c.initVersion || !pc.valid || c.dirty[pc.param] {
			return true
		}
	}
	return false
}

func blendScalar(samples []float32, cs *corners) float32 {
	var v float32
	for k, idx := range cs.index {
		v += samples[idx] * cs.weight[k]
	}
	return v
}

func blendPoints(samples [][]float32, cs *corners, dst []float32) {
	clear(dst)
	for k, idx := range cs.index {
		w := cs.weight[k]
		if w == 0 {
			continue
		}
		src := samples[idx]
		for j := range dst {
			dst[j] += src[j] * w
		}
	}
}
