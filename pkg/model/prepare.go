package model

import (
	"fmt"
	"slices"
)

// Prepare validates the model and builds its lookup tables. Load calls it;
// models assembled in code must call it (or create a Context, which does)
// before use. It runs once; later calls return the first result.
func (m *Model) Prepare() error {
	m.once.Do(func() {
		m.prepErr = m.prepare()
	})
	return m.prepErr
}

func (m *Model) prepare() error {
	m.paramIndex = make(map[ParamID]int, len(m.Params))
	for i, p := range m.Params {
		if p == nil {
			return invalidf("parameter %d is nil", i)
		}
		if p.Min > p.Max {
			return invalidf("parameter %q: min %v > max %v", p.ID, p.Min, p.Max)
		}
		if _, dup := m.paramIndex[p.ID]; !dup {
			m.paramIndex[p.ID] = i
		}
	}

	m.baseIndex = make(map[BaseDataID]int)
	m.drawIndex = make(map[DrawDataID]int)
	m.partsIndex = make(map[PartsDataID]int, len(m.Parts))
	slotted := make(map[*ParamPivots]bool)

	for pi, parts := range m.Parts {
		if parts == nil {
			return invalidf("parts %d is nil", pi)
		}
		m.partsIndex[parts.ID] = pi
		for _, b := range parts.BaseData {
			if err := m.checkBase(b); err != nil {
				return err
			}
			m.assignSlots(b.Pivots, slotted)
			m.baseIndex[b.ID] = len(m.bases)
			m.bases = append(m.bases, b)
			m.baseParts = append(m.baseParts, pi)
		}
		for _, d := range parts.DrawData {
			if err := m.checkDraw(d); err != nil {
				return err
			}
			m.assignSlots(d.Pivots, slotted)
			m.drawIndex[d.ID] = len(m.draws)
			m.draws = append(m.draws, d)
			m.drawParts = append(m.drawParts, pi)
		}
	}

	// Avatar part replacements are validated but not evaluated.
	for _, a := range m.AvatarParts {
		for _, b := range a.BaseData {
			if err := m.checkBase(b); err != nil {
				return fmt.Errorf("avatar part %q: %w", a.PartsID, err)
			}
		}
		for _, d := range a.DrawData {
			if err := m.checkDraw(d); err != nil {
				return fmt.Errorf("avatar part %q: %w", a.PartsID, err)
			}
		}
	}

	m.baseTgt = make([]int, len(m.bases))
	for i, b := range m.bases {
		t, err := m.targetIndex(b.TargetID)
		if err != nil {
			return fmt.Errorf("deformer %q: %w", b.ID, err)
		}
		m.baseTgt[i] = t
	}
	m.drawTgt = make([]int, len(m.draws))
	for i, d := range m.draws {
		t, err := m.targetIndex(d.TargetID)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", d.ID, err)
		}
		m.drawTgt[i] = t
	}

	order, err := m.sortBases()
	if err != nil {
		return err
	}
	m.baseOrder = order
	return nil
}

func (m *Model) assignSlots(pm *PivotManager, seen map[*ParamPivots]bool) {
	for _, p := range pm.Params {
		if seen[p] {
			continue
		}
		seen[p] = true
		p.slot = m.pivotSlots
		m.pivotSlots++
	}
}

func (m *Model) targetIndex(id BaseDataID) (int, error) {
	if id.IsRoot() {
		return -1, nil
	}
	i, ok := m.baseIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, id)
	}
	return i, nil
}

// sortBases orders deformers so that every parent is evaluated before its
// children. Siblings keep declaration order.
func (m *Model) sortBases() ([]int, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(m.bases))
	order := make([]int, 0, len(m.bases))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: at %q", ErrTargetCycle, m.bases[i].ID)
		}
		state[i] = visiting
		if p := m.baseTgt[i]; p >= 0 {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[i] = done
		order = append(order, i)
		return nil
	}

	for i := range m.bases {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func checkPivots(pm *PivotManager, what string) (int, error) {
	if pm == nil {
		return 0, invalidf("%s has no pivot manager", what)
	}
	for _, p := range pm.Params {
		if p == nil {
			return 0, invalidf("%s has a nil pivot table", what)
		}
		if p.Count() == 0 {
			return 0, fmt.Errorf("%s, parameter %q: %w", what, p.ParamID, ErrPivotTableDegenerate)
		}
		if !slices.IsSorted(p.Values) {
			return 0, invalidf("%s, parameter %q: pivots not ascending", what, p.ParamID)
		}
		for i := 1; i < len(p.Values); i++ {
			if p.Values[i] == p.Values[i-1] {
				return 0, invalidf("%s, parameter %q: duplicate pivot %v", what, p.ParamID, p.Values[i])
			}
		}
	}
	return pm.SampleCount(), nil
}

func (m *Model) checkBase(b *BaseData) error {
	if b == nil {
		return invalidf("nil deformer")
	}
	what := fmt.Sprintf("deformer %q", b.ID)
	n, err := checkPivots(b.Pivots, what)
	if err != nil {
		return err
	}
	if b.PivotOpacity != nil && len(b.PivotOpacity) != n {
		return invalidf("%s: %d opacity samples, want %d", what, len(b.PivotOpacity), n)
	}
	switch b.Kind {
	case BaseAffine:
		if len(b.Affines) != n {
			return invalidf("%s: %d affine samples, want %d", what, len(b.Affines), n)
		}
		for i, a := range b.Affines {
			if a == nil {
				return invalidf("%s: affine sample %d is nil", what, i)
			}
		}
	case BaseBoxGrid:
		if b.Col < 1 || b.Row < 1 {
			return invalidf("%s: grid %dx%d", what, b.Col, b.Row)
		}
		if len(b.GridPoints) != n {
			return invalidf("%s: %d grid samples, want %d", what, len(b.GridPoints), n)
		}
		for i, g := range b.GridPoints {
			if len(g) != b.NumPts()*2 {
				return invalidf("%s: grid sample %d has %d floats, want %d", what, i, len(g), b.NumPts()*2)
			}
		}
	default:
		return invalidf("%s: unknown kind %d", what, b.Kind)
	}
	return nil
}

func (m *Model) checkDraw(d *DrawData) error {
	if d == nil {
		return invalidf("nil mesh")
	}
	what := fmt.Sprintf("mesh %q", d.ID)
	n, err := checkPivots(d.Pivots, what)
	if err != nil {
		return err
	}
	if len(d.PivotDrawOrder) != n {
		return invalidf("%s: %d draw order samples, want %d", what, len(d.PivotDrawOrder), n)
	}
	if d.PivotOpacity != nil && len(d.PivotOpacity) != n {
		return invalidf("%s: %d opacity samples, want %d", what, len(d.PivotOpacity), n)
	}
	if len(d.PivotPoints) != n {
		return invalidf("%s: %d point samples, want %d", what, len(d.PivotPoints), n)
	}
	for i, p := range d.PivotPoints {
		if len(p) != d.NumPts*2 {
			return invalidf("%s: point sample %d has %d floats, want %d", what, i, len(p), d.NumPts*2)
		}
	}
	if len(d.UVs) != d.NumPts*2 {
		return invalidf("%s: %d uv floats, want %d", what, len(d.UVs), d.NumPts*2)
	}
	if len(d.Indices) != d.NumPolygons*3 {
		return invalidf("%s: %d indices, want %d", what, len(d.Indices), d.NumPolygons*3)
	}
	for _, idx := range d.Indices {
		if int(idx) >= d.NumPts {
			return invalidf("%s: index %d out of %d points", what, idx, d.NumPts)
		}
	}
	if d.TextureNo < 0 {
		return invalidf("%s: texture %d", what, d.TextureNo)
	}
	return nil
}
