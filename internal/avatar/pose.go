package avatar

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/Faultbox/l2drt/pkg/encoding"
	"github.com/Faultbox/l2drt/pkg/model"
)

// Pose cross-fade tuning.
const (
	poseFadeSec        = 0.5
	posePhi            = 0.5
	poseMaxBackOpacity = 0.15
)

// posePart is one exclusive part of a pose group. Its "VISIBLE:<id>"
// parameter selects it; links follow its opacity.
type posePart struct {
	parts *model.PartsRef
	param *model.ParamRef
	links []*model.PartsRef
}

// Pose keeps one part visible per group (arm variants, for example) and
// cross-fades when a motion switches between them.
type Pose struct {
	groups [][]*posePart

	ctx     *model.Context
	version int
}

// LoadPose reads a pose file.
func LoadPose(path string) (*Pose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading pose %s: %w", path, err)
	}
	p, err := ParsePose(data)
	if err != nil {
		return nil, fmt.Errorf("loading pose %s: %w", path, err)
	}
	return p, nil
}

// ParsePose decodes {"parts_visible":[{"group":[{"id":..,"link":[..]}]}]}.
func ParsePose(data []byte) (*Pose, error) {
	data = encoding.DecodeBytes(data)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing pose: invalid json")
	}
	p := &Pose{}
	gjson.GetBytes(data, "parts_visible").ForEach(func(_, g gjson.Result) bool {
		var group []*posePart
		g.Get("group").ForEach(func(_, e gjson.Result) bool {
			id := e.Get("id").String()
			if id == "" {
				return true
			}
			pp := &posePart{
				parts: model.NewPartsRef(model.PartsDataID(id)),
				param: model.NewParamRef(model.ParamID("VISIBLE:" + id)),
			}
			e.Get("link").ForEach(func(_, l gjson.Result) bool {
				pp.links = append(pp.links, model.NewPartsRef(model.PartsDataID(l.String())))
				return true
			})
			group = append(group, pp)
			return true
		})
		if len(group) > 0 {
			p.groups = append(p.groups, group)
		}
		return true
	})
	return p, nil
}

// Groups returns the number of pose groups.
func (p *Pose) Groups() int { return len(p.groups) }

// Update fades the parts of every group toward the selected one over dt
// seconds. The first call on a context shows the first part of each group.
func (p *Pose) Update(ctx *model.Context, dt float64) {
	if ctx != p.ctx || ctx.InitVersion() != p.version {
		p.initParams(ctx)
		p.ctx = ctx
		p.version = ctx.InitVersion()
		dt = 0
	}
	for _, g := range p.groups {
		p.normalize(ctx, g, dt)
		copyLinks(ctx, g)
	}
}

func (p *Pose) initParams(ctx *model.Context) {
	for _, g := range p.groups {
		for i, pp := range g {
			pi := ctx.ResolveParts(pp.parts)
			if pi < 0 {
				continue
			}
			param := ctx.ResolveParam(pp.param)
			if param < 0 {
				ctx.AddFloatParam(pp.param.ID, 0, 0, 1)
				param = ctx.ResolveParam(pp.param)
			}
			v := float32(0)
			if i == 0 {
				v = 1
			}
			ctx.SetPartsOpacity(pi, v)
			ctx.SetParam(param, v, 1)
			for _, l := range pp.links {
				ctx.ResolveParts(l)
			}
		}
	}
}

func (p *Pose) normalize(ctx *model.Context, g []*posePart, dt float64) {
	visible := -1
	opacity := float32(1)
	for i, pp := range g {
		pi := ctx.ResolveParts(pp.parts)
		param := ctx.ResolveParam(pp.param)
		if pi < 0 || param < 0 {
			continue
		}
		if ctx.Param(param) != 0 {
			if visible >= 0 {
				break
			}
			visible = i
			opacity = ctx.PartsOpacity(pi) + float32(dt/poseFadeSec)
			if opacity > 1 {
				opacity = 1
			}
		}
	}
	if visible < 0 {
		visible = 0
		opacity = 1
	}

	for i, pp := range g {
		pi := ctx.ResolveParts(pp.parts)
		if pi < 0 {
			continue
		}
		if i == visible {
			ctx.SetPartsOpacity(pi, opacity)
			continue
		}
		var a1 float32
		if opacity < posePhi {
			a1 = opacity*(posePhi-1)/posePhi + 1
		} else {
			a1 = (1 - opacity) * posePhi / (1 - posePhi)
		}
		if back := (1 - a1) * (1 - opacity); back > poseMaxBackOpacity {
			a1 = 1 - poseMaxBackOpacity/(1-opacity)
		}
		if cur := ctx.PartsOpacity(pi); a1 > cur {
			a1 = cur
		}
		ctx.SetPartsOpacity(pi, a1)
	}
}

func copyLinks(ctx *model.Context, g []*posePart) {
	for _, pp := range g {
		pi := ctx.ResolveParts(pp.parts)
		if pi < 0 {
			continue
		}
		v := ctx.PartsOpacity(pi)
		for _, l := range pp.links {
			if li := ctx.ResolveParts(l); li >= 0 {
				ctx.SetPartsOpacity(li, v)
			}
		}
	}
}
