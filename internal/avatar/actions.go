package avatar

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/pkg/model"
	"github.com/Faultbox/l2drt/pkg/motion"
)

// ErrUnknownExpression is returned by SetExpression for names the settings
// do not list.
var ErrUnknownExpression = errors.New("unknown expression")

// StartMotion plays motion no of group at priority pr and returns its queue
// id, or -1 when the motion is missing, fails to load or is outranked by
// the one playing.
func (a *Avatar) StartMotion(group string, no int, pr motion.Priority) int {
	entries := a.Settings.Motions[group]
	if no < 0 || no >= len(entries) {
		a.log.Debug("no such motion", zap.String("group", group), zap.Int("no", no))
		return -1
	}
	if pr == motion.PriorityForce {
		a.motions.SetReservePriority(pr)
	} else if !a.motions.ReserveMotion(pr) {
		a.log.Debug("motion outranked", zap.String("group", group), zap.Stringer("priority", pr))
		return -1
	}

	name := motionName(group, no)
	e := entries[no]
	k, autoDelete := a.preloaded[name], false
	if k == nil {
		var err error
		if k, err = a.loadMotion(e); err != nil {
			a.log.Warn("motion unavailable", zap.String("motion", name), zap.Error(err))
			a.motions.SetReservePriority(motion.PriorityNone)
			return -1
		}
		autoDelete = true
	}
	if e.Sound != "" {
		a.playSound(e.Sound)
	}

	a.log.Debug("motion started", zap.String("motion", name), zap.Stringer("priority", pr))
	return a.motions.StartMotionPriority(k, autoDelete, pr)
}

// StartRandomMotion plays a random motion of group.
func (a *Avatar) StartRandomMotion(group string, pr motion.Priority) int {
	n := a.Settings.MotionCount(group)
	if n == 0 {
		return -1
	}
	return a.StartMotion(group, a.rnd.IntN(n), pr)
}

func (a *Avatar) playSound(name string) {
	if a.opts.Sound == nil {
		return
	}
	data, ok := a.sounds[name]
	if !ok {
		var err error
		if data, err = os.ReadFile(a.path(name)); err != nil {
			a.log.Warn("sound unavailable", zap.String("sound", name), zap.Error(err))
			return
		}
		a.sounds[name] = data
	}
	if _, err := a.opts.Sound.Play(data, name, a.opts.Clock.Now()); err != nil {
		a.log.Warn("sound failed", zap.String("sound", name), zap.Error(err))
	}
}

// SetExpression fades to the named expression.
func (a *Avatar) SetExpression(name string) error {
	e, ok := a.exprs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExpression, name)
	}
	a.log.Debug("expression", zap.String("name", name))
	a.expressions.StartMotion(e, true)
	return nil
}

// SetRandomExpression fades to a random expression. It returns the name
// chosen, or "" when the model has none.
func (a *Avatar) SetRandomExpression() string {
	if len(a.exprNames) == 0 {
		return ""
	}
	name := a.exprNames[a.rnd.IntN(len(a.exprNames))]
	a.expressions.StartMotion(a.exprs[name], true)
	return name
}

// SetTarget points the face at (x, y) in [-1, 1]²; (0, 0) looks ahead.
func (a *Avatar) SetTarget(x, y float32) {
	a.target.Set(float64(x), float64(y))
}

// HitTest reports whether logical point (x, y) falls inside the bounding
// box of any mesh registered for hit area name.
func (a *Avatar) HitTest(name string, x, y float32) bool {
	cx, cy, ok := a.matrix.ToCanvas(x, y)
	if !ok {
		return false
	}
	for _, id := range a.Settings.HitAreaIDs(name) {
		i := a.ctx.DrawDataIndex(model.DrawDataID(id))
		if i < 0 {
			continue
		}
		pts := a.ctx.TransformedPoints(i)
		if len(pts) < 2 {
			continue
		}
		left, right := pts[0], pts[0]
		top, bottom := pts[1], pts[1]
		for j := 2; j+1 < len(pts); j += 2 {
			left, right = min(left, pts[j]), max(right, pts[j])
			top, bottom = min(top, pts[j+1]), max(bottom, pts[j+1])
		}
		if left <= cx && cx <= right && top <= cy && cy <= bottom {
			return true
		}
	}
	return false
}

// Tap reacts to a tap at logical (x, y): the head changes expression and
// the body plays a tap motion. It returns the hit area, or "".
func (a *Avatar) Tap(x, y float32) string {
	switch {
	case a.HitTest(HitAreaHead, x, y):
		a.SetRandomExpression()
		return HitAreaHead
	case a.HitTest(HitAreaBody, x, y):
		a.StartRandomMotion(GroupTapBody, motion.PriorityNormal)
		return HitAreaBody
	}
	return ""
}
