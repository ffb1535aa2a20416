package motion

import (
	"slices"

	"github.com/Faultbox/l2drt/pkg/math"
)

// State is the lifecycle stage of a queued motion.
type State uint8

const (
	StateStarting State = iota
	StateFadingIn
	StateSteady
	StateFadingOut
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateFadingIn:
		return "fading-in"
	case StateSteady:
		return "steady"
	case StateFadingOut:
		return "fading-out"
	default:
		return "finished"
	}
}

// QueueEnt is one playing motion.
type QueueEnt struct {
	id         int
	motion     Motion
	autoDelete bool

	state     State
	fadingOut bool

	startTime   int64
	fadeInStart int64
	endTime     int64 // -1 while the motion has no end
	naturalEnd  int64 // end from the motion's own duration, or -1

	fadeOutStart int64
	fadeOutMsec  int64
}

// ID identifies the entry within its queue.
func (e *QueueEnt) ID() int { return e.id }

// Motion returns the motion being played.
func (e *QueueEnt) Motion() Motion { return e.motion }

// StartTime is when the current loop began.
func (e *QueueEnt) StartTime() int64 { return e.startTime }

// FadeInStart is when the current fade-in began.
func (e *QueueEnt) FadeInStart() int64 { return e.fadeInStart }

// EndTime is when the entry finishes, or -1.
func (e *QueueEnt) EndTime() int64 { return e.endTime }

// State returns the stage computed at the last update.
func (e *QueueEnt) State() State { return e.state }

// IsFinished reports whether the entry has stopped.
func (e *QueueEnt) IsFinished() bool { return e.state == StateFinished }

// Fade returns the combined fade-in and fade-out factor at now for the
// given fade lengths. fadeOut ramps toward the motion's own end; a fade-out
// started with StartFadeout ramps over its own length from its start.
func (e *QueueEnt) Fade(now, fadeIn, fadeOut int64) float32 {
	in, out := float32(1), float32(1)
	if fadeIn > 0 {
		in = math.Clamp01(float32(now-e.fadeInStart) / float32(fadeIn))
	}
	if fadeOut > 0 && e.naturalEnd >= 0 {
		out = math.Clamp01(float32(e.naturalEnd-now) / float32(fadeOut))
	}
	if e.fadingOut {
		ext := float32(0)
		if e.fadeOutMsec > 0 {
			ext = math.Clamp01(1 - float32(now-e.fadeOutStart)/float32(e.fadeOutMsec))
		}
		out = min(out, ext)
	}
	return in * out
}

// StartFadeout fades the entry out over fadeOut ms from now. If the entry
// already ends no later than that, it is left alone.
func (e *QueueEnt) StartFadeout(now, fadeOut int64) {
	end := now + fadeOut
	if e.endTime >= 0 && e.endTime <= end {
		return
	}
	e.endTime = end
	e.fadingOut = true
	e.fadeOutStart = now
	e.fadeOutMsec = fadeOut
}

func (e *QueueEnt) finish() { e.state = StateFinished }

func (e *QueueEnt) stateAt(now int64, cfg *Config) State {
	switch {
	case e.endTime >= 0 && (e.fadingOut || cfg.FadeOut > 0 && now > e.endTime-cfg.FadeOut):
		return StateFadingOut
	case cfg.FadeIn > 0 && now < e.fadeInStart+cfg.FadeIn:
		return StateFadingIn
	default:
		return StateSteady
	}
}

// QueueManager plays motions concurrently. Motions are applied in start
// order, so later motions layer over earlier ones.
type QueueManager struct {
	clock  Clock
	ents   []*QueueEnt
	nextID int
}

// NewQueueManager returns an empty queue reading time from clock.
func NewQueueManager(clock Clock) *QueueManager {
	return &QueueManager{clock: clock}
}

// Clock returns the queue's time source.
func (q *QueueManager) Clock() Clock { return q.clock }

// StartMotion fades out every playing motion and starts m. It returns the
// new entry's id. With autoDelete the entry is dropped once it finishes;
// otherwise it stays inspectable through Entry until Prune.
func (q *QueueManager) StartMotion(m Motion, autoDelete bool) int {
	now := q.clock.Now()
	for _, e := range q.ents {
		if !e.IsFinished() {
			e.StartFadeout(now, e.motion.Settings().FadeOut)
		}
	}

	q.nextID++
	e := &QueueEnt{
		id:          q.nextID,
		motion:      m,
		autoDelete:  autoDelete,
		startTime:   now,
		fadeInStart: now,
		endTime:     -1,
	}
	if d := m.Duration(); d >= 0 {
		e.endTime = now + d
	}
	e.naturalEnd = e.endTime
	q.ents = append(q.ents, e)
	return e.id
}

// Update applies every playing motion to t. It reports whether any motion
// ran.
func (q *QueueManager) Update(t Target) bool {
	now := q.clock.Now()
	updated := false
	for _, e := range q.ents {
		if e.IsFinished() {
			continue
		}
		q.updateEnt(t, e, now)
		updated = true
	}
	q.ents = slices.DeleteFunc(q.ents, func(e *QueueEnt) bool {
		return e.autoDelete && e.IsFinished()
	})
	return updated
}

func (q *QueueManager) updateEnt(t Target, e *QueueEnt, now int64) {
	m := e.motion
	cfg := m.Settings()

	if cfg.Loop && !e.fadingOut {
		if ld := m.LoopDuration(); ld > 0 && now-e.startTime >= ld {
			e.startTime += (now - e.startTime) / ld * ld
			if cfg.LoopFadeIn {
				e.fadeInStart = e.startTime
			}
		}
	}

	e.state = e.stateAt(now, cfg)
	w := cfg.Weight * e.Fade(now, cfg.FadeIn, cfg.FadeOut)
	m.UpdateParam(t, e, now, w)

	if e.endTime >= 0 && now >= e.endTime {
		e.finish()
	}
}

// StartFadeout fades out entry id over ms milliseconds.
func (q *QueueManager) StartFadeout(id int, ms int64) {
	if e := q.Entry(id); e != nil && !e.IsFinished() {
		e.StartFadeout(q.clock.Now(), ms)
	}
}

// IsFinished reports whether no motion is playing.
func (q *QueueManager) IsFinished() bool {
	for _, e := range q.ents {
		if !e.IsFinished() {
			return false
		}
	}
	return true
}

// IsFinishedID reports whether entry id has finished. Unknown ids count as
// finished.
func (q *QueueManager) IsFinishedID(id int) bool {
	e := q.Entry(id)
	return e == nil || e.IsFinished()
}

// Entry returns the entry with the given id, or nil.
func (q *QueueManager) Entry(id int) *QueueEnt {
	for _, e := range q.ents {
		if e.id == id {
			return e
		}
	}
	return nil
}

// Len returns the number of entries held, finished ones included.
func (q *QueueManager) Len() int { return len(q.ents) }

// StopAllMotions finishes every entry immediately, without fading.
func (q *QueueManager) StopAllMotions() {
	for _, e := range q.ents {
		e.finish()
	}
	q.Prune()
}

// Prune drops finished entries.
func (q *QueueManager) Prune() {
	q.ents = slices.DeleteFunc(q.ents, (*QueueEnt).IsFinished)
}

// PriorityQueueManager arbitrates motion starts by priority. A start is
// reserved first; equal priority never preempts.
type PriorityQueueManager struct {
	*QueueManager
	current Priority
	reserve Priority
}

// NewPriorityQueueManager returns an empty priority queue.
func NewPriorityQueueManager(clock Clock) *PriorityQueueManager {
	return &PriorityQueueManager{QueueManager: NewQueueManager(clock)}
}

// CurrentPriority is the priority of the playing motion, or PriorityNone.
func (p *PriorityQueueManager) CurrentPriority() Priority { return p.current }

// ReservePriority is the pending reservation, or PriorityNone.
func (p *PriorityQueueManager) ReservePriority() Priority { return p.reserve }

// SetReservePriority overrides the reservation.
func (p *PriorityQueueManager) SetReservePriority(pr Priority) { p.reserve = pr }

// ReserveMotion claims the next start for priority pr. It fails if pr does
// not exceed both the reserved and the playing priority.
func (p *PriorityQueueManager) ReserveMotion(pr Priority) bool {
	if pr <= p.reserve || pr <= p.current {
		return false
	}
	p.reserve = pr
	return true
}

// StartMotionPriority starts m at priority pr, consuming a matching
// reservation.
func (p *PriorityQueueManager) StartMotionPriority(m Motion, autoDelete bool, pr Priority) int {
	if pr == p.reserve {
		p.reserve = PriorityNone
	}
	p.current = pr
	return p.StartMotion(m, autoDelete)
}

// StopAllMotions finishes every entry and clears both the playing and the
// reserved priority.
func (p *PriorityQueueManager) StopAllMotions() {
	p.QueueManager.StopAllMotions()
	p.current = PriorityNone
	p.reserve = PriorityNone
}

// Update applies the playing motions and drops the current priority once
// the queue runs dry.
func (p *PriorityQueueManager) Update(t Target) bool {
	updated := p.QueueManager.Update(t)
	if p.IsFinished() {
		p.current = PriorityNone
	}
	return updated
}
