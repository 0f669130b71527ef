package timer

import "time"

// Group is an owned set of timer handles that can be cancelled together, so no
// orphaned callback survives the scope (round, session) that armed it.
// A Group belongs to the loop that created it and must only be used on it.
type Group struct {
	loop    *Loop
	handles map[uint64]Handle
}

// NewGroup creates an empty group on l.
func NewGroup(l *Loop) *Group {
	return &Group{loop: l, handles: make(map[uint64]Handle)}
}

// Schedule arms a one-shot callback owned by the group.
func (g *Group) Schedule(d time.Duration, fn func()) Handle {
	var h Handle
	h = g.loop.Schedule(d, func() {
		delete(g.handles, h.id)
		fn()
	})
	g.handles[h.id] = h
	return h
}

// ScheduleRepeating arms a repeating callback owned by the group.
func (g *Group) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	h := g.loop.ScheduleRepeating(interval, fn)
	g.handles[h.id] = h
	return h
}

// Cancel disarms one member. Unknown or already-fired handles are ignored.
func (g *Group) Cancel(h Handle) {
	h.Cancel()
	delete(g.handles, h.id)
}

// CancelAll disarms every member.
func (g *Group) CancelAll() {
	for id, h := range g.handles {
		h.Cancel()
		delete(g.handles, id)
	}
}

// Len returns the number of members still armed.
func (g *Group) Len() int {
	return len(g.handles)
}
