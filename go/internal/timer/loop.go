package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// minInterval bounds repeating callbacks so a zero interval cannot spin the loop.
const minInterval = time.Millisecond

// Loop is a single logical execution context. Timer callbacks, posted tasks and
// async completions all run on it one at a time, so code running on the loop
// needs no locks of its own.
//
// In production Run drives the loop. Tests pump it from the calling goroutine
// with RunDue, RunNext and Drain against a clockwork.FakeClock.
type Loop struct {
	clock clockwork.Clock

	mu      sync.Mutex
	nextID  uint64
	entries map[uint64]*entry
	queue   []func()

	notify   chan struct{}
	inflight sync.WaitGroup
}

type entry struct {
	id       uint64
	due      time.Time
	interval time.Duration
	fn       func()
}

// Handle identifies a scheduled callback.
type Handle struct {
	loop *Loop
	id   uint64
}

// Cancel disarms the callback. It is a no-op for zero handles and for
// callbacks that already fired or were cancelled.
func (h Handle) Cancel() {
	if h.loop == nil {
		return
	}
	h.loop.cancel(h.id)
}

// Active reports whether the callback is still armed.
func (h Handle) Active() bool {
	if h.loop == nil {
		return false
	}
	h.loop.mu.Lock()
	defer h.loop.mu.Unlock()
	_, ok := h.loop.entries[h.id]
	return ok
}

// NewLoop creates a loop driven by clock. Pass clockwork.NewRealClock() in production.
func NewLoop(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		clock:   clock,
		entries: make(map[uint64]*entry),
		notify:  make(chan struct{}, 1),
	}
}

// Clock returns the clock the loop schedules against.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Now is shorthand for l.Clock().Now().
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Schedule runs fn once, at or after d from now.
func (l *Loop) Schedule(d time.Duration, fn func()) Handle {
	return l.add(d, 0, fn)
}

// ScheduleRepeating runs fn every interval until cancelled.
func (l *Loop) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	if interval < minInterval {
		interval = minInterval
	}
	return l.add(interval, interval, fn)
}

// Cancel is equivalent to h.Cancel().
func (l *Loop) Cancel(h Handle) {
	h.Cancel()
}

// Post enqueues fn to run on the loop. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.wake()
}

// Pending returns the number of armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Loop) add(d, interval time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries[id] = &entry{
		id:       id,
		due:      l.clock.Now().Add(d),
		interval: interval,
		fn:       fn,
	}
	l.mu.Unlock()
	l.wake()
	return Handle{loop: l, id: id}
}

func (l *Loop) cancel(id uint64) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()
}

func (l *Loop) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// popDue removes (or re-arms, for repeating entries) the earliest entry due at
// now. Ties resolve in scheduling order.
func (l *Loop) popDue(now time.Time) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var next *entry
	for _, e := range l.entries {
		if e.due.After(now) {
			continue
		}
		if next == nil || e.due.Before(next.due) || (e.due.Equal(next.due) && e.id < next.id) {
			next = e
		}
	}
	if next == nil {
		return nil
	}
	if next.interval > 0 {
		next.due = next.due.Add(next.interval)
	} else {
		delete(l.entries, next.id)
	}
	return next.fn
}

// nextWait returns how long until the earliest armed entry is due.
func (l *Loop) nextWait() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var earliest time.Time
	found := false
	for _, e := range l.entries {
		if !found || e.due.Before(earliest) {
			earliest = e.due
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return earliest.Sub(l.clock.Now()), true
}

func (l *Loop) popQueued() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.queue
	l.queue = nil
	return q
}

// RunDue runs every timer callback due at the current clock time and returns
// how many ran.
func (l *Loop) RunDue() int {
	ran := 0
	for {
		fn := l.popDue(l.clock.Now())
		if fn == nil {
			return ran
		}
		fn()
		ran++
	}
}

func (l *Loop) runQueued() int {
	ran := 0
	for {
		q := l.popQueued()
		if len(q) == 0 {
			return ran
		}
		for _, fn := range q {
			fn()
			ran++
		}
	}
}

// RunNext blocks until a posted task is available and runs it. It returns
// false if ctx ends first.
func (l *Loop) RunNext(ctx context.Context) bool {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 {
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()
			fn()
			return true
		}
		l.mu.Unlock()

		select {
		case <-l.notify:
		case <-ctx.Done():
			return false
		}
	}
}

// Drain waits for every in-flight Async call and runs posted tasks until the
// loop is quiescent. Timers are not advanced.
func (l *Loop) Drain() {
	for {
		l.inflight.Wait()
		if l.runQueued() == 0 {
			return
		}
	}
}

// Run drives the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.runQueued()
		l.RunDue()

		var (
			t      clockwork.Timer
			timerC <-chan time.Time
		)
		if wait, ok := l.nextWait(); ok {
			t = l.clock.NewTimer(wait)
			timerC = t.Chan()
		}

		select {
		case <-ctx.Done():
			if t != nil {
				stopAndDrainTimer(t)
			}
			return nil
		case <-l.notify:
		case <-timerC:
		}
		if t != nil {
			stopAndDrainTimer(t)
		}
	}
}

// Async runs call off the loop and delivers its result to done on the loop.
func Async[T any](l *Loop, ctx context.Context, call func(context.Context) (T, error), done func(T, error)) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		v, err := call(ctx)
		l.Post(func() { done(v, err) })
	}()
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
