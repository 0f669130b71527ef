package round

import (
	"time"

	"github.com/mcdev12/songquiz/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// DefaultRefresh is the period of remaining-time updates.
const DefaultRefresh = time.Second

// Result is the state of a race.
type Result string

const (
	ResultPending   Result = "pending"
	ResultSuccess   Result = "success"
	ResultTimeout   Result = "timeout"
	ResultCancelled Result = "cancelled"
)

// Race arbitrates between a correct guess and the round timeout. Exactly one
// of them wins; the loser has no effect. A Race covers a single round and
// must only be used on its loop.
type Race struct {
	loop      *timer.Loop
	refreshed time.Duration
	onRefresh func(remaining time.Duration)

	timeout  timer.Handle
	refresh  timer.Handle
	deadline time.Time
	started  bool
	result   Result
}

// NewRace creates an unarmed race. onRefresh, if set, receives the remaining
// time on every refresh tick; it is display-only.
func NewRace(loop *timer.Loop, refresh time.Duration, onRefresh func(remaining time.Duration)) *Race {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &Race{
		loop:      loop,
		refreshed: refresh,
		onRefresh: onRefresh,
		result:    ResultPending,
	}
}

// Start arms the timeout. It returns false if the race was already started.
func (r *Race) Start(max time.Duration, onTimeout func()) bool {
	if r.started {
		return false
	}
	r.started = true
	r.deadline = r.loop.Now().Add(max)

	r.timeout = r.loop.Schedule(max, func() {
		if r.result != ResultPending {
			return
		}
		r.result = ResultTimeout
		r.refresh.Cancel()
		log.Debug().Dur("max", max).Msg("round timed out")
		if onTimeout != nil {
			onTimeout()
		}
	})
	r.refresh = r.loop.ScheduleRepeating(r.refreshed, func() {
		if r.onRefresh != nil {
			r.onRefresh(r.Remaining())
		}
	})
	return true
}

// ReportGuessOutcome records a judged guess. A correct guess disarms the
// timeout before the success is recorded and returns true. Wrong guesses and
// reports after the race ended return false and change nothing.
func (r *Race) ReportGuessOutcome(correct bool) bool {
	if !correct || !r.started || r.result != ResultPending {
		return false
	}
	r.timeout.Cancel()
	r.refresh.Cancel()
	r.result = ResultSuccess
	return true
}

// Cancel disarms every timer. Safe to call any number of times.
func (r *Race) Cancel() {
	r.timeout.Cancel()
	r.refresh.Cancel()
	if r.result == ResultPending {
		r.result = ResultCancelled
	}
}

// Result returns the current state.
func (r *Race) Result() Result {
	return r.result
}

// Remaining returns the time left before the timeout, zero once ended.
func (r *Race) Remaining() time.Duration {
	if !r.started || r.result != ResultPending {
		return 0
	}
	left := r.deadline.Sub(r.loop.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Armed reports whether the timeout timer is still pending.
func (r *Race) Armed() bool {
	return r.timeout.Active()
}
