package round

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

func newRace(t *testing.T) (*Race, *clockwork.FakeClock, *timer.Loop) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	loop := timer.NewLoop(clock)
	return NewRace(loop, time.Second, nil), clock, loop
}

func TestRaceTimesOut(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })

	clock.Advance(29 * time.Second)
	loop.RunDue()
	if timeouts != 0 {
		t.Fatalf("timed out early")
	}

	clock.Advance(time.Second)
	loop.RunDue()
	if timeouts != 1 || race.Result() != ResultTimeout {
		t.Fatalf("expected timeout, got %d %s", timeouts, race.Result())
	}
	if race.ReportGuessOutcome(true) {
		t.Fatalf("late success must not win after timeout")
	}
	if race.Result() != ResultTimeout {
		t.Fatalf("result flipped to %s", race.Result())
	}
}

func TestSuccessDisarmsTimeout(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })

	clock.Advance(12 * time.Second)
	loop.RunDue()

	if !race.ReportGuessOutcome(true) {
		t.Fatalf("expected success to win")
	}
	if race.Armed() {
		t.Fatalf("expected timeout disarmed")
	}

	clock.Advance(time.Minute)
	loop.RunDue()
	if timeouts != 0 {
		t.Fatalf("timeout fired after success")
	}
	if race.Result() != ResultSuccess {
		t.Fatalf("expected success, got %s", race.Result())
	}
	if race.ReportGuessOutcome(true) {
		t.Fatalf("second success must be a no-op")
	}
}

func TestSuccessInSameInstantAsTimeout(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })

	// The timeout is due but has not run yet when the verdict is applied.
	clock.Advance(30 * time.Second)
	if !race.ReportGuessOutcome(true) {
		t.Fatalf("expected success to win the race")
	}
	loop.RunDue()
	if timeouts != 0 || race.Result() != ResultSuccess {
		t.Fatalf("timeout applied after success: timeouts=%d result=%s", timeouts, race.Result())
	}
}

func TestWrongGuessKeepsRacing(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })

	if race.ReportGuessOutcome(false) {
		t.Fatalf("wrong guess must not resolve")
	}
	if race.Result() != ResultPending || !race.Armed() {
		t.Fatalf("expected race still pending")
	}

	clock.Advance(30 * time.Second)
	loop.RunDue()
	if timeouts != 1 {
		t.Fatalf("expected timeout after wrong guess")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })
	race.ReportGuessOutcome(true)

	race.Cancel()
	race.Cancel()
	if race.Result() != ResultSuccess {
		t.Fatalf("cancel changed a resolved race: %s", race.Result())
	}

	clock.Advance(time.Minute)
	loop.RunDue()
	if timeouts != 0 || loop.Pending() != 0 {
		t.Fatalf("unexpected side effects after cancel")
	}
}

func TestCancelBeforeTimeout(t *testing.T) {
	t.Parallel()

	race, clock, loop := newRace(t)
	timeouts := 0
	race.Start(30*time.Second, func() { timeouts++ })
	race.Cancel()

	clock.Advance(time.Minute)
	loop.RunDue()
	if timeouts != 0 {
		t.Fatalf("cancelled race timed out")
	}
	if race.Result() != ResultCancelled {
		t.Fatalf("expected cancelled, got %s", race.Result())
	}
	if race.ReportGuessOutcome(true) {
		t.Fatalf("success after cancel must be a no-op")
	}
}

func TestStartOnlyOnce(t *testing.T) {
	t.Parallel()

	race, _, loop := newRace(t)
	if !race.Start(time.Second, nil) {
		t.Fatalf("expected first start")
	}
	if race.Start(time.Second, nil) {
		t.Fatalf("expected second start refused")
	}
	if loop.Pending() != 2 {
		t.Fatalf("expected timeout and refresh armed once, pending=%d", loop.Pending())
	}
}

func TestRefreshReportsRemaining(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := timer.NewLoop(clock)
	var remaining []time.Duration
	race := NewRace(loop, time.Second, func(d time.Duration) { remaining = append(remaining, d) })
	race.Start(3*time.Second, nil)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		loop.RunDue()
	}
	if len(remaining) != 2 || remaining[0] != 2*time.Second || remaining[1] != time.Second {
		t.Fatalf("unexpected remaining reports: %v", remaining)
	}
	if race.Remaining() != 0 {
		t.Fatalf("expected no time left after timeout")
	}
}
