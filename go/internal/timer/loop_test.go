package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestScheduleFiresAtDeadline(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)

	fired := 0
	loop.Schedule(time.Second, func() { fired++ })

	clock.Advance(999 * time.Millisecond)
	if n := loop.RunDue(); n != 0 || fired != 0 {
		t.Fatalf("fired early: ran=%d fired=%d", n, fired)
	}

	clock.Advance(time.Millisecond)
	loop.RunDue()
	if fired != 1 {
		t.Fatalf("expected one fire, got %d", fired)
	}

	clock.Advance(time.Hour)
	loop.RunDue()
	if fired != 1 {
		t.Fatalf("one-shot fired again: %d", fired)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)

	fired := false
	h := loop.Schedule(time.Second, func() { fired = true })
	h.Cancel()
	h.Cancel()
	loop.Cancel(h)

	clock.Advance(2 * time.Second)
	loop.RunDue()
	if fired {
		t.Fatalf("cancelled callback fired")
	}

	after := loop.Schedule(time.Second, func() {})
	clock.Advance(time.Second)
	loop.RunDue()
	after.Cancel()
	if after.Active() {
		t.Fatalf("fired handle still active")
	}

	var zero Handle
	zero.Cancel()
	if zero.Active() {
		t.Fatalf("zero handle reports active")
	}
}

func TestCallbacksRunInDeadlineOrder(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)

	var order []string
	loop.Schedule(3*time.Second, func() { order = append(order, "c") })
	loop.Schedule(time.Second, func() { order = append(order, "a") })
	loop.Schedule(2*time.Second, func() { order = append(order, "b1") })
	loop.Schedule(2*time.Second, func() { order = append(order, "b2") })

	clock.Advance(5 * time.Second)
	loop.RunDue()

	want := []string{"a", "b1", "b2", "c"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
}

func TestScheduleRepeatingCatchesUpAndCancels(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)

	ticks := 0
	var h Handle
	h = loop.ScheduleRepeating(200*time.Millisecond, func() {
		ticks++
		if ticks == 5 {
			h.Cancel()
		}
	})

	clock.Advance(600 * time.Millisecond)
	loop.RunDue()
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}

	clock.Advance(10 * time.Second)
	loop.RunDue()
	if ticks != 5 {
		t.Fatalf("expected repeating callback to stop at 5, got %d", ticks)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", loop.Pending())
	}
}

func TestGroupCancelAll(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)
	group := NewGroup(loop)

	fired := 0
	group.Schedule(time.Second, func() { fired++ })
	group.Schedule(2*time.Second, func() { fired++ })
	group.ScheduleRepeating(time.Second, func() { fired++ })

	clock.Advance(time.Second)
	loop.RunDue()
	if fired != 2 {
		t.Fatalf("expected 2 fires, got %d", fired)
	}
	if group.Len() != 2 {
		t.Fatalf("expected fired one-shot to leave the group, len=%d", group.Len())
	}

	group.CancelAll()
	group.CancelAll()
	clock.Advance(time.Minute)
	loop.RunDue()
	if fired != 2 {
		t.Fatalf("callbacks fired after CancelAll: %d", fired)
	}
	if loop.Pending() != 0 || group.Len() != 0 {
		t.Fatalf("expected empty loop and group")
	}
}

func TestAsyncDeliversOnLoop(t *testing.T) {
	t.Parallel()

	loop := NewLoop(clockwork.NewFakeClock())

	var got string
	Async(loop, context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	}, func(v string, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got = v
	})

	loop.Drain()
	if got != "ok" {
		t.Fatalf("expected async result, got %q", got)
	}
}

func TestAsyncChainsDrainToQuiescence(t *testing.T) {
	t.Parallel()

	loop := NewLoop(clockwork.NewFakeClock())
	boom := errors.New("boom")

	var steps []string
	Async(loop, context.Background(), func(context.Context) (int, error) {
		return 1, nil
	}, func(int, error) {
		steps = append(steps, "first")
		Async(loop, context.Background(), func(context.Context) (int, error) {
			return 0, boom
		}, func(_ int, err error) {
			if errors.Is(err, boom) {
				steps = append(steps, "second")
			}
		})
	})

	loop.Drain()
	if len(steps) != 2 {
		t.Fatalf("expected both steps, got %v", steps)
	}
}

func TestRunNextWaitsForPost(t *testing.T) {
	t.Parallel()

	loop := NewLoop(clockwork.NewFakeClock())
	release := make(chan struct{})

	ran := false
	Async(loop, context.Background(), func(context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	}, func(struct{}, error) { ran = true })

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !loop.RunNext(ctx) {
		t.Fatalf("RunNext timed out")
	}
	if !ran {
		t.Fatalf("expected posted completion to run")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	loop := NewLoop(clockwork.NewRealClock())
	ctx, cancel := context.WithCancel(context.Background())

	fired := make(chan struct{})
	loop.Schedule(10*time.Millisecond, func() { close(fired) })

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire under Run")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
