package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrResourceClosed = errors.New("audio resource closed")

// ClockSource opens virtual resources whose position advances with the clock.
// It backs headless sessions and tests.
type ClockSource struct {
	Clock clockwork.Clock
}

func (s ClockSource) Open(previewURL string) (Resource, error) {
	if previewURL == "" {
		return nil, errors.New("empty preview url")
	}
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &clockResource{clock: clock}, nil
}

type clockResource struct {
	clock clockwork.Clock

	mu        sync.Mutex
	offset    time.Duration
	startedAt time.Time
	playing   bool
	closed    bool
}

func (r *clockResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	if !r.playing {
		r.startedAt = r.clock.Now()
		r.playing = true
	}
	return nil
}

func (r *clockResource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = r.positionLocked()
	r.playing = false
}

func (r *clockResource) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = 0
	r.startedAt = r.clock.Now()
}

func (r *clockResource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionLocked()
}

func (r *clockResource) positionLocked() time.Duration {
	if !r.playing {
		return r.offset
	}
	return r.offset + r.clock.Since(r.startedAt)
}

func (r *clockResource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offset = r.positionLocked()
	r.playing = false
	r.closed = true
	return nil
}
