package playback

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const ffplayStopGrace = 1200 * time.Millisecond

// FFPlaySource streams previews through an ffplay subprocess. The position is
// derived from the clock since the process was started.
type FFPlaySource struct {
	command string
	clock   clockwork.Clock
}

// NewFFPlaySource plays previews with the ffplay binary at command.
func NewFFPlaySource(command string, clock clockwork.Clock) *FFPlaySource {
	if command == "" {
		command = "ffplay"
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FFPlaySource{command: command, clock: clock}
}

func (s *FFPlaySource) Open(previewURL string) (Resource, error) {
	if previewURL == "" {
		return nil, errors.New("empty preview url")
	}
	return &ffplayResource{command: s.command, url: previewURL, clock: s.clock}, nil
}

type ffplayResource struct {
	command string
	url     string
	clock   clockwork.Clock

	mu        sync.Mutex
	proc      *ffplayProcess
	offset    time.Duration
	startedAt time.Time
	closed    bool
}

type ffplayProcess struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	done   chan struct{}
	err    error
}

func (r *ffplayResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	if r.proc != nil {
		return nil
	}

	args := []string{
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "warning",
	}
	if r.offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(r.offset.Seconds(), 'f', 3, 64))
	}
	args = append(args, r.url)

	cmd := exec.Command(r.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	proc := &ffplayProcess{cmd: cmd, stderr: &stderr, done: make(chan struct{})}
	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()

	r.proc = proc
	r.startedAt = r.clock.Now()
	return nil
}

func (r *ffplayResource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseLocked()
}

func (r *ffplayResource) pauseLocked() {
	if r.proc == nil {
		return
	}
	r.offset = r.positionLocked()
	stopProcess(r.proc)
	r.proc = nil
}

func (r *ffplayResource) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc != nil {
		stopProcess(r.proc)
		r.proc = nil
	}
	r.offset = 0
}

func (r *ffplayResource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionLocked()
}

func (r *ffplayResource) positionLocked() time.Duration {
	if r.proc == nil {
		return r.offset
	}
	return r.offset + r.clock.Since(r.startedAt)
}

func (r *ffplayResource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseLocked()
	r.closed = true
	return nil
}

// stopProcess interrupts ffplay and kills it if it has not exited after a
// grace period. It does not block the caller.
func stopProcess(p *ffplayProcess) {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(os.Interrupt)
	}
	go func() {
		select {
		case <-p.done:
		case <-time.After(ffplayStopGrace):
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
			<-p.done
		}
		var exitErr *exec.ExitError
		if p.err != nil && !errors.As(p.err, &exitErr) {
			log.Warn().Err(p.err).Str("stderr", string(bytes.TrimSpace(p.stderr.Bytes()))).Msg("ffplay exited with error")
		}
	}()
}
