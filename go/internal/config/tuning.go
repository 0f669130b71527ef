package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/songquiz/go/internal/playback"
	"github.com/mcdev12/songquiz/go/internal/session"
	"github.com/mcdev12/songquiz/go/internal/suggest"
)

// Tuning holds the game timings read from game.yaml.
type Tuning struct {
	Countdown     int           `yaml:"countdown"`
	CountdownTick time.Duration `yaml:"countdown_tick"`
	AutoplayDelay time.Duration `yaml:"autoplay_delay"`
	RoundTimeout  time.Duration `yaml:"round_timeout"`
	TimerRefresh  time.Duration `yaml:"timer_refresh"`
	PlaybackCap   time.Duration `yaml:"playback_cap"`
	PlaybackTick  time.Duration `yaml:"playback_tick"`
	Debounce      time.Duration `yaml:"debounce"`
	DismissDelay  time.Duration `yaml:"dismiss_delay"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Countdown:     session.DefaultCountdown,
		CountdownTick: session.DefaultCountdownTick,
		AutoplayDelay: session.DefaultAutoplayDelay,
		RoundTimeout:  session.DefaultRoundTimeout,
		TimerRefresh:  time.Second,
		PlaybackCap:   playback.DefaultMaxPlay,
		PlaybackTick:  playback.DefaultTick,
		Debounce:      suggest.DefaultDebounce,
		DismissDelay:  suggest.DefaultDismissDelay,
	}
}

// Validate rejects values the session would otherwise replace with defaults.
func (t Tuning) Validate() error {
	if t.Countdown < 1 || t.Countdown > 10 {
		return fmt.Errorf("countdown must be between 1 and 10, got %d", t.Countdown)
	}
	for name, d := range map[string]time.Duration{
		"countdown_tick": t.CountdownTick,
		"autoplay_delay": t.AutoplayDelay,
		"round_timeout":  t.RoundTimeout,
		"timer_refresh":  t.TimerRefresh,
		"playback_cap":   t.PlaybackCap,
		"playback_tick":  t.PlaybackTick,
		"debounce":       t.Debounce,
		"dismiss_delay":  t.DismissDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// SessionConfig maps the tuning onto a session configuration.
func (t Tuning) SessionConfig() session.Config {
	return session.Config{
		Countdown:     t.Countdown,
		CountdownTick: t.CountdownTick,
		AutoplayDelay: t.AutoplayDelay,
		RoundTimeout:  t.RoundTimeout,
		TimerRefresh:  t.TimerRefresh,
		Playback: playback.Config{
			MaxPlay: t.PlaybackCap,
			Tick:    t.PlaybackTick,
		},
		Search: suggest.Config{
			Debounce:     t.Debounce,
			DismissDelay: t.DismissDelay,
		},
	}
}

// LoadTuning reads path over the defaults. A missing file yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("failed to parse config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return DefaultTuning(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return t, nil
}

// TuningStore holds the latest valid tuning. New sessions read it; running
// sessions keep what they started with.
type TuningStore struct {
	current atomic.Pointer[Tuning]
}

func NewTuningStore(t Tuning) *TuningStore {
	s := &TuningStore{}
	s.Set(t)
	return s
}

func (s *TuningStore) Get() Tuning {
	return *s.current.Load()
}

func (s *TuningStore) Set(t Tuning) {
	s.current.Store(&t)
}
