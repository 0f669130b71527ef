package playback

import (
	"time"

	"github.com/mcdev12/songquiz/go/internal/models"
	"github.com/mcdev12/songquiz/go/internal/timer"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxPlay = 30 * time.Second
	DefaultTick    = 200 * time.Millisecond
)

// Resource is a single playable audio resource bound to one preview URL.
type Resource interface {
	// Play resumes playback from the current position.
	Play() error
	Pause()
	// Rewind moves the position back to zero.
	Rewind()
	Position() time.Duration
	Close() error
}

// Source opens audio resources for preview URLs.
type Source interface {
	Open(previewURL string) (Resource, error)
}

// Config controls the playback window.
type Config struct {
	MaxPlay time.Duration
	Tick    time.Duration
}

// Controller gates playback of exactly one preview per round and tracks how
// much of it has been heard. It must only be used on its loop.
type Controller struct {
	loop   *timer.Loop
	source Source
	cfg    Config
	onTick func(models.PlaybackWindow)

	resource Resource
	window   models.PlaybackWindow
	playing  bool
	watcher  timer.Handle
}

// NewController creates a controller. onTick, if set, receives the window on
// every watcher tick and when playback stops.
func NewController(loop *timer.Loop, source Source, cfg Config, onTick func(models.PlaybackWindow)) *Controller {
	if cfg.MaxPlay <= 0 {
		cfg.MaxPlay = DefaultMaxPlay
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	return &Controller{
		loop:   loop,
		source: source,
		cfg:    cfg,
		onTick: onTick,
		window: models.PlaybackWindow{Max: cfg.MaxPlay},
	}
}

// Load binds a new resource for previewURL and resets the window. An empty URL
// is ignored.
func (c *Controller) Load(previewURL string) {
	if previewURL == "" {
		log.Debug().Msg("playback load without preview url ignored")
		return
	}
	c.release()

	c.window = models.PlaybackWindow{Max: c.cfg.MaxPlay}
	res, err := c.source.Open(previewURL)
	if err != nil {
		log.Warn().Err(err).Str("preview_url", previewURL).Msg("failed to open preview")
		return
	}
	c.resource = res
}

// Play starts playback from zero. It returns false when nothing is loaded or
// the preview was already played this round.
func (c *Controller) Play() bool {
	if c.resource == nil || c.window.HasPlayedThisRound || c.playing {
		return false
	}

	c.resource.Rewind()
	if err := c.resource.Play(); err != nil {
		log.Error().Err(err).Msg("failed to start preview playback")
		return false
	}
	c.window.HasPlayedThisRound = true
	c.playing = true
	c.StopAt(c.cfg.MaxPlay)
	return true
}

// StopAt arms the watcher that pauses and rewinds playback once elapsed
// reaches max.
func (c *Controller) StopAt(max time.Duration) {
	c.watcher.Cancel()
	c.window.Max = max
	c.watcher = c.loop.ScheduleRepeating(c.cfg.Tick, c.watch)
}

func (c *Controller) watch() {
	if c.resource == nil || !c.playing {
		c.watcher.Cancel()
		return
	}

	pos := c.resource.Position()
	if pos > c.window.Max {
		pos = c.window.Max
	}
	c.window.Elapsed = pos

	if pos >= c.window.Max {
		c.resource.Pause()
		c.resource.Rewind()
		c.playing = false
		c.watcher.Cancel()
		log.Debug().Dur("elapsed", pos).Msg("preview reached playback cap")
	}
	c.emit()
}

// Stop pauses immediately. Safe when nothing is playing.
func (c *Controller) Stop() {
	c.watcher.Cancel()
	if c.resource != nil && c.playing {
		c.window.Elapsed = min(c.resource.Position(), c.window.Max)
		c.resource.Pause()
		c.playing = false
		c.emit()
	}
	c.playing = false
}

// Close stops playback and releases the resource.
func (c *Controller) Close() {
	c.release()
}

func (c *Controller) release() {
	c.Stop()
	if c.resource != nil {
		if err := c.resource.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close preview resource")
		}
		c.resource = nil
	}
}

func (c *Controller) emit() {
	if c.onTick != nil {
		c.onTick(c.window)
	}
}

// Elapsed returns how much of the preview has been heard this round. While
// playing it reads the live position rather than the last tick.
func (c *Controller) Elapsed() time.Duration {
	if c.playing && c.resource != nil {
		return min(c.resource.Position(), c.window.Max)
	}
	return c.window.Elapsed
}

// ElapsedSeconds is Elapsed in seconds, as reported with a guess.
func (c *Controller) ElapsedSeconds() float64 {
	return c.Elapsed().Seconds()
}

// Window returns a copy of the playback window.
func (c *Controller) Window() models.PlaybackWindow {
	w := c.window
	w.Elapsed = c.Elapsed()
	return w
}

// Playing reports whether audio is currently playing.
func (c *Controller) Playing() bool {
	return c.playing
}

// Loaded reports whether a resource is bound.
func (c *Controller) Loaded() bool {
	return c.resource != nil
}
