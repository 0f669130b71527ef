package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/models"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

const (
	DefaultDebounce     = 300 * time.Millisecond
	DefaultDismissDelay = 200 * time.Millisecond
)

// Query dispositions reported to the Recorder.
const (
	QueryIssued     = "issued"
	QuerySuppressed = "suppressed"
	QueryStale      = "stale"
	QueryFailed     = "failed"
)

// Backend looks up suggestions for a search term.
type Backend interface {
	Search(ctx context.Context, term string) ([]models.Suggestion, error)
}

// Recorder counts queries by disposition.
type Recorder interface {
	RecordSuggestionQuery(disposition string)
}

type noopRecorder struct{}

func (noopRecorder) RecordSuggestionQuery(string) {}

type Config struct {
	Debounce     time.Duration
	DismissDelay time.Duration
}

// Results is what the suggestion list shows.
type Results struct {
	Items []models.Suggestion `json:"items"`
	Show  bool                `json:"show"`
}

// Search turns keystrokes into debounced, switch-to-latest backend queries.
// Every query carries a token; a response is applied only while its token is
// still the latest one issued. Search must only be used on its loop.
type Search struct {
	loop      *timer.Loop
	backend   Backend
	cfg       Config
	onResults func(Results)
	recorder  Recorder

	debounce timer.Handle
	dismiss  timer.Handle

	token      uint64
	lastQuery  string
	hasQuery   bool
	cancelCall context.CancelFunc

	current Results
}

// New creates a search that reports results to onResults on the loop.
func New(loop *timer.Loop, backend Backend, cfg Config, onResults func(Results)) *Search {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.DismissDelay <= 0 {
		cfg.DismissDelay = DefaultDismissDelay
	}
	return &Search{
		loop:      loop,
		backend:   backend,
		cfg:       cfg,
		onResults: onResults,
		recorder:  noopRecorder{},
	}
}

// SetRecorder replaces the query metrics recorder. nil is ignored.
func (s *Search) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// Input records a keystroke. Only the text still current after the debounce
// window is queried. Blank text clears the list at once.
func (s *Search) Input(text string) {
	s.debounce.Cancel()
	s.dismiss.Cancel()
	if strings.TrimSpace(text) == "" {
		s.issue(text)
		return
	}
	s.debounce = s.loop.Schedule(s.cfg.Debounce, func() {
		s.issue(text)
	})
}

func (s *Search) issue(text string) {
	if s.hasQuery && text == s.lastQuery {
		s.recorder.RecordSuggestionQuery(QuerySuppressed)
		return
	}
	s.hasQuery = true
	s.lastQuery = text

	s.token++
	tok := s.token
	s.cancelInFlight()

	term := strings.TrimSpace(text)
	if term == "" {
		s.apply(Results{})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelCall = cancel
	s.recorder.RecordSuggestionQuery(QueryIssued)

	timer.Async(s.loop, ctx, func(ctx context.Context) ([]models.Suggestion, error) {
		return s.backend.Search(ctx, term)
	}, func(items []models.Suggestion, err error) {
		cancel()
		if tok != s.token {
			s.recorder.RecordSuggestionQuery(QueryStale)
			return
		}
		s.cancelCall = nil
		if err != nil {
			s.recorder.RecordSuggestionQuery(QueryFailed)
			log.Debug().Err(err).Str("term", term).Msg("suggestion search failed")
			s.apply(Results{})
			return
		}
		s.apply(Results{Items: items, Show: len(items) > 0})
	})
}

// Select picks a suggestion. It hides the list and returns the text to put
// into the guess field.
func (s *Search) Select(sg models.Suggestion) string {
	s.debounce.Cancel()
	s.dismiss.Cancel()
	if s.current.Show {
		s.apply(Results{Items: s.current.Items})
	}
	return strings.TrimSpace(sg.Title)
}

// Lookup finds a suggestion from the current list by track id.
func (s *Search) Lookup(trackID int64) (models.Suggestion, bool) {
	for _, it := range s.current.Items {
		if it.TrackID == trackID {
			return it, true
		}
	}
	return models.Suggestion{}, false
}

// Dismiss hides the list after a short delay so a click on an entry can
// still land.
func (s *Search) Dismiss() {
	s.dismiss.Cancel()
	s.dismiss = s.loop.Schedule(s.cfg.DismissDelay, func() {
		if s.current.Show {
			s.apply(Results{Items: s.current.Items})
		}
	})
}

// Reset invalidates pending keystrokes, the in-flight query and the list.
func (s *Search) Reset() {
	s.debounce.Cancel()
	s.dismiss.Cancel()
	s.token++
	s.cancelInFlight()
	s.hasQuery = false
	s.lastQuery = ""
	s.current = Results{}
}

// Results returns what is currently shown.
func (s *Search) Results() Results {
	return s.current
}

// Token returns the latest issued query token.
func (s *Search) Token() uint64 {
	return s.token
}

func (s *Search) cancelInFlight() {
	if s.cancelCall != nil {
		s.cancelCall()
		s.cancelCall = nil
	}
}

func (s *Search) apply(r Results) {
	s.current = r
	if s.onResults != nil {
		s.onResults(r)
	}
}
