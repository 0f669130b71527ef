package session

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
	"github.com/mcdev12/songquiz/go/internal/models"
	"github.com/mcdev12/songquiz/go/internal/playback"
	"github.com/mcdev12/songquiz/go/internal/round"
	"github.com/mcdev12/songquiz/go/internal/suggest"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

const (
	DefaultCountdown     = 3
	DefaultCountdownTick = time.Second
	DefaultAutoplayDelay = 500 * time.Millisecond
	DefaultRoundTimeout  = 30 * time.Second
)

// Error codes carried by Error events.
const (
	CodeStartFailed   = "start_failed"
	CodeGuessFailed   = "guess_failed"
	CodeAdvanceFailed = "advance_failed"
	CodeResolveFailed = "resolve_failed"
)

// Backend is the BFF as seen by a session.
type Backend interface {
	SummaryBackend
	suggest.Backend
	StartGame(ctx context.Context) (models.RoundState, error)
	SubmitGuess(ctx context.Context, gameID, guess string, elapsed float64) (models.RoundState, error)
	NextRound(ctx context.Context, gameID string) (models.RoundState, error)
}

// Recorder receives session metrics.
type Recorder interface {
	suggest.Recorder
	RecordRoundResolved(outcome models.OutcomeKind)
}

type noopRecorder struct{}

func (noopRecorder) RecordSuggestionQuery(string)           {}
func (noopRecorder) RecordRoundResolved(models.OutcomeKind) {}

// Config holds the session tuning. Zero values fall back to the defaults.
type Config struct {
	Countdown     int
	CountdownTick time.Duration
	AutoplayDelay time.Duration
	RoundTimeout  time.Duration
	TimerRefresh  time.Duration
	Playback      playback.Config
	Search        suggest.Config
}

func (c Config) withDefaults() Config {
	if c.Countdown <= 0 {
		c.Countdown = DefaultCountdown
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = DefaultCountdownTick
	}
	if c.AutoplayDelay <= 0 {
		c.AutoplayDelay = DefaultAutoplayDelay
	}
	if c.RoundTimeout <= 0 {
		c.RoundTimeout = DefaultRoundTimeout
	}
	if c.TimerRefresh <= 0 {
		c.TimerRefresh = round.DefaultRefresh
	}
	return c
}

// inflight tracks the one outstanding BFF request allowed per action.
type inflight struct {
	start, guess, advance, resolve bool
}

// Machine drives one game session. Every method must be called on the
// session's loop; transports post commands into it.
type Machine struct {
	loop     *timer.Loop
	backend  Backend
	resolver *Resolver
	sink     events.Sink
	recorder Recorder
	cfg      Config

	player *playback.Controller
	search *suggest.Search
	race   *round.Race

	// Session timers survive round transitions; round timers do not.
	sessionTimers *timer.Group
	roundTimers   *timer.Group

	state    State
	epoch    uint64
	roundSeq uint64
	closed   bool
	pending  inflight

	countdown  int
	gameID     string
	roundIndex int
	score      int
	current    models.RoundState
	guessText  string
	outcome    *models.Outcome
	resolution *Resolution
	summary    *models.GameSummary
}

// NewMachine creates an idle session. sink receives every event the session
// produces; audio opens preview resources.
func NewMachine(loop *timer.Loop, backend Backend, audio playback.Source, sink events.Sink, cfg Config) *Machine {
	if sink == nil {
		sink = events.Discard
	}
	m := &Machine{
		loop:          loop,
		backend:       backend,
		resolver:      NewResolver(backend),
		sink:          sink,
		recorder:      noopRecorder{},
		cfg:           cfg.withDefaults(),
		sessionTimers: timer.NewGroup(loop),
		roundTimers:   timer.NewGroup(loop),
		state:         StateIdle,
	}
	m.player = playback.NewController(loop, audio, m.cfg.Playback, m.onPlaybackTick)
	m.search = suggest.New(loop, backend, m.cfg.Search, m.onSuggestions)
	return m
}

// SetRecorder replaces the metrics recorder. nil is ignored.
func (m *Machine) SetRecorder(r Recorder) {
	if r == nil {
		return
	}
	m.recorder = r
	m.search.SetRecorder(r)
}

// Start begins a new game from Idle. It returns false in any other state.
func (m *Machine) Start() bool {
	if m.closed || m.state != StateIdle {
		log.Debug().Str("state", string(m.state)).Msg("start ignored")
		return false
	}
	m.resetSession()
	if !m.transition(StateCountdown, "start") {
		return false
	}
	m.startCountdown()
	return true
}

// Restart throws away the current game and re-enters the countdown.
func (m *Machine) Restart() bool {
	if m.closed {
		return false
	}
	m.resetSession()
	if !m.transition(StateCountdown, "restart") {
		return false
	}
	m.startCountdown()
	return true
}

func (m *Machine) startCountdown() {
	m.sessionTimers.CancelAll()
	m.countdown = m.cfg.Countdown
	m.emit(events.TypeCountdownTick, events.CountdownTickPayload{Remaining: m.countdown})

	var tick timer.Handle
	tick = m.sessionTimers.ScheduleRepeating(m.cfg.CountdownTick, func() {
		if m.state != StateCountdown {
			m.sessionTimers.Cancel(tick)
			return
		}
		m.countdown--
		if m.countdown > 0 {
			m.emit(events.TypeCountdownTick, events.CountdownTickPayload{Remaining: m.countdown})
			return
		}
		m.sessionTimers.Cancel(tick)
		m.emit(events.TypeCountdownTick, events.CountdownTickPayload{Remaining: 0})
		m.requestStart()
	})
}

func (m *Machine) requestStart() {
	if m.pending.start {
		return
	}
	m.pending.start = true

	call(m, m.backend.StartGame, func(rs models.RoundState, err error) {
		m.pending.start = false
		if m.state != StateCountdown {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to start game")
			m.fail(CodeStartFailed, err)
			m.transition(StateIdle, CodeStartFailed)
			return
		}
		m.gameID = rs.GameID
		log.Info().Str("game_id", rs.GameID).Msg("game started")
		m.beginRound(rs)
	})
}

// beginRound resets round-scoped state and makes rs the active round.
func (m *Machine) beginRound(rs models.RoundState) {
	m.clearRound()
	m.roundSeq++
	m.current = rs
	m.score = rs.Score
	// A missing round number means the BFF did not report one.
	if rs.Round > 0 {
		m.roundIndex = rs.Round
	} else {
		m.roundIndex++
	}

	m.player.Load(rs.Song.PreviewURL)
	if !m.transition(StateRoundActive, "round_started") {
		return
	}

	m.race = round.NewRace(m.loop, m.cfg.TimerRefresh, m.onRaceRefresh)
	m.race.Start(m.cfg.RoundTimeout, m.onTimeout)

	m.emit(events.TypeRoundStarted, events.RoundStartedPayload{
		Round:           m.roundIndex,
		Score:           m.score,
		MaxPlaySec:      m.player.Window().Max.Seconds(),
		RoundTimeoutSec: m.cfg.RoundTimeout.Seconds(),
	})
	m.onRaceRefresh(m.race.Remaining())

	seq := m.roundSeq
	m.roundTimers.Schedule(m.cfg.AutoplayDelay, func() {
		if m.state == StateRoundActive && m.roundSeq == seq {
			m.player.Play()
		}
	})

	log.Info().Str("game_id", m.gameID).Int("round", m.roundIndex).Int64("track_id", rs.Song.TrackID).Msg("round active")
}

// Play replays the preview if this round has not used its play yet.
func (m *Machine) Play() bool {
	if m.closed || m.state != StateRoundActive {
		return false
	}
	return m.player.Play()
}

// Input feeds the guess field and the suggestion search.
func (m *Machine) Input(text string) bool {
	if m.closed || m.state != StateRoundActive {
		return false
	}
	m.guessText = text
	m.search.Input(text)
	return true
}

// SelectSuggestion copies a listed suggestion into the guess field.
func (m *Machine) SelectSuggestion(trackID int64) bool {
	if m.closed || m.state != StateRoundActive {
		return false
	}
	sg, ok := m.search.Lookup(trackID)
	if !ok {
		return false
	}
	m.guessText = m.search.Select(sg)
	return true
}

// DismissSuggestions hides the suggestion list after the blur delay.
func (m *Machine) DismissSuggestions() {
	if m.closed || m.state != StateRoundActive {
		return
	}
	m.search.Dismiss()
}

// SubmitGuess sends a guess for the active round. Blank guesses, guesses
// outside RoundActive and duplicates while one is being judged are ignored.
func (m *Machine) SubmitGuess(text string) bool {
	guess := strings.TrimSpace(text)
	if m.closed || m.state != StateRoundActive || m.gameID == "" || guess == "" || m.pending.guess {
		return false
	}
	m.pending.guess = true
	m.guessText = guess
	elapsed := m.player.ElapsedSeconds()
	gameID, seq := m.gameID, m.roundSeq

	call(m, func(ctx context.Context) (models.RoundState, error) {
		return m.backend.SubmitGuess(ctx, gameID, guess, elapsed)
	}, func(rs models.RoundState, err error) {
		m.pending.guess = false
		if m.state != StateRoundActive || m.roundSeq != seq {
			log.Debug().Str("game_id", gameID).Msg("verdict for a finished round discarded")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("game_id", gameID).Msg("failed to submit guess")
			m.fail(CodeGuessFailed, err)
			return
		}

		if !rs.Song.Playable() {
			rs.Song = m.current.Song
		}
		m.current = rs
		m.score = rs.Score
		correct := rs.IsCorrect == models.VerdictCorrect
		m.emit(events.TypeGuessJudged, events.GuessJudgedPayload{
			Guess:   guess,
			Correct: correct,
			Score:   rs.Score,
			TimeSec: elapsed,
		})
		log.Info().Str("game_id", gameID).Int("round", m.roundIndex).Bool("correct", correct).Msg("guess judged")

		if m.race.ReportGuessOutcome(correct) {
			m.resolve(models.SuccessOutcome(rs))
		}
	})
	return true
}

// Surrender gives up the game. Mid-round it stops playback and the timeout at
// once and resolves the round as surrendered. Once the round has resolved it
// only ends the game; the resolved round is never resolved again.
func (m *Machine) Surrender() bool {
	if m.closed || m.gameID == "" || m.pending.resolve {
		return false
	}
	switch m.state {
	case StateRoundActive:
		m.resolve(models.SurrenderOutcome())
		return true
	case StateRoundResolved:
		return m.finish(m.summaryFetch(true))
	default:
		return false
	}
}

func (m *Machine) onTimeout() {
	if m.state != StateRoundActive {
		return
	}
	log.Info().Str("game_id", m.gameID).Int("round", m.roundIndex).Msg("round timed out")
	m.resolve(models.TimeoutOutcome())
}

// resolve ends the round with outcome. Only one resolution runs at a time.
func (m *Machine) resolve(outcome models.Outcome) {
	if m.pending.resolve || !m.transition(StateRoundResolving, string(outcome.Kind)) {
		return
	}
	m.pending.resolve = true
	m.stopRound()
	m.outcome = &outcome
	m.resolution = nil
	m.recorder.RecordRoundResolved(outcome.Kind)

	gameID := m.gameID
	call(m, func(ctx context.Context) (Resolution, error) {
		return m.resolver.Resolve(ctx, gameID, outcome)
	}, func(res Resolution, err error) {
		m.pending.resolve = false
		if m.state != StateRoundResolving {
			return
		}
		m.transition(StateRoundResolved, string(outcome.Kind))
		if err != nil {
			log.Error().Err(err).Str("game_id", gameID).Str("outcome", string(outcome.Kind)).Msg("failed to resolve round")
			m.emitResolved(false)
			m.fail(CodeResolveFailed, err)
			return
		}
		m.resolution = &res
		m.emitResolved(res.CanContinue)
		if res.Summary != nil {
			m.showSummary(*res.Summary)
		}
	})
}

// NextRound advances after a successful round.
func (m *Machine) NextRound() bool {
	if m.closed || m.state != StateRoundResolved || m.gameID == "" || m.pending.advance {
		return false
	}
	if m.resolution == nil || !m.resolution.CanContinue {
		return false
	}
	m.pending.advance = true
	gameID := m.gameID

	call(m, func(ctx context.Context) (models.RoundState, error) {
		return m.backend.NextRound(ctx, gameID)
	}, func(rs models.RoundState, err error) {
		m.pending.advance = false
		if m.state != StateRoundResolved {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("game_id", gameID).Msg("failed to advance round")
			m.fail(CodeAdvanceFailed, err)
			m.transition(StateIdle, CodeAdvanceFailed)
			return
		}
		m.beginRound(rs)
	})
	return true
}

// EndGame shows the summary for a resolved round, fetching it if needed.
func (m *Machine) EndGame() bool {
	if m.closed || m.state != StateRoundResolved || m.gameID == "" || m.pending.resolve {
		return false
	}
	return m.finish(m.summaryFetch(false))
}

// summaryFetch picks the endpoint that ends the game after a resolved round.
// A failed resolution is retried against the endpoint its outcome called for,
// so a timed-out round is never surrendered. Surrendering a round the player
// could have continued gives up the rest of the game.
func (m *Machine) summaryFetch(surrender bool) func(context.Context, string) (models.GameSummary, error) {
	if m.outcome != nil && m.outcome.Kind == models.OutcomeSurrender {
		return m.backend.Surrender
	}
	if surrender && m.outcome != nil && m.outcome.Kind == models.OutcomeSuccess &&
		m.resolution != nil && m.resolution.CanContinue {
		return m.backend.Surrender
	}
	return m.backend.Summary
}

// finish moves a resolved round to the summary without touching its outcome.
func (m *Machine) finish(fetch func(context.Context, string) (models.GameSummary, error)) bool {
	if m.summary != nil {
		m.showSummary(*m.summary)
		return true
	}
	m.pending.resolve = true
	gameID := m.gameID

	call(m, func(ctx context.Context) (models.GameSummary, error) {
		return fetch(ctx, gameID)
	}, func(s models.GameSummary, err error) {
		m.pending.resolve = false
		if m.state != StateRoundResolved {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("game_id", gameID).Msg("failed to fetch summary")
			m.fail(CodeResolveFailed, err)
			return
		}
		m.showSummary(s)
	})
	return true
}

func (m *Machine) showSummary(s models.GameSummary) {
	m.summary = &s
	if !m.transition(StateSummaryShown, "summary") {
		return
	}
	m.emit(events.TypeGameSummary, events.GameSummaryPayload{Summary: s})
	log.Info().Str("game_id", s.GameID).Int("total_score", s.TotalScore).Int("correct_rounds", s.CorrectRounds).Msg("game summary shown")
}

// Close tears the session down. Results of in-flight calls are discarded.
func (m *Machine) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.epoch++
	m.sessionTimers.CancelAll()
	m.stopRound()
	m.player.Close()
	log.Debug().Str("game_id", m.gameID).Msg("session closed")
}

// stopRound cancels every round-scoped activity.
func (m *Machine) stopRound() {
	m.roundTimers.CancelAll()
	if m.race != nil {
		m.race.Cancel()
	}
	m.player.Stop()
	m.search.Reset()
}

func (m *Machine) clearRound() {
	m.stopRound()
	m.race = nil
	m.guessText = ""
	m.outcome = nil
	m.resolution = nil
	m.current = models.RoundState{}
}

func (m *Machine) resetSession() {
	m.epoch++
	m.pending = inflight{}
	m.sessionTimers.CancelAll()
	m.clearRound()
	m.player.Close()
	m.gameID = ""
	m.roundIndex = 0
	m.score = 0
	m.countdown = 0
	m.summary = nil
}

func (m *Machine) transition(to State, reason string) bool {
	from := m.state
	if !CanTransition(from, to) {
		log.Warn().Str("from", string(from)).Str("to", string(to)).Str("reason", reason).Msg("illegal state transition refused")
		return false
	}
	m.state = to
	m.emit(events.TypeStateChanged, events.StateChangedPayload{
		State:    string(to),
		Previous: string(from),
		Reason:   reason,
	})
	return true
}

func (m *Machine) emitResolved(canContinue bool) {
	kind := models.OutcomeKind("")
	if m.outcome != nil {
		kind = m.outcome.Kind
	}
	m.emit(events.TypeRoundResolved, events.RoundResolvedPayload{
		Outcome:     kind,
		Round:       m.roundIndex,
		Song:        m.current.Song,
		Score:       m.score,
		CanContinue: canContinue,
	})
}

func (m *Machine) fail(code string, err error) {
	m.emit(events.TypeError, events.ErrorPayload{Code: code, Message: err.Error()})
}

func (m *Machine) emit(t events.Type, payload any) {
	ev, err := events.New(t, m.gameID, m.loop.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to build session event")
		return
	}
	m.sink.Emit(ev)
}

func (m *Machine) onPlaybackTick(w models.PlaybackWindow) {
	m.emit(events.TypePlaybackTick, events.PlaybackTickPayload{
		ElapsedSec: w.Elapsed.Seconds(),
		MaxSec:     w.Max.Seconds(),
		Playing:    m.player != nil && m.player.Playing(),
		HasPlayed:  w.HasPlayedThisRound,
	})
}

func (m *Machine) onRaceRefresh(remaining time.Duration) {
	m.emit(events.TypeTimerTick, events.TimerTickPayload{
		TimeRemainingSec: int(math.Ceil(remaining.Seconds())),
	})
}

func (m *Machine) onSuggestions(r suggest.Results) {
	m.emit(events.TypeSuggestions, events.SuggestionsPayload{Results: r.Items, Show: r.Show})
}

// call runs fn off the loop and delivers its result on the loop, unless the
// session restarted or closed in the meantime.
func call[T any](m *Machine, fn func(context.Context) (T, error), done func(T, error)) {
	epoch := m.epoch
	timer.Async(m.loop, context.Background(), fn, func(v T, err error) {
		if epoch != m.epoch {
			log.Debug().Uint64("epoch", epoch).Msg("stale backend result discarded")
			return
		}
		done(v, err)
	})
}
