package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/events"
	"github.com/mcdev12/songquiz/go/internal/playback"
	"github.com/mcdev12/songquiz/go/internal/session"
	"github.com/mcdev12/songquiz/go/internal/timer"
)

// Service is the game gateway: every WebSocket connection gets its own session
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the game gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the game gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Backend session.Backend
	// Audio opens previews against the session's clock.
	Audio func(clock clockwork.Clock) playback.Source
	// Tuning is read once per new session.
	Tuning   func() session.Config
	Recorder session.Recorder
	// Outcomes receives every session event, typically filtered for publishing.
	Outcomes events.Sink
}

// NewSessionFactory builds sessions from deps.
func NewSessionFactory(deps SessionDeps) SessionFactory {
	return func(loop *timer.Loop, sink events.Sink) *session.Machine {
		var cfg session.Config
		if deps.Tuning != nil {
			cfg = deps.Tuning()
		}
		var audio playback.Source = playback.ClockSource{Clock: loop.Clock()}
		if deps.Audio != nil {
			audio = deps.Audio(loop.Clock())
		}
		if deps.Outcomes != nil {
			sink = events.Multi{sink, deps.Outcomes}
		}

		m := session.NewMachine(loop, deps.Backend, audio, sink, cfg)
		if deps.Recorder != nil {
			m.SetRecorder(deps.Recorder)
		}
		return m
	}
}

// NewService creates a new game gateway service
func NewService(config Config, factory SessionFactory, gauge SessionGauge) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, factory, gauge)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
	}
}

// Start blocks until ctx is done, then disconnects every client
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")
	<-ctx.Done()
	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop disconnects every client and tears their sessions down
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
