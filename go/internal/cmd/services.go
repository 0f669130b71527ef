package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/songquiz/go/internal/bff"
	"github.com/mcdev12/songquiz/go/internal/config"
	"github.com/mcdev12/songquiz/go/internal/gateway"
	"github.com/mcdev12/songquiz/go/internal/metrics"
	"github.com/mcdev12/songquiz/go/internal/playback"
	"github.com/mcdev12/songquiz/go/internal/publish"
	"github.com/mcdev12/songquiz/go/internal/session"
)

type Services struct {
	Metrics   *metrics.Metrics
	BFF       *bff.Client
	Tuning    *config.TuningStore
	Publisher publish.Publisher
	Gateway   *gateway.Service

	nc *nats.Conn
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Config → BFF client → publisher → session factory → gateway
	m := metrics.New()

	tuning, err := config.LoadTuning(cfg.GameConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load game config: %w", err)
	}
	store := config.NewTuningStore(tuning)
	if err := config.WatchTuning(ctx, cfg.GameConfigPath, store); err != nil {
		log.Warn().Err(err).Str("path", cfg.GameConfigPath).Msg("game config hot reload disabled")
	}

	opts := []bff.Option{
		bff.WithTimeout(cfg.BFFTimeout),
		bff.WithObserver(m),
	}
	if cfg.BFFToken != "" {
		opts = append(opts, bff.WithTokenSource(bff.StaticToken(cfg.BFFToken)))
	}
	client := bff.NewClient(cfg.BFFURL, opts...)

	s := &Services{
		Metrics: m,
		BFF:     client,
		Tuning:  store,
	}

	var publisher publish.Publisher = publish.LogPublisher{}
	if cfg.NATSURL != "" {
		nc, err := publish.Connect(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		s.nc = nc
		publisher = publish.NewNATSPublisher(nc, publish.DefaultSubjectPrefix)
		log.Info().Str("url", cfg.NATSURL).Msg("publishing outcomes to NATS")
	}
	s.Publisher = publish.NewMetricPublisher(publisher, m)

	factory := gateway.NewSessionFactory(gateway.SessionDeps{
		Backend:  client,
		Audio:    audioSource(cfg),
		Tuning:   func() session.Config { return store.Get().SessionConfig() },
		Recorder: m,
		Outcomes: publish.OutcomeSink(s.Publisher),
	})
	s.Gateway = gateway.NewService(gateway.DefaultConfig(), factory, m)

	return s, nil
}

func audioSource(cfg config.Config) func(clock clockwork.Clock) playback.Source {
	if cfg.AudioMode == config.AudioFFPlay {
		return func(clock clockwork.Clock) playback.Source {
			return playback.NewFFPlaySource(cfg.FFPlayPath, clock)
		}
	}
	return func(clock clockwork.Clock) playback.Source {
		return playback.ClockSource{Clock: clock}
	}
}

// Close releases the NATS connection after buffered outcomes are flushed.
func (s *Services) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
