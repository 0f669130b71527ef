package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/songquiz/go/internal/config"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.GatewayPort),
		Handler:      newHandler(cfg, services),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func newHandler(cfg config.Config, services *Services) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	services.Gateway.RegisterRoutes(mux)
	mux.Handle("/metrics", services.Metrics.Handler())
	setupHealthCheck(mux)
	setupInfo(mux, cfg, services)

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupInfo(mux *http.ServeMux, cfg config.Config, services *Services) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.GetStats()
		tuning := services.Tuning.Get()

		info := map[string]interface{}{
			"service":       "songquiz-gateway",
			"websocket_url": "/ws/game",
			"audio":         cfg.AudioMode,
			"connections":   stats.TotalConnections,
			"tuning": map[string]interface{}{
				"countdown":         tuning.Countdown,
				"round_timeout_sec": tuning.RoundTimeout.Seconds(),
				"playback_cap_sec":  tuning.PlaybackCap.Seconds(),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			log.Error().Err(err).Msg("failed to encode info response")
		}
	})
}
