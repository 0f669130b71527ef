package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcdev12/songquiz/go/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Config{
		BFFURL:         "http://127.0.0.1:1/bff",
		GatewayPort:    "0",
		LogLevel:       "info",
		GameConfigPath: filepath.Join(t.TempDir(), "game.yaml"),
		AudioMode:      config.AudioVirtual,
		AllowedOrigins: []string{"http://localhost:4200"},
	}
	services, err := setupServices(ctx, cfg)
	if err != nil {
		t.Fatalf("setupServices: %v", err)
	}
	t.Cleanup(services.Close)

	srv := httptest.NewServer(newHandler(cfg, services))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	code, body := get(t, srv.URL+"/health")
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	code, body := get(t, srv.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(body, "songquiz_active_sessions") {
		t.Fatalf("expected active sessions gauge in metrics output")
	}
}

func TestInfoUsesDefaultTuning(t *testing.T) {
	srv := newTestServer(t)

	code, body := get(t, srv.URL+"/info")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var info struct {
		Audio       string `json:"audio"`
		Connections int    `json:"connections"`
		Tuning      struct {
			Countdown       int     `json:"countdown"`
			RoundTimeoutSec float64 `json:"round_timeout_sec"`
		} `json:"tuning"`
	}
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Audio != config.AudioVirtual || info.Connections != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Tuning.Countdown != 3 || info.Tuning.RoundTimeoutSec != 30 {
		t.Fatalf("expected default tuning, got %+v", info.Tuning)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Fatalf("expected origin echoed, got %q", got)
	}
}
