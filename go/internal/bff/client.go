package bff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/songquiz/go/internal/models"
)

const DefaultTimeout = 10 * time.Second

// Operation names, used as the metrics label for each BFF call.
const (
	OpStartGame = "start_game"
	OpGuess     = "submit_guess"
	OpNextRound = "next_round"
	OpSurrender = "surrender"
	OpSummary   = "summary"
	OpSearch    = "search"
)

// Observer receives the latency of every BFF call.
type Observer interface {
	ObserveBFFCall(op, status string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveBFFCall(string, string, time.Duration) {}

// Client talks to the backend-for-frontend. It is safe for concurrent use.
type Client struct {
	baseURL  string
	client   *http.Client
	headers  map[string]string
	clock    clockwork.Clock
	observer Observer

	source    TokenSource
	transport http.RoundTripper
}

type Option func(*Client)

// WithTokenSource installs the bearer auth transport.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.source = src
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a BFF client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		headers: map[string]string{
			"Accept": "application/json",
		},
		clock:    clockwork.NewRealClock(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client.Transport = c.transport
	if c.source != nil {
		c.client.Transport = &AuthTransport{Source: c.source, Base: c.transport}
	}
	return c
}

func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// StartGame begins a new game and returns its first round.
func (c *Client) StartGame(ctx context.Context) (models.RoundState, error) {
	rs, err := c.roundState(ctx, OpStartGame, "/games/start", struct{}{})
	if err != nil {
		return models.RoundState{}, err
	}
	return rs, rs.ValidateRound()
}

type guessRequest struct {
	Guess string  `json:"guess"`
	Time  float64 `json:"time"`
}

// SubmitGuess sends a guess made at elapsed playback seconds.
func (c *Client) SubmitGuess(ctx context.Context, gameID, guess string, elapsed float64) (models.RoundState, error) {
	rs, err := c.roundState(ctx, OpGuess, gamePath(gameID, "round"), guessRequest{Guess: guess, Time: elapsed})
	if err != nil {
		return models.RoundState{}, err
	}
	return rs, rs.ValidateVerdict()
}

// NextRound advances the game. The BFF expects a JSON null body.
func (c *Client) NextRound(ctx context.Context, gameID string) (models.RoundState, error) {
	rs, err := c.roundState(ctx, OpNextRound, gamePath(gameID, "round"), nil)
	if err != nil {
		return models.RoundState{}, err
	}
	return rs, rs.ValidateRound()
}

// Surrender abandons the game. The response is the final summary.
func (c *Client) Surrender(ctx context.Context, gameID string) (models.GameSummary, error) {
	body, err := c.do(ctx, OpSurrender, http.MethodPost, gamePath(gameID, "surrender"), struct{}{})
	if err != nil {
		return models.GameSummary{}, err
	}
	return decodeSummary(body)
}

func (c *Client) Summary(ctx context.Context, gameID string) (models.GameSummary, error) {
	body, err := c.do(ctx, OpSummary, http.MethodGet, gamePath(gameID, "summary"), nil)
	if err != nil {
		return models.GameSummary{}, err
	}
	return decodeSummary(body)
}

// Search returns autocomplete suggestions for term in BFF order.
func (c *Client) Search(ctx context.Context, term string) ([]models.Suggestion, error) {
	body, err := c.do(ctx, OpSearch, http.MethodGet, "/itunes/search?term="+url.QueryEscape(term), nil)
	if err != nil {
		return nil, err
	}
	w, err := decode[searchWire](body)
	if err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

func (c *Client) roundState(ctx context.Context, op, path string, payload any) (models.RoundState, error) {
	body, err := c.do(ctx, op, http.MethodPost, path, payload)
	if err != nil {
		return models.RoundState{}, err
	}
	w, err := decode[roundStateWire](body)
	if err != nil {
		return models.RoundState{}, err
	}
	return w.toModel(), nil
}

func decodeSummary(body []byte) (models.GameSummary, error) {
	w, err := decode[summaryWire](body)
	if err != nil {
		return models.GameSummary{}, err
	}
	s := w.toModel()
	return s, s.Validate()
}

func gamePath(gameID, action string) string {
	return "/games/" + url.PathEscape(gameID) + "/" + action
}

// do performs one request. A nil payload on POST is sent as JSON null.
func (c *Client) do(ctx context.Context, op, method, endpoint string, payload any) ([]byte, error) {
	start := c.clock.Now()
	status := "error"
	defer func() {
		c.observer.ObserveBFFCall(op, status, c.clock.Since(start))
	}()

	var body io.Reader
	if method != http.MethodGet {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to make request: %w", op, err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method: method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   string(responseBody),
		}
	}
	return responseBody, nil
}
