package bff

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/songquiz/go/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

// fakeBFF serves canned responses per "METHOD path" and records every request.
type fakeBFF struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeBFF(t *testing.T, responses map[string]fakeResponse) (*fakeBFF, *httptest.Server) {
	t.Helper()
	f := &fakeBFF{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeBFF) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
	})
	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeBFF) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("expected at least one request")
	}
	return f.requests[len(f.requests)-1]
}

type observation struct {
	op, status string
}

type fakeObserver struct {
	mu  sync.Mutex
	got []observation
}

func (o *fakeObserver) ObserveBFFCall(op, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observation{op, status})
}

const roundJSON = `{"gameId":"g1","song":{"trackId":1,"previewUrl":"u","trackName":"  Title ","artistName":"Band"},"round":1,"score":0,"isCorrect":null}`

func TestStartGameDecodesCanonicalRound(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeBFF(t, map[string]fakeResponse{
		"POST /bff/games/start": {http.StatusOK, roundJSON},
	})
	obs := &fakeObserver{}
	c := NewClient(srv.URL+"/bff/", WithTokenSource(StaticToken("tok")), WithObserver(obs))

	rs, err := c.StartGame(context.Background())
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if rs.GameID != "g1" || rs.Round != 1 || rs.Song.TrackID != 1 || rs.Song.PreviewURL != "u" {
		t.Fatalf("unexpected round state: %+v", rs)
	}
	if rs.Song.Title != "Title" || rs.Song.Artist != "Band" {
		t.Fatalf("expected trimmed song fields, got %+v", rs.Song)
	}
	if rs.IsCorrect != models.VerdictUnknown {
		t.Fatalf("expected unknown verdict, got %s", rs.IsCorrect)
	}

	req := fake.last(t)
	if req.Auth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", req.Auth)
	}
	if req.Body != "{}" {
		t.Fatalf("expected empty object body, got %q", req.Body)
	}
	if len(obs.got) != 1 || obs.got[0] != (observation{OpStartGame, "200"}) {
		t.Fatalf("unexpected observations: %+v", obs.got)
	}
}

func TestSubmitGuessAndNextRoundBodies(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeBFF(t, map[string]fakeResponse{
		"POST /games/g 1/round": {http.StatusOK, `{"gameId":"g 1","song":{"trackId":2,"previewUrl":"p"},"round":2,"score":10,"isCorrect":true}`},
	})
	c := NewClient(srv.URL)

	rs, err := c.SubmitGuess(context.Background(), "g 1", "title", 12)
	if err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if rs.IsCorrect != models.VerdictCorrect || rs.Score != 10 {
		t.Fatalf("unexpected verdict: %+v", rs)
	}
	if got := fake.last(t).Body; got != `{"guess":"title","time":12}` {
		t.Fatalf("unexpected guess body: %s", got)
	}

	if _, err := c.NextRound(context.Background(), "g 1"); err != nil {
		t.Fatalf("NextRound: %v", err)
	}
	if got := fake.last(t).Body; got != "null" {
		t.Fatalf("expected null body for next round, got %q", got)
	}
}

func TestSummaryAdaptsLegacyField(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBFF(t, map[string]fakeResponse{
		"GET /games/g1/summary":    {http.StatusOK, `{"gameId":"g1","totalScore":30,"totalRounds":5,"songsGuessed":3}`},
		"POST /games/g1/surrender": {http.StatusOK, `{"gameId":"g1","totalScore":30,"totalRounds":5,"correctRounds":2,"songsGuessed":3}`},
	})
	c := NewClient(srv.URL)

	s, err := c.Summary(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.CorrectRounds != 3 || s.TotalRounds != 5 || s.TotalScore != 30 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	s, err = c.Surrender(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Surrender: %v", err)
	}
	if s.CorrectRounds != 2 {
		t.Fatalf("expected correctRounds to win over songsGuessed, got %d", s.CorrectRounds)
	}
}

func TestNon2xxIsStatusError(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	_, srv := newFakeBFF(t, map[string]fakeResponse{
		"POST /games/start": {http.StatusBadGateway, `upstream down`},
	})
	c := NewClient(srv.URL, WithObserver(obs))

	_, err := c.StartGame(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusBadGateway || se.Body != "upstream down" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if len(obs.got) != 1 || obs.got[0].status != "502" {
		t.Fatalf("unexpected observations: %+v", obs.got)
	}
}

func TestInvalidPayloadsRejected(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBFF(t, map[string]fakeResponse{
		"POST /games/start":     {http.StatusOK, `{"gameId":"g1","song":{"trackId":1}}`},
		"POST /games/g1/round":  {http.StatusOK, `{"gameId":"g1","isCorrect":"maybe"}`},
		"GET /games/g1/summary": {http.StatusOK, `{"totalScore":1}`},
	})
	c := NewClient(srv.URL)

	if _, err := c.StartGame(context.Background()); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing preview, got %v", err)
	}
	if _, err := c.SubmitGuess(context.Background(), "g1", "x", 1); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for bad verdict, got %v", err)
	}
	if _, err := c.Summary(context.Background(), "g1"); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for summary without gameId, got %v", err)
	}
}

func TestSearchEscapesTermAndDropsUnusableEntries(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeBFF(t, map[string]fakeResponse{
		"GET /itunes/search": {http.StatusOK, `{"resultCount":3,"results":[
			{"trackId":1,"artistName":"A","trackName":"One","artworkUrl100":"art"},
			{"trackId":0,"trackName":"Ghost"},
			{"trackId":3,"artistName":"C","trackName":"  "}
		]}`},
	})
	c := NewClient(srv.URL)

	got, err := c.Search(context.Background(), "rock & roll")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "One" || got[0].Artist != "A" || got[0].ArtworkURL != "art" {
		t.Fatalf("unexpected suggestions: %+v", got)
	}
	if q := fake.last(t).Query; q != "term=rock+%26+roll" {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithTimeout(time.Second))
	_, err := c.Summary(context.Background(), "g1")
	if err == nil || !strings.Contains(err.Error(), OpSummary) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}
