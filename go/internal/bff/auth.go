package bff

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// TokenSource supplies the bearer credential for BFF calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential, typically read from configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// AuthTransport adds "Authorization: Bearer <token>" to every request except
// static-asset fetches, which pass through unmodified.
type AuthTransport struct {
	Source TokenSource
	Base   http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Source == nil || IsStaticAsset(req.URL.Path) {
		return base.RoundTrip(req)
	}

	token, err := t.Source.Token(req.Context())
	if err != nil {
		log.Warn().Err(err).Str("path", req.URL.Path).Msg("token lookup failed, sending request without credentials")
		return base.RoundTrip(req)
	}
	if token == "" {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}

var assetSuffixes = []string{".json", ".css", ".js", ".ico"}

// IsStaticAsset reports whether path looks like a static-asset fetch.
func IsStaticAsset(path string) bool {
	if strings.Contains(path, "/assets/") || strings.HasPrefix(path, "assets/") {
		return true
	}
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
