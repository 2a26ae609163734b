package configsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HTTPSource fetches configuration from a plain HTTP endpoint,
// authenticating with a short-lived bearer token it mints itself from
// a shared signing secret rather than a long-lived static API key.
type HTTPSource struct {
	client  *http.Client
	url     string
	secret  []byte
	subject string
}

// NewHTTPSource builds an HTTPSource that signs its own bearer tokens
// with secret, scoped to subject (typically the deployment's API key
// identifier).
func NewHTTPSource(url, subject, secret string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		secret:  []byte(secret),
		subject: subject,
	}
}

func (s *HTTPSource) token() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	tok, err := s.token()
	if err != nil {
		return nil, fmt.Errorf("configsource: sign request token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("configsource: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("configsource: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("configsource: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("configsource: read body: %w", err)
	}
	return body, nil
}
