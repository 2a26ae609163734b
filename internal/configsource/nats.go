package configsource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// pushEnvelope wraps a pushed configuration document with the shared
// push credential itself (carried in the CredentialHash field), which
// NATSSource checks against its configured bcrypt hash so it can reject
// pushes from a misconfigured or malicious publisher on a shared
// subject before handing their payload to the evaluator.
type pushEnvelope struct {
	CredentialHash string          `json:"credentialHash"`
	Document       json.RawMessage `json:"document"`
}

// NATSSource subscribes to a subject that the control plane publishes
// configuration updates to, caching the most recently accepted
// document so Fetch always has something to return even between
// pushes. Reconnection and restoring the subscription are handled by
// the nats.go client itself; this type only logs disconnects and
// reconnects.
type NATSSource struct {
	conn          *nats.Conn
	sub           *nats.Subscription
	credentialHash []byte
	logger        zerolog.Logger

	mu     sync.RWMutex
	cached []byte
}

// NATSSourceConfig configures a NATSSource.
type NATSSourceConfig struct {
	URL            string
	Subject        string
	CredentialHash string // bcrypt hash of the shared push credential
	MaxReconnect   int
	ReconnectWait  time.Duration
	Timeout        time.Duration
}

// NewNATSSource connects to NATS and subscribes to cfg.Subject.
func NewNATSSource(cfg NATSSourceConfig, logger zerolog.Logger) (*NATSSource, error) {
	logger = logger.With().Str("component", "nats-source").Logger()

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("disconnected from nats, will retry")
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			logger.Info().Msg("reconnected to nats")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("configsource: connect to nats: %w", err)
	}

	s := &NATSSource{
		conn:           conn,
		credentialHash: []byte(cfg.CredentialHash),
		logger:         logger,
	}

	sub, err := conn.Subscribe(cfg.Subject, s.handleMessage)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("configsource: subscribe to %q: %w", cfg.Subject, err)
	}
	s.sub = sub

	return s, nil
}

func (s *NATSSource) handleMessage(msg *nats.Msg) {
	var env pushEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		s.logger.Warn().Err(err).Msg("dropping malformed configuration push")
		return
	}

	if err := bcrypt.CompareHashAndPassword(s.credentialHash, []byte(env.CredentialHash)); err != nil {
		s.logger.Warn().Msg("dropping configuration push with an invalid credential")
		return
	}

	s.mu.Lock()
	s.cached = env.Document
	s.mu.Unlock()
}

// Fetch implements Source, returning the most recently accepted push.
// It returns an error only if no push has ever been accepted; callers
// should treat an empty initial document as "not yet available" rather
// than retrying aggressively.
func (s *NATSSource) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return nil, fmt.Errorf("configsource: no configuration has been pushed yet")
	}
	return s.cached, nil
}

// Close unsubscribes and closes the NATS connection.
func (s *NATSSource) Close() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return err
	}
	s.conn.Close()
	return nil
}
