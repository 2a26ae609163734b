package configsource

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func newTestSource(t *testing.T, credential string) *NATSSource {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash test credential: %v", err)
	}
	return &NATSSource{credentialHash: hash, logger: zerolog.Nop()}
}

func TestHandleMessageAcceptsValidCredential(t *testing.T) {
	s := newTestSource(t, "shared-secret")

	env := pushEnvelope{CredentialHash: "shared-secret", Document: json.RawMessage(`{"flags":{}}`)}
	data, _ := json.Marshal(env)
	s.handleMessage(&nats.Msg{Data: data})

	cached, err := s.Fetch(nil)
	if err != nil {
		t.Fatalf("expected a cached document, got error: %v", err)
	}
	if string(cached) != `{"flags":{}}` {
		t.Errorf("unexpected cached document: %s", cached)
	}
}

func TestHandleMessageRejectsInvalidCredential(t *testing.T) {
	s := newTestSource(t, "shared-secret")

	env := pushEnvelope{CredentialHash: "wrong-secret", Document: json.RawMessage(`{"flags":{}}`)}
	data, _ := json.Marshal(env)
	s.handleMessage(&nats.Msg{Data: data})

	if _, err := s.Fetch(nil); err == nil {
		t.Fatal("expected no document to be cached for an invalid credential")
	}
}

func TestHandleMessageDropsMalformedPayload(t *testing.T) {
	s := newTestSource(t, "shared-secret")
	s.handleMessage(&nats.Msg{Data: []byte("not json")})

	if _, err := s.Fetch(nil); err == nil {
		t.Fatal("expected no document to be cached for a malformed payload")
	}
}
