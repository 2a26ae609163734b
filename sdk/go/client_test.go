package featureflags

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/banditcore"
	"github.com/Sidd-007/eppo-go/pkg/evaldetails"
	"github.com/Sidd-007/eppo-go/pkg/flagcore"
)

const testConfigDoc = `{
  "flags": {
    "show-banner": {
      "key": "show-banner",
      "enabled": true,
      "variationType": "BOOLEAN",
      "totalShards": 10000,
      "variations": {
        "on": {"key": "on", "value": true},
        "off": {"key": "off", "value": false}
      },
      "allocations": [
        {
          "key": "rollout",
          "doLog": true,
          "splits": [
            {"variationKey": "on", "shards": [{"salt": "s", "ranges": [{"start": 0, "end": 10000}]}]}
          ]
        }
      ]
    }
  }
}`

const testBanditConfigDoc = `{
  "flags": {
    "bandit-flag": {
      "key": "bandit-flag",
      "enabled": true,
      "variationType": "STRING",
      "totalShards": 10000,
      "variations": {
        "bandit-variation": {"key": "bandit-variation", "value": "bandit-variation"},
        "plain-variation": {"key": "plain-variation", "value": "plain-variation"}
      },
      "allocations": [
        {
          "key": "rollout",
          "doLog": true,
          "splits": [
            {"variationKey": "bandit-variation", "shards": [{"salt": "s", "ranges": [{"start": 0, "end": 10000}]}]}
          ]
        }
      ]
    },
    "non-bandit-flag": {
      "key": "non-bandit-flag",
      "enabled": true,
      "variationType": "STRING",
      "totalShards": 10000,
      "variations": {
        "plain-variation": {"key": "plain-variation", "value": "plain-variation"}
      },
      "allocations": [
        {
          "key": "rollout",
          "doLog": true,
          "splits": [
            {"variationKey": "plain-variation", "shards": [{"salt": "s", "ranges": [{"start": 0, "end": 10000}]}]}
          ]
        }
      ]
    }
  },
  "bandits": {
    "my-bandit": {
      "banditKey": "my-bandit",
      "modelName": "falcon",
      "modelVersion": "v1",
      "modelData": {
        "gamma": 1.0,
        "defaultActionScore": 0,
        "actionProbabilityFloor": 0,
        "coefficients": {}
      }
    }
  },
  "banditReferences": {
    "my-bandit": {
      "flagVariations": [
        {"flagKey": "bandit-flag", "variationKey": "bandit-variation", "variationValue": "bandit-variation"}
      ]
    }
  }
}`

func newTestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

// countingAssignmentLogger counts LogAssignment calls for test assertions.
type countingAssignmentLogger struct {
	mu    sync.Mutex
	calls int
}

func (l *countingAssignmentLogger) LogAssignment(flagcore.AssignmentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil
}

func (l *countingAssignmentLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestClientGetBooleanAssignsAndLogs(t *testing.T) {
	srv := newTestServer(t, testConfigDoc)
	defer srv.Close()

	logger := &countingAssignmentLogger{}

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeGraceful, AssignmentLogCacheSize: 100, BanditLogCacheSize: 100}
	client, err := NewClient(context.Background(), cfg, WithAssignmentLogger(logger))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	subject := Subject{Key: "alice", Attributes: map[string]attrval.Value{}}
	value, details, err := client.GetBoolean("show-banner", subject, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value {
		t.Errorf("expected true, got false; details=%+v", details)
	}

	// A second call with the same outcome must not emit another log.
	if _, _, err := client.GetBoolean("show-banner", subject, false); err != nil {
		t.Fatalf("unexpected error on repeat call: %v", err)
	}

	if got := logger.count(); got != 1 {
		t.Errorf("expected exactly one assignment log call, got %d", got)
	}
}

func TestClientUnknownFlagReturnsDefault(t *testing.T) {
	srv := newTestServer(t, testConfigDoc)
	defer srv.Close()

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeGraceful}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	value, details, err := client.GetString("does-not-exist", Subject{Key: "bob"}, "fallback")
	if err != nil {
		t.Fatalf("graceful mode must not return an error, got %v", err)
	}
	if value != "fallback" {
		t.Errorf("expected fallback default, got %q", value)
	}
	if details.FlagEvaluationCode != "FLAG_UNRECOGNIZED_OR_DISABLED" {
		t.Errorf("unexpected evaluation code: %v", details.FlagEvaluationCode)
	}
}

func TestClientStrictModeSurfacesUnknownFlag(t *testing.T) {
	srv := newTestServer(t, testConfigDoc)
	defer srv.Close()

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeStrict}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	_, _, err = client.GetString("does-not-exist", Subject{Key: "bob"}, "fallback")
	if err == nil {
		t.Fatal("expected a strict-mode error for an unrecognized flag")
	}
}

func TestClientEmptyKeysAreAssignmentErrors(t *testing.T) {
	srv := newTestServer(t, testConfigDoc)
	defer srv.Close()

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeStrict}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if _, _, err := client.GetString("", Subject{Key: "bob"}, "fallback"); err == nil {
		t.Fatal("expected an assignment error for an empty flag key")
	}
	if _, _, err := client.GetString("show-banner", Subject{Key: ""}, "fallback"); err == nil {
		t.Fatal("expected an assignment error for an empty subject key")
	}

	cfg.Mode = ModeGraceful
	gclient, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer gclient.Close()

	value, details, err := gclient.GetString("", Subject{Key: "bob"}, "fallback")
	if err != nil {
		t.Fatalf("graceful mode must not return an error, got %v", err)
	}
	if value != "fallback" {
		t.Errorf("expected fallback default, got %q", value)
	}
	if details.FlagEvaluationCode != evaldetails.FlagAssignmentError {
		t.Errorf("expected ASSIGNMENT_ERROR, got %v", details.FlagEvaluationCode)
	}
}

// countingBanditLogger counts LogBanditAction calls for test assertions.
type countingBanditLogger struct {
	mu    sync.Mutex
	calls int
}

func (l *countingBanditLogger) LogBanditAction(banditcore.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil
}

func (l *countingBanditLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestClientGetBanditActionSelectsAndLogs(t *testing.T) {
	srv := newTestServer(t, testBanditConfigDoc)
	defer srv.Close()

	logger := &countingBanditLogger{}

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeGraceful, AssignmentLogCacheSize: 100, BanditLogCacheSize: 100}
	client, err := NewClient(context.Background(), cfg, WithBanditLogger(logger))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	actions := []banditcore.Action{
		{Key: "action-a", Attributes: map[string]attrval.Value{"price": attrval.FromAny(9.99)}},
		{Key: "action-b", Attributes: map[string]attrval.Value{"price": attrval.FromAny(14.99)}},
	}

	result, err := client.GetBanditAction("bandit-flag", Subject{Key: "alice"}, actions, "plain-variation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasAction {
		t.Fatalf("expected a bandit action to be selected, got %+v", result)
	}
	if result.Details.BanditEvaluationCode != evaldetails.BanditMatch {
		t.Errorf("expected MATCH, got %v", result.Details.BanditEvaluationCode)
	}
	if !result.Details.HasBanditCode {
		t.Error("expected HasBanditCode to be true")
	}

	if got := logger.count(); got != 1 {
		t.Errorf("expected exactly one bandit action log call, got %d", got)
	}
}

func TestClientGetBanditActionNoActionsSupplied(t *testing.T) {
	srv := newTestServer(t, testBanditConfigDoc)
	defer srv.Close()

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeGraceful}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	result, err := client.GetBanditAction("bandit-flag", Subject{Key: "alice"}, nil, "plain-variation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasAction {
		t.Fatalf("expected no action to be selected, got %+v", result)
	}
	if result.Details.BanditEvaluationCode != evaldetails.BanditNoActionsSuppliedForBandit {
		t.Errorf("expected NO_ACTIONS_SUPPLIED_FOR_BANDIT, got %v", result.Details.BanditEvaluationCode)
	}
}

func TestClientGetBanditActionNonBanditVariation(t *testing.T) {
	srv := newTestServer(t, testBanditConfigDoc)
	defer srv.Close()

	cfg := &Config{APIKey: "test-key", BaseURL: srv.URL, PollInterval: time.Hour, HTTPTimeout: time.Second, Mode: ModeGraceful}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	actions := []banditcore.Action{{Key: "action-a"}}

	result, err := client.GetBanditAction("non-bandit-flag", Subject{Key: "alice"}, actions, "plain-variation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasAction {
		t.Fatalf("expected no action to be selected, got %+v", result)
	}
	if result.Details.BanditEvaluationCode != evaldetails.BanditNonBanditVariation {
		t.Errorf("expected NON_BANDIT_VARIATION, got %v", result.Details.BanditEvaluationCode)
	}
}
