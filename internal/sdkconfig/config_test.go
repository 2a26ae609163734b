package sdkconfig

import "testing"

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := &Config{Client: ClientConfig{Mode: "graceful", PollInterval: 1}, Source: SourceConfig{Kind: SourceHTTP, BaseURL: "http://x"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing API key")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &Config{
		Client: ClientConfig{APIKey: "k", Mode: "yolo", PollInterval: 1},
		Source: SourceConfig{Kind: SourceHTTP, BaseURL: "http://x"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestValidateRequiresSourceSpecificFields(t *testing.T) {
	cfg := &Config{
		Client: ClientConfig{APIKey: "k", Mode: "graceful", PollInterval: 1},
		Source: SourceConfig{Kind: SourcePostgres},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a postgres source without a database name")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		Client: ClientConfig{APIKey: "k", Mode: "strict", PollInterval: 1},
		Source: SourceConfig{Kind: SourceHTTP, BaseURL: "http://x"},
		Sink:   SinkConfig{Kind: SinkNone},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetDatabaseDSNFormat(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "h", Port: 5432, Database: "d", Username: "u", Password: "p", SSLMode: "disable"}}
	want := "postgres://u:p@h:5432/d?sslmode=disable"
	if got := cfg.GetDatabaseDSN(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
