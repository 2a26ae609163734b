// Package featureflags is the public client SDK for local feature-flag
// and contextual-bandit evaluation. It fetches a configuration
// snapshot from a remote source, caches it in memory, and evaluates
// flags and bandits against that snapshot without a network round trip
// per call.
package featureflags

import (
	"fmt"
	"time"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/evaldetails"
)

// Mode controls how the client reacts to an evaluation it cannot
// complete cleanly: Graceful always returns the caller's default value
// (with evaluation details describing why), Strict surfaces a typed
// *EvaluationError for the failures the spec marks as hard errors.
type Mode string

const (
	ModeGraceful Mode = "graceful"
	ModeStrict   Mode = "strict"
)

// Subject describes the entity being evaluated: its key and the
// attributes available to rule and bandit scoring.
type Subject struct {
	Key        string
	Attributes map[string]attrval.Value
}

// ErrorType classifies an EvaluationError for callers that branch on
// failure kind rather than message text.
type ErrorType string

const (
	ErrorTypeConfigurationMissing ErrorType = "configuration_missing"
	ErrorTypeFlagUnrecognized     ErrorType = "flag_unrecognized_or_disabled"
	ErrorTypeTypeMismatch         ErrorType = "type_mismatch"
	ErrorTypeAssignment           ErrorType = "assignment_error"
	ErrorTypeInvalidSubject       ErrorType = "invalid_subject"
)

// EvaluationError is returned from strict-mode accessors for the
// evaluation outcomes the specification treats as hard failures. It is
// never returned in graceful mode; graceful mode folds the same
// outcomes into the default value plus populated evaluation details.
type EvaluationError struct {
	Type    ErrorType
	FlagKey string
	Message string
	Cause   error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("eppo: %s (flag %q): %s: %v", e.Type, e.FlagKey, e.Message, e.Cause)
	}
	return fmt.Sprintf("eppo: %s (flag %q): %s", e.Type, e.FlagKey, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// AssignmentResult is the outcome of a flag evaluation, shared by every
// typed accessor.
type AssignmentResult struct {
	Value   attrval.Value
	Found   bool
	Details evaldetails.Details
}

// BanditActionResult is the outcome of GetBanditAction: either a
// bandit selected an action, or the subject fell back to the flag's
// own variation (no bandit attached, or the flag evaluated to a
// non-bandit variation).
type BanditActionResult struct {
	VariationValue string
	Action         string
	HasAction      bool
	Details        evaldetails.Details
}

// Config holds client construction options.
type Config struct {
	// APIKey authenticates configuration fetches against the remote
	// source.
	APIKey string

	// BaseURL is the configuration source's base endpoint.
	BaseURL string

	// PollInterval is how often the background poller re-fetches
	// configuration.
	PollInterval time.Duration

	// HTTPTimeout bounds each configuration fetch.
	HTTPTimeout time.Duration

	// Mode selects graceful vs strict failure handling.
	Mode Mode

	// AssignmentLogCacheSize bounds the assignment dedup cache (a
	// value of 0 or less is treated as 1; deduplication is always on).
	AssignmentLogCacheSize int

	// BanditLogCacheSize bounds the bandit-action dedup cache.
	BanditLogCacheSize int
}

// DefaultConfig returns a Config with the client's recommended
// defaults; callers still must set APIKey and BaseURL.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:           30 * time.Second,
		HTTPTimeout:            5 * time.Second,
		Mode:                   ModeGraceful,
		AssignmentLogCacheSize: 10000,
		BanditLogCacheSize:     10000,
	}
}

// Validate reports a configuration error before it causes a confusing
// failure at runtime.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("featureflags: API key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("featureflags: base URL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("featureflags: poll interval must be positive")
	}
	if c.Mode != ModeGraceful && c.Mode != ModeStrict {
		return fmt.Errorf("featureflags: unknown mode %q", c.Mode)
	}
	return nil
}

// ClientStats reports basic usage counters, mirroring the shape of the
// platform's other *Stats structs.
type ClientStats struct {
	Evaluations       int64
	BanditEvaluations int64
	ConfigFetches     int64
	ConfigFetchErrors int64
	AssignmentLog     DedupStats
	BanditLog         DedupStats
	LastConfigFetch   time.Time
}

// DedupStats mirrors dedupcache.Stats without importing the internal
// cache type into the public API surface.
type DedupStats struct {
	Size       int
	Emitted    int64
	Suppressed int64
}
