package featureflags

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/banditcore"
	"github.com/Sidd-007/eppo-go/pkg/dedupcache"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
	"github.com/Sidd-007/eppo-go/pkg/evaldetails"
	"github.com/Sidd-007/eppo-go/pkg/flagcore"
)

// AssignmentLogger receives every flag assignment that changes for its
// (flag, subject) pair.
type AssignmentLogger interface {
	LogAssignment(event flagcore.AssignmentEvent) error
}

// BanditLogger receives every bandit action that changes for its
// (bandit, subject) pair.
type BanditLogger interface {
	LogBanditAction(event banditcore.Event) error
}

type assignmentDedupKey struct {
	flagKey, subjectKey string
}

type assignmentDedupValue struct {
	allocationKey, variationKey string
}

type banditDedupKey struct {
	banditKey, subjectKey string
}

type banditDedupValue struct {
	actionKey string
}

// Client evaluates feature flags and contextual bandits against an
// in-memory configuration snapshot, logging assignments and bandit
// actions exactly once per observed change.
type Client struct {
	config *Config
	logger zerolog.Logger

	holder *snapshotHolder
	poller *poller

	assignmentLogger AssignmentLogger
	banditLogger     BanditLogger

	assignmentDedup *dedupcache.Deduplicator[assignmentDedupKey, assignmentDedupValue]
	banditDedup     *dedupcache.Deduplicator[banditDedupKey, banditDedupValue]

	mu                sync.Mutex
	closed            bool
	evaluations       int64
	banditEvaluations int64
	configFetches     int64
	configFetchErrors int64
	lastConfigFetch   time.Time
}

// ClientOption customizes a Client at construction time.
type ClientOption func(*Client)

// WithAssignmentLogger registers the sink invoked when a subject's
// flag assignment changes.
func WithAssignmentLogger(l AssignmentLogger) ClientOption {
	return func(c *Client) { c.assignmentLogger = l }
}

// WithBanditLogger registers the sink invoked when a subject's bandit
// action changes.
func WithBanditLogger(l BanditLogger) ClientOption {
	return func(c *Client) { c.banditLogger = l }
}

// NewClient builds a Client, performs an initial synchronous
// configuration fetch, and starts the background poller.
func NewClient(ctx context.Context, config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := log.With().Str("component", "eppo-client").Logger()

	assignmentCacheSize := config.AssignmentLogCacheSize
	if assignmentCacheSize <= 0 {
		assignmentCacheSize = 1
	}
	banditCacheSize := config.BanditLogCacheSize
	if banditCacheSize <= 0 {
		banditCacheSize = 1
	}

	c := &Client{
		config:          config,
		logger:          logger,
		holder:          &snapshotHolder{},
		assignmentDedup: dedupcache.NewDeduplicator[assignmentDedupKey, assignmentDedupValue](assignmentCacheSize),
		banditDedup:     dedupcache.NewDeduplicator[banditDedupKey, banditDedupValue](banditCacheSize),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.poller = newPoller(config, c.holder, logger)
	c.poller.onFetch = func(ok bool, _ []evalconfig.LoadWarning) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.configFetches++
		if !ok {
			c.configFetchErrors++
		} else {
			c.lastConfigFetch = time.Now()
		}
	}

	if err := c.poller.start(ctx); err != nil {
		return nil, fmt.Errorf("start configuration poller: %w", err)
	}

	logger.Info().Str("base_url", config.BaseURL).Str("mode", string(config.Mode)).Msg("eppo client started")
	return c, nil
}

// Close stops the background configuration poller.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.poller.stop()
	return nil
}

// Stats returns a snapshot of the client's usage counters.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	as := c.assignmentDedup.Stats()
	bs := c.banditDedup.Stats()
	return ClientStats{
		Evaluations:       c.evaluations,
		BanditEvaluations: c.banditEvaluations,
		ConfigFetches:     c.configFetches,
		ConfigFetchErrors: c.configFetchErrors,
		LastConfigFetch:   c.lastConfigFetch,
		AssignmentLog:     DedupStats(as),
		BanditLog:         DedupStats(bs),
	}
}

func augmentSubject(s Subject) map[string]attrval.Value {
	attrs := make(map[string]attrval.Value, len(s.Attributes)+1)
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	return attrs
}

// evaluate runs the flag evaluator against the current snapshot and
// logs an assignment event if the outcome is new for this subject.
// hardErr is non-nil only for the failure modes the specification
// treats as strict-mode errors; DEFAULT_ALLOCATION_NULL and similar
// "no assignment" outcomes are never hard errors; the caller's default
// is always appropriate for them.
func (c *Client) evaluate(flagKey string, subject Subject) (flagcore.Result, *EvaluationError) {
	c.mu.Lock()
	c.evaluations++
	c.mu.Unlock()

	if subject.Key == "" {
		return flagcore.Result{Details: evaldetails.Details{FlagEvaluationCode: evaldetails.FlagAssignmentError}},
			&EvaluationError{Type: ErrorTypeAssignment, FlagKey: flagKey, Message: "subject key must not be empty"}
	}
	if flagKey == "" {
		return flagcore.Result{Details: evaldetails.Details{FlagEvaluationCode: evaldetails.FlagAssignmentError}},
			&EvaluationError{Type: ErrorTypeAssignment, FlagKey: flagKey, Message: "flag key must not be empty"}
	}

	snap := c.holder.current()
	if snap == nil {
		return flagcore.Result{Details: evaldetails.Details{FlagEvaluationCode: evaldetails.FlagConfigurationMissing}},
			&EvaluationError{Type: ErrorTypeConfigurationMissing, FlagKey: flagKey, Message: "no configuration has been loaded yet"}
	}

	flag := snap.Flags[flagKey]
	result := flagcore.Evaluate(flag, subject.Key, augmentSubject(subject), time.Now(), c.logger)

	switch result.Details.FlagEvaluationCode {
	case evaldetails.FlagUnrecognizedOrDisabled:
		return result, &EvaluationError{Type: ErrorTypeFlagUnrecognized, FlagKey: flagKey, Message: "flag is not recognized or is disabled"}
	case evaldetails.FlagAssignmentError:
		return result, &EvaluationError{Type: ErrorTypeAssignment, FlagKey: flagKey, Message: "matched split references an unknown variation"}
	}

	if result.Event != nil && c.assignmentLogger != nil {
		key := assignmentDedupKey{flagKey: flagKey, subjectKey: subject.Key}
		value := assignmentDedupValue{allocationKey: result.Event.Allocation, variationKey: result.Event.Variation}
		if err := c.assignmentDedup.LogIfChanged(key, value, func() error {
			return c.assignmentLogger.LogAssignment(*result.Event)
		}); err != nil {
			c.logger.Warn().Err(err).Str("flag", flagKey).Str("subject", subject.Key).Msg("assignment log sink failed")
		}
	}

	return result, nil
}

func (c *Client) checkType(flagKey string, result flagcore.Result, want evalconfig.VariationType) *EvaluationError {
	if result.HasValue && result.Variation.Type != want {
		return &EvaluationError{
			Type:    ErrorTypeTypeMismatch,
			FlagKey: flagKey,
			Message: fmt.Sprintf("flag's variation type is %s, requested %s", result.Variation.Type, want),
		}
	}
	return nil
}

// GetBoolean returns flagKey's boolean variation for subject, or
// defaultValue with populated evaluation details if no assignment
// applies. In strict mode, hard failures (unrecognized flag, type
// mismatch, assignment error, missing configuration) are returned as
// *EvaluationError instead.
func (c *Client) GetBoolean(flagKey string, subject Subject, defaultValue bool) (bool, evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, hardErr
		}
		return defaultValue, result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationBoolean); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, typeErr
		}
		return defaultValue, result.Details, nil
	}
	if !result.HasValue {
		return defaultValue, result.Details, nil
	}
	v, ok := result.Variation.Scalar.AsBool()
	if !ok {
		return defaultValue, result.Details, nil
	}
	return v, result.Details, nil
}

// GetString returns flagKey's string variation for subject.
func (c *Client) GetString(flagKey string, subject Subject, defaultValue string) (string, evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, hardErr
		}
		return defaultValue, result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationString); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, typeErr
		}
		return defaultValue, result.Details, nil
	}
	if !result.HasValue {
		return defaultValue, result.Details, nil
	}
	v, ok := result.Variation.Scalar.AsString()
	if !ok {
		return defaultValue, result.Details, nil
	}
	return v, result.Details, nil
}

// GetInteger returns flagKey's integer variation for subject.
func (c *Client) GetInteger(flagKey string, subject Subject, defaultValue int64) (int64, evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, hardErr
		}
		return defaultValue, result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationInteger); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, typeErr
		}
		return defaultValue, result.Details, nil
	}
	if !result.HasValue {
		return defaultValue, result.Details, nil
	}
	v, ok := result.Variation.Scalar.AsInt()
	if !ok {
		return defaultValue, result.Details, nil
	}
	return v, result.Details, nil
}

// GetNumeric returns flagKey's numeric (floating point) variation for
// subject.
func (c *Client) GetNumeric(flagKey string, subject Subject, defaultValue float64) (float64, evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, hardErr
		}
		return defaultValue, result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationNumeric); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, typeErr
		}
		return defaultValue, result.Details, nil
	}
	if !result.HasValue {
		return defaultValue, result.Details, nil
	}
	v, ok := result.Variation.Scalar.ToFloat64()
	if !ok {
		return defaultValue, result.Details, nil
	}
	return v, result.Details, nil
}

// GetJSON returns flagKey's JSON variation for subject, decoded into
// out (a pointer, as for json.Unmarshal).
func (c *Client) GetJSON(flagKey string, subject Subject, out interface{}) (evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return result.Details, hardErr
		}
		return result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationJSON); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return result.Details, typeErr
		}
		return result.Details, nil
	}
	if !result.HasValue || result.Variation.JSONValue == nil {
		return result.Details, nil
	}
	if err := json.Unmarshal(result.Variation.JSONValue, out); err != nil {
		if c.config.Mode == ModeStrict {
			return result.Details, &EvaluationError{Type: ErrorTypeTypeMismatch, FlagKey: flagKey, Message: "failed to decode JSON variation", Cause: err}
		}
	}
	return result.Details, nil
}

// GetSerializedJSON returns flagKey's JSON variation for subject as a
// raw string, without requiring a destination type.
func (c *Client) GetSerializedJSON(flagKey string, subject Subject, defaultValue string) (string, evaldetails.Details, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, hardErr
		}
		return defaultValue, result.Details, nil
	}
	if typeErr := c.checkType(flagKey, result, evalconfig.VariationJSON); typeErr != nil {
		if c.config.Mode == ModeStrict {
			return defaultValue, result.Details, typeErr
		}
		return defaultValue, result.Details, nil
	}
	if !result.HasValue || result.Variation.JSONValue == nil {
		return defaultValue, result.Details, nil
	}
	return string(result.Variation.JSONValue), result.Details, nil
}

// GetBanditAction evaluates flagKey as a bandit-backed flag: if the
// assigned variation is associated with a bandit, it scores actions
// and deterministically selects one; otherwise it falls back to the
// flag's own string variation with HasAction=false.
func (c *Client) GetBanditAction(flagKey string, subject Subject, actions []banditcore.Action, defaultValue string) (BanditActionResult, error) {
	result, hardErr := c.evaluate(flagKey, subject)
	if hardErr != nil {
		if c.config.Mode == ModeStrict {
			return BanditActionResult{VariationValue: defaultValue, Details: result.Details}, hardErr
		}
		return BanditActionResult{VariationValue: defaultValue, Details: result.Details}, nil
	}
	if !result.HasValue {
		return BanditActionResult{VariationValue: defaultValue, Details: result.Details}, nil
	}

	variationValue, _ := result.Variation.Scalar.AsString()
	snap := c.holder.current()

	byFlag, ok := snap.BanditAssociations[flagKey]
	if !ok {
		result.Details.BanditEvaluationCode = evaldetails.BanditNonBanditVariation
		result.Details.HasBanditCode = true
		return BanditActionResult{VariationValue: variationValue, Details: result.Details}, nil
	}
	assoc, ok := byFlag[variationValue]
	if !ok {
		result.Details.BanditEvaluationCode = evaldetails.BanditNonBanditVariation
		result.Details.HasBanditCode = true
		return BanditActionResult{VariationValue: variationValue, Details: result.Details}, nil
	}
	if len(actions) == 0 {
		result.Details.BanditEvaluationCode = evaldetails.BanditNoActionsSuppliedForBandit
		result.Details.HasBanditCode = true
		return BanditActionResult{VariationValue: variationValue, Details: result.Details}, nil
	}
	model, ok := snap.Bandits[assoc.Key]
	if !ok {
		result.Details.BanditEvaluationCode = evaldetails.BanditError
		result.Details.HasBanditCode = true
		return BanditActionResult{VariationValue: variationValue, Details: result.Details}, nil
	}

	c.mu.Lock()
	c.banditEvaluations++
	c.mu.Unlock()

	banditResult := banditcore.Evaluate(model, flagKey, subject.Key, augmentSubject(subject), actions, time.Now().UTC().Format("2006-01-02T15:04:05.000Z"), flagcore.SDKMetaData)
	result.Details.BanditEvaluationCode = evaldetails.BanditMatch
	result.Details.HasBanditCode = true
	result.Details.BanditKey = model.Key
	result.Details.BanditAction = banditResult.ActionKey

	if banditResult.Event != nil && c.banditLogger != nil {
		key := banditDedupKey{banditKey: model.Key, subjectKey: subject.Key}
		value := banditDedupValue{actionKey: banditResult.ActionKey}
		if err := c.banditDedup.LogIfChanged(key, value, func() error {
			return c.banditLogger.LogBanditAction(*banditResult.Event)
		}); err != nil {
			c.logger.Warn().Err(err).Str("bandit", model.Key).Str("subject", subject.Key).Msg("bandit log sink failed")
		}
	}

	return BanditActionResult{
		VariationValue: variationValue,
		Action:         banditResult.ActionKey,
		HasAction:      banditResult.HasAction,
		Details:        result.Details,
	}, nil
}
