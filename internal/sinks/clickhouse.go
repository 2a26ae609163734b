package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/banditcore"
	"github.com/Sidd-007/eppo-go/pkg/flagcore"
)

// ClickHouseSink writes assignment and bandit-action events to
// ClickHouse for durable, queryable analytics storage. Writes are
// unbatched single-row inserts; deployments with high assignment
// volume should front this with an async queue rather than calling it
// directly from the evaluation hot path.
type ClickHouseSink struct {
	conn   clickhouse.Conn
	logger zerolog.Logger
}

// ClickHouseSinkConfig configures a ClickHouseSink.
type ClickHouseSinkConfig struct {
	Addr     []string
	Database string
	Username string
	Password string
}

// NewClickHouseSink opens a ClickHouse connection pool.
func NewClickHouseSink(cfg ClickHouseSinkConfig, logger zerolog.Logger) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sinks: open clickhouse connection: %w", err)
	}
	return &ClickHouseSink{conn: conn, logger: logger.With().Str("component", "clickhouse-sink").Logger()}, nil
}

// LogAssignment inserts one row into the assignment_events table.
func (s *ClickHouseSink) LogAssignment(event flagcore.AssignmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sinks: marshal assignment event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return s.conn.Exec(ctx,
		"INSERT INTO assignment_events (id, flag_key, subject_key, allocation_key, variation_key, logged_at, payload) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), event.FeatureFlag, event.Subject, event.Allocation, event.Variation, time.Now().UTC(), string(payload),
	)
}

// LogBanditAction inserts one row into the bandit_action_events table.
func (s *ClickHouseSink) LogBanditAction(event banditcore.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sinks: marshal bandit action event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return s.conn.Exec(ctx,
		"INSERT INTO bandit_action_events (id, bandit_key, flag_key, subject_key, action_key, action_probability, logged_at, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), event.BanditKey, event.FlagKey, event.Subject, event.Action, event.ActionProbability, time.Now().UTC(), string(payload),
	)
}

// Close releases the underlying ClickHouse connection pool.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
