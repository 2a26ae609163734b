// Package sinks implements the assignment/bandit-action log
// destinations a deployment can choose between: Redis for low-latency
// recent-event lookups, ClickHouse for durable analytical storage.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/pkg/banditcore"
	"github.com/Sidd-007/eppo-go/pkg/flagcore"
)

// RedisSink publishes assignment and bandit-action events onto a
// Redis stream, tagging each with a UUID so downstream consumers can
// deduplicate independently of this process's own in-memory dedup.
type RedisSink struct {
	client              *redis.Client
	assignmentStream    string
	banditActionStream  string
	logger              zerolog.Logger
}

// RedisSinkConfig configures a RedisSink.
type RedisSinkConfig struct {
	Addr               string
	Password           string
	Database           int
	PoolSize           int
	AssignmentStream   string
	BanditActionStream string
}

// NewRedisSink connects to Redis and returns a ready-to-use sink.
func NewRedisSink(cfg RedisSinkConfig, logger zerolog.Logger) *RedisSink {
	assignmentStream := cfg.AssignmentStream
	if assignmentStream == "" {
		assignmentStream = "eppo:assignments"
	}
	banditStream := cfg.BanditActionStream
	if banditStream == "" {
		banditStream = "eppo:bandit-actions"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.Database,
		PoolSize: cfg.PoolSize,
	})

	return &RedisSink{
		client:             client,
		assignmentStream:   assignmentStream,
		banditActionStream: banditStream,
		logger:             logger.With().Str("component", "redis-sink").Logger(),
	}
}

// LogAssignment implements the assignment logger interface expected by
// the SDK client.
func (s *RedisSink) LogAssignment(event flagcore.AssignmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sinks: marshal assignment event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id := uuid.New().String()
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.assignmentStream,
		Values: map[string]interface{}{"id": id, "payload": string(payload)},
	}).Err(); err != nil {
		return fmt.Errorf("sinks: publish assignment event: %w", err)
	}
	return nil
}

// LogBanditAction implements the bandit logger interface expected by
// the SDK client.
func (s *RedisSink) LogBanditAction(event banditcore.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sinks: marshal bandit event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id := uuid.New().String()
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.banditActionStream,
		Values: map[string]interface{}{"id": id, "payload": string(payload)},
	}).Err(); err != nil {
		return fmt.Errorf("sinks: publish bandit action event: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
