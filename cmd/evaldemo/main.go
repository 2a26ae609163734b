// Command evaldemo wires a configuration source, the evaluation
// engine, and a logging sink together outside of the sdk/go client,
// useful for exercising a deployment's configuration pipeline without
// pulling in the published SDK module.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sidd-007/eppo-go/internal/configsource"
	"github.com/Sidd-007/eppo-go/internal/sdkconfig"
	"github.com/Sidd-007/eppo-go/internal/sinks"
	"github.com/Sidd-007/eppo-go/pkg/attrval"
	"github.com/Sidd-007/eppo-go/pkg/banditcore"
	"github.com/Sidd-007/eppo-go/pkg/evalconfig"
	"github.com/Sidd-007/eppo-go/pkg/flagcore"
)

// logSink is the narrow interface evaldemo needs from a log sink,
// satisfied structurally by *sinks.RedisSink and *sinks.ClickHouseSink.
type logSink interface {
	LogAssignment(event flagcore.AssignmentEvent) error
	LogBanditAction(event banditcore.Event) error
}

func main() {
	cfg, err := sdkconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaldemo: load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "evaldemo").Logger()
	if cfg.Logging.Level != "" {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			logger = logger.Level(level)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, closeSource, err := buildSource(ctx, cfg.Source)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build configuration source")
	}
	if closeSource != nil {
		defer closeSource()
	}

	sink, closeSink, err := buildSink(cfg.Sink, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build log sink")
	}
	if closeSink != nil {
		defer closeSink()
	}

	doc, err := source.Fetch(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to fetch configuration document")
	}

	snapshot, warnings, err := evalconfig.Parse(doc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse configuration document")
	}
	for _, w := range warnings {
		logger.Warn().Str("entity", w.Entity).Msg(w.Message)
	}
	logger.Info().Int("flags", len(snapshot.Flags)).Int("bandits", len(snapshot.Bandits)).Msg("loaded configuration")

	subjectKey := "demo-subject-1"
	subjectAttributes := map[string]attrval.Value{
		"country": attrval.FromAny("US"),
		"age":     attrval.FromAny(int64(34)),
	}

	for key, flag := range snapshot.Flags {
		result := flagcore.Evaluate(flag, subjectKey, subjectAttributes, time.Now(), logger)
		logger.Info().
			Str("flag", key).
			Bool("hasValue", result.HasValue).
			Str("code", string(result.Details.FlagEvaluationCode)).
			Msg("evaluated flag")

		if result.Event != nil && sink != nil {
			if err := sink.LogAssignment(*result.Event); err != nil {
				logger.Warn().Err(err).Str("flag", key).Msg("failed to log assignment")
			}
		}

		if assoc, ok := snapshot.BanditAssociations[key]; ok && result.HasValue {
			if variationValue, ok := result.Variation.Scalar.AsString(); ok {
				evaluateBanditAction(snapshot, assoc, variationValue, subjectKey, subjectAttributes, sink, logger)
			}
		}
	}
}

func evaluateBanditAction(snapshot *evalconfig.PreparedSnapshot, assoc map[string]*evalconfig.BanditVariation, variationValue, subjectKey string, subjectAttributes map[string]attrval.Value, sink logSink, logger zerolog.Logger) {
	banditVariation, ok := assoc[variationValue]
	if !ok {
		return
	}
	model, ok := snapshot.Bandits[banditVariation.Key]
	if !ok {
		return
	}

	actions := []banditcore.Action{
		{Key: "action-a", Attributes: map[string]attrval.Value{"price": attrval.FromAny(9.99)}},
		{Key: "action-b", Attributes: map[string]attrval.Value{"price": attrval.FromAny(14.99)}},
	}

	result := banditcore.Evaluate(model, banditVariation.FlagKey, subjectKey, subjectAttributes, actions, time.Now().UTC().Format(time.RFC3339), flagcore.SDKMetaData)
	logger.Info().Str("bandit", banditVariation.Key).Str("action", result.ActionKey).Msg("evaluated bandit action")

	if sink != nil && result.Event != nil {
		if err := sink.LogBanditAction(*result.Event); err != nil {
			logger.Warn().Err(err).Str("bandit", banditVariation.Key).Msg("failed to log bandit action")
		}
	}
}

func buildSource(ctx context.Context, cfg sdkconfig.SourceConfig) (configsource.Source, func(), error) {
	switch cfg.Kind {
	case sdkconfig.SourceHTTP:
		src := configsource.NewHTTPSource(cfg.BaseURL, "evaldemo", cfg.JWTSecret, 5*time.Second)
		return src, nil, nil
	case sdkconfig.SourcePostgres:
		src, err := configsource.NewPostgresSource(ctx, cfg.BaseURL, "evaldemo")
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case sdkconfig.SourceNATS:
		src, err := configsource.NewNATSSource(configsource.NATSSourceConfig{URL: cfg.BaseURL}, log.Logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("evaldemo: unknown source kind %q", cfg.Kind)
	}
}

func buildSink(cfg sdkconfig.SinkConfig, logger zerolog.Logger) (logSink, func(), error) {
	switch cfg.Kind {
	case sdkconfig.SinkNone:
		return nil, nil, nil
	case sdkconfig.SinkRedis:
		sink := sinks.NewRedisSink(sinks.RedisSinkConfig{}, logger)
		return sink, func() { sink.Close() }, nil
	case sdkconfig.SinkClickHouse:
		sink, err := sinks.NewClickHouseSink(sinks.ClickHouseSinkConfig{}, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { sink.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("evaldemo: unknown sink kind %q", cfg.Kind)
	}
}
