// Package sdkconfig loads the runtime configuration for an eppo-go
// deployment (which configuration source to poll, which sinks to log
// assignments and bandit actions to, and the evaluation mode) from a
// YAML file and environment variables, following the platform's
// viper-based configuration convention.
package sdkconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceKind selects which configuration source the SDK polls for
// flag/bandit definitions.
type SourceKind string

const (
	SourceHTTP     SourceKind = "http"
	SourcePostgres SourceKind = "postgres"
	SourceNATS     SourceKind = "nats"
)

// SinkKind selects where assignment and bandit-action log events are
// published.
type SinkKind string

const (
	SinkRedis      SinkKind = "redis"
	SinkClickHouse SinkKind = "clickhouse"
	SinkNone       SinkKind = "none"
)

// Config is the full runtime configuration for an eppo-go client
// deployment.
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Source SourceConfig `mapstructure:"source"`
	Sink   SinkConfig   `mapstructure:"sink"`

	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// ClientConfig controls the evaluation client itself.
type ClientConfig struct {
	APIKey                 string        `mapstructure:"api_key"`
	Mode                   string        `mapstructure:"mode"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout            time.Duration `mapstructure:"http_timeout"`
	AssignmentLogCacheSize int           `mapstructure:"assignment_log_cache_size"`
	BanditLogCacheSize     int           `mapstructure:"bandit_log_cache_size"`
}

// SourceConfig selects and configures where flag/bandit definitions
// are fetched from.
type SourceConfig struct {
	Kind    SourceKind `mapstructure:"kind"`
	BaseURL string     `mapstructure:"base_url"`

	// JWTSecret signs bearer tokens minted for the HTTP source.
	// BCryptCost is loaded (default 12) but nothing reads it: the NATS
	// source verifies push credentials at the cost recorded in its
	// configured hash (see internal/configsource).
	JWTSecret  string `mapstructure:"jwt_secret"`
	BCryptCost int    `mapstructure:"bcrypt_cost"`
}

// SinkConfig selects and configures where assignment/bandit events are
// logged.
type SinkConfig struct {
	Kind      SinkKind `mapstructure:"kind"`
	BatchSize int      `mapstructure:"batch_size"`
}

// DatabaseConfig configures the Postgres configuration source.
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Database     string        `mapstructure:"database"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// RedisConfig configures the Redis assignment/bandit-log sink.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NATSConfig configures the NATS configuration source.
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnect  int           `mapstructure:"max_reconnect"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Subject       string        `mapstructure:"subject"`
}

// LoggingConfig configures the client's zerolog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a "config.yaml"/environment variable
// pair (FFGO_ prefixed, nested keys joined with underscores), applying
// defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FFGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/eppo-go")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("sdkconfig: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("sdkconfig: unmarshal config: %w", err)
	}

	// Viper's env-var override sometimes bypasses Unmarshal for
	// deeply-nested keys set purely through the environment; fall back
	// to direct lookups for the values most commonly supplied that way.
	if cfg.Client.APIKey == "" && v.GetString("client.api_key") != "" {
		cfg.Client.APIKey = v.GetString("client.api_key")
	}
	if cfg.Source.BaseURL == "" && v.GetString("source.base_url") != "" {
		cfg.Source.BaseURL = v.GetString("source.base_url")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sdkconfig: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.mode", "graceful")
	v.SetDefault("client.poll_interval", "30s")
	v.SetDefault("client.http_timeout", "5s")
	v.SetDefault("client.assignment_log_cache_size", 10000)
	v.SetDefault("client.bandit_log_cache_size", 10000)

	v.SetDefault("source.kind", "http")
	v.SetDefault("source.bcrypt_cost", 12)

	v.SetDefault("sink.kind", "none")
	v.SetDefault("sink.batch_size", 100)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnect", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("nats.subject", "eppo.config")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate reports a configuration error before it surfaces as a
// confusing failure deep inside a source or sink constructor.
func (c *Config) Validate() error {
	if c.Client.APIKey == "" {
		return fmt.Errorf("client.api_key is required")
	}
	if c.Client.Mode != "graceful" && c.Client.Mode != "strict" {
		return fmt.Errorf("client.mode must be \"graceful\" or \"strict\", got %q", c.Client.Mode)
	}
	if c.Client.PollInterval <= 0 {
		return fmt.Errorf("client.poll_interval must be positive")
	}

	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source.base_url is required for the http source")
		}
	case SourcePostgres:
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for the postgres source")
		}
	case SourceNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the nats source")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	switch c.Sink.Kind {
	case SinkRedis, SinkClickHouse, SinkNone:
	default:
		return fmt.Errorf("unknown sink.kind %q", c.Sink.Kind)
	}

	return nil
}

// GetDatabaseDSN returns the Postgres connection string for the
// postgres configuration source.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password,
		c.Database.Host, c.Database.Port,
		c.Database.Database, c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis sink's network address.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
