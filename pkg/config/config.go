package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Mapping struct {
		Path                  string  `yaml:"path"`
		PillarWeightTotal     float64 `yaml:"pillar_weight_total"`
		PillarWeightTolerance float64 `yaml:"pillar_weight_tolerance"`
	} `yaml:"mapping"`
	Scoring struct {
		InputBound    float64       `yaml:"input_bound"`    // raw_score must lie in [-InputBound, +InputBound]
		PillarBound   float64       `yaml:"pillar_bound"`   // pillar scores clamped to [-PillarBound, +PillarBound]
		InternalBound float64       `yaml:"internal_bound"` // composite clamped to [-InternalBound, +InternalBound]
		ExternalBound float64       `yaml:"external_bound"` // published scale
		Precision     int           `yaml:"precision"`      // decimal places on the external scale
		FutureSkew    time.Duration `yaml:"future_skew"`    // allowed clock skew for observed_at
	} `yaml:"scoring"`
	Refresh struct {
		Interval          time.Duration `yaml:"interval"` // 0 disables the scheduled recompute
		ExpectedInterval  time.Duration `yaml:"expected_interval"`
		CriticalThreshold float64       `yaml:"critical_threshold"` // multiple of expected_interval
	} `yaml:"refresh"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		EventsTopic string   `yaml:"events_topic"`
		ScoresTopic string   `yaml:"scores_topic"` // empty disables score publishing
		Compression string   `yaml:"compression"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchSize    int           `yaml:"batch_size"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
		Intake struct {
			BatchSize     int           `yaml:"batch_size"`
			FlushInterval time.Duration `yaml:"flush_interval"`
		} `yaml:"intake"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		ReplayOnStart    bool          `yaml:"replay_on_start"`
	} `yaml:"clickhouse"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MAPPING_PATH"); v != "" {
		c.Mapping.Path = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_EVENTS_TOPIC"); v != "" {
		c.Kafka.EventsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// applyDefaults fills zero values with the published defaults.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Mapping.PillarWeightTotal == 0 {
		c.Mapping.PillarWeightTotal = 1.0
	}
	if c.Mapping.PillarWeightTolerance == 0 {
		c.Mapping.PillarWeightTolerance = 0.01
	}
	if c.Scoring.InputBound == 0 {
		c.Scoring.InputBound = 2
	}
	if c.Scoring.PillarBound == 0 {
		c.Scoring.PillarBound = 10
	}
	if c.Scoring.InternalBound == 0 {
		c.Scoring.InternalBound = 24
	}
	if c.Scoring.ExternalBound == 0 {
		c.Scoring.ExternalBound = 2
	}
	if c.Scoring.Precision == 0 {
		c.Scoring.Precision = 2
	}
	if c.Scoring.FutureSkew == 0 {
		c.Scoring.FutureSkew = 5 * time.Minute
	}
	if c.Refresh.ExpectedInterval == 0 {
		c.Refresh.ExpectedInterval = time.Hour
	}
	if c.Refresh.CriticalThreshold == 0 {
		c.Refresh.CriticalThreshold = 3
	}
	if c.Kafka.Intake.BatchSize == 0 {
		c.Kafka.Intake.BatchSize = 100
	}
	if c.Kafka.Intake.FlushInterval == 0 {
		c.Kafka.Intake.FlushInterval = 2 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Mapping.Path == "" {
		return fmt.Errorf("mapping.path is required")
	}
	if c.Scoring.InputBound <= 0 || c.Scoring.PillarBound <= 0 || c.Scoring.InternalBound <= 0 || c.Scoring.ExternalBound <= 0 {
		return fmt.Errorf("scoring bounds must be positive")
	}
	if c.Scoring.Precision < 0 || c.Scoring.Precision > 8 {
		return fmt.Errorf("scoring.precision must be in [0, 8], got %d", c.Scoring.Precision)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.EventsTopic == "" {
		return fmt.Errorf("kafka.events_topic is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
