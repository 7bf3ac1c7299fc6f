// Package config loads segmenter configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	SinkStdout = "stdout"
	SinkFile   = "file"
	SinkKafka  = "kafka"
	SinkRedis  = "redis"
)

type Config struct {
	Service       ServiceConfig       `yaml:"service"`
	Sink          SinkConfig          `yaml:"sink"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Redis         RedisConfig         `yaml:"redis"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
	// SessionID names the parse session; empty means generate one per run.
	SessionID string `yaml:"sessionId"`
}

type SinkConfig struct {
	Type       string `yaml:"type"`
	FilePath   string `yaml:"filePath"`
	JSONIndent string `yaml:"jsonIndent"`
}

type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	TopicSegments string        `yaml:"topicSegments"`
	Principal     string        `yaml:"principal"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"maxLen"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	// MetricsAddr enables the metrics server when non-empty.
	MetricsAddr string `yaml:"metricsAddr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "extract-segmenter",
		},
		Sink: SinkConfig{
			Type:     SinkStdout,
			FilePath: "segments.jsonl",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			TopicSegments: "transcript.segments",
			WriteTimeout:  10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Stream: "transcript:segments",
			MaxLen: 10000,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load returns the defaults overridden by the environment.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile decodes the YAML file at path over the defaults, then applies the
// environment. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the sink selection and the settings it needs.
func (c *Config) Validate() error {
	switch c.Sink.Type {
	case SinkStdout, SinkKafka:
	case SinkFile:
		if c.Sink.FilePath == "" {
			return errors.New("config: file sink requires a file path")
		}
	case SinkRedis:
		if c.Redis.Addr == "" || c.Redis.Stream == "" {
			return errors.New("config: redis sink requires an address and a stream")
		}
	default:
		return fmt.Errorf("config: unknown sink type %q", c.Sink.Type)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service.Name = envOrDefault("SERVICE_NAME", c.Service.Name)
	c.Service.SessionID = envOrDefault("SESSION_ID", c.Service.SessionID)

	c.Sink.Type = envOrDefault("SINK_TYPE", c.Sink.Type)
	c.Sink.FilePath = envOrDefault("SINK_FILE_PATH", c.Sink.FilePath)
	c.Sink.JSONIndent = envOrDefault("SINK_JSON_INDENT", c.Sink.JSONIndent)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicSegments = envOrDefault("KAFKA_TOPIC_SEGMENTS", c.Kafka.TopicSegments)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	c.Kafka.WriteTimeout = envOrDefaultDuration("KAFKA_WRITE_TIMEOUT", c.Kafka.WriteTimeout)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Name
	}

	c.Redis.Addr = envOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envOrDefaultInt("REDIS_DB", c.Redis.DB)
	c.Redis.Stream = envOrDefault("REDIS_STREAM", c.Redis.Stream)
	c.Redis.MaxLen = envOrDefaultInt64("REDIS_MAX_LEN", c.Redis.MaxLen)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", c.Observability.MetricsAddr)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envOrDefaultList splits a comma-separated value, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
