package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/observability/metrics"
)

const backendRedis = "redis"

// RedisConfig holds Redis stream publisher configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream approximately; zero leaves it unbounded.
	MaxLen int64
}

// RedisPublisher appends segment events to a Redis stream with XADD.
type RedisPublisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	metrics *metrics.Metrics
}

// NewRedisPublisher creates a publisher with its own Redis connection. The
// connection is not checked until the first publish.
func NewRedisPublisher(cfg RedisConfig, m *metrics.Metrics) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisPublisherWithClient(client, cfg.Stream, cfg.MaxLen, m)
}

// NewRedisPublisherWithClient creates a publisher on an existing client.
func NewRedisPublisherWithClient(client *redis.Client, stream string, maxLen int64, m *metrics.Metrics) *RedisPublisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	log.Info().
		Str("addr", client.Options().Addr).
		Str("stream", stream).
		Int64("maxLen", maxLen).
		Msg("Redis stream publisher initialized")
	return &RedisPublisher{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		metrics: m,
	}
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Publish appends event to the stream. The session key is stored as a field
// next to the JSON payload.
func (p *RedisPublisher) Publish(ctx context.Context, key string, event models.SegmentEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"key":       key,
			"eventType": event.EventType,
			"payload":   string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	p.metrics.RecordPublish(backendRedis, p.stream, err, time.Since(start).Seconds())
	if err != nil {
		log.Error().
			Err(err).
			Str("stream", p.stream).
			Str("key", key).
			Msg("Failed to add event to Redis stream")
		return fmt.Errorf("failed to publish to %s: %w", p.stream, err)
	}

	log.Debug().
		Str("stream", p.stream).
		Str("id", id).
		Str("key", key).
		Int("payloadSize", len(payload)).
		Msg("Segment event published")
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
