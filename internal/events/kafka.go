package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/observability/metrics"
)

const backendKafka = "kafka"

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Principal    string
	Enabled      bool
	WriteTimeout time.Duration
}

// KafkaPublisher publishes segment events to a single Kafka topic. Without
// brokers, or when disabled, it only logs the events.
type KafkaPublisher struct {
	writer    *kafka.Writer
	principal string
	topic     string
	enabled   bool
	metrics   *metrics.Metrics
}

// NewKafkaPublisher creates a Kafka publisher. A nil config yields a
// log-only publisher.
func NewKafkaPublisher(cfg *KafkaConfig, m *metrics.Metrics) *KafkaPublisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &KafkaPublisher{metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Str("topic", cfg.Topic).Msg("Kafka disabled, using log-only mode")
		return &KafkaPublisher{
			principal: cfg.Principal,
			topic:     cfg.Topic,
			metrics:   m,
		}
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	// Hash balancer keeps every event of a session on one partition.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &KafkaPublisher{
		writer:    writer,
		principal: cfg.Principal,
		topic:     cfg.Topic,
		enabled:   true,
		metrics:   m,
	}
}

// Publish writes event to the segment topic. The write is synchronous.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, event models.SegmentEvent) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", p.topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing segment event")

	if !p.enabled || p.writer == nil {
		p.metrics.RecordPublish(backendKafka, p.topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordPublish(backendKafka, p.topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(backendKafka, p.topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer, if any.
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writer")
		return err
	}
	return nil
}
