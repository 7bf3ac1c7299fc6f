// Package events turns emitted segments into segment events and publishes
// them to Kafka, a Redis stream or a JSON-lines writer.
package events

import (
	"context"
	"fmt"
	"time"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/service/segment"
)

// Publisher delivers segment events to one backend.
type Publisher interface {
	Publish(ctx context.Context, key string, event models.SegmentEvent) error
	Close() error
}

// SegmentSink wraps every emitted segment in a SegmentEvent and hands it to
// a Publisher, keyed by session id so one session stays ordered.
type SegmentSink struct {
	publisher Publisher
	ids       *segment.Generator
	sessionID string
	sequence  int
	now       func() time.Time
}

// NewSegmentSink creates a sink publishing the segments of sessionID.
func NewSegmentSink(publisher Publisher, sessionID string) *SegmentSink {
	return &SegmentSink{
		publisher: publisher,
		ids:       segment.NewGenerator(),
		sessionID: sessionID,
		now:       time.Now,
	}
}

// Write implements segment.Sink.
func (s *SegmentSink) Write(ctx context.Context, seg models.Segment) error {
	s.sequence++
	event := models.SegmentEvent{
		EventType: models.SegmentEventType,
		SessionID: s.sessionID,
		SegmentID: s.ids.Next(s.sessionID),
		Sequence:  s.sequence,
		Speaker:   seg.Speaker,
		Text:      seg.Text,
		StartMs:   seg.Start,
		EndMs:     seg.End,
		Timestamp: s.now().UnixMilli(),
	}
	if err := s.publisher.Publish(ctx, s.sessionID, event); err != nil {
		return fmt.Errorf("publish segment %d: %w", s.sequence, err)
	}
	return nil
}

// Published returns the number of segments the sink attempted to publish.
func (s *SegmentSink) Published() int {
	return s.sequence
}
