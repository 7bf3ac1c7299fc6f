package segment

import (
	"context"

	"extract-segmenter/internal/models"
)

// Sink receives every completed segment, in emission order.
type Sink interface {
	Write(ctx context.Context, seg models.Segment) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, seg models.Segment) error

func (f SinkFunc) Write(ctx context.Context, seg models.Segment) error {
	return f(ctx, seg)
}

// Discard drops every segment.
var Discard Sink = SinkFunc(func(context.Context, models.Segment) error { return nil })

// Collector keeps segments in memory. Not safe for concurrent use.
type Collector struct {
	Segments []models.Segment
}

func (c *Collector) Write(_ context.Context, seg models.Segment) error {
	c.Segments = append(c.Segments, seg)
	return nil
}
