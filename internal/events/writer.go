package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/observability/metrics"
)

const backendWriter = "writer"

// WriterPublisher writes segment events as JSON lines to an io.Writer, such
// as stdout or a file.
type WriterPublisher struct {
	name    string
	enc     *json.Encoder
	closer  io.Closer
	metrics *metrics.Metrics
}

// NewWriterPublisher creates a publisher writing to w. The publisher does not
// own w. A non-empty indent pretty-prints each event.
func NewWriterPublisher(name string, w io.Writer, indent string, m *metrics.Metrics) *WriterPublisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return &WriterPublisher{name: name, enc: enc, metrics: m}
}

// NewFilePublisher creates or truncates path and publishes to it. Close
// closes the file.
func NewFilePublisher(path, indent string, m *metrics.Metrics) (*WriterPublisher, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	p := NewWriterPublisher(path, f, indent, m)
	p.closer = f
	return p, nil
}

func (p *WriterPublisher) Publish(_ context.Context, _ string, event models.SegmentEvent) error {
	start := time.Now()
	err := p.enc.Encode(event)
	p.metrics.RecordPublish(backendWriter, p.name, err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("write event to %s: %w", p.name, err)
	}
	return nil
}

func (p *WriterPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
