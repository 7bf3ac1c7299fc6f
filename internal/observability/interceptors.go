// Package observability wraps segment sinks with metrics and logging and
// serves the observability HTTP endpoints.
package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/observability/metrics"
	"extract-segmenter/internal/service/segment"
)

// InstrumentSink returns a sink that records latency and result of every
// write to next under the given sink name.
func InstrumentSink(name string, next segment.Sink, m *metrics.Metrics) segment.Sink {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return segment.SinkFunc(func(ctx context.Context, seg models.Segment) error {
		start := time.Now()

		err := next.Write(ctx, seg)

		duration := time.Since(start)
		m.RecordSinkWrite(name, err, duration.Seconds())

		if err != nil {
			log.Error().
				Err(err).
				Str("sink", name).
				Str("speaker", seg.Speaker).
				Int64("startMs", seg.Start).
				Int64("endMs", seg.End).
				Dur("duration", duration).
				Msg("Segment write failed")
			return err
		}

		log.Debug().
			Str("sink", name).
			Str("speaker", seg.Speaker).
			Int64("startMs", seg.Start).
			Int64("endMs", seg.End).
			Dur("duration", duration).
			Msg("Segment written")
		return nil
	})
}
