// Package models defines the data structures for transcript segments and the
// events that carry them to downstream consumers.
package models

// SegmentEventType is the eventType of every published segment event.
const SegmentEventType = "transcript.segment"

// Segment is one attributed, time-bounded span of speech or sound.
// Start and End are absolute offsets in milliseconds.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int64  `json:"start_ms"`
	End     int64  `json:"end_ms"`
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() int64 {
	return s.End - s.Start
}

// SegmentEvent is the envelope published by sinks for every emitted segment.
type SegmentEvent struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	SegmentID string `json:"segmentId"`
	Sequence  int    `json:"sequence"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	StartMs   int64  `json:"startMs"`
	EndMs     int64  `json:"endMs"`
	Timestamp int64  `json:"timestamp"`
}
