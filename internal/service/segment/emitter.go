// Package segment accumulates parsed transcript pieces into segments, keeps
// the continuation state between utterances and hands finished segments to a
// Sink.
package segment

import (
	"context"
	"errors"
	"fmt"

	"extract-segmenter/internal/models"
	"extract-segmenter/internal/schema"
)

// ErrInvalidSegment is returned by Emit when a segment breaks an invariant.
var ErrInvalidSegment = errors.New("invalid segment")

// MetaHook receives generic metadata values (FILE, HYPOTHESIS, LABELS, USER).
type MetaHook func(key, value string)

// Option configures an Emitter.
type Option func(*Emitter)

// WithMetaHook installs the receiver of generic metadata values.
func WithMetaHook(hook MetaHook) Option {
	return func(e *Emitter) { e.metaHook = hook }
}

// WithValidator replaces the default segment validator.
func WithValidator(v *schema.Validator) Option {
	return func(e *Emitter) { e.validator = v }
}

// Emitter owns the state of one parse session: the in-progress segment, the
// current utterance bounds and the merge-next flag.
//
// State transitions:
//
//	segment in progress ── Emit() ──→ sink, fresh empty segment
//	        │
//	        └── SetMergeNext() ──→ segment carried into the next utterance
//
// Emit never touches the merge-next flag. Not safe for concurrent use; a
// session has exactly one writer.
type Emitter struct {
	sink      Sink
	validator *schema.Validator
	metaHook  MetaHook

	segment        models.Segment
	utteranceStart int64
	utteranceEnd   int64
	mergeNext      bool
	emitted        int
}

// NewEmitter creates an emitter that writes to sink. A nil sink discards.
func NewEmitter(sink Sink, opts ...Option) *Emitter {
	if sink == nil {
		sink = Discard
	}
	e := &Emitter{
		sink:      sink,
		validator: schema.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetIntervalBounds records the absolute bounds of the current utterance.
func (e *Emitter) SetIntervalBounds(start, end int64) {
	e.utteranceStart = start
	e.utteranceEnd = end
}

func (e *Emitter) UtteranceStart() int64 { return e.utteranceStart }

func (e *Emitter) UtteranceEnd() int64 { return e.utteranceEnd }

func (e *Emitter) SetSegmentStart(start int64) { e.segment.Start = start }

func (e *Emitter) SetSegmentEnd(end int64) { e.segment.End = end }

// UseDefaultSegmentStart starts the segment at the utterance start.
func (e *Emitter) UseDefaultSegmentStart() { e.segment.Start = e.utteranceStart }

// UseDefaultSegmentEnd ends the segment at the utterance end.
func (e *Emitter) UseDefaultSegmentEnd() { e.segment.End = e.utteranceEnd }

// ComputeEnd converts an offset relative to the utterance start into an
// absolute time.
func (e *Emitter) ComputeEnd(offset int64) int64 {
	return e.utteranceStart + offset
}

func (e *Emitter) SetSpeaker(speaker string) { e.segment.Speaker = speaker }

func (e *Emitter) Speaker() string { return e.segment.Speaker }

// SetMessage replaces the segment text.
func (e *Emitter) SetMessage(message string) { e.segment.Text = message }

// AppendMessage joins message to the segment text with a single space.
func (e *Emitter) AppendMessage(message string) {
	if e.segment.Text == "" {
		e.segment.Text = message
		return
	}
	e.segment.Text = e.segment.Text + " " + message
}

func (e *Emitter) SetMergeNext() { e.mergeNext = true }

func (e *Emitter) ClearMergeNext() { e.mergeNext = false }

// MergeNext reports whether the next transcription continues the carried
// segment.
func (e *Emitter) MergeNext() bool { return e.mergeNext }

// Pending reports whether a continued segment is still waiting for its end.
func (e *Emitter) Pending() bool { return e.mergeNext }

// Emitted returns the number of segments handed to the sink.
func (e *Emitter) Emitted() int { return e.emitted }

// Segment returns a copy of the in-progress segment.
func (e *Emitter) Segment() models.Segment { return e.segment }

// Emit validates the in-progress segment, writes it to the sink and starts a
// fresh one.
func (e *Emitter) Emit(ctx context.Context) error {
	seg := e.segment
	if err := e.validator.Validate(seg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}
	if err := e.sink.Write(ctx, seg); err != nil {
		return fmt.Errorf("write segment: %w", err)
	}
	e.emitted++
	e.segment = models.Segment{}
	return nil
}

// SetMetaKey forwards a generic metadata value to the hook, if any.
func (e *Emitter) SetMetaKey(key, value string) {
	if e.metaHook != nil {
		e.metaHook(key, value)
	}
}
