package transcript

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extract-segmenter/internal/grammar"
	"extract-segmenter/internal/models"
	"extract-segmenter/internal/service/segment"
)

func newEmitter(start, end int64) (*segment.Emitter, *segment.Collector) {
	sink := &segment.Collector{}
	e := segment.NewEmitter(sink)
	e.SetIntervalBounds(start, end)
	return e, sink
}

func parse(t *testing.T, e *segment.Emitter, text string) error {
	t.Helper()
	return NewParser(NewLexer(text), e).Parse(context.Background())
}

func TestParser_SingleSegment(t *testing.T) {
	e, sink := newEmitter(1000, 4000)

	require.NoError(t, parse(t, e, "<#spk1> hello there  "))

	assert.Equal(t, []models.Segment{
		{Speaker: "spk1", Text: "hello there", Start: 1000, End: 4000},
	}, sink.Segments)
	assert.False(t, e.MergeNext())
}

func TestParser_TimestampSplitsSegments(t *testing.T) {
	e, sink := newEmitter(0, 5000)

	require.NoError(t, parse(t, e, "<#spk1> hello [2.000] world"))

	assert.Equal(t, []models.Segment{
		{Speaker: "spk1", Text: "hello", Start: 0, End: 2000},
		{Speaker: "spk1", Text: "world", Start: 2000, End: 5000},
	}, sink.Segments)
}

func TestParser_SpeakerChangeAfterTimestamp(t *testing.T) {
	e, sink := newEmitter(10000, 20000)

	require.NoError(t, parse(t, e, "<#a> one [1.5] <#b> two [4] <#a> three"))

	require.Len(t, sink.Segments, 3)
	assert.Equal(t, models.Segment{Speaker: "a", Text: "one", Start: 10000, End: 11500}, sink.Segments[0])
	assert.Equal(t, models.Segment{Speaker: "b", Text: "two", Start: 11500, End: 14000}, sink.Segments[1])
	assert.Equal(t, models.Segment{Speaker: "a", Text: "three", Start: 14000, End: 20000}, sink.Segments[2])

	// Segments within one utterance are contiguous and end at the utterance end.
	for i := 1; i < len(sink.Segments); i++ {
		assert.Equal(t, sink.Segments[i-1].End, sink.Segments[i].Start)
	}
	assert.Equal(t, int64(20000), sink.Segments[len(sink.Segments)-1].End)
}

func TestParser_TimestampRounding(t *testing.T) {
	e, sink := newEmitter(0, 5000)

	require.NoError(t, parse(t, e, "<#a> x [0.29] <#b> y"))

	assert.Equal(t, int64(290), sink.Segments[0].End)
}

func TestParser_NoSpeech(t *testing.T) {
	e, sink := newEmitter(3000, 7000)

	require.NoError(t, parse(t, e, "<#no-speech>"))

	assert.Equal(t, []models.Segment{{Speaker: "", Text: "", Start: 3000, End: 7000}}, sink.Segments)
}

func TestParser_NoSpeechWithText(t *testing.T) {
	e, sink := newEmitter(0, 1000)

	require.NoError(t, parse(t, e, "<#no-speech> <noise>"))

	assert.Equal(t, []models.Segment{{Speaker: "", Text: "<noise>", Start: 0, End: 1000}}, sink.Segments)
}

func TestParser_SoundTagSegment(t *testing.T) {
	e, sink := newEmitter(0, 3000)

	require.NoError(t, parse(t, e, " <laugh> [1.0] <#spk2> ok <cough> fine"))

	assert.Equal(t, []models.Segment{
		{Speaker: "", Text: "<laugh>", Start: 0, End: 1000},
		{Speaker: "spk2", Text: "ok <cough> fine", Start: 1000, End: 3000},
	}, sink.Segments)
}

func TestParser_ContinuationDefersEmission(t *testing.T) {
	e, sink := newEmitter(0, 4000)

	require.NoError(t, parse(t, e, "<#spk1> this sentence is~"))
	assert.Empty(t, sink.Segments)
	assert.True(t, e.MergeNext())

	e.SetIntervalBounds(4000, 9000)
	require.NoError(t, parse(t, e, "not over yet"))

	assert.Equal(t, []models.Segment{
		{Speaker: "spk1", Text: "this sentence is not over yet", Start: 0, End: 9000},
	}, sink.Segments)
	assert.False(t, e.MergeNext())
}

func TestParser_ContinuationClosedByTimestamp(t *testing.T) {
	e, sink := newEmitter(0, 4000)

	require.NoError(t, parse(t, e, "<#a> start~"))

	e.SetIntervalBounds(4000, 9000)
	require.NoError(t, parse(t, e, "end [1.0] <#b> reply"))

	assert.Equal(t, []models.Segment{
		{Speaker: "a", Text: "start end", Start: 0, End: 5000},
		{Speaker: "b", Text: "reply", Start: 5000, End: 9000},
	}, sink.Segments)
}

func TestParser_ContinuationAfterEmittedSegments(t *testing.T) {
	e, sink := newEmitter(0, 6000)

	require.NoError(t, parse(t, e, "<#a> one [2] <#b> two ~"))
	require.Len(t, sink.Segments, 1)

	e.SetIntervalBounds(6000, 8000)
	require.NoError(t, parse(t, e, "three"))

	require.Len(t, sink.Segments, 2)
	assert.Equal(t, models.Segment{Speaker: "b", Text: "two three", Start: 2000, End: 8000}, sink.Segments[1])
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		merge   bool
		wantErr error
		actual  string
	}{
		{"no speaker or sound tag", "hello", false, grammar.ErrUnexpectedToken, "UNKNOWN"},
		{"empty transcript", "", false, grammar.ErrUnexpectedToken, grammar.NoneKind},
		{"speaker without message", "<#spk1>", false, grammar.ErrEmptyMessage, grammar.NoneKind},
		{"speaker followed by timestamp", "<#spk1> [1.0] x", false, grammar.ErrEmptyMessage, "TIMESTAMP"},
		{"nothing after timestamp", "<#a> x [1.0]", false, grammar.ErrUnexpectedToken, grammar.NoneKind},
		{"text after sound tag", "<laugh> ha", false, grammar.ErrIncompleteConsumption, "UNKNOWN"},
		{"speaker inside message", "<#a> x <#b> y", false, grammar.ErrIncompleteConsumption, "SPEAKER"},
		{"empty continuation", "~", true, grammar.ErrEmptyMessage, "TILDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEmitter(0, 1000)
			if tt.merge {
				e.SetMergeNext()
			}

			err := parse(t, e, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *grammar.SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.actual, se.Actual)
		})
	}
}

func TestParser_NegativeDurationRejected(t *testing.T) {
	e, sink := newEmitter(0, 5000)

	err := parse(t, e, "<#a> x [3] <#b> y [1] <#c> z")
	require.Error(t, err)
	assert.ErrorIs(t, err, segment.ErrInvalidSegment)
	assert.Len(t, sink.Segments, 1)
}
