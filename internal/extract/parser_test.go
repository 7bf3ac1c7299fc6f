package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extract-segmenter/internal/grammar"
	"extract-segmenter/internal/models"
	"extract-segmenter/internal/service/segment"
)

func run(t *testing.T, input string, opts ...segment.Option) (*Parser, *segment.Emitter, *segment.Collector, error) {
	t.Helper()
	sink := &segment.Collector{}
	e := segment.NewEmitter(sink, opts...)
	p := NewParser(NewLexer(strings.NewReader(input)), e)
	return p, e, sink, p.Parse(context.Background())
}

func TestParse_RoundTrip(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:05.000\n" +
		"TRANSCRIPTION: <#spk1> hello [2.000] world\n" +
		"\n"

	p, _, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Equal(t, []models.Segment{
		{Speaker: "spk1", Text: "hello", Start: 0, End: 2000},
		{Speaker: "spk1", Text: "world", Start: 2000, End: 5000},
	}, sink.Segments)
	assert.Equal(t, 1, p.Utterances())
}

func TestParse_MultipleUtterances(t *testing.T) {
	input := "FILE: call.wav\n" +
		"INTERVAL: 0:00:01.000 0:00:03.000\n" +
		"TRANSCRIPTION: <#a> hi\n" +
		"\n" +
		"FILE: call.wav\n" +
		"INTERVAL: 0:00:03.000 0:00:04.500\n" +
		"TRANSCRIPTION: <#b> hello [0.5] <#a> yes\n" +
		"\n"

	p, e, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Equal(t, []models.Segment{
		{Speaker: "a", Text: "hi", Start: 1000, End: 3000},
		{Speaker: "b", Text: "hello", Start: 3000, End: 3500},
		{Speaker: "a", Text: "yes", Start: 3500, End: 4500},
	}, sink.Segments)
	assert.Equal(t, 2, p.Utterances())
	assert.Equal(t, 3, e.Emitted())
}

func TestParse_ContinuationAcrossUtterances(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:02.000\n" +
		"TRANSCRIPTION: <#spk1> this is~\n" +
		"\n" +
		"INTERVAL: 0:00:02.000 0:00:06.000\n" +
		"TRANSCRIPTION: continued [1.0] <#spk2> ok\n" +
		"\n"

	_, e, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Equal(t, []models.Segment{
		{Speaker: "spk1", Text: "this is continued", Start: 0, End: 3000},
		{Speaker: "spk2", Text: "ok", Start: 3000, End: 6000},
	}, sink.Segments)
	assert.False(t, e.Pending())
}

func TestParse_DanglingContinuation(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:02.000\n" +
		"TRANSCRIPTION: <#spk1> never closed~\n"

	_, e, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Empty(t, sink.Segments)
	assert.True(t, e.Pending())
	assert.Equal(t, "never closed", e.Segment().Text)
}

func TestParse_NoSpeech(t *testing.T) {
	input := "INTERVAL: 0:00:10.000 0:00:12.000\n" +
		"TRANSCRIPTION: <#no-speech>\n"

	_, _, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Equal(t, []models.Segment{{Speaker: "", Text: "", Start: 10000, End: 12000}}, sink.Segments)
}

func TestParse_MetaHook(t *testing.T) {
	input := "FILE: call.wav\n" +
		"HYPOTHESIS:\n" +
		"LABELS: l1 l2\n" +
		"USER: anna\n" +
		"\n"

	var got [][2]string
	hook := segment.WithMetaHook(func(key, value string) {
		got = append(got, [2]string{key, value})
	})

	_, _, sink, err := run(t, input, hook)
	require.NoError(t, err)

	assert.Empty(t, sink.Segments)
	assert.Equal(t, [][2]string{
		{"FILE", "call.wav"},
		{"HYPOTHESIS", ""},
		{"LABELS", "l1 l2"},
		{"USER", "anna"},
	}, got)
}

func TestParse_CRLF(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:01.000\r\n" +
		"TRANSCRIPTION: <#a> hi\r\n" +
		"\r\n"

	_, _, sink, err := run(t, input)
	require.NoError(t, err)

	assert.Equal(t, []models.Segment{{Speaker: "a", Text: "hi", Start: 0, End: 1000}}, sink.Segments)
}

func TestParse_BlankLinesOnly(t *testing.T) {
	p, _, sink, err := run(t, "\n\n\n")
	require.NoError(t, err)
	assert.Empty(t, sink.Segments)
	assert.Zero(t, p.Utterances())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		actual  string
	}{
		{"unknown line", "hello\n", grammar.ErrUnexpectedToken, "STRING"},
		{"interval missing end", "INTERVAL: 0:00:01.000\n", grammar.ErrUnexpectedToken, "NEWLINE"},
		{"interval with text", "INTERVAL: soon\n", grammar.ErrUnexpectedToken, "STRING"},
		{"interval trailing text", "INTERVAL: 0:00:01.000 0:00:02.000 x\n", grammar.ErrUnexpectedToken, "WHITESPACE"},
		{"metadata without newline", "FILE: a", grammar.ErrUnexpectedToken, "EOF"},
		{"empty transcription", "TRANSCRIPTION:\n", grammar.ErrUnexpectedToken, "NEWLINE"},
		{"bad transcript", "INTERVAL: 0:00:00.000 0:00:01.000\nTRANSCRIPTION: hello\n", grammar.ErrUnexpectedToken, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := run(t, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var se *grammar.SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.actual, se.Actual)
		})
	}
}

func TestParse_StopsAtFirstError(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:01.000\n" +
		"TRANSCRIPTION: <#a> first\n" +
		"\n" +
		"garbage\n" +
		"\n" +
		"INTERVAL: 0:00:01.000 0:00:02.000\n" +
		"TRANSCRIPTION: <#a> second\n"

	_, _, sink, err := run(t, input)
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrUnexpectedToken)
	assert.Equal(t, []models.Segment{{Speaker: "a", Text: "first", Start: 0, End: 1000}}, sink.Segments)
}

func TestParse_TranscriptionErrorNamesLine(t *testing.T) {
	input := "INTERVAL: 0:00:00.000 0:00:01.000\n" +
		"TRANSCRIPTION: <#a>\n"

	_, _, _, err := run(t, input)
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrEmptyMessage)
	assert.Contains(t, err.Error(), "transcription at line 2")
}

func TestParse_ReadErrorWins(t *testing.T) {
	boom := errors.New("disk gone")
	r := io.MultiReader(strings.NewReader("FILE: a\n"), iotest.ErrReader(boom))

	e := segment.NewEmitter(nil)
	err := NewParser(NewLexer(r), e).Parse(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0:00:00.000", 0},
		{"0:00:02.500", 2500},
		{"1:02:03.456", 3723456},
		{"10:0:5.001", 36005001},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTimestamp("1:2")
	assert.Error(t, err)
}

func TestParse_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &segment.Collector{}
	input := "INTERVAL: 0:00:00.000 0:00:01.000\nTRANSCRIPTION: <#a> hi\n"
	err := NewParser(NewLexer(strings.NewReader(input)), segment.NewEmitter(sink)).Parse(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Segments)
}
