package extract

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lexeme struct {
	kind Kind
	text string
}

func lex(s string) []lexeme {
	var out []lexeme
	for tok := range NewLexer(strings.NewReader(s)).Tokens() {
		out = append(out, lexeme{tok.Kind, tok.Text})
	}
	return out
}

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []lexeme
	}{
		{
			name:  "utterance",
			input: "FILE: a.wav\nINTERVAL: 0:00:01.000 0:00:02.500\n\n",
			want: []lexeme{
				{FileKey, "FILE: "}, {String, "a.wav"}, {Newline, "\n"},
				{IntervalKey, "INTERVAL: "}, {Timestamp, "0:00:01.000"}, {Whitespace, " "},
				{Timestamp, "0:00:02.500"}, {Newline, "\n"},
				{Newline, "\n"},
				{EOF, ""},
			},
		},
		{
			name:  "keyword without space",
			input: "INTERVAL:0:00:01.000",
			want:  []lexeme{{IntervalKey, "INTERVAL:"}, {Timestamp, "0:00:01.000"}, {EOF, ""}},
		},
		{
			name:  "all keywords",
			input: "TRANSCRIPTION: x\nHYPOTHESIS:\nLABELS: l\nUSER: u\n",
			want: []lexeme{
				{TranscriptionKey, "TRANSCRIPTION: "}, {String, "x"}, {Newline, "\n"},
				{HypothesisKey, "HYPOTHESIS:"}, {Newline, "\n"},
				{LabelsKey, "LABELS: "}, {String, "l"}, {Newline, "\n"},
				{UserKey, "USER: "}, {String, "u"}, {Newline, "\n"},
				{EOF, ""},
			},
		},
		{
			name:  "keyword only at line start",
			input: " FILE: x\n",
			want:  []lexeme{{Whitespace, " "}, {String, "FILE: x"}, {Newline, "\n"}, {EOF, ""}},
		},
		{
			name:  "timestamp needs trailing boundary",
			input: "INTERVAL: 0:00:01.0001\n",
			want:  []lexeme{{IntervalKey, "INTERVAL: "}, {String, "0:00:01.0001"}, {Newline, "\n"}, {EOF, ""}},
		},
		{
			name:  "string swallows rest of line",
			input: "FILE: a b  c\t\n",
			want:  []lexeme{{FileKey, "FILE: "}, {String, "a b  c\t"}, {Newline, "\n"}, {EOF, ""}},
		},
		{
			name:  "crlf",
			input: "FILE: a\r\n\r\n",
			want:  []lexeme{{FileKey, "FILE: "}, {String, "a"}, {Newline, "\n"}, {Newline, "\n"}, {EOF, ""}},
		},
		{
			name:  "no final newline",
			input: "USER: bob",
			want:  []lexeme{{UserKey, "USER: "}, {String, "bob"}, {EOF, ""}},
		},
		{
			name:  "empty",
			input: "",
			want:  []lexeme{{EOF, ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lex(tt.input))
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	type pos struct{ line, col int }
	var got []pos
	for tok := range NewLexer(strings.NewReader("FILE: a\n\n")).Tokens() {
		got = append(got, pos{tok.Pos.Line, tok.Pos.Column})
	}
	assert.Equal(t, []pos{{1, 1}, {1, 7}, {1, 8}, {2, 1}, {3, 1}}, got)
}

func TestLexer_ReadError(t *testing.T) {
	boom := errors.New("boom")
	l := NewLexer(iotest.ErrReader(boom))

	var kinds []Kind
	for tok := range l.Tokens() {
		kinds = append(kinds, tok.Kind)
	}

	assert.Empty(t, kinds)
	require.Error(t, l.Err())
	assert.ErrorIs(t, l.Err(), boom)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "TRANSCRIPTION_META_KEY", TranscriptionKey.String())
	assert.Equal(t, "EOF", EOF.String())
	assert.Equal(t, "INVALID", Kind(-1).String())
}
