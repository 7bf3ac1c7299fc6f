// Package extract lexes and parses extract logs: utterances of metadata lines
// separated by blank lines. TRANSCRIPTION values are handed to the transcript
// parser.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"extract-segmenter/internal/grammar"
)

// Kind tags extract tokens.
type Kind int

const (
	EOF Kind = iota
	FileKey
	IntervalKey
	TranscriptionKey
	HypothesisKey
	LabelsKey
	UserKey
	Timestamp
	Newline
	Whitespace
	String
)

var kindNames = [...]string{
	EOF:              "EOF",
	FileKey:          "FILE_META_KEY",
	IntervalKey:      "INTERVAL_META_KEY",
	TranscriptionKey: "TRANSCRIPTION_META_KEY",
	HypothesisKey:    "HYPOTHESIS_META_KEY",
	LabelsKey:        "LABELS_META_KEY",
	UserKey:          "USER_META_KEY",
	Timestamp:        "TIMESTAMP",
	Newline:          "NEWLINE",
	Whitespace:       "WHITESPACE",
	String:           "STRING",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "INVALID"
	}
	return kindNames[k]
}

// Token is an extract-level token.
type Token = grammar.Token[Kind]

type matcher struct {
	kind         Kind
	re           *regexp.Regexp
	lineStart    bool // only at column 1
	wordBoundary bool // requires a \b before the match
}

// matchers in priority order; String covers anything left on a line.
var matchers = []matcher{
	{kind: FileKey, re: regexp.MustCompile(`^FILE: ?`), lineStart: true},
	{kind: IntervalKey, re: regexp.MustCompile(`^INTERVAL: ?`), lineStart: true},
	{kind: TranscriptionKey, re: regexp.MustCompile(`^TRANSCRIPTION: ?`), lineStart: true},
	{kind: HypothesisKey, re: regexp.MustCompile(`^HYPOTHESIS: ?`), lineStart: true},
	{kind: LabelsKey, re: regexp.MustCompile(`^LABELS: ?`), lineStart: true},
	{kind: UserKey, re: regexp.MustCompile(`^USER: ?`), lineStart: true},
	{kind: Timestamp, re: regexp.MustCompile(`^\d+:\d{1,2}:\d{1,2}\.\d{3}\b`), wordBoundary: true},
	{kind: Newline, re: regexp.MustCompile(`^\n`)},
	{kind: Whitespace, re: regexp.MustCompile(`^[ \t]+`)},
	{kind: String, re: regexp.MustCompile(`^[^\n]+`)},
}

func (m matcher) match(line string, pos int) int {
	if m.lineStart && pos != 0 {
		return 0
	}
	if m.wordBoundary && pos > 0 && isWordByte(line[pos-1]) {
		return 0
	}
	if loc := m.re.FindStringIndex(line[pos:]); loc != nil {
		return loc[1]
	}
	return 0
}

func isWordByte(b byte) bool {
	if b >= utf8.RuneSelf {
		return false
	}
	r := rune(b)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Lexer tokenizes an extract log line by line.
type Lexer struct {
	reader *bufio.Reader
	err    error
}

func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// Err returns the read error that stopped the token sequence, if any.
func (l *Lexer) Err() error {
	return l.err
}

// Tokens returns the lazy token sequence of the log, terminated by exactly
// one EOF token. On a read error the sequence stops without EOF and Err
// reports the error. The sequence can be ranged over once.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lineNo := 0
		for {
			line, err := l.reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				l.err = fmt.Errorf("read line %d: %w", lineNo+1, err)
				return
			}
			if line != "" {
				lineNo++
				if !tokenizeLine(normalizeEOL(line), lineNo, yield) {
					return
				}
			}
			if err != nil {
				yield(Token{Kind: EOF, Pos: grammar.Position{Line: lineNo + 1, Column: 1}})
				return
			}
		}
	}
}

// normalizeEOL turns a CRLF line ending into LF.
func normalizeEOL(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2] + "\n"
	}
	return line
}

func tokenizeLine(line string, lineNo int, yield func(Token) bool) bool {
	for pos := 0; pos < len(line); {
		for _, m := range matchers {
			n := m.match(line, pos)
			if n == 0 {
				continue
			}
			tok := Token{
				Text: line[pos : pos+n],
				Kind: m.kind,
				Pos:  grammar.Position{Line: lineNo, Column: pos + 1},
			}
			if !yield(tok) {
				return false
			}
			pos += n
			break
		}
	}
	return true
}
