// Package transcript lexes and parses the mini-language of a TRANSCRIPTION
// value: speaker tags, sound tags, relative timestamps and the trailing
// continuation marker.
package transcript

import (
	"iter"
	"regexp"
	"unicode/utf8"

	"extract-segmenter/internal/grammar"
)

// Kind tags transcript tokens.
type Kind int

const (
	Speaker Kind = iota
	Timestamp
	Tilde
	Whitespace
	SoundTag
	Unknown
)

var kindNames = [...]string{
	Speaker:    "SPEAKER",
	Timestamp:  "TIMESTAMP",
	Tilde:      "TILDE",
	Whitespace: "WHITESPACE",
	SoundTag:   "SOUNDTAG",
	Unknown:    "UNKNOWN",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "INVALID"
	}
	return kindNames[k]
}

// Token is a transcript-level token.
type Token = grammar.Token[Kind]

var (
	speakerRe    = regexp.MustCompile(`^<#[0-9A-Za-z_-]+>`)
	soundOpenRe  = regexp.MustCompile(`^<([a-z]+)>`)
	soundCloseRe = regexp.MustCompile(`^[a-z]+</([a-z]+)>`)
	timestampRe  = regexp.MustCompile(`^\[\d+(\.\d*)?\]`)
	whitespaceRe = regexp.MustCompile(`^[ \t]+`)
)

// matcher returns the length of its lexeme at s[pos:], or 0.
type matcher struct {
	kind  Kind
	match func(s string, pos int) int
}

// matchers in priority order; Unknown always matches a non-empty rest.
var matchers = []matcher{
	{Speaker, matchRegexp(speakerRe)},
	{SoundTag, matchSoundTag},
	{Tilde, matchTilde},
	{Timestamp, matchRegexp(timestampRe)},
	{Whitespace, matchRegexp(whitespaceRe)},
	{Unknown, matchRune},
}

func matchRegexp(re *regexp.Regexp) func(string, int) int {
	return func(s string, pos int) int {
		if loc := re.FindStringIndex(s[pos:]); loc != nil {
			return loc[1]
		}
		return 0
	}
}

// matchSoundTag matches "<tag>" or "<tag>word</tag>". A close tag with a
// different name is not part of the lexeme.
func matchSoundTag(s string, pos int) int {
	open := soundOpenRe.FindStringSubmatch(s[pos:])
	if open == nil {
		return 0
	}
	n := len(open[0])
	if closing := soundCloseRe.FindStringSubmatch(s[pos+n:]); closing != nil && closing[1] == open[1] {
		n += len(closing[0])
	}
	return n
}

func matchTilde(s string, pos int) int {
	if pos == len(s)-1 && s[pos] == '~' {
		return 1
	}
	return 0
}

func matchRune(s string, pos int) int {
	_, size := utf8.DecodeRuneInString(s[pos:])
	return size
}

// Lexer tokenizes one transcription string.
type Lexer struct {
	source string
}

func NewLexer(source string) *Lexer {
	return &Lexer{source: source}
}

// Tokens returns the lazy token sequence of the source. The sequence has no
// terminating token.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := l.source
		for pos := 0; pos < len(s); {
			for _, m := range matchers {
				n := m.match(s, pos)
				if n == 0 {
					continue
				}
				tok := Token{
					Text: s[pos : pos+n],
					Kind: m.kind,
					Pos:  grammar.Position{Line: 1, Column: pos + 1},
				}
				if !yield(tok) {
					return
				}
				pos += n
				break
			}
		}
	}
}
