package extract

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"extract-segmenter/internal/grammar"
	"extract-segmenter/internal/service/segment"
	"extract-segmenter/internal/transcript"
)

// Parser drives the extract grammar:
//
//	extract            ::= { utterance }
//	utterance          ::= { metadata } NEWLINE
//	metadata           ::= generic_meta | interval_meta | transcription_meta
//	generic_meta       ::= (FILE|HYPOTHESIS|LABELS|USER)_KEY [ STRING ] NEWLINE
//	interval_meta      ::= INTERVAL_KEY TIMESTAMP WHITESPACE TIMESTAMP NEWLINE
//	transcription_meta ::= TRANSCRIPTION_KEY STRING NEWLINE
//
// The last utterance may end at EOF instead of a blank line.
type Parser struct {
	lexer      *Lexer
	emitter    *segment.Emitter
	tokens     *grammar.Lookahead[Kind]
	utterances int
}

// NewParser creates a parser that owns emitter for the whole parse session.
func NewParser(lexer *Lexer, emitter *segment.Emitter) *Parser {
	return &Parser{lexer: lexer, emitter: emitter}
}

// Utterances returns the number of non-empty utterances parsed so far.
func (p *Parser) Utterances() int {
	return p.utterances
}

// Parse consumes the whole log. It stops at the first grammar violation or
// read error; segments emitted before that stand.
func (p *Parser) Parse(ctx context.Context) error {
	p.tokens = grammar.NewLookahead(p.lexer.Tokens())
	defer p.tokens.Close()

	err := p.parseExtract(ctx)
	if lexErr := p.lexer.Err(); lexErr != nil {
		return lexErr
	}
	return err
}

func (p *Parser) parseExtract(ctx context.Context) error {
	for !p.tokens.Is(EOF) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.parseUtterance(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseUtterance(ctx context.Context) error {
	lines := 0
	for !p.tokens.IsAny(Newline, EOF) {
		if err := p.parseMetadata(ctx); err != nil {
			return err
		}
		lines++
	}
	if p.tokens.Is(Newline) {
		p.tokens.Advance()
	}
	if lines > 0 {
		p.utterances++
	}
	return nil
}

func (p *Parser) parseMetadata(ctx context.Context) error {
	switch {
	case p.tokens.IsAny(FileKey, HypothesisKey, LabelsKey, UserKey):
		key := metaKeyName(p.tokens.Advance())
		var value string
		if p.tokens.Is(String) {
			value = p.tokens.Advance()
		}
		p.emitter.SetMetaKey(key, value)
	case p.tokens.Is(IntervalKey):
		p.tokens.Advance()
		if err := p.parseInterval(); err != nil {
			return err
		}
	case p.tokens.Is(TranscriptionKey):
		p.tokens.Advance()
		if err := p.parseTranscription(ctx); err != nil {
			return err
		}
	default:
		return p.tokens.Unexpected("*_META_KEY")
	}

	_, err := p.tokens.Match(Newline)
	return err
}

func (p *Parser) parseInterval() error {
	start, err := p.parseTimestamp()
	if err != nil {
		return err
	}
	if _, err := p.tokens.Match(Whitespace); err != nil {
		return err
	}
	end, err := p.parseTimestamp()
	if err != nil {
		return err
	}
	p.emitter.SetIntervalBounds(start, end)
	return nil
}

func (p *Parser) parseTimestamp() (int64, error) {
	text, err := p.tokens.Match(Timestamp)
	if err != nil {
		return 0, err
	}
	return ParseTimestamp(text)
}

// parseTranscription runs a complete transcript sub-parse over the value
// before the extract parse continues.
func (p *Parser) parseTranscription(ctx context.Context) error {
	tok, _ := p.tokens.Current()
	text, err := p.tokens.Match(String)
	if err != nil {
		return err
	}
	sub := transcript.NewParser(transcript.NewLexer(text), p.emitter)
	if err := sub.Parse(ctx); err != nil {
		return fmt.Errorf("transcription at line %d: %w", tok.Pos.Line, err)
	}
	return nil
}

// metaKeyName strips the colon and optional space from a metadata keyword.
func metaKeyName(keyword string) string {
	return strings.TrimRight(keyword, ": ")
}

// ParseTimestamp converts "H:MM:SS.mmm" to milliseconds.
func ParseTimestamp(text string) (int64, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want H:MM:SS.mmm", text)
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q hours: %w", text, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q minutes: %w", text, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q seconds: %w", text, err)
	}
	return hours*3600000 + minutes*60000 + int64(math.Round(seconds*1000)), nil
}
