package transcript

import (
	"context"
	"math"
	"strconv"
	"strings"
	"unicode"

	"extract-segmenter/internal/grammar"
	"extract-segmenter/internal/service/segment"
)

// NoSpeech is the speaker id marking a segment without a speaker.
const NoSpeech = "no-speech"

// Parser drives the transcript grammar over one transcription string:
//
//	transcript ::= (segment | continuation_message) { TIMESTAMP segment } [ TILDE ]
//	segment    ::= [WHITESPACE] (SPEAKER message | SOUNDTAG) [WHITESPACE]
//	message    ::= { WHITESPACE | SOUNDTAG | UNKNOWN }+
type Parser struct {
	lexer   *Lexer
	emitter *segment.Emitter
	tokens  *grammar.Lookahead[Kind]
}

// NewParser creates a parser that drives emitter. The emitter is shared with
// the enclosing extract parser.
func NewParser(lexer *Lexer, emitter *segment.Emitter) *Parser {
	return &Parser{lexer: lexer, emitter: emitter}
}

// Parse consumes the whole transcription. Tokens left over after the grammar
// completes are an error.
func (p *Parser) Parse(ctx context.Context) error {
	p.tokens = grammar.NewLookahead(p.lexer.Tokens())
	defer p.tokens.Close()

	if err := p.parseTranscript(ctx); err != nil {
		return err
	}
	if tok, ok := p.tokens.Current(); ok {
		return grammar.Leftover(&tok)
	}
	return nil
}

func (p *Parser) parseTranscript(ctx context.Context) error {
	if !p.emitter.MergeNext() {
		p.emitter.UseDefaultSegmentStart()
		if err := p.parseSegment(nil); err != nil {
			return err
		}
	} else {
		// Continuation of the segment carried over from the last utterance.
		p.emitter.ClearMergeNext()
		message, err := p.parseMessage()
		if err != nil {
			return err
		}
		p.emitter.AppendMessage(message)
	}

	for p.tokens.Is(Timestamp) {
		offset, err := p.parseTimestamp()
		if err != nil {
			return err
		}
		end := p.emitter.ComputeEnd(offset)
		p.emitter.SetSegmentEnd(end)
		speaker := p.emitter.Speaker()
		if err := p.emitter.Emit(ctx); err != nil {
			return err
		}

		p.emitter.SetSegmentStart(end)
		if err := p.parseSegment(&speaker); err != nil {
			return err
		}
	}

	if p.tokens.Is(Tilde) {
		p.tokens.Advance()
		p.emitter.SetMergeNext()
		return nil
	}
	p.emitter.UseDefaultSegmentEnd()
	return p.emitter.Emit(ctx)
}

// parseSegment parses one speaker-led or sound-tag segment. After a
// timestamp (previous != nil) the segment may also be bare message text; it
// then keeps the speaker of the segment just emitted.
func (p *Parser) parseSegment(previous *string) error {
	p.tokens.Skip(Whitespace)

	var speaker, message string
	switch {
	case p.tokens.Is(Speaker):
		speaker = p.parseSpeaker()
		if speaker == NoSpeech {
			speaker = ""
			message = p.parseOptionalMessage()
			break
		}
		var err error
		if message, err = p.parseMessage(); err != nil {
			return err
		}
	case p.tokens.Is(SoundTag):
		message = p.tokens.Advance()
	case previous != nil && p.tokens.Is(Unknown):
		speaker = *previous
		var err error
		if message, err = p.parseMessage(); err != nil {
			return err
		}
	default:
		return p.tokens.Unexpected(Speaker.String() + " or " + SoundTag.String())
	}

	p.emitter.SetSpeaker(speaker)
	p.emitter.SetMessage(message)

	p.tokens.Skip(Whitespace)
	return nil
}

// parseSpeaker returns the speaker id without the surrounding "<#" and ">".
func (p *Parser) parseSpeaker() string {
	tag := p.tokens.Advance()
	return tag[2 : len(tag)-1]
}

// parseTimestamp returns the "[seconds]" offset in milliseconds.
func (p *Parser) parseTimestamp() (int64, error) {
	text, err := p.tokens.Match(Timestamp)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(text[1:len(text)-1], 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(seconds * 1000)), nil
}

func (p *Parser) parseMessage() (string, error) {
	message := p.parseOptionalMessage()
	if message == "" {
		tok, ok := p.tokens.Current()
		if !ok {
			return "", grammar.EmptyMessage[Kind](nil)
		}
		return "", grammar.EmptyMessage(&tok)
	}
	return message, nil
}

// parseOptionalMessage collects message tokens, right-trimmed.
func (p *Parser) parseOptionalMessage() string {
	p.tokens.Skip(Whitespace)

	var b strings.Builder
	for p.tokens.IsAny(Whitespace, SoundTag, Unknown) {
		b.WriteString(p.tokens.Advance())
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
