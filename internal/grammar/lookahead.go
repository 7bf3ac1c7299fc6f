package grammar

import (
	"iter"
	"strings"
)

// Lookahead buffers the current and next token of a lazy token sequence.
// A missing token (ok == false) means the sequence is exhausted.
//
// Close must be called once the parser is done with the sequence.
type Lookahead[K Kind] struct {
	next    func() (Token[K], bool)
	stop    func()
	current *Token[K]
	peek    *Token[K]
}

// NewLookahead pulls the first two tokens of seq.
func NewLookahead[K Kind](seq iter.Seq[Token[K]]) *Lookahead[K] {
	next, stop := iter.Pull(seq)
	l := &Lookahead[K]{next: next, stop: stop}
	l.Advance()
	l.Advance()
	return l
}

// Current returns the token at the scan position.
func (l *Lookahead[K]) Current() (Token[K], bool) {
	if l.current == nil {
		return Token[K]{}, false
	}
	return *l.current, true
}

// Peek returns the token after the current one.
func (l *Lookahead[K]) Peek() (Token[K], bool) {
	if l.peek == nil {
		return Token[K]{}, false
	}
	return *l.peek, true
}

// Is reports whether the current token exists and has the given kind.
func (l *Lookahead[K]) Is(kind K) bool {
	return l.current != nil && l.current.Kind == kind
}

// IsAny reports whether the current token has one of the given kinds.
func (l *Lookahead[K]) IsAny(kinds ...K) bool {
	for _, k := range kinds {
		if l.Is(k) {
			return true
		}
	}
	return false
}

// PeekIs reports whether the peeked token exists and has the given kind.
func (l *Lookahead[K]) PeekIs(kind K) bool {
	return l.peek != nil && l.peek.Kind == kind
}

// Exhausted reports whether no tokens are left.
func (l *Lookahead[K]) Exhausted() bool {
	return l.current == nil
}

// Advance shifts the buffer by one token and returns the text of the token
// that was current, or "" if there was none.
func (l *Lookahead[K]) Advance() string {
	prev := l.current
	l.current = l.peek
	l.peek = nil
	if tok, ok := l.next(); ok {
		l.peek = &tok
	}
	if prev == nil {
		return ""
	}
	return prev.Text
}

// Match consumes the current token if it has the given kind.
func (l *Lookahead[K]) Match(kind K) (string, error) {
	if !l.Is(kind) {
		return "", l.Unexpected(kind.String())
	}
	return l.Advance(), nil
}

// Skip consumes tokens while they have the given kind and returns their text.
func (l *Lookahead[K]) Skip(kind K) string {
	var b strings.Builder
	for l.Is(kind) {
		b.WriteString(l.Advance())
	}
	return b.String()
}

// Unexpected builds an ErrUnexpectedToken for the current token.
func (l *Lookahead[K]) Unexpected(expected string) error {
	return Unexpected(expected, l.current)
}

// Close releases the underlying sequence.
func (l *Lookahead[K]) Close() {
	l.stop()
}
