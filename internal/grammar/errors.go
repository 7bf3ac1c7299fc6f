package grammar

import (
	"errors"
	"fmt"
)

// Syntax errors. All of them abort the parse session.
var (
	// ErrUnexpectedToken indicates a token kind the production does not allow.
	ErrUnexpectedToken = errors.New("unexpected token")

	// ErrEmptyMessage indicates a message production that matched nothing.
	ErrEmptyMessage = errors.New("empty message")

	// ErrIncompleteConsumption indicates tokens left after a complete parse.
	ErrIncompleteConsumption = errors.New("incomplete consumption")
)

// NoneKind is reported as the actual kind when no token is available.
const NoneKind = "none"

// SyntaxError describes where and why a grammar was violated.
type SyntaxError struct {
	Err      error
	Expected string
	Actual   string
	Text     string
	Pos      Position
}

func (e *SyntaxError) Error() string {
	msg := e.Err.Error()
	if e.Expected != "" {
		msg = fmt.Sprintf("%s: expected %s, got %s", msg, e.Expected, e.Actual)
	} else if e.Actual != "" {
		msg = fmt.Sprintf("%s: got %s", msg, e.Actual)
	}
	if e.Actual != NoneKind && e.Actual != "" {
		msg = fmt.Sprintf("%s %q at %s", msg, e.Text, e.Pos)
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Unexpected returns an ErrUnexpectedToken for tok, which may be nil.
func Unexpected[K Kind](expected string, tok *Token[K]) error {
	return newSyntaxError(ErrUnexpectedToken, expected, tok)
}

// Leftover returns an ErrIncompleteConsumption for the first unconsumed token.
func Leftover[K Kind](tok *Token[K]) error {
	return newSyntaxError(ErrIncompleteConsumption, "", tok)
}

// EmptyMessage returns an ErrEmptyMessage at the token following the
// (empty) message, which may be nil.
func EmptyMessage[K Kind](tok *Token[K]) error {
	return newSyntaxError(ErrEmptyMessage, "", tok)
}

func newSyntaxError[K Kind](err error, expected string, tok *Token[K]) *SyntaxError {
	se := &SyntaxError{Err: err, Expected: expected, Actual: NoneKind}
	if tok != nil {
		se.Actual = tok.Kind.String()
		se.Text = tok.Text
		se.Pos = tok.Pos
	}
	return se
}

// KindOf names the syntax error class of err for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnexpectedToken):
		return "unexpected_token"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrIncompleteConsumption):
		return "incomplete_consumption"
	default:
		return "other"
	}
}
