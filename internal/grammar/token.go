// Package grammar holds the pieces shared by the extract and transcript
// parsers: typed tokens, a two-token lookahead over a lazy token sequence and
// the syntax errors both grammars report.
package grammar

import "fmt"

// Kind is the token tag of one grammar level.
type Kind interface {
	comparable
	fmt.Stringer
}

// Position locates a token in its source. Line and Column are 1-based;
// Column counts bytes.
type Position struct {
	Line   int
	Column int
}

// String returns the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexeme of kind K.
type Token[K Kind] struct {
	Text string
	Kind K
	Pos  Position
}
