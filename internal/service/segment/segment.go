package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out segment IDs of the form "<session>-seg-<n>".
// The counter is shared by all sessions and safe for concurrent use.
type Generator struct {
	counter uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-seg-%d", sessionID, n)
}
