package testutil

import (
	"fmt"
	"sync"
)

// TokenSequence generates numbered batch tokens: "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh TokenSequence produces byte-identical outcomes.
//
// Thread-safety: TokenSequence is safe for concurrent use via internal mutex.
type TokenSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewTokenSequence creates a token sequence.
// If prefix is empty, tokens are "test-batch-1", "test-batch-2", ...
func NewTokenSequence(prefix string) *TokenSequence {
	if prefix == "" {
		prefix = "test-batch"
	}
	return &TokenSequence{prefix: prefix}
}

// Generate returns the next token.
//
// Implements reorder.TokenGenerator interface.
func (g *TokenSequence) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *TokenSequence) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
