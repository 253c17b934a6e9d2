// Package testutil provides deterministic helpers for tests.
//
// Production code generates run tokens with UUIDv7, which is unique per
// run and therefore useless for golden comparison. The generators here
// stand in for store.UUIDv7Generator wherever a test needs to know the
// token in advance.
package testutil

import "sync"

// FixedTokenGenerator returns the same run token every time.
//
// This enables deterministic test execution: the same scenario recorded
// with the same FixedTokenGenerator produces byte-identical run rows.
//
// Thread-safety: safe for concurrent use (the token never changes).
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator that always returns token.
// If token is empty, Generate returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed run token.
//
// Implements store.RunTokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}

// SequenceTokenGenerator returns predetermined run tokens in order.
//
// Tests that record several runs can provide a known token sequence and
// verify exact store contents afterwards.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewSequenceTokenGenerator creates a generator that returns tokens in
// order.
//
// Example:
//
//	gen := NewSequenceTokenGenerator("run-1", "run-2")
//	gen.Generate() // "run-1"
//	gen.Generate() // "run-2"
//	gen.Generate() // panic: all tokens exhausted
func NewSequenceTokenGenerator(tokens ...string) *SequenceTokenGenerator {
	return &SequenceTokenGenerator{
		tokens: tokens,
		idx:    0,
	}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. This is a fail-fast approach
// to catch test misconfiguration (a test recorded more runs than it
// provided tokens for).
func (g *SequenceTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("SequenceTokenGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Remaining returns how many tokens have not been handed out yet.
// Useful to assert a test consumed exactly the tokens it planned to.
func (g *SequenceTokenGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tokens) - g.idx
}
