package store

import "github.com/google/uuid"

// RunTokenGenerator generates unique run tokens for record correlation.
//
// Production uses UUIDv7Generator; tests substitute the deterministic
// generators in internal/testutil when the token must be known in advance.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time. ListRuns relies on this: token order is
// creation order without storing a timestamp column.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
