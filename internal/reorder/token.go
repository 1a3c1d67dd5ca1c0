package reorder

import (
	"github.com/google/uuid"
)

// TokenGenerator generates request correlation tokens for batches.
// Implemented by UUIDv7Generator and, in tests, testutil.TokenSequence.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens, so journal entries
// can be correlated with request logs by time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
