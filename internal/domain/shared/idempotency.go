package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (webhook event IDs) so a retried
// delivery is only acted on once.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources
	Close() error
}
