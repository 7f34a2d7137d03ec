package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore remembers which deliveries a consumer has already handled.
// Keys are opaque to the store; see IdempotencyConfig.Key.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim so the next delivery runs again
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls duplicate suppression for one event consumer
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
	// Scope namespaces keys so two consumers of the same event do not collide
	Scope string
}

// DefaultIdempotencyConfig keeps claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}

// Key builds the store key for an event
func (c IdempotencyConfig) Key(eventID uuid.UUID) string {
	if c.Scope == "" {
		return eventID.String()
	}
	return c.Scope + ":" + eventID.String()
}
