package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a repeated submission is not
// run twice
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when the key is already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsClaimed reports whether key is currently claimed
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Release forgets key so the request can be retried
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks repeats
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
