package token

import (
	"context"
	"time"
)

// Denylist records revoked token ids (jti) until their natural expiry.
// The base design is stateless and cannot invalidate an issued token early;
// wiring a denylist is the opt-in escape hatch for deployments that need
// revocation before expiry.
type Denylist interface {
	// Revoke marks a jti as revoked for the given remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NoopDenylist never revokes anything, preserving the stateless semantics.
type NoopDenylist struct{}

func (NoopDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

func (NoopDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}
