package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist implements token.Denylist on Redis. Entries expire with the
// token they revoke, so the set never needs an external sweeper.
type Denylist struct {
	client *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewDenylist connects to Redis and verifies the connection.
func NewDenylist(ctx context.Context, cfg Config) (*Denylist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Denylist{client: client}, nil
}

// NewDenylistWithClient wraps an existing client. Used by tests.
func NewDenylistWithClient(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

func denyKey(jti string) string {
	return "denylist:" + jti
}

// Revoke marks a jti as revoked until the token's natural expiry.
func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke jti: %w", err)
	}
	return nil
}

// IsRevoked reports whether a jti has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check jti: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying client.
func (d *Denylist) Close() error {
	return d.client.Close()
}
