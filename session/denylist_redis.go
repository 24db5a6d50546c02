package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist is a Denylist backed by Redis, suitable for multi-node
// deployments where stateless revocation must be visible everywhere.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist creates a denylist on an existing Redis client. The
// client's lifecycle belongs to the caller.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "authgate:denylist:"}
}

func (d *RedisDenylist) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := d.client.Set(ctx, d.prefix+"token:"+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	val := strconv.FormatInt(cutoff.UnixNano(), 10)
	if err := d.client.Set(ctx, d.prefix+"user:"+userID, val, ttl).Err(); err != nil {
		return fmt.Errorf("denylist user: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID, userID string, issuedAt time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+"token:"+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	val, err := d.client.Get(ctx, d.prefix+"user:"+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("denylist lookup: %w", err)
	}

	cutoffNano, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, nil
	}
	return issuedAt.Before(time.Unix(0, cutoffNano)), nil
}

var _ Denylist = (*RedisDenylist)(nil)
