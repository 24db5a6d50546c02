package session

import (
	"context"
	"sync"
	"time"
)

// Denylist answers whether a stateless token has been revoked before its
// embedded expiry. Entries only need to live until the corresponding
// token's expiry, so implementations should expire them with a TTL.
type Denylist interface {
	// RevokeToken marks a single token id as revoked until ttl elapses.
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error

	// RevokeUser marks every token for the user issued before cutoff as
	// revoked until ttl elapses.
	RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error

	// IsRevoked checks a token by id, owner, and issue time.
	IsRevoked(ctx context.Context, tokenID, userID string, issuedAt time.Time) (bool, error)
}

// MemoryDenylist is an in-process Denylist for tests and single-node
// deployments.
type MemoryDenylist struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token id -> entry expiry
	users  map[string]userEntry
}

type userEntry struct {
	cutoff  time.Time
	expires time.Time
}

// NewMemoryDenylist creates an empty in-memory denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		tokens: make(map[string]time.Time),
		users:  make(map[string]userEntry),
	}
}

func (d *MemoryDenylist) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	d.tokens[tokenID] = time.Now().Add(ttl)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDenylist) RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	d.mu.Lock()
	d.users[userID] = userEntry{cutoff: cutoff, expires: time.Now().Add(ttl)}
	d.mu.Unlock()
	return nil
}

func (d *MemoryDenylist) IsRevoked(ctx context.Context, tokenID, userID string, issuedAt time.Time) (bool, error) {
	now := time.Now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	if exp, ok := d.tokens[tokenID]; ok && now.Before(exp) {
		return true, nil
	}
	if entry, ok := d.users[userID]; ok && now.Before(entry.expires) && issuedAt.Before(entry.cutoff) {
		return true, nil
	}
	return false, nil
}

var _ Denylist = (*MemoryDenylist)(nil)
