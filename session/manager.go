package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/token"
)

// storeManager is the database-backed session manager. Tokens are random
// 32-byte values; every validation is an adapter lookup joined to the
// user row, so revocation is instantaneous.
type storeManager struct {
	store  adapter.Adapter
	config Config
	log    *slog.Logger
}

// Option configures a manager during construction.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger attaches a logger. The default discards all records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// NewManager creates the database-backed session manager.
func NewManager(store adapter.Adapter, cfg Config, opts ...Option) Manager {
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &storeManager{store: store, config: cfg, log: o.log}
}

func (m *storeManager) Create(ctx context.Context, userID string, meta Meta) (*Auth, string, error) {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	raw, err := token.NewRandom(32)
	if err != nil {
		return nil, "", errors.Join(ErrTokenGeneration, err)
	}

	now := time.Now()
	sess := &adapter.Session{
		ID:        uuid.NewString(),
		Token:     raw,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.config.ExpiresIn),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	if _, err := m.store.Create(ctx, adapter.ModelSession, sess.ToMap()); err != nil {
		return nil, "", fmt.Errorf("failed to persist session: %w", err)
	}

	m.log.InfoContext(ctx, "session created",
		logger.Component("session"),
		logger.UserID(userID),
		logger.SessionID(sess.ID),
	)

	return &Auth{User: user, Session: sess}, raw, nil
}

func (m *storeManager) Validate(ctx context.Context, raw string, refresh bool) (*Auth, string, error) {
	rec, err := m.store.FindOne(ctx, adapter.ModelSession, adapter.Where{adapter.Eq("token", raw)})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, "", ErrSessionNotFound
		}
		return nil, "", fmt.Errorf("failed to look up session: %w", err)
	}
	sess := adapter.SessionFromMap(rec)

	now := time.Now()
	if !now.Before(sess.ExpiresAt) {
		// Lazy reaping: the expired row is gone the moment it is observed
		_ = m.store.Delete(ctx, adapter.ModelSession, adapter.Where{adapter.Eq("id", sess.ID)})
		return nil, "", ErrSessionExpired
	}

	user, err := m.findUser(ctx, sess.UserID)
	if err != nil {
		return nil, "", err
	}

	refreshed := ""
	if refresh && m.config.UpdateAge > 0 && now.Sub(sess.UpdatedAt) >= m.config.UpdateAge {
		sess.UpdatedAt = now
		sess.ExpiresAt = now.Add(m.config.ExpiresIn)
		if _, err := m.store.Update(ctx, adapter.ModelSession,
			adapter.Where{adapter.Eq("id", sess.ID)},
			map[string]any{"updatedAt": sess.UpdatedAt, "expiresAt": sess.ExpiresAt},
		); err != nil {
			return nil, "", fmt.Errorf("failed to refresh session: %w", err)
		}
		refreshed = raw
	}

	return &Auth{User: user, Session: sess}, refreshed, nil
}

func (m *storeManager) Refresh(ctx context.Context, raw string) (*Auth, string, error) {
	auth, _, err := m.Validate(ctx, raw, false)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	auth.Session.UpdatedAt = now
	auth.Session.ExpiresAt = now.Add(m.config.ExpiresIn)
	if _, err := m.store.Update(ctx, adapter.ModelSession,
		adapter.Where{adapter.Eq("id", auth.Session.ID)},
		map[string]any{"updatedAt": auth.Session.UpdatedAt, "expiresAt": auth.Session.ExpiresAt},
	); err != nil {
		return nil, "", fmt.Errorf("failed to refresh session: %w", err)
	}

	return auth, raw, nil
}

func (m *storeManager) Revoke(ctx context.Context, raw string) error {
	err := m.store.Delete(ctx, adapter.ModelSession, adapter.Where{adapter.Eq("token", raw)})
	if err != nil && !errors.Is(err, adapter.ErrNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (m *storeManager) RevokeAll(ctx context.Context, userID string) error {
	n, err := m.store.DeleteMany(ctx, adapter.ModelSession, adapter.Where{adapter.Eq("userId", userID)})
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	m.log.InfoContext(ctx, "sessions revoked",
		logger.Component("session"),
		logger.UserID(userID),
		slog.Int64("count", n),
	)
	return nil
}

func (m *storeManager) List(ctx context.Context, userID string) ([]*adapter.Session, error) {
	recs, err := m.store.FindMany(ctx, adapter.ModelSession,
		adapter.Where{adapter.Eq("userId", userID)},
		adapter.Query{Sort: &adapter.SortBy{Field: "createdAt", Desc: true}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := time.Now()
	out := make([]*adapter.Session, 0, len(recs))
	for _, rec := range recs {
		s := adapter.SessionFromMap(rec)
		if now.Before(s.ExpiresAt) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *storeManager) findUser(ctx context.Context, userID string) (*adapter.User, error) {
	rec, err := m.store.FindOne(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("id", userID)})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return adapter.UserFromMap(rec), nil
}

var _ Manager = (*storeManager)(nil)
