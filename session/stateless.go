package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/pkg/jwt"
	"github.com/mkravets/authgate/pkg/logger"
	"github.com/mkravets/authgate/pkg/secrets"
)

// statelessManager embeds the {user, session} snapshot in a signed JWT
// whose payload is AES-GCM encrypted. Validation never touches the
// adapter; the adapter is only consulted at creation time to snapshot the
// user.
//
// Known limitation: without a Denylist, a previously issued token stays
// valid until its embedded expiry even after Revoke.
type statelessManager struct {
	store    adapter.Adapter
	signer   *jwt.Service
	cipher   *secrets.Cipher
	denylist Denylist
	config   Config
	log      *slog.Logger
}

type statelessClaims struct {
	jwt.StandardClaims
	// Data is the encrypted auth snapshot.
	Data string `json:"data"`
}

type snapshot struct {
	User    *adapter.User    `json:"user"`
	Session *adapter.Session `json:"session"`
}

// StatelessOption configures the stateless manager.
type StatelessOption func(*statelessManager)

// WithDenylist enables revocation-before-expiry checks.
func WithDenylist(d Denylist) StatelessOption {
	return func(m *statelessManager) { m.denylist = d }
}

// WithStatelessLogger attaches a logger.
func WithStatelessLogger(l *slog.Logger) StatelessOption {
	return func(m *statelessManager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewStatelessManager creates the stateless session manager.
func NewStatelessManager(store adapter.Adapter, signer *jwt.Service, cipher *secrets.Cipher, cfg Config, opts ...StatelessOption) Manager {
	m := &statelessManager{
		store:  store,
		signer: signer,
		cipher: cipher,
		config: cfg,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *statelessManager) Create(ctx context.Context, userID string, meta Meta) (*Auth, string, error) {
	rec, err := m.store.FindOne(ctx, adapter.ModelUser, adapter.Where{adapter.Eq("id", userID)})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil, "", ErrSessionNotFound
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	user := adapter.UserFromMap(rec)

	now := time.Now()
	sess := &adapter.Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.config.ExpiresIn),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}

	auth := &Auth{User: user, Session: sess}
	raw, err := m.seal(auth)
	if err != nil {
		return nil, "", err
	}

	m.log.InfoContext(ctx, "stateless session issued",
		logger.Component("session"),
		logger.UserID(userID),
		logger.SessionID(sess.ID),
	)

	return auth, raw, nil
}

func (m *statelessManager) Validate(ctx context.Context, raw string, refresh bool) (*Auth, string, error) {
	auth, err := m.open(ctx, raw)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	if refresh && m.config.UpdateAge > 0 && now.Sub(auth.Session.UpdatedAt) >= m.config.UpdateAge {
		auth.Session.UpdatedAt = now
		auth.Session.ExpiresAt = now.Add(m.config.ExpiresIn)
		reissued, err := m.seal(auth)
		if err != nil {
			return nil, "", err
		}
		return auth, reissued, nil
	}

	return auth, "", nil
}

func (m *statelessManager) Refresh(ctx context.Context, raw string) (*Auth, string, error) {
	auth, err := m.open(ctx, raw)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	auth.Session.UpdatedAt = now
	auth.Session.ExpiresAt = now.Add(m.config.ExpiresIn)
	reissued, err := m.seal(auth)
	if err != nil {
		return nil, "", err
	}
	return auth, reissued, nil
}

func (m *statelessManager) Revoke(ctx context.Context, raw string) error {
	if m.denylist == nil {
		// Without a denylist the token stays valid until its embedded
		// expiry; clearing the cookie is all the caller can do.
		return nil
	}

	auth, err := m.open(ctx, raw)
	if err != nil {
		// An invalid token needs no denylist entry
		return nil
	}

	ttl := time.Until(auth.Session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return m.denylist.RevokeToken(ctx, auth.Session.ID, ttl)
}

func (m *statelessManager) RevokeAll(ctx context.Context, userID string) error {
	if m.denylist == nil {
		return ErrNotSupported
	}
	return m.denylist.RevokeUser(ctx, userID, time.Now(), m.config.ExpiresIn)
}

func (m *statelessManager) List(ctx context.Context, userID string) ([]*adapter.Session, error) {
	return nil, ErrNotSupported
}

func (m *statelessManager) seal(auth *Auth) (string, error) {
	snap, err := json.Marshal(snapshot{User: auth.User, Session: auth.Session})
	if err != nil {
		return "", fmt.Errorf("failed to encode session snapshot: %w", err)
	}

	encrypted, err := m.cipher.EncryptString(string(snap))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt session snapshot: %w", err)
	}

	claims := statelessClaims{
		StandardClaims: jwt.StandardClaims{
			ID:        auth.Session.ID,
			Subject:   auth.Session.UserID,
			IssuedAt:  auth.Session.UpdatedAt.Unix(),
			ExpiresAt: auth.Session.ExpiresAt.Unix(),
		},
		Data: encrypted,
	}

	raw, err := m.signer.Generate(claims)
	if err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return raw, nil
}

func (m *statelessManager) open(ctx context.Context, raw string) (*Auth, error) {
	var claims statelessClaims
	if err := m.signer.Parse(raw, &claims); err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionNotFound
	}

	decrypted, err := m.cipher.DecryptString(claims.Data)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(decrypted), &snap); err != nil {
		return nil, ErrSessionNotFound
	}
	if snap.Session == nil || snap.User == nil {
		return nil, ErrSessionNotFound
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(ctx, snap.Session.ID, snap.Session.UserID, snap.Session.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("denylist check failed: %w", err)
		}
		if revoked {
			return nil, ErrSessionRevoked
		}
	}

	return &Auth{User: snap.User, Session: snap.Session}, nil
}

var _ Manager = (*statelessManager)(nil)
