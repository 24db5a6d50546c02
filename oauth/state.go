package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/authgate/adapter"
	"github.com/mkravets/authgate/pkg/token"
)

// flowState is the ephemeral per-flow payload that survives the redirect
// round-trip through the provider. It is encrypted into a verification
// record; only a signed reference leaves the process.
type flowState struct {
	CSRFState          string    `json:"csrfState"`
	CodeVerifier       string    `json:"codeVerifier,omitempty"`
	CallbackURL        string    `json:"callbackURL"`
	ErrorURL           string    `json:"errorURL,omitempty"`
	NewUserCallbackURL string    `json:"newUserCallbackURL,omitempty"`
	ExpiresAt          time.Time `json:"expiresAt"`
	Link               *LinkHint `json:"link,omitempty"`
}

// LinkHint carries the identity of an already-authenticated user who
// wants this provider account attached rather than a fresh sign-in.
type LinkHint struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// stateRef is the payload of the provider-visible state parameter.
type stateRef struct {
	ID string `json:"id"`
}

// issueState persists the encrypted flow state as a single-use
// verification record and returns the signed state parameter.
func (f *Flow) issueState(ctx context.Context, st flowState) (string, error) {
	payload, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("failed to encode flow state: %w", err)
	}

	sealed, err := f.cipher.EncryptString(string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt flow state: %w", err)
	}

	ref := uuid.NewString()
	verification := adapter.Verification{
		ID:        ref,
		Value:     sealed,
		ExpiresAt: st.ExpiresAt,
		CreatedAt: time.Now(),
	}
	if _, err := f.store.Create(ctx, adapter.ModelVerification, verification.ToMap()); err != nil {
		return "", fmt.Errorf("failed to persist flow state: %w", err)
	}

	return token.Generate(stateRef{ID: ref}, f.secret)
}

// consumeState verifies the state parameter's signature, consumes the
// referenced verification record, and decrypts the flow state. The
// record is deleted before any of its fields are trusted, so a second
// callback with the same state always fails.
func (f *Flow) consumeState(ctx context.Context, state string) (*flowState, error) {
	ref, err := token.Parse[stateRef](state, f.secret)
	if err != nil {
		return nil, errors.Join(errStateForged, err)
	}

	rec, err := f.store.FindOne(ctx, adapter.ModelVerification, adapter.Where{adapter.Eq("id", ref.ID)})
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			// Already consumed or never issued: treat replays exactly like
			// forgeries
			return nil, errStateForged
		}
		return nil, fmt.Errorf("failed to load flow state: %w", err)
	}

	if err := f.store.Delete(ctx, adapter.ModelVerification, adapter.Where{adapter.Eq("id", ref.ID)}); err != nil && !errors.Is(err, adapter.ErrNotFound) {
		return nil, fmt.Errorf("failed to consume flow state: %w", err)
	}

	verification := adapter.VerificationFromMap(rec)
	payload, err := f.cipher.DecryptString(verification.Value)
	if err != nil {
		return nil, errStateForged
	}

	var st flowState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, errStateForged
	}

	return &st, nil
}

// errStateForged marks any state that failed verification or consumption.
var errStateForged = errors.New("oauth: state verification failed")
