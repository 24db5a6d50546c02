package adapter

import (
	"time"
)

// User is the local user entity.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Name          string    `json:"name,omitempty"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session is a database-backed session row. In stateless mode the same
// shape is carried inside the signed token instead of a row.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Account represents one identity-provider linkage for a user.
// (ProviderID, AccountID) is unique across the table.
type Account struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"userId"`
	ProviderID            string     `json:"providerId"`
	AccountID             string     `json:"accountId"`
	AccessToken           string     `json:"accessToken,omitempty"`
	RefreshToken          string     `json:"refreshToken,omitempty"`
	AccessTokenExpiresAt  *time.Time `json:"accessTokenExpiresAt,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refreshTokenExpiresAt,omitempty"`
	Scope                 string     `json:"scope,omitempty"`
	Password              string     `json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Verification is a short-lived single-use value, e.g. an OAuth2 flow
// state payload stored by reference.
type Verification struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserFromMap decodes an adapter record into a User.
func UserFromMap(m map[string]any) *User {
	if m == nil {
		return nil
	}
	return &User{
		ID:            str(m["id"]),
		Email:         str(m["email"]),
		EmailVerified: boolean(m["emailVerified"]),
		Name:          str(m["name"]),
		Image:         str(m["image"]),
		CreatedAt:     ts(m["createdAt"]),
		UpdatedAt:     ts(m["updatedAt"]),
	}
}

// ToMap encodes a User as an adapter record.
func (u *User) ToMap() map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"emailVerified": u.EmailVerified,
		"name":          u.Name,
		"image":         u.Image,
		"createdAt":     u.CreatedAt,
		"updatedAt":     u.UpdatedAt,
	}
}

// SessionFromMap decodes an adapter record into a Session.
func SessionFromMap(m map[string]any) *Session {
	if m == nil {
		return nil
	}
	return &Session{
		ID:        str(m["id"]),
		Token:     str(m["token"]),
		UserID:    str(m["userId"]),
		CreatedAt: ts(m["createdAt"]),
		UpdatedAt: ts(m["updatedAt"]),
		ExpiresAt: ts(m["expiresAt"]),
		IPAddress: str(m["ipAddress"]),
		UserAgent: str(m["userAgent"]),
	}
}

// ToMap encodes a Session as an adapter record.
func (s *Session) ToMap() map[string]any {
	return map[string]any{
		"id":        s.ID,
		"token":     s.Token,
		"userId":    s.UserID,
		"createdAt": s.CreatedAt,
		"updatedAt": s.UpdatedAt,
		"expiresAt": s.ExpiresAt,
		"ipAddress": s.IPAddress,
		"userAgent": s.UserAgent,
	}
}

// AccountFromMap decodes an adapter record into an Account.
func AccountFromMap(m map[string]any) *Account {
	if m == nil {
		return nil
	}
	return &Account{
		ID:                    str(m["id"]),
		UserID:                str(m["userId"]),
		ProviderID:            str(m["providerId"]),
		AccountID:             str(m["accountId"]),
		AccessToken:           str(m["accessToken"]),
		RefreshToken:          str(m["refreshToken"]),
		AccessTokenExpiresAt:  tsPtr(m["accessTokenExpiresAt"]),
		RefreshTokenExpiresAt: tsPtr(m["refreshTokenExpiresAt"]),
		Scope:                 str(m["scope"]),
		Password:              str(m["password"]),
		CreatedAt:             ts(m["createdAt"]),
		UpdatedAt:             ts(m["updatedAt"]),
	}
}

// ToMap encodes an Account as an adapter record.
func (a *Account) ToMap() map[string]any {
	m := map[string]any{
		"id":           a.ID,
		"userId":       a.UserID,
		"providerId":   a.ProviderID,
		"accountId":    a.AccountID,
		"accessToken":  a.AccessToken,
		"refreshToken": a.RefreshToken,
		"scope":        a.Scope,
		"password":     a.Password,
		"createdAt":    a.CreatedAt,
		"updatedAt":    a.UpdatedAt,
	}
	if a.AccessTokenExpiresAt != nil {
		m["accessTokenExpiresAt"] = *a.AccessTokenExpiresAt
	}
	if a.RefreshTokenExpiresAt != nil {
		m["refreshTokenExpiresAt"] = *a.RefreshTokenExpiresAt
	}
	return m
}

// VerificationFromMap decodes an adapter record into a Verification.
func VerificationFromMap(m map[string]any) *Verification {
	if m == nil {
		return nil
	}
	return &Verification{
		ID:        str(m["id"]),
		Value:     str(m["value"]),
		ExpiresAt: ts(m["expiresAt"]),
		CreatedAt: ts(m["createdAt"]),
	}
}

// ToMap encodes a Verification as an adapter record.
func (v *Verification) ToMap() map[string]any {
	return map[string]any{
		"id":        v.ID,
		"value":     v.Value,
		"expiresAt": v.ExpiresAt,
		"createdAt": v.CreatedAt,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func ts(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, _ := time.Parse(time.RFC3339Nano, t)
		return parsed
	default:
		return time.Time{}
	}
}

func tsPtr(v any) *time.Time {
	t := ts(v)
	if t.IsZero() {
		return nil
	}
	return &t
}
