package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A pending-challenge token must never be accepted where
// a session token is required, so every token carries an explicit
// purpose claim and verifiers check it.
const (
	PurposeSession   = "session"
	PurposeChallenge = "2fa-pending"
)

// Default token TTLs. The pending-challenge window is deliberately
// short; it only has to cover the user typing a 6-digit code.
const (
	DefaultSessionTTL   = 24 * time.Hour
	DefaultChallengeTTL = 5 * time.Minute
)

// Claims are the signed claims carried by both session and
// pending-challenge tokens. Subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the authenticated user.
	Username string `json:"username,omitempty"`

	// Role as stored on the user record at issue time. Only present on
	// session tokens; a pending challenge has not fully authenticated
	// yet, so it carries no role.
	Role string `json:"role,omitempty"`

	// Purpose discriminates session tokens from pending-challenge
	// tokens ("session" or "2fa-pending").
	Purpose string `json:"purpose"`
}

// NewSessionClaims builds the claims for a full session token.
func NewSessionClaims(userID, username, role, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(userID, username, issuer, ttl, now)
	c.Role = role
	c.Purpose = PurposeSession
	return c
}

// NewChallengeClaims builds the claims for a pending 2FA challenge
// token. It intentionally omits the role.
func NewChallengeClaims(userID, username, issuer string, ttl time.Duration, now time.Time) Claims {
	c := newClaims(userID, username, issuer, ttl, now)
	c.Purpose = PurposeChallenge
	return c
}

func newClaims(userID, username, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
	}
}

// RequirePurpose checks the purpose discriminant. This is what stops a
// leaked pending-challenge token from being replayed as a session.
func (c *Claims) RequirePurpose(purpose string) error {
	if c.Purpose != purpose {
		return ErrPurpose
	}
	return nil
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
