package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/pkg/cryptox"
	"github.com/yellowgoat/authsvc/pkg/jwtx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

var (
	// ErrUserNotFound is returned when the username does not exist.
	// Keeping this distinct from ErrInvalidPassword is a deliberate
	// trade-off inherited from the product: clearer client messages at
	// the cost of a minor user-enumeration risk. Deployments wanting
	// hardened behavior should collapse both into one generic error at
	// the transport layer.
	ErrUserNotFound = errors.New("user_not_found")

	// ErrInvalidPassword is returned on a password mismatch.
	ErrInvalidPassword = errors.New("invalid_password")

	// ErrInvalidChallenge is returned when the pending 2FA token is
	// missing, malformed, expired, or not a challenge-purpose token.
	ErrInvalidChallenge = errors.New("invalid_or_expired_challenge")

	// ErrInvalidTwoFactorCode is returned when the submitted TOTP code
	// does not match within the accepted step window.
	ErrInvalidTwoFactorCode = errors.New("invalid_two_factor_code")

	// ErrStorageFailure is returned when a credential store write did
	// not succeed. No partial state is left behind.
	ErrStorageFailure = errors.New("storage_failure")
)

// AuthService is the authentication state machine: password login,
// optional 2FA challenge, and session issuance. It holds no per-login
// state; everything between steps travels inside the signed tokens, so
// concurrent logins need no coordination.
type AuthService struct {
	Store    store.Store
	Signer   *jwtx.Signer
	Verifier *jwtx.Verifier
	Issuer   string

	SessionTTL   time.Duration // full session lifetime (24h default)
	ChallengeTTL time.Duration // pending 2FA window (5m default)
}

// Login checks the password for username and either issues a session
// (2FA disabled) or a short-lived pending-challenge token (2FA
// enabled). The caller never sees the password hash or TOTP secret.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrUserNotFound
		}
		return domain.LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		l.Info("password verification failed", slog.String("username", username))
		return domain.LoginResult{}, ErrInvalidPassword
	}

	if user.TwoFAEnabled {
		pending, err := s.Signer.Sign(jwtx.NewChallengeClaims(
			user.ID, user.Username, s.Issuer, s.challengeTTL(), now,
		))
		if err != nil {
			return domain.LoginResult{}, fmt.Errorf("sign challenge token: %w", err)
		}
		l.Info("2fa challenge issued", slog.String("user_id", user.ID))
		return domain.LoginResult{
			TwoFactorRequired: true,
			PendingToken:      pending,
			User:              user.Public(),
		}, nil
	}

	session, err := s.issueSession(user, now)
	if err != nil {
		return domain.LoginResult{}, err
	}
	l.Info("login succeeded", slog.String("user_id", user.ID))
	return domain.LoginResult{Session: session, User: user.Public()}, nil
}

// VerifyTwoFactor completes a pending challenge. The user is re-fetched
// by the token's subject claim and the code is checked against the
// *stored* secret; nothing submitted by the caller is trusted beyond
// the code itself.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, pendingToken, code string) (domain.LoginResult, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(pendingToken)
	if err != nil {
		l.Info("challenge token rejected", slog.Any("err", err))
		return domain.LoginResult{}, ErrInvalidChallenge
	}
	if claims.RequirePurpose(jwtx.PurposeChallenge) != nil {
		l.Warn("non-challenge token presented to 2fa verification",
			slog.String("purpose", claims.Purpose))
		return domain.LoginResult{}, ErrInvalidChallenge
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidChallenge
		}
		return domain.LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if !user.TwoFAEnabled || user.TOTPSecret == nil {
		// 2FA was disabled between steps; the challenge no longer applies.
		return domain.LoginResult{}, ErrInvalidChallenge
	}

	if !validateTOTP(code, *user.TOTPSecret, now) {
		l.Info("invalid 2fa code", slog.String("user_id", user.ID))
		return domain.LoginResult{}, ErrInvalidTwoFactorCode
	}

	session, err := s.issueSession(user, now)
	if err != nil {
		return domain.LoginResult{}, err
	}
	l.Info("2fa verification succeeded", slog.String("user_id", user.ID))
	return domain.LoginResult{Session: session, User: user.Public()}, nil
}

// Authorize validates a raw bearer token for protected-resource use.
// Only session-purpose tokens pass; a pending-challenge token is
// rejected with ErrPurpose even inside its validity window.
func (s *AuthService) Authorize(rawToken string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(rawToken)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if err := claims.RequirePurpose(jwtx.PurposeSession); err != nil {
		return jwtx.Claims{}, err
	}
	return claims, nil
}

// issueSession signs a session token. The role is always taken from the
// freshly-loaded user record, never from caller input.
func (s *AuthService) issueSession(user domain.User, now time.Time) (*domain.Session, error) {
	ttl := s.sessionTTL()
	token, err := s.Signer.Sign(jwtx.NewSessionClaims(
		user.ID, user.Username, string(user.Role), s.Issuer, ttl, now,
	))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &domain.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (s *AuthService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTTL
}

func (s *AuthService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return jwtx.DefaultChallengeTTL
}
