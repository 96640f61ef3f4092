package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/pkg/slogx"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod     = 30 // seconds per time step
	totpSecretSize = 20 // bytes of secret entropy (160 bits)

	// totpSkew is the accepted window in steps on either side of the
	// current one, tolerating clock drift and submission latency.
	totpSkew = 2
)

// MFAService handles TOTP enrollment and enablement. Enrollment is a
// pure generation step; nothing touches the store until the secret is
// explicitly committed via EnableTwoFactor.
type MFAService struct {
	Store  store.Store
	Issuer string // issuer name embedded in provisioning URIs
}

// EnrollTwoFactor generates a fresh TOTP secret and provisioning URI
// for the user. It has no persistent side effect and is safe to call
// repeatedly; only EnableTwoFactor commits.
func (s *MFAService) EnrollTwoFactor(ctx context.Context, userID string) (domain.TwoFactorEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TwoFactorEnrollment{}, ErrUserNotFound
		}
		return domain.TwoFactorEnrollment{}, fmt.Errorf("load user: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	return domain.TwoFactorEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// EnableTwoFactor commits the secret and flips two_fa_enabled in a
// single transactional write. The two fields are never observed
// partially updated; any write failure maps to ErrStorageFailure.
func (s *MFAService) EnableTwoFactor(ctx context.Context, userID, secret string) error {
	l := slogx.FromContext(ctx)

	if secret == "" {
		return ErrStorageFailure
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdateTwoFactor(ctx, userID, secret, true)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		l.Error("failed to enable 2fa", slog.String("user_id", userID), slog.Any("err", err))
		return ErrStorageFailure
	}

	l.Info("2fa enabled", slog.String("user_id", userID))
	return nil
}

// validateTOTP checks a submitted 6-digit code against the stored
// base32 secret, accepting matches within ±totpSkew steps of the
// current one. Malformed codes validate false rather than erroring.
func validateTOTP(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
