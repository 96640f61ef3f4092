package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yellowgoat/authsvc/internal/auth/domain"
	"github.com/yellowgoat/authsvc/internal/auth/store"
	"github.com/yellowgoat/authsvc/pkg/cryptox"
	"github.com/yellowgoat/authsvc/pkg/idx"
	"github.com/yellowgoat/authsvc/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService creates the first admin account on an empty store.
// There is no self-service signup; after bootstrap, admins create every
// further account.
type BootstrapService struct {
	Store store.Store
	Token string // pre-configured bootstrap token, empty disables the check
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the initial admin user. When req.AdminPassword is
// empty a random one is generated and returned exactly once.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req domain.BootstrapData) (userID, password string, err error) {
	l := slogx.FromContext(ctx)

	if bootstrapped, _ := s.IsBootstrapped(ctx); bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return "", "", ErrBootstrapAlready
	}

	if s.Token != "" && token != s.Token {
		l.Warn("unauthorized bootstrap attempt")
		return "", "", ErrBootstrapUnauthorized
	}

	password = req.AdminPassword
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			l.Error("failed to generate admin password", slog.Any("error", err))
			return "", "", err
		}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", "", err
	}

	userID = idx.New().String()
	err = s.Store.Users().CreateUser(ctx, domain.User{
		ID:           userID,
		Username:     req.AdminUsername,
		Email:        req.AdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		l.Error("failed to create admin user", slog.Any("error", err))
		return "", "", err
	}

	l.Info("system bootstrapped", slog.String("admin_user_id", userID))
	return userID, password, nil
}
