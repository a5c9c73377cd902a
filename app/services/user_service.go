package services

import (
	"context"
	"errors"

	"github.com/teastall/teastall/app/models"
	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/pkg/auth"
	"github.com/teastall/teastall/pkg/logger"
)

type UserService struct {
	users repositories.UserRepository
	// secretHash returns the bcrypt hash make-admin compares against.
	secretHash func() string
}

func NewUserService(users repositories.UserRepository) *UserService {
	return &UserService{users: users, secretHash: config.AdminPromotionSecretHash}
}

// WithSecretHash overrides where the promotion secret hash comes from.
func (s *UserService) WithSecretHash(fn func() string) *UserService {
	s.secretHash = fn
	return s
}

// Sync records the caller on first sight and returns the stored user.
func (s *UserService) Sync(ctx context.Context, id auth.Identity) (*models.User, error) {
	return s.users.Upsert(ctx, id.UserID, id.Email)
}

// Role returns the stored role, or "user" for callers never synced.
func (s *UserService) Role(ctx context.Context, externalID string) (string, error) {
	u, err := s.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, repositories.ErrNotFound) {
		return auth.RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	if u.Role == "" {
		return auth.RoleUser, nil
	}
	return u.Role, nil
}

// RoleOf lets middleware.Auth prefer stored roles over token claims.
// Unknown users yield ErrUserNotFound so the token claim stays in force.
func (s *UserService) RoleOf(ctx context.Context, externalID string) (string, error) {
	u, err := s.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// PromoteToAdmin grants the admin role to every user with email when secret
// matches the configured hash.
func (s *UserService) PromoteToAdmin(ctx context.Context, email, secret string) error {
	hash := s.secretHash()
	if hash == "" || !auth.CheckSecret(hash, secret) {
		return ErrForbidden
	}
	if err := s.users.SetRoleByEmail(ctx, email, auth.RoleAdmin); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.WithCtx(ctx).Info("user promoted to admin", "email", email)
	return nil
}
