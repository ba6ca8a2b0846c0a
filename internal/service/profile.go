package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meganoshop/megano-server/internal/auth"
	"github.com/meganoshop/megano-server/internal/domain"
	domainerrors "github.com/meganoshop/megano-server/internal/errors"
	"github.com/meganoshop/megano-server/internal/store"
)

// ProfileService provides user profile management.
type ProfileService struct {
	store          store.Store
	sessionService *SessionService
	logger         *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(store store.Store, sessionService *SessionService, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		store:          store,
		sessionService: sessionService,
		logger:         logger,
	}
}

// Get returns a user's profile. The row always exists for a live user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// UpdateProfileRequest carries the editable contact fields.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=32"`
}

// Update overwrites the profile's contact fields.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	profile, err := s.store.UpdateProfile(ctx, userID, req.FullName, req.Email, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// ChangePasswordRequest carries the current and replacement passwords.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=1024"`
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every other session so a stolen refresh token dies with the old
// password.
func (s *ProfileService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := requestValidator.Validate(req); err != nil {
		return err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return domainerrors.InvalidCredentials("current password is incorrect")
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateUserPassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessionService.RevokeUserSessions(ctx, userID); err != nil {
		// The password changed; a session cleanup failure is not fatal.
		s.logger.Warn("failed to revoke sessions after password change", "user_id", userID, "error", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// UpdateAvatarRequest carries a stored avatar reference.
type UpdateAvatarRequest struct {
	Src string `json:"src" validate:"required,max=500"`
	Alt string `json:"alt" validate:"max=200"`
}

// UpdateAvatar replaces the profile's avatar reference.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, req UpdateAvatarRequest) (*domain.Profile, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	profile, err := s.store.UpdateAvatar(ctx, userID, &domain.Avatar{Src: req.Src, Alt: req.Alt})
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return profile, nil
}
