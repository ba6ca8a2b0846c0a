package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meganoshop/megano-server/internal/auth"
	"github.com/meganoshop/megano-server/internal/domain"
	domainerrors "github.com/meganoshop/megano-server/internal/errors"
	"github.com/meganoshop/megano-server/internal/store"
)

// AuthService handles account creation and credential verification.
// Session management is delegated to SessionService.
type AuthService struct {
	store          store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		logger:         logger,
	}
}

// SignUpRequest contains the registration data.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=1024"`

	// AnonymousBasketToken comes from the basket cookie, not the body.
	AnonymousBasketToken string `json:"-"`
	IPAddress            string `json:"-"`
}

// SignInRequest contains user credentials.
type SignInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`

	AnonymousBasketToken string `json:"-"`
	IPAddress            string `json:"-"`
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// SignUp creates a new account and signs the user in. Any anonymous basket
// carried by the client becomes the new user's basket.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := s.store.CreateUser(ctx, username, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("username already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// The basket built before registering follows the user in; the merge
	// commits together with the session, so a failed sign-up keeps the
	// anonymous basket usable.
	sessionResp, err := s.sessionService.CreateLoginSession(ctx, user, req.IPAddress, req.AnonymousBasketToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user signed up", "user_id", user.ID, "username", user.Username)

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// SignIn authenticates a user and creates a new session. The anonymous
// basket (if any) is reconciled into the user's basket in the same call, so
// the first basket read after sign-in already reflects the merge.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the username exists.
			return nil, domainerrors.InvalidCredentials("invalid username or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}

	if err := s.store.TouchUserLogin(ctx, user.ID, time.Now()); err != nil {
		// Log but don't fail the sign-in.
		s.logger.Warn("failed to update last login time", "user_id", user.ID, "error", err)
	}

	// Merge and session persistence commit together; if either fails the
	// anonymous basket stays intact for the next attempt.
	sessionResp, err := s.sessionService.CreateLoginSession(ctx, user, req.IPAddress, req.AnonymousBasketToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID)

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// SignOut revokes the session holding the refresh token.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	return s.sessionService.RevokeSession(ctx, refreshToken)
}

// Refresh rotates the tokens for a session.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := requestValidator.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// VerifyAccessToken validates a bearer token and loads its user.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}
