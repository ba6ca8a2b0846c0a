package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/meganoshop/megano-server/internal/errors"
)

func TestProfileUpdate(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user := signUp(t, svc, "alice").User

	// The profile row exists immediately after sign-up.
	profile, err := svc.profile.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", profile.FullName)

	profile, err = svc.profile.Update(ctx, user.ID, UpdateProfileRequest{
		FullName: "Alice Cooper",
		Email:    "alice@example.com",
		Phone:    "+15550002222",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", profile.FullName)
	assert.Equal(t, "alice@example.com", profile.Email)

	_, err = svc.profile.Update(ctx, user.ID, UpdateProfileRequest{
		FullName: "Alice",
		Email:    "not-an-email",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	resp := signUp(t, svc, "bob")
	user := resp.User

	// Wrong current password.
	err := svc.profile.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword99",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	err = svc.profile.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "newpassword99",
	})
	require.NoError(t, err)

	// Old password is dead, new one works.
	_, err = svc.auth.SignIn(ctx, SignInRequest{Username: "bob", Password: "password123"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	_, err = svc.auth.SignIn(ctx, SignInRequest{Username: "bob", Password: "newpassword99"})
	assert.NoError(t, err)

	// Existing sessions are revoked with the password.
	_, err = svc.auth.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestUpdateAvatar(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()

	user := signUp(t, svc, "carol").User

	profile, err := svc.profile.UpdateAvatar(ctx, user.ID, UpdateAvatarRequest{
		Src: "/media/avatars/carol.png",
		Alt: "Carol",
	})
	require.NoError(t, err)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, "/media/avatars/carol.png", profile.Avatar.Src)

	_, err = svc.profile.UpdateAvatar(ctx, user.ID, UpdateAvatarRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
