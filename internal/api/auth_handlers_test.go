package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/service"
)

func TestSignUp_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/sign-up", map[string]any{
		"name":     "Alice",
		"username": "alice",
		"password": "password123",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)

	var envelope testEnvelope[service.AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Positive(t, envelope.Data.ExpiresIn)
	assert.Equal(t, "alice", envelope.Data.User.Username)
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	ts := setupTestServer(t)
	signUpUser(t, ts, "alice")

	resp := ts.do(t, http.MethodPost, "/api/sign-up", map[string]any{
		"name":     "Other",
		"username": "alice",
		"password": "password456",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSignUp_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing username",
			body: map[string]any{"name": "Alice", "password": "password123"},
		},
		{
			name: "username too short",
			body: map[string]any{"name": "Alice", "username": "ab", "password": "password123"},
		},
		{
			name: "password too short",
			body: map[string]any{"name": "Alice", "username": "alice", "password": "short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/sign-up", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestSignIn_Success(t *testing.T) {
	ts := setupTestServer(t)
	signUpUser(t, ts, "alice")

	resp := ts.do(t, http.MethodPost, "/api/sign-in", map[string]any{
		"username": "alice",
		"password": "password123",
	})

	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "alice", envelope.Data.User.Username)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t)
	signUpUser(t, ts, "alice")

	resp := ts.do(t, http.MethodPost, "/api/sign-in", map[string]any{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// Unknown users read the same as a wrong password.
	resp = ts.do(t, http.MethodPost, "/api/sign-in", map[string]any{
		"username": "nobody",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignIn_MergesAnonymousBasket(t *testing.T) {
	ts := setupTestServer(t)
	product := seedProduct(t, ts, "Keyboard", "45.00", 10)
	signUpUser(t, ts, "alice")

	// Fill an anonymous basket.
	resp := ts.do(t, http.MethodPost, "/api/basket", map[string]any{
		"id":    product.ID,
		"count": 2,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	cookie := basketCookieFrom(resp)
	require.NotNil(t, cookie)

	// Sign in with the cookie present.
	resp = ts.do(t, http.MethodPost, "/api/sign-in", map[string]any{
		"username": "alice",
		"password": "password123",
	}, withCookie(cookie))
	require.Equal(t, http.StatusOK, resp.Code)

	// The merge consumed the anonymous basket; the cookie is expired.
	expired := basketCookieFrom(resp)
	require.NotNil(t, expired)
	assert.Empty(t, expired.Value)
	assert.Negative(t, expired.MaxAge)

	var auth testEnvelope[service.AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &auth))

	// The user's basket now holds the transferred line.
	resp = ts.do(t, http.MethodGet, "/api/basket", nil, withToken(auth.Data.AccessToken))
	require.Equal(t, http.StatusOK, resp.Code)

	var basket testEnvelope[[]domain.BasketItem]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &basket))
	require.Len(t, basket.Data, 1)
	assert.Equal(t, product.ID, basket.Data[0].ProductID)
	assert.Equal(t, 2, basket.Data[0].Quantity)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ts := setupTestServer(t)
	auth := signUpUser(t, ts, "alice")

	resp := ts.do(t, http.MethodPost, "/api/token/refresh", map[string]any{
		"refresh_token": auth.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[service.AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.NotEqual(t, auth.RefreshToken, envelope.Data.RefreshToken)

	// The old refresh token is dead after rotation.
	resp = ts.do(t, http.MethodPost, "/api/token/refresh", map[string]any{
		"refresh_token": auth.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignOut(t *testing.T) {
	ts := setupTestServer(t)
	auth := signUpUser(t, ts, "alice")

	resp := ts.do(t, http.MethodPost, "/api/sign-out", map[string]any{
		"refresh_token": auth.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	// The session is gone.
	resp = ts.do(t, http.MethodPost, "/api/token/refresh", map[string]any{
		"refresh_token": auth.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// Signing out twice is fine.
	resp = ts.do(t, http.MethodPost, "/api/sign-out", map[string]any{
		"refresh_token": auth.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSignIn_RateLimited(t *testing.T) {
	ts := setupTestServer(t)

	// The per-IP bucket allows a burst of 5; the sixth attempt in quick
	// succession is rejected.
	last := 0
	for range 6 {
		resp := ts.do(t, http.MethodPost, "/api/sign-in", map[string]any{
			"username": "nobody",
			"password": "password123",
		})
		last = resp.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
