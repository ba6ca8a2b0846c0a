package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meganoshop/megano-server/internal/auth"
	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/service"
	"github.com/meganoshop/megano-server/internal/store/sqlite"
)

const testTokenKey = "2b7e151628aed2a6abf7158809cf4f3c762e7160f38b4da56a784d9045190cfe"

// testEnvelope mirrors response.Envelope with typed data for assertions.
type testEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testServer wraps the API server with direct store access for seeding.
type testServer struct {
	*Server
	store *sqlite.Store
}

// setupTestServer creates a test server with all dependencies on a temp
// database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := sqlite.Open(dbPath, "USD", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokenService, err := auth.NewTokenService(testTokenKey, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	sessionService := service.NewSessionService(s, tokenService, logger)
	authService := service.NewAuthService(s, tokenService, sessionService, logger)
	pricing := service.DeliveryPricing{
		FreeDeliveryThreshold: domain.MustMoney("20.00", "USD"),
		OrdinaryCost:          domain.MustMoney("2.00", "USD"),
		ExpressCost:           domain.MustMoney("5.00", "USD"),
	}

	server := NewServer(
		authService,
		service.NewBasketService(s, logger),
		service.NewCatalogService(s, logger),
		service.NewOrderService(s, pricing, logger),
		service.NewProfileService(s, sessionService, logger),
		CookieSettings{Name: "basket_token", TTL: 7 * 24 * time.Hour},
		logger,
	)
	t.Cleanup(server.Close)

	return &testServer{Server: server, store: s}
}

// requestOptions carry per-request auth and cookie state.
type requestOptions struct {
	token   string
	cookies []*http.Cookie
}

func withToken(token string) func(*requestOptions) {
	return func(o *requestOptions) { o.token = token }
}

func withCookie(c *http.Cookie) func(*requestOptions) {
	return func(o *requestOptions) { o.cookies = append(o.cookies, c) }
}

// do runs one request through the full router.
func (ts *testServer) do(t *testing.T, method, path string, body any, opts ...func(*requestOptions)) *httptest.ResponseRecorder {
	t.Helper()

	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	for _, c := range o.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)
	return w
}

// basketCookieFrom extracts the basket token cookie from a response, if set.
func basketCookieFrom(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == "basket_token" {
			return c
		}
	}
	return nil
}

// seedProduct creates a category and product directly through the store.
func seedProduct(t *testing.T, ts *testServer, title, price string, stock int) *domain.Product {
	t.Helper()
	ctx := context.Background()
	category, err := ts.store.CreateCategory(ctx, "cat-"+title)
	require.NoError(t, err)
	p, err := ts.store.CreateProduct(ctx, &domain.Product{
		Title:      title,
		Price:      domain.MustMoney(price, "USD"),
		Stock:      stock,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return p
}

// signUpUser registers a user through the API and returns the auth response.
func signUpUser(t *testing.T, ts *testServer, username string) service.AuthResponse {
	t.Helper()

	resp := ts.do(t, http.MethodPost, "/api/sign-up", map[string]any{
		"name":     "Test",
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var envelope testEnvelope[service.AuthResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}
