package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meganoshop/megano-server/internal/auth"
	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/store/sqlite"
)

const testTokenKey = "2b7e151628aed2a6abf7158809cf4f3c762e7160f38b4da56a784d9045190cfe"

// testServices bundles the wired services backed by a temporary store.
type testServices struct {
	store   *sqlite.Store
	auth    *AuthService
	session *SessionService
	basket  *BasketService
	catalog *CatalogService
	order   *OrderService
	profile *ProfileService
}

// setupServices creates the full service graph on a temp SQLite store.
func setupServices(t *testing.T) *testServices {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := sqlite.Open(dbPath, "USD", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokenService, err := auth.NewTokenService(testTokenKey, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	sessionService := NewSessionService(s, tokenService, logger)
	pricing := DeliveryPricing{
		FreeDeliveryThreshold: domain.MustMoney("20.00", "USD"),
		OrdinaryCost:          domain.MustMoney("2.00", "USD"),
		ExpressCost:           domain.MustMoney("5.00", "USD"),
	}

	return &testServices{
		store:   s,
		auth:    NewAuthService(s, tokenService, sessionService, logger),
		session: sessionService,
		basket:  NewBasketService(s, logger),
		catalog: NewCatalogService(s, logger),
		order:   NewOrderService(s, pricing, logger),
		profile: NewProfileService(s, sessionService, logger),
	}
}

// createProduct seeds a product through the store for service tests.
func createProduct(t *testing.T, svc *testServices, title, price string, stock int) *domain.Product {
	t.Helper()
	ctx := context.Background()
	category, err := svc.store.CreateCategory(ctx, "cat-"+title)
	require.NoError(t, err)
	p, err := svc.store.CreateProduct(ctx, &domain.Product{
		Title:      title,
		Price:      domain.MustMoney(price, "USD"),
		Stock:      stock,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return p
}

// signUp registers a user and returns the auth response.
func signUp(t *testing.T, svc *testServices, username string) *AuthResponse {
	t.Helper()
	resp, err := svc.auth.SignUp(context.Background(), SignUpRequest{
		Name:     "Test",
		Username: username,
		Password: "password123",
	})
	require.NoError(t, err)
	return resp
}
