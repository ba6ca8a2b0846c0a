package store

import (
	"context"
	"time"

	"github.com/meganoshop/megano-server/internal/domain"
)

// Store is the persistence interface the services depend on.
// The SQLite implementation lives in the sqlite subpackage.
type Store interface {
	// Users
	CreateUser(ctx context.Context, username, passwordHash, firstName string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	TouchUserLogin(ctx context.Context, userID string, at time.Time) error

	// Sessions. CreateLoginSession also merges the client's anonymous
	// basket into the user's basket, in the same transaction as the
	// session insert.
	CreateLoginSession(ctx context.Context, userID, refreshTokenHash, ipAddress string, expiresAt time.Time, anonymousToken string) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetSessionByRefreshHash(ctx context.Context, refreshTokenHash string) (*domain.Session, error)
	RotateSession(ctx context.Context, sessionID, refreshTokenHash string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Profiles
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID, fullName, email, phone string) (*domain.Profile, error)
	UpdateAvatar(ctx context.Context, userID string, avatar *domain.Avatar) (*domain.Profile, error)

	// Catalog
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateTag(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	SetProductStock(ctx context.Context, productID string, stock int) error
	CreateReview(ctx context.Context, review *domain.Review) ([]domain.Review, error)
	ListReviews(ctx context.Context, productID string) ([]domain.Review, error)

	// Baskets
	GetOrCreateBasket(ctx context.Context, identity domain.BasketIdentity) (*domain.Basket, error)
	ListBasketItems(ctx context.Context, basketID string) ([]domain.BasketItem, error)
	AddQuantity(ctx context.Context, basketID, productID string, delta int) ([]domain.BasketItem, error)
	RemoveQuantity(ctx context.Context, basketID, productID string, delta int) ([]domain.BasketItem, error)
	ClearBasketLines(ctx context.Context, basketID string) error
	DeleteBasket(ctx context.Context, basketID string) error

	// Orders
	CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	ReplaceOrderSnapshot(ctx context.Context, o *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOpenOrder(ctx context.Context, userID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	ConfirmOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string) (*domain.Order, error)

	Close() error
}
