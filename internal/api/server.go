// Package api provides the HTTP API server and handlers for the Megano storefront.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meganoshop/megano-server/internal/ratelimit"
	"github.com/meganoshop/megano-server/internal/service"
)

// CookieSettings controls the anonymous basket cookie.
type CookieSettings struct {
	Name string
	TTL  time.Duration
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService    *service.AuthService
	basketService  *service.BasketService
	catalogService *service.CatalogService
	orderService   *service.OrderService
	profileService *service.ProfileService
	basketCookie   CookieSettings
	authLimiter    *ratelimit.KeyedRateLimiter
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	authService *service.AuthService,
	basketService *service.BasketService,
	catalogService *service.CatalogService,
	orderService *service.OrderService,
	profileService *service.ProfileService,
	basketCookie CookieSettings,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:    authService,
		basketService:  basketService,
		catalogService: catalogService,
		orderService:   orderService,
		profileService: profileService,
		basketCookie:   basketCookie,
		// 10 credential attempts per minute per IP, small burst for retries.
		authLimiter: ratelimit.New(10.0/60.0, 5),
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.authLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		// Auth endpoints (public, rate limited per IP).
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimitByIP)
			r.Post("/sign-up", s.handleSignUp)
			r.Post("/sign-in", s.handleSignIn)
		})
		r.Post("/sign-out", s.handleSignOut)
		r.Post("/token/refresh", s.handleRefresh)

		// Catalog (public).
		r.Get("/catalog", s.handleListCatalog)
		r.Get("/categories", s.handleListCategories)
		r.Get("/tags", s.handleListTags)
		r.Get("/product/{id}", s.handleGetProduct)
		r.Post("/product/{id}/reviews", s.handleCreateReview)

		// Basket works for both anonymous and signed-in callers.
		r.Route("/basket", func(r chi.Router) {
			r.Use(s.withOptionalAuth)
			r.Get("/", s.handleGetBasket)
			r.Post("/", s.handleAddToBasket)
			r.Delete("/", s.handleRemoveFromBasket)
		})

		// Orders (require auth).
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/orders", s.handleCheckout)
			r.Get("/orders", s.handleListOrders)
			r.Get("/order/{id}", s.handleGetOrder)
			r.Post("/order/{id}", s.handleConfirmOrder)
			r.Post("/payment/{id}", s.handlePayment)
		})

		// Profile (require auth).
		r.Route("/profile", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleGetProfile)
			r.Post("/", s.handleUpdateProfile)
			r.Post("/password", s.handleChangePassword)
			r.Post("/avatar", s.handleUpdateAvatar)
		})
	})
}
