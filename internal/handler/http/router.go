package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/FarmMarket/internal/repository"
	"github.com/utafrali/FarmMarket/internal/service"
	"github.com/utafrali/FarmMarket/pkg/health"
	"github.com/utafrali/FarmMarket/pkg/middleware"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Products *service.ProductService
	Orders   *service.OrderService
	Reviews  *service.ReviewService
	Admin    *service.AdminService
	Stats    *service.StatsService
	Profile  *service.ProfileService
}

// RouterConfig holds edge settings. A zero RateLimitRPS disables rate limiting.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all marketplace routes registered.
// users resolves token subjects to accounts; ctx bounds background work of
// the middleware stack.
func NewRouter(
	ctx context.Context,
	svcs Services,
	users repository.UserRepository,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
	}
	r.Use(middleware.PrometheusMetrics("farmmarket"))
	r.Use(middleware.Tracing("farmmarket"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Authenticated routes re-derive the request logger so it carries the caller.
	authenticated := chi.Chain(Authenticate(validate, users, logger), middleware.RequestLogger(logger))
	optional := chi.Chain(OptionalAuthenticate(validate, users, logger), middleware.RequestLogger(logger))

	productHandler := NewProductHandler(svcs.Products, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	adminHandler := NewAdminHandler(svcs.Admin, logger)
	statsHandler := NewStatsHandler(svcs.Stats, logger)
	profileHandler := NewProfileHandler(svcs.Profile, logger)

	r.Route("/api/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", productHandler.ListProducts)
		r.With(optional...).Get("/{id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authenticated...)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authenticated...)

		r.Post("/", orderHandler.CreateOrder)
		r.Get("/user", orderHandler.ListOwnOrders)
		r.Get("/farmer", orderHandler.ListFarmerOrders)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
	})

	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/product/{id}", reviewHandler.ListProductReviews)

		r.Group(func(r chi.Router) {
			r.Use(authenticated...)
			r.Post("/", reviewHandler.CreateReview)
			r.Get("/my-reviews", reviewHandler.ListOwnReviews)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authenticated...)

		r.Get("/users", adminHandler.ListUsers)
		r.Put("/users/{id}/approve", adminHandler.ApproveUser)
		r.Put("/users/{id}/block", adminHandler.BlockUser)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
		r.Get("/products", productHandler.ListAllProducts)
		r.Get("/orders", orderHandler.ListAllOrders)
		r.Get("/stats", adminHandler.Stats)
	})

	r.Route("/api/farmer", func(r chi.Router) {
		r.Use(authenticated...)

		r.Get("/products", productHandler.ListOwnProducts)
		r.Delete("/products/{id}", productHandler.DeleteOwnProduct)
		r.Get("/stats", statsHandler.FarmerStats)
	})

	r.Route("/api/customer", func(r chi.Router) {
		r.Use(authenticated...)

		r.Get("/stats", statsHandler.CustomerStats)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authenticated...)

		r.Get("/me", profileHandler.GetProfile)
		r.Put("/me", profileHandler.UpdateProfile)
	})

	return r
}
