// Package api wires the HTTP handlers and middleware into a chi router.
package api

import (
	"net/http"
	"time"

	"catalog-service/internal/api/handlers"
	"catalog-service/internal/api/middleware"
	"catalog-service/internal/metrics"
	"catalog-service/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Credentials is satisfied by auth.CredentialService.
type Credentials interface {
	handlers.Authenticator
	handlers.AccountManager
}

type Dependencies struct {
	Guard        middleware.Authorizer
	Credentials  Credentials
	Catalog      service.CatalogService
	Orders       service.OrderService
	LoginLimiter *middleware.RateLimiter
	Log          logrus.FieldLogger

	// TrustProxy takes the client address from X-Real-IP or
	// X-Forwarded-For. Only set it behind a proxy that overwrites them,
	// otherwise clients choose their own login rate limit bucket.
	TrustProxy bool
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authHandler := handlers.NewAuthHandler(deps.Credentials)
	userHandler := handlers.NewUserHandler(deps.Credentials)
	categoryHandler := handlers.NewCategoryHandler(deps.Catalog)
	productHandler := handlers.NewProductHandler(deps.Catalog)
	orderHandler := handlers.NewOrderHandler(deps.Orders)

	requireAuth := middleware.RequireAuthenticated(deps.Guard)
	requireAdmin := middleware.RequireAdmin(deps.Guard)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.LoginLimiter != nil {
				r.With(deps.LoginLimiter.Handler).Post("/login", authHandler.Login)
			} else {
				r.Post("/login", authHandler.Login)
			}
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", userHandler.GetAll)
			r.Post("/", userHandler.Create)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.GetAll)
			r.With(requireAdmin).Post("/", categoryHandler.Create)
			r.With(requireAdmin).Delete("/{id}", categoryHandler.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.GetAll)
			r.Get("/{id}", productHandler.GetByID)
			r.With(requireAdmin).Post("/", productHandler.Create)
			r.With(requireAdmin).Put("/{id}", productHandler.Update)
			r.With(requireAdmin).Delete("/{id}", productHandler.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(requireAuth).Get("/", orderHandler.GetAll)
			r.With(requireAuth).Get("/{id}", orderHandler.GetByID)
			r.With(requireAdmin).Put("/{id}/status", orderHandler.UpdateStatus)
		})
	})

	return r
}
