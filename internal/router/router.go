package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/config"
	"github.com/tapntake/api/internal/handler"
	"github.com/tapntake/api/internal/metrics"
	mw "github.com/tapntake/api/internal/middleware"
	"github.com/tapntake/api/internal/payment"
	"github.com/tapntake/api/internal/service"
	"github.com/tapntake/api/internal/ws"
)

// AdminStore covers login and account management.
// Satisfied by *database.Queries.
type AdminStore interface {
	handler.AuthStore
	handler.AdminStore
}

// Deps are the constructed services the routes are served from.
type Deps struct {
	Admins   AdminStore
	Orders   *service.OrderService
	Carts    handler.CartServicer
	Catalog  *catalog.Catalog
	Webhooks handler.WebhookVerifier
	Dedupe   payment.Deduper
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	orderHandler := handler.NewOrderHandler(d.Orders, cfg.Location())

	r.Route("/api", func(r chi.Router) {
		// Public routes
		handler.NewAuthHandler(d.Admins, cfg.JWTSecret).RegisterRoutes(r)
		handler.NewCatalogHandler(d.Catalog).RegisterRoutes(r)
		handler.NewCartHandler(d.Carts).RegisterRoutes(r)
		handler.NewCheckoutHandler(d.Orders, d.Webhooks, d.Dedupe, d.Metrics).RegisterRoutes(r)
		orderHandler.RegisterPublicRoutes(r)

		// WebSocket routes (admin feed checks its token internally)
		ws.NewServer(d.Hub, d.Orders, cfg.JWTSecret).RegisterRoutes(r)

		// Staff routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireStaff())
			orderHandler.RegisterRoutes(r)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireAdmin())
			handler.NewAdminHandler(d.Admins).RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
