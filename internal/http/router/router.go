package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/winefeed/winefeed-api/internal/auth"
	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/database"
	"github.com/winefeed/winefeed-api/internal/http/handler"
	"github.com/winefeed/winefeed-api/internal/http/middleware"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	actorHandler   *handler.ActorHandler
	offerHandler   *handler.OfferHandler
	orderHandler   *handler.OrderHandler
	matchHandler   *handler.MatchHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	actorHandler *handler.ActorHandler,
	offerHandler *handler.OfferHandler,
	orderHandler *handler.OrderHandler,
	matchHandler *handler.MatchHandler,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		actorHandler:   actorHandler,
		offerHandler:   offerHandler,
		orderHandler:   orderHandler,
		matchHandler:   matchHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database readiness probe
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", metrics.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.RequireAuth)

		// Caller identity
		r.Get("/auth/me", rt.actorHandler.Me)

		// Offers
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", rt.offerHandler.Create)
			r.Get("/{id}", rt.offerHandler.GetByID)
			r.Put("/{id}", rt.offerHandler.Update)
			r.Put("/{id}/lines", rt.offerHandler.UpdateLines)

			// Lifecycle endpoints
			r.Post("/{id}/send", rt.offerHandler.Send)
			r.Post("/{id}/accept", rt.offerHandler.Accept)
			r.Post("/{id}/reject", rt.offerHandler.Reject)
		})

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Post("/from-offer/{offerId}", rt.orderHandler.CreateFromOffer)
			r.Get("/{id}", rt.orderHandler.GetByID)
			r.Post("/{id}/status", rt.orderHandler.SetStatus)
			r.Post("/{id}/confirm", rt.orderHandler.Confirm)
			r.Post("/{id}/decline", rt.orderHandler.Decline)
			r.Post("/{id}/import-case", rt.orderHandler.LinkImportCase)
		})

		// Importer of record views
		r.Get("/importers/{importerId}/orders", rt.orderHandler.ListForImporter)

		// Product matching
		r.Route("/matching", func(r chi.Router) {
			r.Post("/resolve", rt.matchHandler.Resolve)
			r.Get("/history", rt.matchHandler.History)
		})
	})

	return r
}
