package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/straye-as/opportunity-sync/docs" // Import generated swagger docs
	"github.com/straye-as/opportunity-sync/internal/config"
	"github.com/straye-as/opportunity-sync/internal/http/handler"
	"github.com/straye-as/opportunity-sync/internal/http/middleware"
	"go.uber.org/zap"
)

// BasePath prefixes every API route
const BasePath = "/api/v1/opportunity-sync"

type Router struct {
	cfg                    *config.Config
	logger                 *zap.Logger
	rateLimiter            *middleware.RateLimiter
	opportunitySyncHandler *handler.OpportunitySyncHandler
	healthHandler          *handler.HealthHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	rateLimiter *middleware.RateLimiter,
	opportunitySyncHandler *handler.OpportunitySyncHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	return &Router{
		cfg:                    cfg,
		logger:                 logger,
		rateLimiter:            rateLimiter,
		opportunitySyncHandler: opportunitySyncHandler,
		healthHandler:          healthHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Liveness and readiness
	r.Get("/health", rt.healthHandler.Health)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route(BasePath, func(r chi.Router) {
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}
		r.Get("/health", rt.healthHandler.Health)

		r.Post("/match", rt.opportunitySyncHandler.StartMatching)
		r.Get("/match/{id}", rt.opportunitySyncHandler.GetMatching)

		r.Post("/sync", rt.opportunitySyncHandler.StartSync)
		r.Get("/sync/{id}", rt.opportunitySyncHandler.GetSync)

		r.Post("/accounts/{accountId}/opportunities/fetch", rt.opportunitySyncHandler.FetchOpportunities)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"not_found","title":"Not Found","status":404}`))
	})

	rt.logger.Info("routes registered",
		zap.String("base_path", BasePath),
		zap.Duration("request_timeout", rt.cfg.Server.RequestTimeoutDuration().Truncate(time.Second)),
	)

	return r
}
