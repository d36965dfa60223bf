package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/http/handler"
	"github.com/straye-as/pipeline-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pinger is implemented by dependencies that can report readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	db                 *gorm.DB
	cache              Pinger
	authMiddleware     *auth.Middleware
	rateLimiter        *middleware.RateLimiter
	leadHandler        *handler.LeadHandler
	activityHandler    *handler.ActivityHandler
	dashboardHandler   *handler.DashboardHandler
	authHandler        *handler.AuthHandler
	spreadsheetHandler *handler.SpreadsheetHandler
	followUpHandler    *handler.FollowUpHandler
}

// NewRouter wires the handlers. cache may be nil when Redis is disabled.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	cache Pinger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	leadHandler *handler.LeadHandler,
	activityHandler *handler.ActivityHandler,
	dashboardHandler *handler.DashboardHandler,
	authHandler *handler.AuthHandler,
	spreadsheetHandler *handler.SpreadsheetHandler,
	followUpHandler *handler.FollowUpHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		cache:              cache,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		leadHandler:        leadHandler,
		activityHandler:    activityHandler,
		dashboardHandler:   dashboardHandler,
		authHandler:        authHandler,
		spreadsheetHandler: spreadsheetHandler,
		followUpHandler:    followUpHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.LimitByUser)
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}

		r.Get("/auth/me", rt.authHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireAdmin)
			r.Get("/users", rt.authHandler.ListUsers)
			r.Put("/users", rt.authHandler.UpsertUser)
			r.Post("/auth/token", rt.authHandler.IssueToken)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.leadHandler.List)
			r.Post("/", rt.leadHandler.Create)

			// Spreadsheets
			r.Post("/import", rt.spreadsheetHandler.Import)
			r.Get("/export", rt.spreadsheetHandler.Export)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.leadHandler.GetByID)
				r.Put("/", rt.leadHandler.Update)
				r.With(rt.authMiddleware.RequireAdmin).Delete("/", rt.leadHandler.Delete)
				r.Put("/stage", rt.leadHandler.UpdateStage)
				r.Post("/rescore", rt.leadHandler.Rescore)
				r.Get("/score", rt.leadHandler.Score)

				r.Get("/activities", rt.activityHandler.List)
				r.Post("/activities", rt.activityHandler.Log)

				r.Post("/follow-up", rt.followUpHandler.Draft)
				r.Post("/follow-up/send", rt.followUpHandler.Send)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", rt.dashboardHandler.Dashboard)
			r.Get("/funnel", rt.dashboardHandler.Funnel)
			r.Get("/revenue-trend", rt.dashboardHandler.RevenueTrend)
			r.Get("/leaderboard", rt.dashboardHandler.Leaderboard)
			r.Get("/source-conversion", rt.dashboardHandler.SourceConversion)
		})

		r.Post("/reports/pipeline", rt.spreadsheetHandler.PipelineReport)
	})

	return r
}

// databaseHealth is the readiness probe with connection pool stats
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks every dependency the API needs to serve traffic
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	check := func(name string, err error) {
		if err != nil {
			rt.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	check("database", database.HealthCheck(rt.db))
	if rt.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		check("cache", rt.cache.Ping(ctx))
		cancel()
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
