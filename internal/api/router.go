package api

import (
	"log/slog"
	"time"

	"github.com/firewatch/firewatch/internal/anomaly"
	"github.com/firewatch/firewatch/internal/api/handlers"
	"github.com/firewatch/firewatch/internal/api/middleware"
	"github.com/firewatch/firewatch/internal/auth"
	"github.com/firewatch/firewatch/internal/inspection"
	"github.com/firewatch/firewatch/pkg/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Encryptor      *crypto.Encryptor
	TaskClient     *asynq.Client  // nil when the queue is unreachable
	AnomalyTZ      *time.Location // local zone for off-hours detection
	AllowedOrigins []string       // CORS allowed origins
	RateLimitReqs  int            // Rate limit requests per window
	RateLimitSecs  int            // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	gate := inspection.NewGate(cfg.DB, cfg.Logger)
	detector := anomaly.NewDetector(cfg.DB, cfg.Logger, cfg.AnomalyTZ)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	assetHandler := handlers.NewAssetHandler(cfg.DB, gate)
	scheduleHandler := handlers.NewScheduleHandler(cfg.DB)
	inspectionHandler := handlers.NewInspectionHandler(cfg.DB, gate)
	auditHandler := handlers.NewAuditHandler(cfg.DB)
	anomalyHandler := handlers.NewAnomalyHandler(detector, cfg.TaskClient)
	settingsHandler := handlers.NewSettingsHandler(cfg.DB, cfg.Encryptor)

	// Health and metrics endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints, rate limited by IP to slow brute force
		r.Group(func(r chi.Router) {
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/logout", authHandler.Logout)
		})

		// Protected routes, rate limited per authenticated user
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if cfg.RateLimitReqs > 0 {
				r.Use(middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}

			// User endpoints
			r.Get("/me", authHandler.Me)

			// Assets endpoints
			r.Route("/assets", func(r chi.Router) {
				r.Get("/", assetHandler.List)
				r.Post("/", assetHandler.Create)
				r.Get("/{id}", assetHandler.Get)
				r.Put("/{id}", assetHandler.Update)
				r.Delete("/{id}", assetHandler.Delete)
				r.Post("/{id}/scan", assetHandler.Scan)
			})

			// Schedules endpoints
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.List)
				r.Post("/", scheduleHandler.Create)
				r.Get("/{id}", scheduleHandler.Get)
				r.Put("/{id}", scheduleHandler.Update)
				r.Delete("/{id}", scheduleHandler.Delete)
			})

			// Inspections endpoints
			r.Route("/inspections", func(r chi.Router) {
				r.Get("/", inspectionHandler.List)
				r.Post("/", inspectionHandler.Submit)
				r.Post("/start", inspectionHandler.Start)
				r.Get("/{id}", inspectionHandler.Get)
			})

			// Audit trail
			r.Get("/audit-events", auditHandler.List)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/anomalies", anomalyHandler.List)
				r.Post("/anomalies/scan", anomalyHandler.Trigger)
				r.Get("/settings/notifications", settingsHandler.Get)
				r.Put("/settings/notifications", settingsHandler.Update)
			})
		})
	})

	return &Router{r}
}
