package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/chronolog/internal/auth"
	"github.com/geocoder89/chronolog/internal/auth/tokenstore"
	"github.com/geocoder89/chronolog/internal/cache"
	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/http/handlers"
	"github.com/geocoder89/chronolog/internal/http/middlewares"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/geocoder89/chronolog/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. Construction of
// the individual pieces stays in main so tests can swap any of them.
type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Pool     *pgxpool.Pool
	JWT      *auth.Manager
	Refresh  tokenstore.Store
	Prom     *observability.Prom
	Registry *prometheus.Registry
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())

	if len(deps.Cfg.CORSAllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSAllowedOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(deps.Cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	if deps.Cfg.OTELEndpoint != "" {
		r.Use(otelgin.Middleware("chronolog"))
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, fmt.Sprintf("Route %s %s not found", ctx.Request.Method, ctx.Request.URL.Path))
	})

	// health + metrics

	healthHandler := handlers.NewHealthHandler(deps.Pool)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	subjectsRepo := postgres.NewSubjectsRepo(deps.Pool, deps.Prom)
	timeEntriesRepo := postgres.NewTimeEntriesRepo(deps.Pool, deps.Prom)
	reportsRepo := postgres.NewReportsRepo(deps.Pool, deps.Prom)

	// wire up handlers

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, deps.JWT, deps.Refresh, deps.Cfg)
	subjectsHandler := handlers.NewSubjectsHandler(subjectsRepo)
	timeEntriesHandler := handlers.NewTimeEntriesHandler(timeEntriesRepo, subjectsRepo, deps.Cfg)
	reportsHandler := handlers.NewReportsHandler(reportsRepo, cache.New(30*time.Second))

	authMW := middlewares.NewAuthMiddleware(deps.JWT, usersRepo)

	// the auth surface gets a stricter per-IP limiter than the rest
	authLimiter := middlewares.NewRateLimiter(deps.Cfg.AuthRateLimitMax, deps.Cfg.RateLimitWindow)
	apiLimiter := middlewares.NewRateLimiter(deps.Cfg.RateLimitMax, deps.Cfg.RateLimitWindow)

	authGroup := r.Group("/auth", authLimiter.Middleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protected := r.Group("/", authMW.RequireAuth(), apiLimiter.Middleware(middlewares.KeyByUserOrIP))
	{
		protected.GET("/subjects", subjectsHandler.List)
		protected.POST("/subjects", subjectsHandler.Create)
		protected.PUT("/subjects/:id/rename", subjectsHandler.Rename)
		protected.POST("/subjects/join", subjectsHandler.Join)

		protected.POST("/time-entries", timeEntriesHandler.Create)
		protected.GET("/time-entries", timeEntriesHandler.List)
		protected.GET("/time-entries/:id", timeEntriesHandler.Get)
		protected.PUT("/time-entries/:id", timeEntriesHandler.Update)
		protected.DELETE("/time-entries/:id", timeEntriesHandler.Delete)

		protected.GET("/reports/daily", reportsHandler.Daily)
		protected.GET("/reports/weekly", reportsHandler.Weekly)
		protected.GET("/reports/monthly", reportsHandler.Monthly)
		protected.GET("/reports/subject-leaderboard", reportsHandler.SubjectLeaderboard)
	}

	return r
}
