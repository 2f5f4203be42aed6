package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/chronolog/internal/auth"
	"github.com/geocoder89/chronolog/internal/auth/tokenstore"
	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/db"
	httpx "github.com/geocoder89/chronolog/internal/http"
	"github.com/geocoder89/chronolog/internal/observability"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real env always wins
	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	pool, err := db.NewPool(cfg.DatabaseURL())

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)

	err = db.Setup(setupCtx, pool)

	cancelSetup()

	if err != nil {
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	// refresh tokens live in Redis when configured, in memory otherwise
	var refreshStore tokenstore.Store

	if cfg.RedisAddr != "" {
		redisStore := tokenstore.NewRedisStore(tokenstore.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)

		err = redisStore.Ping(pingCtx)

		cancelPing()

		if err != nil {
			log.Error("redis connection failed", "err", err)
			os.Exit(1)
		}

		defer redisStore.Close()

		refreshStore = redisStore

		log.Info("refresh tokens stored in redis", "addr", cfg.RedisAddr)
	} else {
		refreshStore = tokenstore.NewMemoryStore()

		log.Warn("refresh tokens stored in memory, sessions will not survive restarts")
	}

	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "chronolog", cfg.OTELEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = shutdownTracer(shutdownCtx)
		}()
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jwtManager := auth.NewManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Pool:     pool,
		JWT:      jwtManager,
		Refresh:  refreshStore,
		Prom:     prom,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
