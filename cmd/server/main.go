package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"knowledge-rag/internal/di"
	"knowledge-rag/internal/infra"
	"knowledge-rag/internal/infra/config"
	"knowledge-rag/internal/infra/logger"
	"knowledge-rag/internal/infra/telemetry"
)

func main() {
	// 1. Load Config
	_ = godotenv.Load()
	cfg := config.Load()

	// 2. Initialize Telemetry and Logger
	ctx := context.Background()
	shutdownTelemetry, err := telemetry.InitProvider(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithOTel(cfg.OTel.Enabled)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 3. Initialize DB
	dbPool, err := infra.NewPostgresDB(ctx, cfg.DB)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Redis is optional; enrichment runs uncached without it
	var rdb redis.UniversalClient
	if cfg.Enrichment.CacheEnabled {
		client, err := infra.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, enrichment cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			rdb = client
			defer client.Close()
		}
	}

	// 5. Wire components
	components, err := di.NewApplicationComponents(cfg, dbPool, rdb, log)
	if err != nil {
		log.Error("failed to wire components", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("failed to close components", "error", err)
		}
	}()

	// 6. Start Worker
	if components.Worker != nil {
		components.Worker.Start()
		defer func() {
			log.Info("Stopping worker...")
			components.Worker.Stop()
		}()
	}

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	if cfg.OTel.Enabled {
		e.Use(otelecho.Middleware(cfg.OTel.ServiceName))
	}
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID))
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// 8. Routes
	components.Handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 9. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("Starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("failed to shut down telemetry", "error", err)
	}
}
