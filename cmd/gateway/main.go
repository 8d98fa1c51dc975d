package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/V4T54L/compliance-gate/internal/adapter/api"
	"github.com/V4T54L/compliance-gate/internal/adapter/api/handler"
	"github.com/V4T54L/compliance-gate/internal/adapter/identity"
	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/compliance-gate/internal/adapter/repository/redis"
	"github.com/V4T54L/compliance-gate/internal/adapter/repository/wal"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/config"
	"github.com/V4T54L/compliance-gate/internal/pkg/logger"
	"github.com/V4T54L/compliance-gate/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

const redisHealthInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireGateway(); err != nil {
		slog.Error("invalid gateway config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	m := metrics.NewGatewayMetrics(nil)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Warn("could not reach postgres at startup", "error", err)
	}

	redisClient, err := redisrepo.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to create redis client", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, audit events will go to the WAL", "error", err)
	}

	// --- Initialize Repositories ---
	walRepo, err := wal.NewWALRepository(cfg.AuditWALPath, cfg.AuditWALSegmentSize, cfg.AuditWALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize WAL repository", "error", err)
		os.Exit(1)
	}
	defer walRepo.Close()

	auditRepo := redisrepo.NewAuditRepository(redisClient, log, cfg.AuditStream, redisrepo.DLQStream(cfg.AuditStream), "", walRepo, m)
	go auditRepo.StartHealthCheck(ctx, redisHealthInterval)

	personaRepo := postgres.NewPersonaRepository(db, log, cfg.PersonaCacheTTL, m)
	verifier := identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, personaRepo, log)

	var exporter domain.HACTExporter = postgres.NewHACTRepository(db, log)
	if cfg.ExportCacheTTL > 0 {
		exporter = redisrepo.NewCachedHACTExporter(exporter, redisClient, cfg.ExportCacheTTL, log, m)
	}

	// --- Initialize Use Cases ---
	exportUseCase := usecase.NewExportUseCase(exporter, auditRepo, log)
	urgencyUseCase := usecase.NewUrgencyUseCase(time.Now)

	// --- Start Admin and Metrics Server ---
	adminHandler := handler.NewAdminHandler([]handler.HealthCheck{
		{Name: "postgres", Check: db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}, auditRepo, redisrepo.AuditConsumerGroup, log)
	adminServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           api.NewAdminRouter(adminHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize Gateway Server ---
	gatewayServer := &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      api.NewRouter(cfg, log, verifier, exportUseCase, urgencyUseCase, m),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting compliance gateway", "addr", gatewayServer.Addr)
		if err := gatewayServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("gateway server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := gatewayServer.Shutdown(shutdownCtx); err != nil {
		log.Error("gateway server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
