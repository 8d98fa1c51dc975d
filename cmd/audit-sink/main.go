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
	"github.com/V4T54L/compliance-gate/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/compliance-gate/internal/adapter/repository/redis"
	"github.com/V4T54L/compliance-gate/internal/pkg/config"
	"github.com/V4T54L/compliance-gate/internal/pkg/logger"
	"github.com/V4T54L/compliance-gate/internal/usecase"

	_ "github.com/lib/pq"
)

const processingInterval = 1 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting audit sink")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to create redis client", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Each instance is a distinct consumer in the shared group
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "audit-sink-default"
	}

	group := redisrepo.AuditConsumerGroup
	auditBuffer := redisrepo.NewAuditRepository(redisClient, log, cfg.AuditStream, redisrepo.DLQStream(cfg.AuditStream), group, nil, nil)
	auditSink := postgres.NewAuditRepository(db, log)

	processAudit := usecase.NewProcessAuditUseCase(auditBuffer, auditSink, log, group, consumerName,
		cfg.AuditBatchSize, usecase.DefaultAuditRetryCount, usecase.DefaultAuditRetryBackoff, cfg.AuditClaimMinIdle)

	// Health and backlog
	adminHandler := handler.NewAdminHandler([]handler.HealthCheck{
		{Name: "postgres", Check: db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}, auditBuffer, group, log)
	adminServer := &http.Server{
		Addr:              cfg.SinkAdminAddr,
		Handler:           api.NewAdminRouter(adminHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting audit sink admin server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server failed", "error", err)
		}
	}()

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	log.Info("audit sink started", "group", group, "consumer", consumerName, "stream", cfg.AuditStream)

Loop:
	for {
		select {
		case <-ticker.C:
			// Drain while full batches keep arriving
			for {
				n, err := processAudit.ProcessBatch(ctx)
				if err != nil {
					log.Error("error processing audit batch", "error", err)
					break
				}
				if n < cfg.AuditBatchSize || ctx.Err() != nil {
					break
				}
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down audit sink loop")
			break Loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("audit sink shut down gracefully")
}
