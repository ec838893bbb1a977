// The worker relays persisted outbox events to the redis broker so dispatch
// boards and hospital dashboards see record and emergency activity without
// touching the ledger service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/semcare/triage-api/internal/config"
	"github.com/semcare/triage-api/internal/repository"
	"github.com/semcare/triage-api/internal/repository/postgres"
	"github.com/semcare/triage-api/pkg/logger"
	"github.com/semcare/triage-api/pkg/messaging/redis"
	"github.com/semcare/triage-api/pkg/metrics"
	"github.com/semcare/triage-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	workerMetrics := metrics.NewMetrics("sem", "relay")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
	}, appLogger, workerMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go retentionLoop(ctx, outboxRepo, cfg.Outbox.RetentionAge, appLogger)
	go serveMetrics(cfg.Outbox.MetricsPort, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")
	cancel()
}

// retentionLoop prunes relayed events daily once they pass the retention age.
func retentionLoop(ctx context.Context, repo repository.OutboxRepository, age time.Duration, appLogger *logger.Logger) {
	if age <= 0 {
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-age))
			if err != nil {
				appLogger.Error(err, "outbox retention pass failed")
				continue
			}
			appLogger.Info("outbox retention pass", "deleted", deleted)
		}
	}
}

func serveMetrics(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		appLogger.Error(err, "metrics server failed")
	}
}
