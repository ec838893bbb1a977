package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/semcare/triage-api/internal/config"
	"github.com/semcare/triage-api/internal/emergency"
	"github.com/semcare/triage-api/internal/handler"
	emergencyHandler "github.com/semcare/triage-api/internal/handler/emergency"
	recordHandler "github.com/semcare/triage-api/internal/handler/record"
	"github.com/semcare/triage-api/internal/hasher"
	"github.com/semcare/triage-api/internal/ledger"
	"github.com/semcare/triage-api/internal/middleware"
	"github.com/semcare/triage-api/internal/policy"
	"github.com/semcare/triage-api/internal/repository/postgres"
	"github.com/semcare/triage-api/internal/router"
	auditService "github.com/semcare/triage-api/internal/service/audit"
	"github.com/semcare/triage-api/pkg/logger"
	"github.com/semcare/triage-api/pkg/metrics"
	"github.com/semcare/triage-api/pkg/notifier"
	"github.com/semcare/triage-api/pkg/validator"
	"github.com/semcare/triage-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.RegisterCustomRules(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validation rules")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	accessLogRepo := postgres.NewAccessLogRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	appMetrics := metrics.NewMetrics("sem", "triage")
	auditSvc := auditService.NewService(accessLogRepo, appLogger)

	recordLedger := ledger.New(
		hasher.New(),
		policy.New(),
		ledger.WithAuditor(auditSvc),
		ledger.WithMetrics(appMetrics),
	)
	coordinator := emergency.NewCoordinator(recordLedger, emergency.WithMetrics(appMetrics))

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	h := handler.NewHandler(db)
	recordH := recordHandler.NewHandler(recordLedger, outboxRepo, auditSvc, appLogger)
	emergencyH := emergencyHandler.NewHandler(coordinator, outboxRepo, appLogger)

	r := router.NewRouter(authMiddleware, recordH, emergencyH, h, router.Config{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  "sem_triage",
	})
	r.Setup()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Integrity.Enabled {
		var mailer worker.TamperNotifier
		if cfg.SMTP.Enabled {
			mailer = notifier.NewMailer(notifier.Config{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
				To:       cfg.SMTP.To,
			})
		}
		sweep := worker.NewIntegritySweep(recordLedger, outboxRepo, mailer,
			worker.IntegritySweepConfig{Interval: cfg.Integrity.Interval},
			appLogger, appMetrics)
		go sweep.Start(sweepCtx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
