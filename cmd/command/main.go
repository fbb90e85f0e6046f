package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/command"
	"github.com/todoplatform/eventbackbone/internal/auth"
	"github.com/todoplatform/eventbackbone/internal/config"
	"github.com/todoplatform/eventbackbone/internal/db"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
	"github.com/todoplatform/eventbackbone/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.LoadCommand()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "migrations/command"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tasks := repository.NewPgTaskRepository(pool)
	rules := repository.NewPgRuleRepository(pool)
	reminders := repository.NewPgReminderRepository(pool)
	outbox := repository.NewPgOutboxRepository(pool)
	tx := repository.NewPgTransactor(pool)
	sched := scheduler.NewHTTPClient(cfg.SchedulerBaseURL, cfg.SchedulerTimeout)
	bus := events.NewKafkaBus(cfg.BusBrokers)
	defer bus.Close() //nolint:errcheck

	svc := service.NewCommandService(tasks, rules, reminders, outbox, tx, sched, m, logger)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	// ---- outbox dispatcher ----
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	dispatcher := worker.NewOutboxDispatcher(outbox, bus, cfg.OutboxInterval, cfg.OutboxBatch, m, logger)
	go dispatcher.Run(workerCtx)

	// ---- HTTP server ----
	h := command.NewHandler(svc, logger)
	router := command.NewRouter(h, verifier, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancelWorkers()
	logger.Info("server stopped cleanly")
}
