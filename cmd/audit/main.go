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

	"github.com/todoplatform/eventbackbone/internal/api/audit"
	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	"github.com/todoplatform/eventbackbone/internal/config"
	"github.com/todoplatform/eventbackbone/internal/db"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/service"
	"github.com/todoplatform/eventbackbone/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.LoadAudit()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "migrations/audit"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	repo := repository.NewPgAuditRepository(pool)
	bus := events.NewKafkaBus(cfg.BusBrokers)
	defer bus.Close() //nolint:errcheck
	kv := kvstore.NewRedisStore(cfg.KVAddr, "", 0)

	svc := service.NewAuditService(repo, kv, m, logger)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	handler := func(ctx context.Context, env events.Envelope) bool {
		err := svc.Record(ctx, env)
		if err == nil {
			return false
		}
		retry := httputil.Classify(err)
		logger.Warn("audit record failed", zap.String("event_id", env.ID), zap.Bool("retry", retry), zap.Error(err))
		return retry
	}

	var pools []*worker.ConsumerPool
	for _, topic := range []string{events.TopicTask, events.TopicReminder, events.TopicRecurring} {
		messages, err := bus.SubscribeShared(workerCtx, topic, cfg.ConsumerGroup)
		if err != nil {
			logger.Fatal("failed to subscribe", zap.String("topic", topic), zap.Error(err))
		}
		p := worker.NewConsumerPool(messages, handler, cfg.PoolSize, m, logger)
		p.Start(workerCtx)
		pools = append(pools, p)
	}

	// ---- HTTP server (query endpoint + health/metrics) ----
	h := audit.NewHandler(svc, logger)
	router := audit.NewRouter(h, reg, logger)
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
	for _, p := range pools {
		p.Wait()
	}
	logger.Info("server stopped cleanly")
}
