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

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	"github.com/todoplatform/eventbackbone/internal/api/notification"
	"github.com/todoplatform/eventbackbone/internal/config"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
	"github.com/todoplatform/eventbackbone/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.LoadNotification()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	bus := events.NewKafkaBus(cfg.BusBrokers)
	defer bus.Close() //nolint:errcheck
	kv := kvstore.NewRedisStore(cfg.KVAddr, "", 0)
	sched := scheduler.NewHTTPClient(cfg.SchedulerBaseURL, cfg.SchedulerTimeout)

	svc := service.NewNotificationService(bus, sched, kv, m, logger)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	taskMessages, err := bus.SubscribeShared(workerCtx, events.TopicTask, cfg.ConsumerGroup)
	if err != nil {
		logger.Fatal("failed to subscribe to task-events", zap.Error(err))
	}
	reminderMessages, err := bus.SubscribeShared(workerCtx, events.TopicReminder, cfg.ConsumerGroup)
	if err != nil {
		logger.Fatal("failed to subscribe to reminder-events", zap.Error(err))
	}

	taskHandler := func(ctx context.Context, env events.Envelope) bool {
		err := svc.HandleTaskEvent(ctx, env)
		if err == nil {
			return false
		}
		retry := httputil.Classify(err)
		logger.Warn("task event handling failed", zap.String("event_id", env.ID), zap.Bool("retry", retry), zap.Error(err))
		return retry
	}
	reminderHandler := func(ctx context.Context, env events.Envelope) bool {
		err := svc.HandleReminderEvent(ctx, env)
		if err == nil {
			return false
		}
		retry := httputil.Classify(err)
		logger.Warn("reminder event handling failed", zap.String("event_id", env.ID), zap.Bool("retry", retry), zap.Error(err))
		return retry
	}

	taskPool := worker.NewConsumerPool(taskMessages, taskHandler, cfg.PoolSize, m, logger)
	taskPool.Start(workerCtx)
	reminderPool := worker.NewConsumerPool(reminderMessages, reminderHandler, cfg.PoolSize, m, logger)
	reminderPool.Start(workerCtx)

	// ---- HTTP server (scheduler callback + health/metrics) ----
	h := notification.NewHandler(svc, logger)
	router := notification.NewRouter(h, reg, logger)
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
	taskPool.Wait()
	reminderPool.Wait()
	logger.Info("server stopped cleanly")
}
