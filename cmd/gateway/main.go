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

	gwapi "github.com/todoplatform/eventbackbone/internal/api/gateway"
	"github.com/todoplatform/eventbackbone/internal/auth"
	"github.com/todoplatform/eventbackbone/internal/config"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/gateway"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/service"
	"github.com/todoplatform/eventbackbone/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.LoadGateway()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	bus := events.NewKafkaBus(cfg.BusBrokers)
	defer bus.Close() //nolint:errcheck
	kv := kvstore.NewRedisStore(cfg.KVAddr, "", 0)

	hub := gateway.NewHub(kv, m, logger)
	svc := service.NewGatewayService(hub, kv, logger)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// Every instance needs its own copy of both topics: presence is
	// per-instance, so a message for a user connected here must still
	// reach here even if another instance's consumer group already
	// committed it.
	taskMessages, err := bus.SubscribeBroadcast(workerCtx, events.TopicTask, cfg.InstanceID)
	if err != nil {
		logger.Fatal("failed to subscribe to task-events", zap.Error(err))
	}
	reminderMessages, err := bus.SubscribeBroadcast(workerCtx, events.TopicReminder, cfg.InstanceID)
	if err != nil {
		logger.Fatal("failed to subscribe to reminder-events", zap.Error(err))
	}

	taskHandler := func(ctx context.Context, env events.Envelope) bool {
		if err := svc.HandleTaskEvent(ctx, env); err != nil {
			logger.Warn("task event handling failed", zap.String("event_id", env.ID), zap.Error(err))
		}
		return false
	}
	reminderHandler := func(ctx context.Context, env events.Envelope) bool {
		if err := svc.HandleReminderTriggered(ctx, env); err != nil {
			logger.Warn("reminder event handling failed", zap.String("event_id", env.ID), zap.Error(err))
		}
		return false
	}

	taskPool := worker.NewConsumerPool(taskMessages, taskHandler, 1, m, logger)
	taskPool.Start(workerCtx)
	reminderPool := worker.NewConsumerPool(reminderMessages, reminderHandler, 1, m, logger)
	reminderPool.Start(workerCtx)

	// ---- HTTP server (WebSocket upgrade + health/metrics) ----
	h := gwapi.NewHandler(hub, svc, verifier, logger)
	router := gwapi.NewRouter(h, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("instance_id", cfg.InstanceID))
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
