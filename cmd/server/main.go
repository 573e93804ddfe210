package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain/dispatch"
	"backoffice/internal/domain/monitor"
	"backoffice/internal/domain/notification"
	"backoffice/internal/infra/queue"
	"backoffice/internal/infra/store"
	"backoffice/internal/infra/woocommerce"
	"backoffice/internal/router"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded", "port", cfg.Server.Port, "mode", cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// In-app notification store and live alert fan-out
	notifStore := notification.NewStore(notification.WithCapacity(cfg.Store.Capacity))
	broadcaster := notification.NewBroadcaster(notifStore.Counts)

	// Optional Supabase persistence
	var repo notification.Repository
	if cfg.Supabase.Enabled() {
		supabaseStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		if err != nil {
			slog.Error("failed to initialize supabase store", "error", err)
			os.Exit(1)
		}
		repo = supabaseStore
		slog.Info("supabase store initialized")
	} else {
		slog.Warn("supabase not configured, notifications are kept in memory only")
	}

	notificationService := notification.NewService(notifStore, repo, broadcaster)

	hydrateCtx, cancelHydrate := context.WithTimeout(ctx, 10*time.Second)
	if err := notificationService.Hydrate(hydrateCtx, cfg.Store.Capacity); err != nil {
		slog.Warn("starting with an empty notification store", "error", err)
	}
	cancelHydrate()

	// Asynq Client (for enqueuing dispatch events)
	asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer asynqClient.Close()
	slog.Info("asynq client initialized", "redis", cfg.Redis.Address)

	enqueuer := queue.NewEventEnqueuer(asynqClient, cfg.Queue.MaxRetry)

	// WooCommerce polling monitor
	var monitorHandler *monitor.Handler
	if cfg.WooCommerce.Enabled() {
		shop := woocommerce.NewClient(
			cfg.WooCommerce.StoreURL,
			cfg.WooCommerce.ConsumerKey,
			cfg.WooCommerce.ConsumerSecret,
		)
		mon := monitor.New(shop, notificationService, enqueuer, monitor.Config{
			Interval:          cfg.Monitor.Interval(),
			OrderLimit:        cfg.WooCommerce.OrderLimit,
			ProductLimit:      cfg.WooCommerce.ProductLimit,
			LowStockThreshold: cfg.Monitor.LowStockThreshold,
		})
		monitorHandler = monitor.NewHandler(mon)
		go mon.Run(ctx)
	} else {
		slog.Warn("woocommerce not configured, shop monitoring disabled")
	}

	// Old notification purger
	purger := notification.NewPurger(notificationService, notification.PurgerConfig{
		Interval:  time.Duration(cfg.Purger.IntervalSec) * time.Second,
		Retention: time.Duration(cfg.Purger.RetentionSec) * time.Second,
	})
	go purger.Run(ctx)

	// Handlers
	notificationHandler := notification.NewHandler(notificationService, broadcaster, purger.Retention())
	dispatchHandler := dispatch.NewHandler(dispatch.NewService(enqueuer, notificationService))

	// Router
	r := router.New(cfg, notificationHandler, dispatchHandler, monitorHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the notification stream is long-lived.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
