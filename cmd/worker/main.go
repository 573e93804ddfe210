package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain/dispatch"
	"backoffice/internal/infra/email"
	"backoffice/internal/infra/queue"
	"backoffice/internal/infra/ratelimit"
	"backoffice/internal/infra/store"
	"backoffice/internal/infra/template"
	"backoffice/internal/infra/twilio"

	"github.com/hibiken/asynq"
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

	slog.Info("worker configuration loaded")

	if !cfg.Supabase.Enabled() {
		slog.Error("supabase is required by the worker to resolve admin notification settings")
		os.Exit(1)
	}

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Template Engine (templates are embedded in the binary)
	tmplEngine, err := template.NewEngine(cfg.Store.Name)
	if err != nil {
		slog.Error("failed to initialize template engine", "error", err)
		os.Exit(1)
	}
	slog.Info("template engine initialized", "store", cfg.Store.Name)

	// Channel senders
	emailSender := email.NewResendSender(
		cfg.Email.APIKey,
		cfg.Email.FromAddress,
		cfg.Email.FromName,
	)
	if emailSender.DevMode() {
		slog.Warn("resend api key not set, emails are logged instead of sent")
	}

	creds := twilio.Credentials{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
	}
	smsSender := twilio.NewSMSSender(creds, cfg.Twilio.PhoneNumber)
	whatsAppSender := twilio.NewWhatsAppSender(creds, cfg.Twilio.WhatsAppNumber)
	if smsSender.TestingMode() {
		slog.Warn("twilio credentials not set, sms and whatsapp run in testing mode")
	}

	// Supabase Store (settings + delivery log)
	supabaseStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("failed to initialize supabase store", "error", err)
		os.Exit(1)
	}
	settings := store.NewCachedSettings(supabaseStore, time.Duration(cfg.SettingsCache.TTLSec)*time.Second)
	slog.Info("supabase store initialized")

	// Recipient Rate Limiter
	recipientLimiter := ratelimit.NewRedisRecipientLimiter(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.RecipientRateLimit.MaxPerHour,
	)
	defer recipientLimiter.Close()
	slog.Info("recipient rate limiter initialized", "max_per_hour", cfg.RecipientRateLimit.MaxPerHour)

	dispatcher := dispatch.NewDispatcher(
		settings,
		tmplEngine,
		[]dispatch.Sender{emailSender, smsSender, whatsAppSender},
		dispatch.WithRateLimiter(recipientLimiter),
		dispatch.WithRecorder(supabaseStore),
	)
	worker := dispatch.NewWorker(dispatcher)

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(dispatch.TaskTypeDispatchEvent, worker.ProcessTask)

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
}
