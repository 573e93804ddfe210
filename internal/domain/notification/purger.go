package notification

import (
	"context"
	"log/slog"
	"time"
)

// PurgerConfig holds configuration for the old notification purger.
type PurgerConfig struct {
	// Interval is how often the purger runs.
	Interval time.Duration

	// Retention is how long a notification stays visible.
	Retention time.Duration
}

// Purger periodically removes notifications older than the retention
// window so the bell only shows recent activity.
type Purger struct {
	service *Service
	config  PurgerConfig
}

// NewPurger creates a new notification purger.
func NewPurger(service *Service, cfg PurgerConfig) *Purger {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}

	return &Purger{
		service: service,
		config:  cfg,
	}
}

// Retention returns the configured retention window.
func (p *Purger) Retention() time.Duration {
	return p.config.Retention
}

// Run starts the purge loop. It blocks until the context is cancelled.
func (p *Purger) Run(ctx context.Context) {
	slog.Info("purger started",
		"interval", p.config.Interval,
		"retention", p.config.Retention,
	)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("purger stopped")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep performs one purge cycle and returns the number of removed entries.
func (p *Purger) Sweep(ctx context.Context) int {
	removed := p.service.PurgeOlderThan(ctx, p.config.Retention)
	if removed > 0 {
		slog.Info("purger: removed old notifications", "removed", removed)
	}
	return removed
}
