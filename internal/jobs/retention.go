package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdrianVollmer/Plated/internal/config"
	"github.com/AdrianVollmer/Plated/internal/metrics"
)

// CleanupExpiredJobs deletes terminal jobs older than the configured
// TTL so that the jobs table does not grow without bound. It returns
// the number of jobs deleted.
func CleanupExpiredJobs(ctx context.Context, cfg *config.Config, st Store, logger *slog.Logger) int64 {
	days := cfg.Retention.Jobs.DefaultDays
	if days <= 0 {
		return 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := st.DeleteExpiredJobs(ctx, cutoff)
	if err != nil {
		logger.Error("retention cleanup failed", "cutoff", cutoff, "error", err)
		return 0
	}
	metrics.RecordRetentionJobs(n)
	return n
}

// StartRetentionLoop runs TTL cleanup on a fixed interval until ctx is
// cancelled. It is a no-op when retention is disabled.
func StartRetentionLoop(ctx context.Context, cfg *config.Config, st Store, logger *slog.Logger) {
	if !cfg.Retention.Enabled {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	interval := time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if n := CleanupExpiredJobs(ctx, cfg, st, logger); n > 0 {
				logger.Info("retention cleanup removed jobs", "deleted", n)
			}
		}
	}()
}
