package impl

import (
	"context"
	"log/slog"
	"time"

	"spotfence/internal/domain/repository"
	"spotfence/internal/util"
)

// NotificationThrottle suppresses repeat proximity alerts for the same spot
// inside the cooldown window. The persisted ledger is the single source of
// truth; pruning only bounds its growth and is never needed for correctness.
type NotificationThrottle struct {
	ledger   repository.NotificationLedgerStore
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotificationThrottle creates a new notification throttle instance.
func NewNotificationThrottle(ledger repository.NotificationLedgerStore, cooldown time.Duration, logger *slog.Logger) *NotificationThrottle {
	return &NotificationThrottle{
		ledger:   ledger,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// ShouldFire reports whether an alert for the spot may be delivered now. It
// is false exactly when a prior delivery exists and less than the cooldown
// has elapsed since it, measured wall-clock. Ledger read failures allow the
// alert: a lost suppression beats a lost notification.
func (t *NotificationThrottle) ShouldFire(ctx context.Context, spotID string) bool {
	firedAt, found, err := t.ledger.LastFired(ctx, spotID)
	if err != nil {
		t.logger.Warn("notification ledger read failed, allowing alert",
			slog.String("spot_id", spotID),
			slog.Any("error", err),
		)

		return true
	}
	if !found {
		return true
	}

	elapsed := t.now().Sub(firedAt)
	if elapsed < t.cooldown {
		t.logger.Debug("alert suppressed by cooldown",
			slog.String("spot_id", spotID),
			slog.String("remaining", util.FormatDuration(t.cooldown-elapsed)),
		)

		return false
	}

	return true
}

// RecordFired stores the delivery time for the spot and opportunistically
// prunes expired entries.
func (t *NotificationThrottle) RecordFired(ctx context.Context, spotID string) {
	if err := t.ledger.RecordFired(ctx, spotID, t.now()); err != nil {
		t.logger.Error("failed to record notification delivery",
			slog.String("spot_id", spotID),
			slog.Any("error", err),
		)

		return
	}

	t.PruneExpired(ctx)
}

// PruneExpired removes ledger entries older than the cooldown window. Called
// on app-foreground transitions and after each write.
func (t *NotificationThrottle) PruneExpired(ctx context.Context) {
	cutoff := t.now().Add(-t.cooldown)
	pruned, err := t.ledger.PruneOlderThan(ctx, cutoff)
	if err != nil {
		t.logger.Warn("notification ledger prune failed", slog.Any("error", err))

		return
	}

	if pruned > 0 {
		t.logger.Debug("pruned expired ledger entries", slog.Int("count", pruned))
	}
}
