package jobs

import (
	"context"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

const (
	sweepLockKey = "jobs:sweep:lock"
	sweepLockTTL = 30 * time.Minute
)

type PendingLister interface {
	ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus) ([]models.Payment, error)
}

type SweepResult struct {
	Checked int  `json:"checked"`
	Updated int  `json:"updatedCount"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped,omitempty"`
}

// SweepJob reconciles every pending payment one after another.
type SweepJob struct {
	payments   PendingLister
	reconciler services.Reconciler
	locker     Locker
	logger     *zap.Logger
	runTimeout time.Duration
}

// NewSweepJob accepts a nil locker, in which case runs are not guarded.
func NewSweepJob(payments PendingLister, reconciler services.Reconciler, locker Locker, logger *zap.Logger) *SweepJob {
	return &SweepJob{
		payments:   payments,
		reconciler: reconciler,
		locker:     locker,
		logger:     logger.Named("sweep"),
		runTimeout: sweepLockTTL,
	}
}

// Sweep counts as updated only the rows that moved away from pending. A
// failing row is logged and skipped.
func (j *SweepJob) Sweep(ctx context.Context) (*SweepResult, error) {
	if j.locker != nil {
		release, err := j.locker.Acquire(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			j.logger.Warn("Sweep lock unavailable, running unguarded", zap.Error(err))
		} else if release == nil {
			j.logger.Info("Sweep already running elsewhere, skipping")
			return &SweepResult{Skipped: true}, nil
		} else {
			defer release()
		}
	}

	pending, err := j.payments.ListPaymentsByStatus(ctx, models.PaymentStatusPending)
	if err != nil {
		j.logger.Error("Failed to list pending payments", zap.Error(err))
		return nil, err
	}

	res := &SweepResult{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		rec, err := j.reconciler.Reconcile(ctx, p.RRR)
		if err != nil {
			res.Failed++
			j.logger.Warn("Failed to reconcile payment", zap.String("rrr", p.RRR), zap.Error(err))
			continue
		}
		if rec.Changed && rec.Status != models.PaymentStatusPending {
			res.Updated++
		}
	}

	j.logger.Info("Sweep finished",
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// Run is the cron entry point.
func (j *SweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.runTimeout)
	defer cancel()

	res, err := j.Sweep(ctx)
	if err == nil {
		return
	}
	fields := []zap.Field{zap.Error(err)}
	if res != nil {
		fields = append(fields,
			zap.Int("checked", res.Checked),
			zap.Int("updated", res.Updated),
			zap.Int("failed", res.Failed),
		)
	}
	j.logger.Error("Scheduled sweep did not complete", fields...)
}
