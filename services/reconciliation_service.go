package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/payments"
	"go.uber.org/zap"
)

// StatusListener is told about every status transition reconciliation writes.
// Implementations must not block for long; they run on the request path.
type StatusListener interface {
	PaymentStatusChanged(ctx context.Context, change models.PaymentStatusChange)
}

type ReconcileResult struct {
	Status   models.PaymentStatus
	Previous models.PaymentStatus
	Changed  bool
	Payment  *models.Payment
}

// ReconciliationService applies the processor's view of a reference to the
// local payment row and its owning student.
type ReconciliationService struct {
	store     PaymentStore
	gateway   payments.Gateway
	listeners []StatusListener
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciliationService(store PaymentStore, gateway payments.Gateway, logger *zap.Logger, listeners ...StatusListener) *ReconciliationService {
	return &ReconciliationService{
		store:     store,
		gateway:   gateway,
		listeners: listeners,
		logger:    logger.Named("reconciliation"),
		now:       time.Now,
	}
}

// Reconcile is idempotent: with an unchanged processor status a second call
// performs no writes. A reference with no local row yields ErrNotFound
// together with a result carrying the processor status.
func (s *ReconciliationService) Reconcile(ctx context.Context, rrr string) (*ReconcileResult, error) {
	rrr = strings.TrimSpace(rrr)
	if rrr == "" {
		return nil, validationErr("RRR is required")
	}

	remote, err := s.gateway.QueryStatus(ctx, rrr)
	if err != nil {
		s.logger.Warn("Gateway status query failed", zap.String("rrr", rrr), zap.Error(err))
		return nil, err
	}

	payment, err := s.store.FindPaymentWithStudent(ctx, rrr)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &ReconcileResult{Status: remote.Status}, notFoundErr("Payment not found in database")
		}
		return nil, persistenceErr("failed to load payment", err)
	}

	previous := payment.Status
	changed := previous != remote.Status
	completed := remote.Status == models.PaymentStatusCompleted
	needsStudentUpdate := completed && payment.Student.PaymentStatus != models.StudentPaymentPaid

	if changed || needsStudentUpdate {
		if err := s.store.ApplyPaymentStatus(ctx, payment.ID, remote.Status, remote.Raw, completed); err != nil {
			s.logger.Error("Failed to apply reconciled status",
				zap.String("rrr", rrr),
				zap.String("status", string(remote.Status)),
				zap.Error(err),
			)
			return nil, persistenceErr("failed to update payment status", err)
		}
		payment.Status = remote.Status
		if completed {
			payment.Student.PaymentStatus = models.StudentPaymentPaid
		}
	}

	if changed {
		s.logger.Info("Payment status reconciled",
			zap.String("rrr", rrr),
			zap.String("from", string(previous)),
			zap.String("to", string(remote.Status)),
		)
		s.notify(ctx, payment, previous)
	}

	return &ReconcileResult{
		Status:   remote.Status,
		Previous: previous,
		Changed:  changed,
		Payment:  payment,
	}, nil
}

func (s *ReconciliationService) notify(ctx context.Context, payment *models.Payment, previous models.PaymentStatus) {
	change := models.PaymentStatusChange{
		RRR:           payment.RRR,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		Previous:      previous,
		Current:       payment.Status,
		StudentID:     payment.StudentID,
		MatricNumber:  payment.Student.MatricNumber,
		StudentName:   payment.Student.FullName(),
		StudentEmail:  payment.Student.Email,
		ChangedAt:     s.now(),
	}
	for _, l := range s.listeners {
		l.PaymentStatusChanged(ctx, change)
	}
}
