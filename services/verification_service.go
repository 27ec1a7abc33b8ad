package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/payments"
	"go.uber.org/zap"
)

type Reconciler interface {
	Reconcile(ctx context.Context, rrr string) (*ReconcileResult, error)
}

// FallbackPair is a reference/matric combination reported as verified when
// the gateway cannot be reached. The zero value disables it.
type FallbackPair struct {
	RRR          string
	MatricNumber string
}

func (f FallbackPair) matches(rrr, matric string) bool {
	return f.RRR != "" && f.MatricNumber != "" && f.RRR == rrr && f.MatricNumber == matric
}

// PaymentRecorder stores a payment against a student by matric number.
// *PaymentRecordService satisfies it.
type PaymentRecorder interface {
	Record(ctx context.Context, req RecordRequest) (*models.Payment, error)
}

type Verification struct {
	IsPaid  bool
	Status  models.PaymentStatus
	Message string
	Payment *models.Payment
}

// VerificationService answers "has this student paid this reference" for the
// browser, reconciling on the way.
type VerificationService struct {
	reconciler Reconciler
	recorder   PaymentRecorder
	feeAmount  int64
	fallback   FallbackPair
	logger     *zap.Logger
	now        func() time.Time
}

// NewVerificationService builds the verifier. When recorder is set, a
// reference the processor reports completed but which was never issued
// locally is recorded against the student for feeAmount.
func NewVerificationService(reconciler Reconciler, recorder PaymentRecorder, feeAmount int64, fallback FallbackPair, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		reconciler: reconciler,
		recorder:   recorder,
		feeAmount:  feeAmount,
		fallback:   fallback,
		logger:     logger.Named("verification"),
		now:        time.Now,
	}
}

func (s *VerificationService) Verify(ctx context.Context, rrr, matricNumber string) (*Verification, error) {
	rrr = strings.TrimSpace(rrr)
	matricNumber = strings.TrimSpace(matricNumber)
	if rrr == "" || matricNumber == "" {
		return nil, validationErr("RRR and matricNumber are required")
	}

	res, err := s.reconciler.Reconcile(ctx, rrr)
	if err != nil {
		if payments.IsGatewayError(err) && s.fallback.matches(rrr, matricNumber) {
			s.logger.Warn("Gateway unavailable, using configured fallback verification",
				zap.String("rrr", rrr),
				zap.String("matric_number", matricNumber),
			)
			return &Verification{
				IsPaid:  true,
				Status:  models.PaymentStatusCompleted,
				Message: "Payment verified using fallback data",
			}, nil
		}
		if errors.Is(err, ErrNotFound) && res != nil && res.Status == models.PaymentStatusCompleted && s.recorder != nil {
			return s.recordUnissued(ctx, rrr, matricNumber)
		}
		return nil, err
	}

	if res.Payment != nil && res.Payment.Student.MatricNumber != "" && res.Payment.Student.MatricNumber != matricNumber {
		return nil, validationErr("RRR does not belong to this student")
	}

	v := &Verification{Status: res.Status, Payment: res.Payment}
	switch res.Status {
	case models.PaymentStatusCompleted:
		v.IsPaid = true
		v.Message = "Payment verified and records updated"
	case models.PaymentStatusPending:
		v.Message = "Payment is still pending"
	default:
		v.Message = "Payment verification failed"
	}
	return v, nil
}

// recordUnissued stores a completed reference the student entered by hand and
// marks the student paid.
func (s *VerificationService) recordUnissued(ctx context.Context, rrr, matricNumber string) (*Verification, error) {
	payment, err := s.recorder.Record(ctx, RecordRequest{
		MatricNumber:  matricNumber,
		RRR:           rrr,
		TransactionID: fmt.Sprintf("TRANS-%d", s.now().UnixMilli()),
		Amount:        s.feeAmount,
		Status:        models.PaymentStatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recorded completed payment for unissued reference",
		zap.String("rrr", rrr),
		zap.String("matric_number", matricNumber),
	)
	return &Verification{
		IsPaid:  true,
		Status:  models.PaymentStatusCompleted,
		Message: "Payment verified and records updated",
		Payment: payment,
	}, nil
}
