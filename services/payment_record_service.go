package services

import (
	"context"
	"errors"
	"strings"

	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

type RecordRequest struct {
	MatricNumber  string
	RRR           string
	TransactionID string
	Amount        int64
	Status        models.PaymentStatus
}

type StudentPaymentSummary struct {
	Student *models.Student
	Paid    bool
	Latest  *models.Payment
}

// PaymentRecordService covers the store-only payment operations: client
// reported payments and per-student status lookups.
type PaymentRecordService struct {
	store  PaymentStore
	logger *zap.Logger
}

func NewPaymentRecordService(store PaymentStore, logger *zap.Logger) *PaymentRecordService {
	return &PaymentRecordService{store: store, logger: logger.Named("payment_records")}
}

func (s *PaymentRecordService) studentByMatric(ctx context.Context, matricNumber string) (*models.Student, error) {
	student, err := s.store.FindStudentByMatric(ctx, matricNumber)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundErr("Student not found")
		}
		return nil, persistenceErr("failed to load student", err)
	}
	return student, nil
}

// Record upserts a payment by reference. A missing status means completed.
func (s *PaymentRecordService) Record(ctx context.Context, req RecordRequest) (*models.Payment, error) {
	if strings.TrimSpace(req.MatricNumber) == "" || strings.TrimSpace(req.RRR) == "" ||
		strings.TrimSpace(req.TransactionID) == "" || req.Amount <= 0 {
		return nil, validationErr("Missing required payment details")
	}
	if req.Status == "" {
		req.Status = models.PaymentStatusCompleted
	}
	if !req.Status.Valid() {
		return nil, validationErr("Unknown payment status")
	}

	student, err := s.studentByMatric(ctx, req.MatricNumber)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:     student.ID,
		RRR:           req.RRR,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Status:        req.Status,
	}
	completed := req.Status == models.PaymentStatusCompleted
	if err := s.store.UpsertPaymentByRRR(ctx, payment, completed); err != nil {
		return nil, persistenceErr("Failed to update payment status", err)
	}

	s.logger.Info("Client reported payment recorded",
		zap.String("matric_number", student.MatricNumber),
		zap.String("rrr", payment.RRR),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

func (s *PaymentRecordService) StudentStatus(ctx context.Context, matricNumber string) (*StudentPaymentSummary, error) {
	if strings.TrimSpace(matricNumber) == "" {
		return nil, validationErr("Missing matricNumber parameter")
	}

	student, err := s.studentByMatric(ctx, matricNumber)
	if err != nil {
		return nil, err
	}

	summary := &StudentPaymentSummary{
		Student: student,
		Paid:    student.PaymentStatus == models.StudentPaymentPaid,
	}

	latest, err := s.store.LatestPaymentForStudent(ctx, student.ID)
	switch {
	case err == nil:
		summary.Latest = latest
	case errors.Is(err, database.ErrNotFound):
	default:
		return nil, persistenceErr("failed to load payments", err)
	}
	return summary, nil
}

func (s *PaymentRecordService) PaymentByRRR(ctx context.Context, rrr string) (*models.Payment, error) {
	payment, err := s.store.FindPaymentWithStudent(ctx, rrr)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundErr("Payment not found")
		}
		return nil, persistenceErr("failed to load payment", err)
	}
	return payment, nil
}
