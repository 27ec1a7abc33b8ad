package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/skyhostel/sky_hostel/models"
)

// PaymentStore is the subset of the record store the payment services use.
// *database.Store satisfies it.
type PaymentStore interface {
	FindStudentByMatric(ctx context.Context, matricNumber string) (*models.Student, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentWithStudent(ctx context.Context, rrr string) (*models.Payment, error)
	LatestPaymentForStudent(ctx context.Context, studentID uuid.UUID) (*models.Payment, error)
	ApplyPaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus, raw []byte, markPaid bool) error
	UpsertPaymentByRRR(ctx context.Context, payment *models.Payment, markPaid bool) error
	SetReceiptURL(ctx context.Context, paymentID uuid.UUID, url string) error
}
