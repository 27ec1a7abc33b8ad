package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/payments"
	"go.uber.org/zap"
)

type OrderIDSource interface {
	Next(matricNumber string) string
}

type IssueRequest struct {
	MatricNumber string
	FirstName    string
	LastName     string
	Email        string
	Amount       int64
	PhoneNumber  string
}

type IssueResult struct {
	RRR           string
	TransactionID string
	Payment       *models.Payment
}

// IssuanceService obtains a payment reference from the gateway and records a
// pending payment against the student.
type IssuanceService struct {
	store    PaymentStore
	gateway  payments.Gateway
	orderIDs OrderIDSource
	logger   *zap.Logger
}

func NewIssuanceService(store PaymentStore, gateway payments.Gateway, orderIDs OrderIDSource, logger *zap.Logger) *IssuanceService {
	return &IssuanceService{
		store:    store,
		gateway:  gateway,
		orderIDs: orderIDs,
		logger:   logger.Named("issuance"),
	}
}

func (r IssueRequest) validate() error {
	if strings.TrimSpace(r.MatricNumber) == "" ||
		strings.TrimSpace(r.FirstName) == "" ||
		strings.TrimSpace(r.LastName) == "" ||
		strings.TrimSpace(r.Email) == "" {
		return validationErr("Please provide all required information to generate your payment reference.")
	}
	if r.Amount <= 0 {
		return validationErr("Amount must be a positive whole number.")
	}
	return nil
}

// Issue does not check for other pending payments of the same student; a
// student may hold several outstanding references.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	student, err := s.store.FindStudentByMatric(ctx, req.MatricNumber)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundErr(fmt.Sprintf("Student with matric number %s not found", req.MatricNumber))
		}
		return nil, persistenceErr("failed to load student", err)
	}

	orderID := s.orderIDs.Next(student.MatricNumber)

	payerPhone := req.PhoneNumber
	if payerPhone == "" {
		payerPhone = student.PhoneNumber
	}

	invoice, err := s.gateway.IssueReference(ctx, payments.InvoiceRequest{
		Amount:      req.Amount,
		PayerName:   strings.TrimSpace(req.FirstName + " " + req.LastName),
		PayerEmail:  req.Email,
		PayerPhone:  payerPhone,
		Description: fmt.Sprintf("Hostel Fee Payment for %s", student.MatricNumber),
		OrderID:     orderID,
	})
	if err != nil {
		s.logger.Error("Payment reference issuance failed",
			zap.String("matric_number", student.MatricNumber),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}

	payment := &models.Payment{
		StudentID:       student.ID,
		RRR:             invoice.RRR,
		TransactionID:   orderID,
		Amount:          req.Amount,
		Status:          models.PaymentStatusPending,
		GatewayResponse: invoice.Raw,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		s.logger.Error("Failed to record issued reference",
			zap.String("rrr", invoice.RRR),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, persistenceErr("failed to record payment", err)
	}

	s.logger.Info("Payment reference issued",
		zap.String("matric_number", student.MatricNumber),
		zap.String("rrr", invoice.RRR),
		zap.String("transaction_id", orderID),
		zap.Int64("amount", req.Amount),
	)
	return &IssueResult{RRR: invoice.RRR, TransactionID: orderID, Payment: payment}, nil
}
