package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/jobs"
	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

type Issuer interface {
	Issue(ctx context.Context, req services.IssueRequest) (*services.IssueResult, error)
}

type Verifier interface {
	Verify(ctx context.Context, rrr, matricNumber string) (*services.Verification, error)
}

type PaymentRecords interface {
	Record(ctx context.Context, req services.RecordRequest) (*models.Payment, error)
	StudentStatus(ctx context.Context, matricNumber string) (*services.StudentPaymentSummary, error)
	PaymentByRRR(ctx context.Context, rrr string) (*models.Payment, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (*jobs.SweepResult, error)
}

type PaymentHandler struct {
	issuer     Issuer
	reconciler services.Reconciler
	verifier   Verifier
	records    PaymentRecords
	sweeper    Sweeper
	feeAmount  int64
	logger     *zap.Logger
}

func NewPaymentHandler(issuer Issuer, reconciler services.Reconciler, verifier Verifier, records PaymentRecords, sweeper Sweeper, feeAmount int64, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		issuer:     issuer,
		reconciler: reconciler,
		verifier:   verifier,
		records:    records,
		sweeper:    sweeper,
		feeAmount:  feeAmount,
		logger:     logger.Named("payment_handler"),
	}
}

type IssueRRRRequest struct {
	MatricNumber  string `json:"matricNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Amount        int64  `json:"amount"`
	PhoneNumber   string `json:"phoneNumber"`
	PaymentOption string `json:"paymentOption"`
	CustomAmount  int64  `json:"customAmount"`
}

// GenerateRRR issues a Remita reference. When amount is omitted it is derived
// from paymentOption.
func (h *PaymentHandler) GenerateRRR(c *fiber.Ctx) error {
	var req IssueRRRRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON", "errorCode": "INVALID_BODY"})
	}

	amount := req.Amount
	if amount == 0 && req.PaymentOption != "" {
		var err error
		amount, err = services.CalculateAmount(services.PaymentOption(req.PaymentOption), req.CustomAmount, h.feeAmount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": services.UserMessage(err), "errorCode": "INVALID_AMOUNT"})
		}
	}

	if req.MatricNumber == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" || amount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":   false,
			"error":     "Please provide all required information to generate your payment reference.",
			"errorCode": "MISSING_FIELDS",
		})
	}

	res, err := h.issuer.Issue(c.UserContext(), services.IssueRequest{
		MatricNumber: req.MatricNumber,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Amount:       amount,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		status := statusFor(err)
		switch status {
		case fiber.StatusBadRequest:
			return c.Status(status).JSON(fiber.Map{"success": false, "error": services.UserMessage(err), "errorCode": "INVALID_REQUEST"})
		case fiber.StatusNotFound:
			return c.Status(status).JSON(fiber.Map{"success": false, "error": services.UserMessage(err), "errorCode": "STUDENT_NOT_FOUND"})
		}
		code, msg := classifyGatewayError(err)
		h.logger.Error("RRR generation failed", zap.String("matric_number", req.MatricNumber), zap.String("error_code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": msg, "errorCode": code})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Payment reference generated successfully",
		"rrr":           res.RRR,
		"transactionId": res.TransactionID,
	})
}

type verifyRequest struct {
	RRR          string `json:"rrr" query:"rrr"`
	MatricNumber string `json:"matricNumber" query:"matricNumber"`
}

func (h *PaymentHandler) verify(c *fiber.Ctx, req verifyRequest, poll bool) error {
	if req.RRR == "" || req.MatricNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "RRR and matricNumber are required"})
	}
	v, err := h.verifier.Verify(c.UserContext(), req.RRR, req.MatricNumber)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to verify payment")
	}

	message := v.Message
	if poll && !v.IsPaid {
		message = fmt.Sprintf("%s. Client should poll for updates.", message)
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"isPaid":         v.IsPaid,
		"status":         v.Status,
		"message":        message,
		"paymentDetails": paymentDetails(v.Payment),
	})
}

func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid query parameters"})
	}
	return h.verify(c, req, false)
}

// PollPayment performs a single check; the browser repeats the call until
// the payment settles.
func (h *PaymentHandler) PollPayment(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	return h.verify(c, req, true)
}

func (h *PaymentHandler) CheckPaymentStatus(c *fiber.Ctx) error {
	rrr := strings.TrimSpace(c.Query("rrr"))
	matric := strings.TrimSpace(c.Query("matricNumber"))

	switch {
	case matric != "":
		summary, err := h.records.StudentStatus(c.UserContext(), matric)
		if err != nil {
			return respondError(c, h.logger, err, "Failed to get payment status")
		}
		status := models.PaymentStatusPending
		if summary.Paid {
			status = models.PaymentStatusCompleted
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"status":         status,
			"message":        fmt.Sprintf("Payment status for student %s is %s", matric, status),
			"paymentDetails": paymentDetails(summary.Latest),
		})
	case rrr != "":
		res, err := h.reconciler.Reconcile(c.UserContext(), rrr)
		if err != nil {
			return respondError(c, h.logger, err, "Failed to check payment status")
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"status":         res.Status,
			"message":        fmt.Sprintf("Payment status for RRR %s is %s", rrr, res.Status),
			"paymentDetails": paymentDetails(res.Payment),
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Missing RRR or matricNumber parameter"})
	}
}

func (h *PaymentHandler) GetStudentPayment(c *fiber.Ctx) error {
	matric := strings.TrimSpace(c.Query("matricNumber"))
	if matric == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Missing matricNumber parameter"})
	}
	summary, err := h.records.StudentStatus(c.UserContext(), matric)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment status")
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"paid":           summary.Paid,
		"paymentDetails": paymentDetails(summary.Latest),
	})
}

// GetPaymentByRRR returns the stored payment without contacting the processor.
func (h *PaymentHandler) GetPaymentByRRR(c *fiber.Ctx) error {
	payment, err := h.records.PaymentByRRR(c.UserContext(), c.Params("rrr"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get payment")
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"matricNumber":   payment.Student.MatricNumber,
		"paymentDetails": paymentDetails(payment),
	})
}

type recordPaymentRequest struct {
	MatricNumber  string `json:"matricNumber" validate:"required"`
	RRR           string `json:"rrr" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Status        string `json:"status" validate:"omitempty,oneof=pending completed failed"`
}

func (h *PaymentHandler) RecordPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Missing required payment details", "details": validationDetails(err)})
	}

	payment, err := h.records.Record(c.UserContext(), services.RecordRequest{
		MatricNumber:  req.MatricNumber,
		RRR:           req.RRR,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Status:        models.PaymentStatus(req.Status),
	})
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update payment status")
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Payment status updated successfully",
		"paymentDetails": paymentDetails(payment),
	})
}

func (h *PaymentHandler) UpdatePendingPayments(c *fiber.Ctx) error {
	res, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update pending payments")
	}
	if res.Skipped {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success":      true,
			"message":      "A sweep is already running",
			"updatedCount": 0,
		})
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"message":      fmt.Sprintf("Updated %d pending payments", res.Updated),
		"updatedCount": res.Updated,
		"checked":      res.Checked,
		"failed":       res.Failed,
	})
}
