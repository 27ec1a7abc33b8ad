package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/payments"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
)

var validate = validator.New()

type PaymentDetails struct {
	RRR           string `json:"rrr"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	PaymentDate   string `json:"paymentDate,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	ReceiptURL    string `json:"receiptUrl,omitempty"`
}

func paymentDetails(p *models.Payment) *PaymentDetails {
	if p == nil {
		return nil
	}
	d := &PaymentDetails{
		RRR:           p.RRR,
		Amount:        p.Amount,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
	}
	if !p.CreatedAt.IsZero() {
		d.PaymentDate = p.CreatedAt.Format(time.RFC3339)
	}
	if p.ReceiptURL != nil {
		d.ReceiptURL = *p.ReceiptURL
	}
	return d
}

// classifyGatewayError maps a processor failure onto a code and message safe
// to show to the payer.
func classifyGatewayError(err error) (string, string) {
	var ge *payments.GatewayError
	if errors.As(err, &ge) {
		switch ge.Kind {
		case payments.KindUnauthorized:
			return "AUTH_ERROR", "The payment system is currently unavailable. Please try again later or contact support."
		case payments.KindTimeout:
			return "TIMEOUT", "The payment service is taking too long to respond. Please try again later."
		case payments.KindNetwork:
			return "NETWORK_ERROR", "There seems to be a network issue. Please check your connection and try again."
		}
	}
	return generationFailedCode, "Unable to generate your payment reference."
}

const generationFailedCode = "GENERATION_FAILED"

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case payments.IsGatewayError(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// publicMessage never exposes raw processor or database errors. Gateway
// failures without a specific cause get the endpoint's fallback.
func publicMessage(err error, fallback string) string {
	if msg := services.UserMessage(err); msg != "" {
		return msg
	}
	if payments.IsGatewayError(err) {
		if code, msg := classifyGatewayError(err); code != generationFailedCode {
			return msg
		}
		return fallback
	}
	if errors.Is(err, services.ErrUnavailable) {
		return "This feature is not configured"
	}
	return fallback
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error, fallback string) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": publicMessage(err, fallback)})
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.Split(fe.Namespace(), ".")[0]+".")
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "email":
			details = append(details, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			details = append(details, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "eq":
			details = append(details, fmt.Sprintf("%s must be accepted", field))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	return details
}
