package payments

import "github.com/skyhostel/sky_hostel/models"

const invoiceCreatedCode = "025"

// remitaStatusCodes maps processor status codes onto local payment states.
// Codes not listed here are treated as failed.
var remitaStatusCodes = map[string]models.PaymentStatus{
	"00":  models.PaymentStatusCompleted,
	"01":  models.PaymentStatusCompleted,
	"020": models.PaymentStatusPending,
	"021": models.PaymentStatusPending,
}

func MapStatusCode(code string) models.PaymentStatus {
	if status, ok := remitaStatusCodes[code]; ok {
		return status
	}
	return models.PaymentStatusFailed
}
