package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatusChange describes one reconciled transition of a payment.
type PaymentStatusChange struct {
	RRR           string        `json:"rrr"`
	TransactionID string        `json:"transaction_id"`
	Amount        int64         `json:"amount"`
	Previous      PaymentStatus `json:"previous_status"`
	Current       PaymentStatus `json:"status"`
	StudentID     uuid.UUID     `json:"student_id"`
	MatricNumber  string        `json:"matric_number"`
	StudentName   string        `json:"student_name"`
	StudentEmail  string        `json:"-"`
	ChangedAt     time.Time     `json:"changed_at"`
}
