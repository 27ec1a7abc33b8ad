package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment is one payment attempt against a gateway-issued reference (RRR).
// A student may own several of these.
type Payment struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	StudentID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"student_id"`
	RRR           string        `gorm:"column:rrr;size:64;not null;uniqueIndex" json:"rrr"`
	TransactionID string        `gorm:"size:128;not null" json:"transaction_id"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Status        PaymentStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	GatewayResponse datatypes.JSON `json:"-"`
	ReceiptURL      *string        `gorm:"size:255" json:"receipt_url,omitempty"`

	Student Student `gorm:"foreignkey:StudentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	return nil
}
