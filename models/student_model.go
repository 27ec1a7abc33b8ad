package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentPaymentStatus string

const (
	StudentPaymentPending StudentPaymentStatus = "pending"
	StudentPaymentPaid    StudentPaymentStatus = "paid"
)

type Student struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primary_key" json:"id"`
	MatricNumber        string               `gorm:"size:50;not null;uniqueIndex" json:"matric_number"`
	FirstName           string               `gorm:"size:100;not null" json:"first_name"`
	LastName            string               `gorm:"size:100;not null" json:"last_name"`
	Email               string               `gorm:"size:255;not null" json:"email"`
	PhoneNumber         string               `gorm:"size:30" json:"phone_number"`
	Level               string               `gorm:"size:20" json:"level"`
	Faculty             string               `gorm:"size:100" json:"faculty"`
	Department          string               `gorm:"size:100" json:"department"`
	Programme           string               `gorm:"size:100" json:"programme"`
	DateOfBirth         string               `gorm:"size:20" json:"date_of_birth"`
	StateOfOrigin       string               `gorm:"size:50" json:"state_of_origin"`
	MaritalStatus       string               `gorm:"size:20" json:"marital_status"`
	Religion            *string              `gorm:"size:50" json:"religion,omitempty"`
	MedicalRequirements *string              `gorm:"type:text" json:"medical_requirements,omitempty"`
	HomeAddress         string               `gorm:"type:text" json:"home_address"`
	City                string               `gorm:"size:100" json:"city"`
	PassportURL         *string              `gorm:"size:255" json:"passport_url,omitempty"`
	RoomType            string               `gorm:"size:50" json:"room_type"`
	Block               string               `gorm:"size:50" json:"block"`
	RoomOccupants       int                  `json:"room_occupants"`
	PaymentStatus       StudentPaymentStatus `gorm:"size:20;not null;default:'pending'" json:"payment_status"`

	NextOfKin    *NextOfKin    `gorm:"foreignkey:StudentID" json:"next_of_kin,omitempty"`
	SecurityInfo *SecurityInfo `gorm:"foreignkey:StudentID" json:"security_info,omitempty"`
	Guarantor    *Guarantor    `gorm:"foreignkey:StudentID" json:"guarantor,omitempty"`
	Payments     []Payment     `gorm:"foreignkey:StudentID" json:"payments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.PaymentStatus == "" {
		s.PaymentStatus = StudentPaymentPending
	}
	return nil
}
