package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NextOfKin struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	PhoneNumber  string    `gorm:"size:30" json:"phone_number"`
	Email        string    `gorm:"size:255" json:"email"`
	Relationship string    `gorm:"size:50" json:"relationship"`
	HomeAddress  string    `gorm:"type:text" json:"home_address"`
	City         string    `gorm:"size:100" json:"city"`
	CreatedAt    time.Time `json:"created_at"`
}

func (n *NextOfKin) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

type SecurityInfo struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	StudentID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	HasMisconduct    bool      `json:"has_misconduct"`
	HasBeenConvicted bool      `json:"has_been_convicted"`
	IsWellBehaved    bool      `json:"is_well_behaved"`
	CreatedAt        time.Time `json:"created_at"`
}

func (s *SecurityInfo) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Guarantor struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	PhoneNumber  string    `gorm:"size:30" json:"phone_number"`
	Email        string    `gorm:"size:255" json:"email"`
	Relationship string    `gorm:"size:50" json:"relationship"`
	HomeAddress  string    `gorm:"type:text" json:"home_address"`
	City         string    `gorm:"size:100" json:"city"`
	Signature    bool      `json:"signature"`
	SignedOn     string    `gorm:"size:20" json:"signed_on"`
	CreatedAt    time.Time `json:"created_at"`
}

func (g *Guarantor) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
