package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/skyhostel/sky_hostel/database"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

type PersonalInfo struct {
	FirstName           string  `json:"firstName" validate:"required,min=2"`
	LastName            string  `json:"lastName" validate:"required,min=2"`
	ContactNumber       string  `json:"contactNumber" validate:"required,min=10"`
	Email               string  `json:"email" validate:"required,email"`
	MatricNumber        string  `json:"matricNumber" validate:"required,min=5"`
	Level               string  `json:"level" validate:"required"`
	Faculty             string  `json:"faculty" validate:"required,min=2"`
	Department          string  `json:"department" validate:"required,min=2"`
	Programme           string  `json:"programme" validate:"required,min=2"`
	DateOfBirth         string  `json:"dateOfBirth" validate:"required,min=8"`
	StateOfOrigin       string  `json:"stateOfOrigin" validate:"required,min=2"`
	MaritalStatus       string  `json:"maritalStatus" validate:"required"`
	Religion            *string `json:"religion,omitempty"`
	MedicalRequirements *string `json:"medicalRequirements,omitempty"`
	HomeAddress         string  `json:"homeAddress" validate:"required,min=5"`
	City                string  `json:"city" validate:"required,min=2"`
	PassportURL         *string `json:"passportUrl,omitempty" validate:"omitempty,url"`
}

type ContactPerson struct {
	FirstName     string `json:"firstName" validate:"required,min=2"`
	LastName      string `json:"lastName" validate:"required,min=2"`
	ContactNumber string `json:"contactNumber" validate:"required,min=10"`
	Email         string `json:"email" validate:"required,email"`
	Relationship  string `json:"relationship" validate:"required,min=2"`
	HomeAddress   string `json:"homeAddress" validate:"required,min=5"`
	City          string `json:"city" validate:"required,min=2"`
}

type SecurityAnswers struct {
	HasMisconduct    bool `json:"hasMisconduct"`
	HasBeenConvicted bool `json:"hasBeenConvicted"`
	IsWellBehaved    bool `json:"isWellBehaved"`
}

type Agreement struct {
	AcceptedTerms bool   `json:"acceptedTerms" validate:"eq=true"`
	FirstName     string `json:"firstName" validate:"required,min=2"`
	LastName      string `json:"lastName" validate:"required,min=2"`
}

type GuarantorInfo struct {
	ContactPerson
	SignatureDeclaration bool   `json:"signatureDeclaration" validate:"eq=true"`
	Date                 string `json:"date" validate:"required,min=8"`
}

type RoomSelection struct {
	RoomType         string `json:"roomType"`
	Block            string `json:"block"`
	NumberOfStudents int    `json:"numberOfStudents" validate:"gte=0"`
}

type RegistrationRequest struct {
	PersonalInfo  PersonalInfo    `json:"personalInfo" validate:"required"`
	NextOfKin     ContactPerson   `json:"nextOfKin" validate:"required"`
	SecurityInfo  SecurityAnswers `json:"securityInfo"`
	Agreement     Agreement       `json:"agreement" validate:"required"`
	Guarantor     GuarantorInfo   `json:"guarantor" validate:"required"`
	RoomSelection *RoomSelection  `json:"roomSelection,omitempty"`
}

const (
	defaultRoomType      = "Room of 4"
	defaultBlock         = "Block A"
	defaultRoomOccupants = 2
)

type RegistrationResult struct {
	StudentID uuid.UUID
	FullName  string
	Room      RoomSelection
}

type RegistrationService struct {
	store  PaymentStore
	logger *zap.Logger
}

func NewRegistrationService(store PaymentStore, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{store: store, logger: logger.Named("registration")}
}

func roomOrDefault(sel *RoomSelection) RoomSelection {
	room := RoomSelection{RoomType: defaultRoomType, Block: defaultBlock, NumberOfStudents: defaultRoomOccupants}
	if sel == nil {
		return room
	}
	if sel.RoomType != "" {
		room.RoomType = sel.RoomType
	}
	if sel.Block != "" {
		room.Block = sel.Block
	}
	if sel.NumberOfStudents > 0 {
		room.NumberOfStudents = sel.NumberOfStudents
	}
	return room
}

func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// Register stores a new student in pending payment state along with next of
// kin, security answers and guarantor.
func (s *RegistrationService) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	p := req.PersonalInfo
	room := roomOrDefault(req.RoomSelection)

	student := &models.Student{
		MatricNumber:        strings.TrimSpace(p.MatricNumber),
		FirstName:           strings.TrimSpace(p.FirstName),
		LastName:            strings.TrimSpace(p.LastName),
		Email:               strings.TrimSpace(p.Email),
		PhoneNumber:         p.ContactNumber,
		Level:               p.Level,
		Faculty:             p.Faculty,
		Department:          p.Department,
		Programme:           p.Programme,
		DateOfBirth:         p.DateOfBirth,
		StateOfOrigin:       p.StateOfOrigin,
		MaritalStatus:       p.MaritalStatus,
		Religion:            p.Religion,
		MedicalRequirements: p.MedicalRequirements,
		HomeAddress:         p.HomeAddress,
		City:                p.City,
		PassportURL:         p.PassportURL,
		RoomType:            room.RoomType,
		Block:               room.Block,
		RoomOccupants:       room.NumberOfStudents,
		PaymentStatus:       models.StudentPaymentPending,
		NextOfKin: &models.NextOfKin{
			FullName:     fullName(req.NextOfKin.FirstName, req.NextOfKin.LastName),
			PhoneNumber:  req.NextOfKin.ContactNumber,
			Email:        req.NextOfKin.Email,
			Relationship: req.NextOfKin.Relationship,
			HomeAddress:  req.NextOfKin.HomeAddress,
			City:         req.NextOfKin.City,
		},
		SecurityInfo: &models.SecurityInfo{
			HasMisconduct:    req.SecurityInfo.HasMisconduct,
			HasBeenConvicted: req.SecurityInfo.HasBeenConvicted,
			IsWellBehaved:    req.SecurityInfo.IsWellBehaved,
		},
		Guarantor: &models.Guarantor{
			FullName:     fullName(req.Guarantor.FirstName, req.Guarantor.LastName),
			PhoneNumber:  req.Guarantor.ContactNumber,
			Email:        req.Guarantor.Email,
			Relationship: req.Guarantor.Relationship,
			HomeAddress:  req.Guarantor.HomeAddress,
			City:         req.Guarantor.City,
			Signature:    req.Guarantor.SignatureDeclaration,
			SignedOn:     req.Guarantor.Date,
		},
	}

	if err := s.store.CreateStudent(ctx, student); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &Error{Kind: ErrConflict, Message: "A student with this matric number is already registered"}
		}
		s.logger.Error("Failed to register student", zap.String("matric_number", student.MatricNumber), zap.Error(err))
		return nil, persistenceErr("Error saving registration", err)
	}

	s.logger.Info("Student registered", zap.String("matric_number", student.MatricNumber), zap.String("student_id", student.ID.String()))
	return &RegistrationResult{StudentID: student.ID, FullName: student.FullName(), Room: room}, nil
}
