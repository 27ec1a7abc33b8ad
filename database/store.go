package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skyhostel/sky_hostel/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the relational record store for students and their payments.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (s *Store) FindStudentByMatric(ctx context.Context, matricNumber string) (*models.Student, error) {
	var student models.Student
	err := s.db.WithContext(ctx).Where("matric_number = ?", matricNumber).First(&student).Error
	if err != nil {
		return nil, translate(err)
	}
	return &student, nil
}

// CreateStudent inserts the student together with any attached next of kin,
// security info and guarantor rows in one transaction.
func (s *Store) CreateStudent(ctx context.Context, student *models.Student) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Student{}).Where("matric_number = ?", student.MatricNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		return tx.Create(student).Error
	})
	return translate(err)
}

func (s *Store) ListStudents(ctx context.Context, paymentStatus string, limit, offset int) ([]models.Student, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Student{})
	if paymentStatus != "" {
		q = q.Where("payment_status = ?", paymentStatus)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var students []models.Student
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&students).Error; err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return translate(s.db.WithContext(ctx).Create(payment).Error)
}

func (s *Store) FindPaymentWithStudent(ctx context.Context, rrr string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Preload("Student").Where("rrr = ?", rrr).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// LatestPaymentForStudent returns the most recently created payment of a student.
func (s *Store) LatestPaymentForStudent(ctx context.Context, studentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at desc").
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *Store) ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) ListPayments(ctx context.Context, status string, limit, offset int) ([]models.Payment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var payments []models.Payment
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// ApplyPaymentStatus writes a new status onto the payment row and, when
// markPaid is set, flips the owning student to paid. Both writes share a
// transaction.
func (s *Store) ApplyPaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus, raw []byte, markPaid bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Select("id", "student_id").First(&payment, "id = ?", paymentID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}
		if len(raw) > 0 {
			updates["gateway_response"] = datatypes.JSON(raw)
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(updates).Error; err != nil {
			return err
		}

		if markPaid {
			return tx.Model(&models.Student{}).
				Where("id = ?", payment.StudentID).
				Update("payment_status", models.StudentPaymentPaid).Error
		}
		return nil
	})
	return translate(err)
}

// UpsertPaymentByRRR records a payment reported by the client. An existing
// row only has its status rewritten; a new row is inserted otherwise. When a
// concurrent insert wins the reference, that row is updated instead and
// payment is overwritten with it.
func (s *Store) UpsertPaymentByRRR(ctx context.Context, payment *models.Payment, markPaid bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.Where("rrr = ?", payment.RRR).First(&existing).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				return markStudentPaid(tx, payment.StudentID, markPaid)
			}
			if err := tx.Where("rrr = ?", payment.RRR).First(&existing).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if existing.Status != payment.Status {
			err := tx.Model(&existing).Updates(map[string]interface{}{
				"status":     payment.Status,
				"updated_at": time.Now(),
			}).Error
			if err != nil {
				return err
			}
			existing.Status = payment.Status
		}
		*payment = existing
		return markStudentPaid(tx, payment.StudentID, markPaid)
	})
	return translate(err)
}

func markStudentPaid(tx *gorm.DB, studentID uuid.UUID, markPaid bool) error {
	if !markPaid {
		return nil
	}
	return tx.Model(&models.Student{}).
		Where("id = ?", studentID).
		Update("payment_status", models.StudentPaymentPaid).Error
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) SetReceiptURL(ctx context.Context, paymentID uuid.UUID, url string) error {
	err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("receipt_url", url).Error
	if err != nil {
		return fmt.Errorf("failed to save receipt url: %w", err)
	}
	return nil
}
