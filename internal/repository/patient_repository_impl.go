package repository

import (
	"context"
	"errors"
	"fmt"

	"whatsapp-booking-bot/internal/domain/entity"
	domainRepo "whatsapp-booking-bot/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type patientRepository struct{}

func NewPatientRepository() domainRepo.PatientRepository {
	return &patientRepository{}
}

func (r *patientRepository) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, error) {
	var patient entity.Patient
	err := db.WithContext(ctx).Where("phone_number = ?", phone).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &patient, nil
}

// FindOrCreate inserts with ON CONFLICT DO NOTHING so a concurrent writer for the
// same phone never produces a second row; the loser re-reads the winner's row.
func (r *patientRepository) FindOrCreate(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, bool, error) {
	existing, err := r.FindByPhone(ctx, db, phone)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	patient := &entity.Patient{PhoneNumber: phone}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).
		Create(patient)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return patient, true, nil
	}

	existing, err = r.FindByPhone(ctx, db, phone)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("patient %s missing after insert conflict", phone)
	}
	return existing, false, nil
}

func (r *patientRepository) UpdateName(ctx context.Context, db *gorm.DB, id uuid.UUID, name string) error {
	return db.WithContext(ctx).
		Model(&entity.Patient{}).
		Where("id = ?", id).
		Update("name", name).Error
}
