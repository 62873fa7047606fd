package repository

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, error)
	// FindOrCreate returns the single patient row for phone, inserting it when absent.
	// The bool reports whether this call inserted the row.
	FindOrCreate(ctx context.Context, db *gorm.DB, phone string) (*entity.Patient, bool, error)
	UpdateName(ctx context.Context, db *gorm.DB, id uuid.UUID, name string) error
}
