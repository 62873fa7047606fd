package repository

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository interface {
	Create(ctx context.Context, db *gorm.DB, doctor *entity.Doctor) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Doctor, error)
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*entity.Doctor, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]entity.Doctor, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]entity.Doctor, error)
}
