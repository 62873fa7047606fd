package repository

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindLatestByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Appointment, error)
	FindLatestScheduledWithDoctor(ctx context.Context, db *gorm.DB, patientID uuid.UUID, doctorID *uuid.UUID) (*entity.Appointment, error)
	FindByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByPatientAndStatus(ctx context.Context, db *gorm.DB, patientID uuid.UUID, status entity.AppointmentStatus) ([]entity.Appointment, error)
	FindByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, status entity.AppointmentStatus) ([]entity.Appointment, error)
	// Cancel flips a scheduled appointment to cancelled.
	// Returns affected rows: 0 means it was not scheduled.
	Cancel(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
}
