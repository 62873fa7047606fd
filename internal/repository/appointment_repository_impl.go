package repository

import (
	"context"
	"errors"

	"whatsapp-booking-bot/internal/domain/entity"
	domainRepo "whatsapp-booking-bot/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// latestFirst breaks created_at ties (same-tick duplicate deliveries) deterministically
const latestFirst = "created_at DESC, slot_starts_at DESC, id DESC"

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return firstAppointment(db.WithContext(ctx).Where("id = ?", id))
}

func (r *appointmentRepository) FindLatestByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Appointment, error) {
	return firstAppointment(db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order(latestFirst))
}

func (r *appointmentRepository) FindLatestScheduledWithDoctor(ctx context.Context, db *gorm.DB, patientID uuid.UUID, doctorID *uuid.UUID) (*entity.Appointment, error) {
	query := db.WithContext(ctx).Where("patient_id = ? AND status = ?", patientID, entity.AppointmentStatusScheduled)
	if doctorID == nil {
		query = query.Where("doctor_id IS NULL")
	} else {
		query = query.Where("doctor_id = ?", *doctorID)
	}
	return firstAppointment(query.Order(latestFirst))
}

func (r *appointmentRepository) FindByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order(latestFirst).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByPatientAndStatus(ctx context.Context, db *gorm.DB, patientID uuid.UUID, status entity.AppointmentStatus) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", patientID, status).
		Order(latestFirst).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, status entity.AppointmentStatus) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := db.WithContext(ctx).Where("doctor_id = ?", doctorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order(latestFirst).Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// Cancel atomically cancels an appointment ONLY if it is still scheduled.
// Returns affected rows: 1 = success, 0 = not scheduled (prevents double-cancel race).
func (r *appointmentRepository) Cancel(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusScheduled).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}

func firstAppointment(query *gorm.DB) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := query.First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}
