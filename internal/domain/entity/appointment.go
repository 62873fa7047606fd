package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// CancelSelectionPrefix namespaces cancel list ids away from slot ids
const CancelSelectionPrefix = "cancel_"

var ErrInvalidStatusTransition = errors.New("invalid appointment status transition")

// Appointment references its patient and doctor by id only.
// DoctorID is nil when the booking was made on an address no doctor owns.
type Appointment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID       *uuid.UUID        `gorm:"type:uuid;index" json:"doctor_id,omitempty"`
	SlotID         string            `gorm:"type:varchar(64)" json:"slot_id"`
	SlotDescriptor string            `gorm:"type:varchar(255);not null" json:"slot_descriptor"`
	SlotStartsAt   *time.Time        `json:"slot_starts_at,omitempty"`
	Status         AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsScheduled checks if appointment is still scheduled
func (a *Appointment) IsScheduled() bool {
	return a.Status == AppointmentStatusScheduled
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// Cancel moves a scheduled appointment to cancelled; nothing else is legal
func (a *Appointment) Cancel() error {
	if !a.IsScheduled() {
		return ErrInvalidStatusTransition
	}
	a.Status = AppointmentStatusCancelled
	return nil
}

// CancelSelectionID builds the list id offered for cancelling an appointment
func CancelSelectionID(id uuid.UUID) string {
	return CancelSelectionPrefix + id.String()
}

// ParseCancelSelectionID extracts the appointment id from a cancel list id
func ParseCancelSelectionID(selection string) (uuid.UUID, bool) {
	if !strings.HasPrefix(selection, CancelSelectionPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(selection, CancelSelectionPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
