package dto

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	DoctorID       *uuid.UUID `json:"doctor_id,omitempty"`
	SlotID         string     `json:"slot_id"`
	SlotDescriptor string     `json:"slot_descriptor"`
	SlotStartsAt   *time.Time `json:"slot_starts_at,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// PatientAppointmentsResponse is a patient's booking history
type PatientAppointmentsResponse struct {
	PatientID    uuid.UUID             `json:"patient_id"`
	PhoneNumber  string                `json:"phone_number"`
	Name         string                `json:"name,omitempty"`
	Stage        string                `json:"stage"`
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type SlotResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
}

type SlotListResponse struct {
	Slots []SlotResponse `json:"slots"`
	Total int            `json:"total"`
}
