package converter

import (
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appt *entity.Appointment) *dto.AppointmentResponse {
	if appt == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:             appt.ID,
		PatientID:      appt.PatientID,
		DoctorID:       appt.DoctorID,
		SlotID:         appt.SlotID,
		SlotDescriptor: appt.SlotDescriptor,
		SlotStartsAt:   appt.SlotStartsAt,
		Status:         string(appt.Status),
		CreatedAt:      appt.CreatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appts []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appts))
	for i := range appts {
		responses[i] = *AppointmentToResponse(&appts[i])
	}
	return responses
}

func SlotsToResponses(slots []entity.Slot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i, s := range slots {
		responses[i] = dto.SlotResponse{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			StartsAt:    s.StartsAt,
		}
	}
	return responses
}
