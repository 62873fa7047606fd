package handler

import (
	"net/http"

	"whatsapp-booking-bot/internal/usecase"
	"whatsapp-booking-bot/pkg/response"

	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
	}
}

func (h *AppointmentHandler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
	result, err := h.appointmentUsecase.GetPatientAppointments(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		if err == usecase.ErrPatientNotFound {
			response.NotFound(w, "Patient not found")
			return
		}
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", result)
}

// PreviewSlots returns the catalog a patient would be offered right now
func (h *AppointmentHandler) PreviewSlots(w http.ResponseWriter, r *http.Request) {
	slots := h.appointmentUsecase.PreviewSlots(r.Context())
	response.SuccessList(w, http.StatusOK, "Slots retrieved successfully", slots.Slots, slots.Total)
}
