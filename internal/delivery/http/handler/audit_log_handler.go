package handler

import (
	"net/http"

	"whatsapp-booking-bot/internal/usecase"
	"whatsapp-booking-bot/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

// GetPatientAuditLogs lists the audit trail recorded for a patient's address
func (h *AuditLogHandler) GetPatientAuditLogs(w http.ResponseWriter, r *http.Request) {
	auditLogs, err := h.auditLogUsecase.GetActorAuditLogs(r.Context(), mux.Vars(r)["phone"])
	if err != nil {
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.SuccessList(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs.Logs, auditLogs.Total)
}
