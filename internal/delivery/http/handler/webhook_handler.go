package handler

import (
	"bytes"
	"errors"
	"mime"
	"net/http"

	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/usecase"
	"whatsapp-booking-bot/pkg/response"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

var jsonNull = []byte("null")

type WebhookHandler struct {
	conversationUsecase usecase.ConversationUsecase
	log                 *logrus.Logger
}

func NewWebhookHandler(conversationUsecase usecase.ConversationUsecase, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		conversationUsecase: conversationUsecase,
		log:                 log,
	}
}

// Receive handles one inbound message delivery
// @Summary Receive WhatsApp webhook
// @Tags Webhook
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /webhook/whatsapp [post]
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	payload, err := decodeWebhookPayload(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result, err := h.conversationUsecase.HandleInbound(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMissingAddress):
			response.Error(w, http.StatusBadRequest, "Missing sender or recipient", nil)
		case errors.Is(err, usecase.ErrDispatchFailed):
			h.log.Warnf("Reply not delivered (status %q): %+v", statusOf(result), err)
			response.BadGateway(w, "Failed to deliver reply")
		default:
			h.log.Errorf("Failed to process inbound message: %+v", err)
			response.InternalServerError(w, "Failed to process message")
		}
		return
	}

	response.Success(w, http.StatusOK, result.Status, result)
}

func statusOf(result *dto.WebhookResult) string {
	if result == nil {
		return ""
	}
	return result.Status
}

// decodeWebhookPayload flattens a form or JSON object body to string fields.
// Non-string JSON values are kept as their JSON encoding.
func decodeWebhookPayload(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		payload := make(map[string]string, len(raw))
		for key, value := range raw {
			value = bytes.TrimSpace(value)
			if bytes.Equal(value, jsonNull) {
				continue
			}
			if len(value) > 0 && value[0] == '"' {
				var s string
				if err := json.Unmarshal(value, &s); err != nil {
					return nil, err
				}
				payload[key] = s
				continue
			}
			payload[key] = string(value)
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	payload := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		payload[key] = r.PostForm.Get(key)
	}
	return payload, nil
}
