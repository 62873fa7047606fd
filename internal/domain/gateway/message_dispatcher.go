package gateway

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"
)

// MessageDispatcher delivers outbound messages to a chat address.
// Implementations report transport failures synchronously and never retry
// after the provider accepted or definitively rejected a message.
type MessageDispatcher interface {
	SendText(ctx context.Context, to, body string) error
	SendTemplate(ctx context.Context, to, templateName string, params []string) error
	SendSelectableList(ctx context.Context, to string, list entity.SelectableList) error
}
