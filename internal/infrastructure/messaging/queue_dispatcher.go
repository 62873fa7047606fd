package messaging

import (
	"context"
	"fmt"

	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/gateway"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher is the subset of *amqp091.Channel the queue dispatcher uses
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// QueueDispatcher hands outbound messages to a worker through RabbitMQ.
// A successful publish counts as a successful send.
type QueueDispatcher struct {
	publisher Publisher
	queue     string
	language  string
	log       *logrus.Logger
}

var _ gateway.MessageDispatcher = (*QueueDispatcher)(nil)

func NewQueueDispatcher(publisher Publisher, queue, language string, log *logrus.Logger) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher, queue: queue, language: language, log: log}
}

func (d *QueueDispatcher) SendText(ctx context.Context, to, body string) error {
	return d.publish(ctx, entity.OutboundMessage{Kind: entity.OutboundKindText, To: to, Body: body})
}

func (d *QueueDispatcher) SendTemplate(ctx context.Context, to, templateName string, params []string) error {
	return d.publish(ctx, entity.OutboundMessage{
		Kind:         entity.OutboundKindTemplate,
		To:           to,
		TemplateName: templateName,
		Language:     d.language,
		Parameters:   params,
	})
}

func (d *QueueDispatcher) SendSelectableList(ctx context.Context, to string, list entity.SelectableList) error {
	return d.publish(ctx, entity.OutboundMessage{Kind: entity.OutboundKindList, To: to, List: &list})
}

func (d *QueueDispatcher) publish(ctx context.Context, msg entity.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Kind, err)
	}

	err = d.publisher.PublishWithContext(ctx, "", d.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Headers: amqp091.Table{
			"message_type":     "JSON",
			"requeue_strategy": "DROP",
		},
	})
	if err != nil {
		d.log.Warnf("Failed to publish %s message to %s: %+v", msg.Kind, d.queue, err)
		return fmt.Errorf("publish to %s: %w", d.queue, err)
	}

	d.log.WithFields(logrus.Fields{"to": msg.To, "kind": msg.Kind, "queue": d.queue}).Info("Message queued")
	return nil
}
