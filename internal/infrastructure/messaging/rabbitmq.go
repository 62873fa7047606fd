package messaging

import (
	"fmt"

	"whatsapp-booking-bot/config"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

func NewRabbitMQ(cfg config.RabbitMQConfig) (*amqp091.Connection, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for the queue dispatcher")
	}
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	logrus.Info("Successfully connected to RabbitMQ")
	return conn, nil
}

// OpenOutboundChannel opens a channel and declares the durable outbound queue
func OpenOutboundChannel(conn *amqp091.Connection, queue string) (*amqp091.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return ch, nil
}
