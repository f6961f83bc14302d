package notify

import (
	"context"

	"coloc/internal/amqp"
)

var _ Sender = (*AMQPSender)(nil)

// AMQPSender enqueues one durable message per recipient; the notifier worker
// consumes and delivers them out of band.
type AMQPSender struct {
	client *amqp.Client
}

func NewAMQPSender(client *amqp.Client) *AMQPSender {
	return &AMQPSender{client: client}
}

func (s *AMQPSender) Send(ctx context.Context, monthKey, subject, body string, recipients []Recipient) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(recipients))
	for _, r := range recipients {
		msg := amqp.NewNotificationMessage(monthKey, subject, body, r.Name, r.Address)
		if err := s.client.PublishNotification(ctx, msg); err != nil {
			results = append(results, DeliveryResult{Recipient: r, Error: err.Error()})
			continue
		}
		results = append(results, DeliveryResult{Recipient: r, Delivered: true})
	}
	return results
}
