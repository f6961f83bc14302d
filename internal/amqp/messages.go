package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage carries one closure notification for one recipient.
// Delivery is per recipient: each message is published, consumed and
// delivered independently so one failing address never blocks the others.
type NotificationMessage struct {
	MonthKey         string    `json:"month_key"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body"`
	RecipientName    string    `json:"recipient_name"`
	RecipientAddress string    `json:"recipient_address"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewNotificationMessage(monthKey, subject, body, name, address string) *NotificationMessage {
	return &NotificationMessage{
		MonthKey:         monthKey,
		Subject:          subject,
		Body:             body,
		RecipientName:    name,
		RecipientAddress: address,
		Timestamp:        time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
