// Package notify defines the notification port and its AMQP-backed sender.
//
// Sending is fire-and-forget from the ledger's perspective: a committed
// closure is never rolled back because a notification failed, and failures
// are reported per recipient rather than aggregated.
package notify

import "context"

// Recipient is one notification target.
type Recipient struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DeliveryResult reports the outcome for a single recipient.
type DeliveryResult struct {
	Recipient Recipient `json:"recipient"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}

// Sender attempts delivery per recipient and never returns a transport
// error for the batch as a whole.
type Sender interface {
	Send(ctx context.Context, monthKey, subject, body string, recipients []Recipient) []DeliveryResult
}
