package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"coloc/internal/amqp"
)

// SMTPDeliverer sends queued notification messages over SMTP. Credentials
// are injected, never embedded; the notifier worker owns the only instance.
type SMTPDeliverer struct {
	addr     string // host:port
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPDeliverer(host string, port int, from, username, password string) *SMTPDeliverer {
	d := &SMTPDeliverer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		sendMail: smtp.SendMail,
	}
	if username != "" {
		d.auth = smtp.PlainAuth("", username, password, host)
	}
	return d
}

// Deliver sends one notification message to its single recipient.
func (d *SMTPDeliverer) Deliver(msg *amqp.NotificationMessage) error {
	if strings.TrimSpace(msg.RecipientAddress) == "" {
		return fmt.Errorf("notification for %q has no recipient address", msg.RecipientName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.RecipientAddress)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := d.sendMail(d.addr, d.auth, d.from, []string{msg.RecipientAddress}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.RecipientAddress, err)
	}
	return nil
}
