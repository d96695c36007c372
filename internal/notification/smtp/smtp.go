package smtp

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/notification"
)

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailer creates the SMTP-backed Notifier that sends templated
// transactional emails.
func NewMailer(cfg Config) notification.Notifier {
	return &mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *mailer) OrderPlaced(ctx context.Context, user *entity.User, order *entity.Order) error {
	var body bytes.Buffer
	data := orderEmailData{User: user, Order: order}
	if err := orderPlacedTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render order confirmation: %w", err)
	}
	subject := fmt.Sprintf("Order %s confirmed", order.ID)
	return m.send(user.Email, subject, body.String())
}

func (m *mailer) OrderStatusChanged(ctx context.Context, user *entity.User, order *entity.Order, previous entity.OrderStatus) error {
	var body bytes.Buffer
	data := orderEmailData{User: user, Order: order, PreviousStatus: previous}
	if err := statusChangedTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render status update: %w", err)
	}
	subject := fmt.Sprintf("Order %s is now %s", order.ID, order.Status)
	return m.send(user.Email, subject, body.String())
}

func (m *mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
