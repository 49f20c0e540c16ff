package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// SMTPNotifier sends plain-text mail through an SMTP relay.
type SMTPNotifier struct {
	addr   string
	from   string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger zerolog.Logger
}

// NewSMTPNotifier creates a notifier for the configured relay.
func NewSMTPNotifier(cfg config.SMTPConfig, logger zerolog.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:   cfg.From,
		auth:   auth,
		send:   smtp.SendMail,
		logger: logger.With().Str("component", "smtp_notifier").Logger(),
	}
}

func (n *SMTPNotifier) NotifyAccountCreated(ctx context.Context, email, tempPassword string) error {
	return n.deliver(ctx, AccountCreatedMessage(email, tempPassword))
}

func (n *SMTPNotifier) NotifyOrderConfirmed(ctx context.Context, email string, order model.Order, items []model.OrderItem) error {
	return n.deliver(ctx, OrderConfirmedMessage(email, order, items))
}

func (n *SMTPNotifier) deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.send(n.addr, n.auth, n.from, []string{msg.To}, n.encode(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	n.logger.Debug().Str("subject", msg.Subject).Msg("mail sent")
	return nil
}

func (n *SMTPNotifier) encode(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogNotifier writes notifications to the log instead of sending them. It is
// used when no SMTP relay is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

func (n *LogNotifier) NotifyAccountCreated(_ context.Context, email, _ string) error {
	n.logger.Info().Str("to", email).Msg("account created notification")
	return nil
}

func (n *LogNotifier) NotifyOrderConfirmed(_ context.Context, email string, order model.Order, items []model.OrderItem) error {
	n.logger.Info().
		Str("to", email).
		Str("order_id", order.ID.String()).
		Int("items", len(items)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order confirmation notification")
	return nil
}
