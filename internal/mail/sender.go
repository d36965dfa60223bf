package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/straye-as/pipeline-api/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrDisabled is returned when SMTP sending is not configured
var ErrDisabled = errors.New("email sending is disabled")

// Sender delivers plain text emails
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	from   string
	send   func(m *gomail.Message) error
	logger *zap.Logger
}

// NewSender returns an SMTP sender, or a disabled one when mail is turned off
func NewSender(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled {
		return Disabled{}
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &SMTPSender{
		from:   cfg.From,
		send:   func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		logger: logger,
	}
}

// Send dials the relay per message. The context is only checked before dialing
// since gomail does not take one.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	s.logger.Info("Follow-up email sent", zap.String("to", to))
	return nil
}

// Disabled rejects every message
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, string) error { return ErrDisabled }
