package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

// SMTPSender delivers messages as plain text over SMTP, upgrading to TLS
// when the server offers it.
type SMTPSender struct {
	cfg  config.SMTPConfig
	send func(ctx context.Context, msg *gomail.Msg) error
}

// NewSMTPSender builds a sender for cfg.  A bad port fails here rather
// than on the first email.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", cfg.Port, err)
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{cfg: cfg, send: func(ctx context.Context, msg *gomail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}}, nil
}

// Send renders m and hands it to the SMTP server.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := m.build(s.cfg.From)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// Mailer sends account emails synchronously, so callers learn about
// delivery failures and can roll back.
type Mailer struct {
	Sender Sender
}

// NewMailer returns a Mailer over s.
func NewMailer(s Sender) *Mailer { return &Mailer{Sender: s} }

// SendVerification mails the email verification link.
func (m *Mailer) SendVerification(ctx context.Context, u model.User, url string) error {
	return m.Sender.Send(ctx, NewMessage(TemplateVerification, u, url))
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, u model.User, url string) error {
	return m.Sender.Send(ctx, NewMessage(TemplatePasswordReset, u, url))
}
