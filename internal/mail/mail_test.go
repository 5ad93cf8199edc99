package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

func TestSMTPSenderRendersPlainText(t *testing.T) {
	s, err := NewSMTPSender(config.SMTPConfig{Host: "mail.test", Port: "2525", From: "AdventureHub Team <team@adventurehub.test>"})
	require.NoError(t, err)

	var sent *gomail.Msg
	s.send = func(ctx context.Context, msg *gomail.Msg) error {
		sent = msg
		return nil
	}

	u := model.User{Name: "Kebede Alemu", Email: "k@example.com"}
	require.NoError(t, s.Send(context.Background(), NewMessage(TemplatePasswordReset, u, "http://front/reset-password?token=xyz")))
	require.NotNil(t, sent)

	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"k@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	require.Contains(t, raw, "Subject: Reset your password")
	require.Contains(t, raw, "team@adventurehub.test")
	require.Contains(t, raw, "Hi Kebede,")
	require.Contains(t, raw, "http://front/reset-password?token=xyz")
}

func TestSMTPSenderErrors(t *testing.T) {
	_, err := NewSMTPSender(config.SMTPConfig{Host: "mail.test", Port: "smtp"})
	require.Error(t, err)

	s, err := NewSMTPSender(config.SMTPConfig{Host: "mail.test", Port: "25", From: "team@adventurehub.test"})
	require.NoError(t, err)
	s.send = func(ctx context.Context, msg *gomail.Msg) error { return errors.New("connection refused") }

	err = s.Send(context.Background(), NewMessage(TemplateVerification, model.User{Email: "a@example.com"}, "http://front/verify"))
	require.ErrorContains(t, err, "connection refused")

	err = s.Send(context.Background(), Message{Template: TemplateWelcome, To: "not an address"})
	require.Error(t, err)
}

func TestMailerUsesTemplates(t *testing.T) {
	var got []Message
	m := NewMailer(SenderFunc(func(ctx context.Context, msg Message) error {
		got = append(got, msg)
		return nil
	}))
	u := model.User{Name: "Abebe Bikila", Email: "abebe@example.com"}

	require.NoError(t, m.SendVerification(context.Background(), u, "http://front/verify-email?token=abc"))
	require.NoError(t, m.SendPasswordReset(context.Background(), u, "http://front/reset-password?token=def"))
	require.Len(t, got, 2)
	require.Equal(t, TemplateVerification, got[0].Template)
	require.Equal(t, "Verify your email address", got[0].Subject)
	require.Equal(t, "Abebe", got[0].FirstName)
	require.Equal(t, TemplatePasswordReset, got[1].Template)
	require.Contains(t, got[1].Text(), "ten minutes")
}
