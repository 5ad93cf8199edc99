// Package mail renders the account emails and delivers them over SMTP.
package mail

import (
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Email templates.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "passwordReset"
	TemplateWelcome       = "welcome"
)

var subjects = map[string]string{
	TemplateVerification:  "Verify your email address",
	TemplatePasswordReset: "Reset your password",
	TemplateWelcome:       "Welcome to AdventureHub, the world of adventures",
}

var bodies = map[string]string{
	TemplateVerification:  "Welcome aboard! Please confirm your email address to activate your account:\r\n\r\n%s\r\n\r\nThe link expires in one hour.",
	TemplatePasswordReset: "Forgot your password? Set a new one here:\r\n\r\n%s\r\n\r\nThe link expires in ten minutes. If you didn't ask for this, ignore this email.",
	TemplateWelcome:       "Welcome to AdventureHub! Start exploring tours here:\r\n\r\n%s",
}

// Message is one templated email.  It is also the body of the queued
// email messages.
type Message struct {
	Template  string `json:"template"`
	Subject   string `json:"subject"`
	To        string `json:"to"`
	FirstName string `json:"first_name"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// NewMessage builds a message for u using template.
func NewMessage(template string, u model.User, url string) Message {
	return Message{
		Template:  template,
		Subject:   subjects[template],
		To:        u.Email,
		FirstName: firstName(u.Name),
		URL:       url,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

// Text renders the plain text body.
func (m Message) Text() string {
	tpl, ok := bodies[m.Template]
	if !ok {
		tpl = "%s"
	}
	return "Hi " + m.FirstName + ",\r\n\r\n" + fmt.Sprintf(tpl, m.URL) + "\r\n\r\nAdventureHub Team\r\n"
}

// build turns m into a go-mail message sent from from.
func (m Message) build(from string) (*gomail.Msg, error) {
	subject := m.Subject
	if subject == "" {
		subject = subjects[m.Template]
	}
	msg := gomail.NewMsg(gomail.WithEncoding(gomail.NoEncoding))
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Text())
	return msg, nil
}
