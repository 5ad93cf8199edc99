package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yoseph1994/adventurehub/internal/mail"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

type recordingPublisher struct {
	queue string
	body  any
	err   error
}

func (r *recordingPublisher) Publish(ctx context.Context, queue string, v any) error {
	r.queue, r.body = queue, v
	return r.err
}

func TestNotifierQueuesWelcome(t *testing.T) {
	pub := &recordingPublisher{}
	n := &Notifier{Pub: pub}
	u := model.User{Name: "Abebe Bikila", Email: "abebe@example.com"}

	require.NoError(t, n.SendWelcome(context.Background(), u, "http://front/me"))
	require.Equal(t, EmailQueue, pub.queue)
	msg := pub.body.(mail.Message)
	require.Equal(t, mail.TemplateWelcome, msg.Template)
	require.Equal(t, "Abebe", msg.FirstName)
	require.Equal(t, "abebe@example.com", msg.To)

	pub.err = errors.New("broker down")
	require.Error(t, n.SendWelcome(context.Background(), u, "http://front/me"))
}

func TestBookingLogAppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body, err := json.Marshal(NewBookingPaidEvent(model.Booking{
		ID: 3, UserID: 7, TourID: 5, TourName: "The Snow Adventurer", Price: 997, CheckoutSessionID: "cs_1",
	}))
	require.NoError(t, err)

	l := BookingLog{Dir: dir}
	require.NoError(t, l.Handle(body))
	require.NoError(t, l.Handle(body))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `booking_id=3 | user_id=7 | tour_id=5 | tour="The Snow Adventurer" | price=997.00 | session=cs_1`)

	require.Error(t, l.Handle([]byte("{")))
}

func TestEmailHandler(t *testing.T) {
	var sent []mail.Message
	h := EmailHandler(mail.SenderFunc(func(ctx context.Context, m mail.Message) error {
		sent = append(sent, m)
		return nil
	}))

	body, _ := json.Marshal(mail.Message{Template: mail.TemplateWelcome, To: "a@example.com"})
	require.NoError(t, h(body))
	require.Len(t, sent, 1)

	body, _ = json.Marshal(mail.Message{Template: mail.TemplateWelcome})
	require.Error(t, h(body))
	require.Error(t, h([]byte("not json")))

	failing := EmailHandler(mail.SenderFunc(func(ctx context.Context, m mail.Message) error {
		return errors.New("connection refused")
	}))
	body, _ = json.Marshal(mail.Message{Template: mail.TemplateWelcome, To: "a@example.com"})
	require.ErrorContains(t, failing(body), "connection refused")
}
