package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/mail"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Publisher publishes JSON messages to durable queues on the default
// exchange.  The broker connection is opened on first use and reopened
// after it drops, so the API starts even when the broker is down.
type Publisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the broker at url.  Nothing is
// dialed until the first Publish.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: confirm mode: %w", err)
	}
	for _, q := range []string{EmailQueue, BookingPaidQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: queue declare %s: %w", q, err)
		}
	}
	p.ch = ch
	return ch, nil
}

// Publish marshals v and sends it as a persistent message to queue.  It
// returns once the broker has confirmed the message.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		zap.L().Warn("rabbitmq unavailable", zap.String("queue", queue), zap.Error(err))
		return err
	}
	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		zap.L().Warn("rabbitmq publish failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: wait confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq: broker nacked message on %s", queue)
	}
	return nil
}

// PublishBookingPaid announces a paid booking.
func (p *Publisher) PublishBookingPaid(ctx context.Context, b model.Booking) error {
	return p.Publish(ctx, BookingPaidQueue, NewBookingPaidEvent(b))
}

// Close releases the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// Notifier queues emails whose delivery is best effort.
type Notifier struct {
	Pub interface {
		Publish(ctx context.Context, queue string, v any) error
	}
}

// NewNotifier returns a Notifier publishing through p.
func NewNotifier(p *Publisher) *Notifier { return &Notifier{Pub: p} }

// SendWelcome queues the welcome email sent after verification.
func (n *Notifier) SendWelcome(ctx context.Context, u model.User, url string) error {
	return n.Pub.Publish(ctx, EmailQueue, mail.NewMessage(mail.TemplateWelcome, u, url))
}
