package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/mail"
)

// Handler processes one message body.  A returned error rejects the
// message without requeueing it.
type Handler func(body []byte) error

// StartConsumer connects to RabbitMQ, declares queue (durable) and hands
// every delivery to handle.  It reconnects with exponential backoff until
// ctx is cancelled.
func StartConsumer(ctx context.Context, url, queue string, handle Handler) {
	log := zap.L().With(zap.String("queue", queue))
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn("consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		zap.L().Warn("consumer: set QoS failed", zap.String("queue", queue), zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(d.Body); err != nil {
				zap.L().Error("consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// BookingLog appends booking.paid events to <Dir>/booking.log.
type BookingLog struct {
	Dir string
}

// Handle writes one event as a single human-friendly line.
func (l BookingLog) Handle(body []byte) error {
	var ev BookingPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.Dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking paid | booking_id=%d | user_id=%d | tour_id=%d | tour=%q | price=%.2f | session=%s\n",
		ev.PaidAt, ev.BookingID, ev.UserID, ev.TourID, ev.TourName, ev.Price, ev.CheckoutSessionID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// EmailHandler decodes queued mail.Message bodies and delivers them
// through sender.
func EmailHandler(sender mail.Sender) Handler {
	return func(body []byte) error {
		var msg mail.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if msg.To == "" {
			return errors.New("email without recipient")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("send %s to %s: %w", msg.Template, msg.To, err)
		}
		zap.L().Info("email sent", zap.String("template", msg.Template), zap.String("to", msg.To))
		return nil
	}
}
