// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumers.
package queue

import (
	"time"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Queue names.  Both are durable.  The email queue carries mail.Message
// bodies for emails whose loss does not need compensating.
const (
	EmailQueue       = "email.dispatch"
	BookingPaidQueue = "booking.paid"
)

// BookingPaidEvent is published when a booking is marked paid.  It
// carries enough for consumers to log or notify without querying the
// primary database.
type BookingPaidEvent struct {
	BookingID         uint64  `json:"booking_id"`
	UserID            uint64  `json:"user_id"`
	TourID            uint64  `json:"tour_id"`
	TourName          string  `json:"tour_name"`
	Price             float64 `json:"price"`
	CheckoutSessionID string  `json:"checkout_session_id"`
	PaidAt            string  `json:"paid_at"`
}

// NewBookingPaidEvent builds the event for b.
func NewBookingPaidEvent(b model.Booking) BookingPaidEvent {
	return BookingPaidEvent{
		BookingID:         b.ID,
		UserID:            b.UserID,
		TourID:            b.TourID,
		TourName:          b.TourName,
		Price:             b.Price,
		CheckoutSessionID: b.CheckoutSessionID,
		PaidAt:            time.Now().UTC().Format(time.RFC3339),
	}
}
