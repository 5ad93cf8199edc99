package model

import "time"

// BookingStatus is the payment state of a booking.
type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingPaid     BookingStatus = "paid"
	BookingCanceled BookingStatus = "canceled"
	BookingRefunded BookingStatus = "refunded"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingPaid, BookingCanceled},
	BookingPaid:    {BookingRefunded, BookingCanceled},
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingPaid, BookingCanceled, BookingRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, n := range bookingTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Booking represents a row of the `bookings` table.  PaymentIntent is
// internal and never serialized.
type Booking struct {
	ID                uint64        `json:"id"`
	TourID            uint64        `json:"tour"`
	UserID            uint64        `json:"user"`
	Price             float64       `json:"price"`
	PaymentIntent     string        `json:"-"`
	CheckoutSessionID string        `json:"checkoutSessionId"`
	Refund            string        `json:"refund,omitempty"`
	Status            BookingStatus `json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
	TourName          string        `json:"tourName,omitempty"`
}
