package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/payment"
	"github.com/Yoseph1994/adventurehub/internal/repository"
)

const (
	MsgNoBooking       = "No booking found with that ID"
	MsgPaymentDown     = "Payment could not be started. Please try again later."
	MsgBadBookingState = "Booking status can be - pending, paid, canceled and refunded only"
)

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, b model.Booking) (model.Booking, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	List(ctx context.Context, page, limit int) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, next model.BookingStatus, refund string) (model.Booking, error)
}

// PaymentProvider opens hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, r payment.CheckoutRequest) (payment.CheckoutSession, error)
}

// BookingEvents announces booking state changes.
type BookingEvents interface {
	PublishBookingPaid(ctx context.Context, b model.Booking) error
}

// BookingService opens payment sessions and tracks booking status.
type BookingService struct {
	Bookings  BookingStore
	Tours     TourLookup
	Payments  PaymentProvider
	Events    BookingEvents
	Currency  string
	PublicURL string
}

// NewBookingService returns a BookingService charging in currency.
// publicURL is where checkout returns the client.
func NewBookingService(bookings BookingStore, tours TourLookup, payments PaymentProvider, events BookingEvents, currency, publicURL string) *BookingService {
	return &BookingService{
		Bookings:  bookings,
		Tours:     tours,
		Payments:  payments,
		Events:    events,
		Currency:  currency,
		PublicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Checkout is a created payment session and its pending booking.
type Checkout struct {
	Session payment.CheckoutSession `json:"session"`
	Booking model.Booking           `json:"booking"`
}

// StatusInput is the admin status change payload.
type StatusInput struct {
	Status model.BookingStatus `json:"status"`
	Refund string              `json:"refund"`
}

// Validate accepts only the known booking statuses.
func (r StatusInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.By(func(v interface{}) error {
			if s, _ := v.(model.BookingStatus); !s.Valid() {
				return errors.New(MsgBadBookingState)
			}
			return nil
		})),
		validation.Field(&r.Refund, validation.Length(0, 255)),
	)
}

// Checkout opens a payment session for one seat on a tour and records a
// pending booking for it.
func (s *BookingService) Checkout(ctx context.Context, user model.User, tourID uint64) (Checkout, error) {
	tour, err := s.Tours.GetByID(ctx, tourID)
	if err != nil {
		if errors.Is(err, repository.ErrTourNotFound) {
			return Checkout{}, apperr.NotFound(MsgNoTour, err)
		}
		return Checkout{}, err
	}
	req := payment.CheckoutRequest{
		TourID:        tour.ID,
		TourName:      tour.Name,
		Summary:       tour.Summary,
		Price:         tour.Price,
		Currency:      s.Currency,
		CustomerEmail: user.Email,
		SuccessURL:    s.PublicURL + "/",
		CancelURL:     s.PublicURL + "/tours/" + strconv.FormatUint(tour.ID, 10),
	}
	if tour.ImageCover != "" {
		req.ImageURL = s.PublicURL + "/img/tours/" + tour.ImageCover
	}
	if len(tour.StartDates) > 0 {
		first := tour.StartDates[0]
		req.StartDate = &first
	}
	sess, err := s.Payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return Checkout{}, apperr.External(MsgPaymentDown, err)
	}
	intent := sess.PaymentIntent
	if intent == "" {
		intent = sess.ID
	}
	b, err := s.Bookings.Create(ctx, model.Booking{
		TourID:            tour.ID,
		UserID:            user.ID,
		Price:             tour.Price,
		PaymentIntent:     intent,
		CheckoutSessionID: sess.ID,
		Status:            model.BookingPending,
	})
	if err != nil {
		return Checkout{}, fmt.Errorf("record booking: %w", err)
	}
	return Checkout{Session: sess, Booking: b}, nil
}

// MyBookings lists the user's bookings.
func (s *BookingService) MyBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

// List lists every booking.
func (s *BookingService) List(ctx context.Context, page, limit int) ([]model.Booking, error) {
	return s.Bookings.List(ctx, page, limit)
}

// UpdateStatus applies a status transition.  Moving to paid publishes a
// booking.paid event; publish failures are logged and do not fail the
// request.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, in StatusInput) (model.Booking, error) {
	if err := in.Validate(); err != nil {
		return model.Booking{}, invalid(err)
	}
	b, err := s.Bookings.UpdateStatus(ctx, id, in.Status, in.Refund)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return model.Booking{}, apperr.NotFound(MsgNoBooking, err)
		case errors.Is(err, repository.ErrConflict):
			return model.Booking{}, apperr.Validation(fmt.Sprintf("Booking cannot move to %s", in.Status), err)
		}
		return model.Booking{}, err
	}
	if b.Status == model.BookingPaid && s.Events != nil {
		if perr := s.Events.PublishBookingPaid(ctx, b); perr != nil {
			zap.L().Warn("publish booking.paid failed", zap.Uint64("booking_id", b.ID), zap.Error(perr))
		}
	}
	return b, nil
}
