package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/service"
)

// BookingHandler serves checkout and booking management.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler wires the booking endpoints to bookings.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: bookings}
}

// CheckoutSession opens a payment session for a tour and records a
// pending booking.
func (h *BookingHandler) CheckoutSession(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	tourID, err := idParam(c, "tourId")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	co, err := h.Bookings.Checkout(ctx, u, tourID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"session": co.Session,
		"data":    echo.Map{"booking": co.Booking},
	})
}

// MyBookings lists the caller's bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Bookings.MyBookings(ctx, u.ID)
	if err != nil {
		return err
	}
	return results(c, "bookings", bookings)
}

// List pages through all bookings.
func (h *BookingHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Bookings.List(ctx, page, limit)
	if err != nil {
		return err
	}
	return results(c, "bookings", bookings)
}

// UpdateStatus moves a booking to a new status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in service.StatusInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.UpdateStatus(ctx, id, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"booking": b})
}
