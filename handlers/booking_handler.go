package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"cinebook/internal/status"
	"cinebook/services"
)

type BookingHandler struct {
	app      *pocketbase.PocketBase
	bookings *services.BookingService
}

func NewBookingHandler(app *pocketbase.PocketBase, bookings *services.BookingService) *BookingHandler {
	return &BookingHandler{
		app:      app,
		bookings: bookings,
	}
}

type quoteRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
}

type confirmBookingRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required"`
	Token      string   `json:"token" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
}

// Quote prices a selection without committing anything.
func (h *BookingHandler) Quote(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req quoteRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid seat selection", err)
	}

	return e.JSON(http.StatusOK, h.bookings.ComputeQuote(req.Seats))
}

// Confirm turns held seats into a booking.
func (h *BookingHandler) Confirm(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req confirmBookingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid seat selection", err)
	}

	booking, err := h.bookings.Confirm(e.Request.Context(), e.Auth.Id, req.ShowtimeID, req.Token, req.Seats)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrEmptySelection):
			return apis.NewBadRequestError("Select at least one seat", nil)
		case errors.Is(err, status.ErrSeatNotLocked):
			return apis.NewBadRequestError("Your seat hold expired. Please reselect your seats.", nil)
		case errors.Is(err, status.ErrSeatBooked):
			return apis.NewBadRequestError("One of the seats was just booked by someone else", nil)
		case errors.Is(err, status.ErrShowtimeMismatch):
			return apis.NewBadRequestError("One of the seats does not belong to this showtime", nil)
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError("Showtime not found", nil)
		default:
			slog.Error("confirm booking failed", "user", e.Auth.Id, "showtime", req.ShowtimeID, "error", err)
			return apis.NewInternalServerError("Failed to confirm booking", nil)
		}
	}

	return e.JSON(http.StatusOK, booking)
}

// MyBookings lists the caller's bookings, newest first.
func (h *BookingHandler) MyBookings(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	bookings, err := h.bookings.MyBookings(e.Request.Context(), e.Auth.Id)
	if err != nil {
		slog.Error("list bookings failed", "user", e.Auth.Id, "error", err)
		return apis.NewInternalServerError("Failed to load bookings", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{"bookings": bookings})
}

// GetBooking returns one of the caller's bookings.
func (h *BookingHandler) GetBooking(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	booking, err := h.bookings.GetBooking(e.Request.Context(), e.Auth.Id, e.Request.PathValue("id"))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Booking not found", nil)
		}
		slog.Error("get booking failed", "user", e.Auth.Id, "error", err)
		return apis.NewInternalServerError("Failed to load booking", nil)
	}

	return e.JSON(http.StatusOK, booking)
}
