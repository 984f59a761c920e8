package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"cinebook/internal/status"
	"cinebook/services"
)

// SeatMetrics records lock/release outcomes. Nil disables tracking.
type SeatMetrics interface {
	TrackSeatOperation(operation, status string)
}

type SeatHandler struct {
	app     *pocketbase.PocketBase
	seats   *services.SeatService
	metrics SeatMetrics
	rows    int
	cols    int
}

func NewSeatHandler(app *pocketbase.PocketBase, seats *services.SeatService, metrics SeatMetrics, rows, cols int) *SeatHandler {
	return &SeatHandler{
		app:     app,
		seats:   seats,
		metrics: metrics,
		rows:    rows,
		cols:    cols,
	}
}

type seatSelectionRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
}

type seatReleaseRequest struct {
	Token string   `json:"token" validate:"required"`
	Seats []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
}

// GetSeatMap renders the seat grid for a showtime, with Redis lock
// state overlaid and the caller's own holds marked selectable.
func (h *SeatHandler) GetSeatMap(e *core.RequestEvent) error {
	showtimeID := e.Request.PathValue("id")
	if showtimeID == "" {
		return apis.NewBadRequestError("Showtime ID required", nil)
	}

	userID := ""
	if e.Auth != nil {
		userID = e.Auth.Id
	}

	seatMap, err := h.seats.SeatMapForShowtime(e.Request.Context(), showtimeID, userID, h.rows, h.cols)
	if err != nil {
		slog.Error("seat map failed", "showtime", showtimeID, "error", err)
		return apis.NewInternalServerError("Failed to load seat map", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"showtime_id": showtimeID,
		"grid":        seatMap.Grid(),
		"available":   seatMap.HasAvailability(),
	})
}

// LockSeats places holds on the requested seats. All-or-nothing: one
// conflicting seat rolls back the whole request.
func (h *SeatHandler) LockSeats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	showtimeID := e.Request.PathValue("id")
	var req seatSelectionRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Select between 1 and 10 seats", err)
	}

	ctx := e.Request.Context()
	token := uuid.NewString()

	conflict, err := h.seats.LockSeats(ctx, showtimeID, req.Seats, e.Auth.Id, token)
	if err != nil {
		h.track("lock", "conflict")
		switch {
		case errors.Is(err, status.ErrSeatBooked):
			return apis.NewApiError(http.StatusConflict, "Seat "+conflict+" is already booked", map[string]any{"seats": []string{conflict}})
		case errors.Is(err, status.ErrSeatUnavailable):
			return apis.NewApiError(http.StatusConflict, "Seat "+conflict+" is held by another user", map[string]any{"seats": []string{conflict}})
		default:
			slog.Error("lock seats failed", "showtime", showtimeID, "error", err)
			return apis.NewInternalServerError("Failed to lock seats", nil)
		}
	}

	// Mirror into the store so other clients' snapshots show the hold.
	now := time.Now()
	for _, label := range req.Seats {
		if err := h.seats.MirrorLockState(showtimeID, label, e.Auth.Id, now); err != nil {
			slog.Warn("lock mirror failed", "seat", label, "error", err)
		}
	}

	h.track("lock", "ok")
	return e.JSON(http.StatusOK, map[string]any{
		"token":      token,
		"seats":      req.Seats,
		"expires_in": int(h.seats.LockTTL.Seconds()),
	})
}

// ReleaseSeats drops the caller's holds. Seats the caller does not hold
// are skipped.
func (h *SeatHandler) ReleaseSeats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	showtimeID := e.Request.PathValue("id")
	var req seatReleaseRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validate.Struct(&req); err != nil {
		return apis.NewBadRequestError("Invalid seat selection", err)
	}

	h.seats.ReleaseSeats(e.Request.Context(), showtimeID, req.Seats, e.Auth.Id, req.Token)
	for _, label := range req.Seats {
		if err := h.seats.MirrorReleaseState(showtimeID, label); err != nil {
			slog.Warn("release mirror failed", "seat", label, "error", err)
		}
	}

	h.track("release", "ok")
	return e.JSON(http.StatusOK, map[string]any{"released": req.Seats})
}

func (h *SeatHandler) track(operation, outcome string) {
	if h.metrics != nil {
		h.metrics.TrackSeatOperation(operation, outcome)
	}
}
