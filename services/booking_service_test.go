package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/status"
	"cinebook/models"
	"cinebook/store"
)

func testBookingService() *BookingService {
	return &BookingService{
		SeatPrice:  decimal.RequireFromString("12.99"),
		ServiceFee: decimal.RequireFromString("2.50"),
	}
}

func TestComputeQuote_ThreeSeats(t *testing.T) {
	service := testBookingService()

	quote := service.ComputeQuote([]string{"A1", "A2", "A3"})

	assert.Equal(t, "38.97", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "2.50", quote.ServiceFee.StringFixed(2))
	assert.Equal(t, "41.47", quote.Total.StringFixed(2))
}

func TestComputeQuote_TwoSeats(t *testing.T) {
	service := testBookingService()

	quote := service.ComputeQuote([]string{"C4", "C5"})

	assert.Equal(t, "25.98", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "28.48", quote.Total.StringFixed(2))
}

func TestComputeQuote_CopiesSeatSlice(t *testing.T) {
	service := testBookingService()
	seats := []string{"A1"}

	quote := service.ComputeQuote(seats)
	seats[0] = "Z9"

	assert.Equal(t, []string{"A1"}, quote.Seats)
}

func TestBookingWorkflow_HappyPath(t *testing.T) {
	w := NewBookingWorkflow()
	assert.Equal(t, StageNoSelection, w.Stage())

	require.NoError(t, w.ChooseTheatre("th_1"))
	require.NoError(t, w.ChooseShowtime("show_1"))
	require.NoError(t, w.SelectSeats([]string{"A1", "A2"}))
	require.NoError(t, w.BeginConfirm())
	require.NoError(t, w.CompleteConfirm())

	assert.Equal(t, StageConfirmed, w.Stage())
	assert.Equal(t, []string{"A1", "A2"}, w.Seats)
}

func TestBookingWorkflow_CannotSkipAhead(t *testing.T) {
	w := NewBookingWorkflow()

	assert.ErrorIs(t, w.ChooseShowtime("show_1"), status.ErrInvalidTransition)
	assert.ErrorIs(t, w.SelectSeats([]string{"A1"}), status.ErrInvalidTransition)
	assert.ErrorIs(t, w.BeginConfirm(), status.ErrInvalidTransition)
	assert.ErrorIs(t, w.CompleteConfirm(), status.ErrInvalidTransition)
}

func TestBookingWorkflow_EmptySelectionRejected(t *testing.T) {
	w := NewBookingWorkflow()
	require.NoError(t, w.ChooseTheatre("th_1"))
	require.NoError(t, w.ChooseShowtime("show_1"))

	assert.ErrorIs(t, w.SelectSeats(nil), status.ErrEmptySelection)
	assert.Equal(t, StageShowtimeChosen, w.Stage())
}

func TestBookingWorkflow_RepickTheatreClearsDownstream(t *testing.T) {
	w := NewBookingWorkflow()
	require.NoError(t, w.ChooseTheatre("th_1"))
	require.NoError(t, w.ChooseShowtime("show_1"))
	require.NoError(t, w.SelectSeats([]string{"A1"}))

	require.NoError(t, w.ChooseTheatre("th_2"))

	assert.Equal(t, StageTheatreChosen, w.Stage())
	assert.Empty(t, w.ShowtimeID)
	assert.Empty(t, w.Seats)
}

func TestBookingWorkflow_FailedConfirmReturnsToSeats(t *testing.T) {
	w := NewBookingWorkflow()
	require.NoError(t, w.ChooseTheatre("th_1"))
	require.NoError(t, w.ChooseShowtime("show_1"))
	require.NoError(t, w.SelectSeats([]string{"A1"}))
	require.NoError(t, w.BeginConfirm())

	require.NoError(t, w.FailConfirm())

	assert.Equal(t, StageSeatsSelected, w.Stage())
	// Seats survive the failure so the user can retry.
	assert.Equal(t, []string{"A1"}, w.Seats)
	require.NoError(t, w.BeginConfirm())
}

func TestBookingWorkflow_NoChangesWhileConfirming(t *testing.T) {
	w := NewBookingWorkflow()
	require.NoError(t, w.ChooseTheatre("th_1"))
	require.NoError(t, w.ChooseShowtime("show_1"))
	require.NoError(t, w.SelectSeats([]string{"A1"}))
	require.NoError(t, w.BeginConfirm())

	assert.ErrorIs(t, w.ChooseTheatre("th_2"), status.ErrInvalidTransition)
	assert.ErrorIs(t, w.ChooseShowtime("show_2"), status.ErrInvalidTransition)
	assert.ErrorIs(t, w.SelectSeats([]string{"B1"}), status.ErrInvalidTransition)
}

func TestStageConfirm_FreezesSelection(t *testing.T) {
	flow, err := stageConfirm("th_1", "show_1", []string{"A1", "A2"})

	require.NoError(t, err)
	assert.Equal(t, StageConfirming, flow.Stage())
	assert.Equal(t, "th_1", flow.TheatreID)
	assert.Equal(t, "show_1", flow.ShowtimeID)
	assert.Equal(t, []string{"A1", "A2"}, flow.Seats)
}

func TestStageConfirm_RejectsEmptySelection(t *testing.T) {
	flow, err := stageConfirm("th_1", "show_1", nil)

	assert.ErrorIs(t, err, status.ErrEmptySelection)
	assert.Nil(t, flow)
}

func TestBookingFromRecord_DecodesSnapshot(t *testing.T) {
	rec := &store.Record{
		ID:         "bk_1",
		Collection: "bookings",
		Fields: map[string]any{
			"reference":   "BK1758000000000ABC123",
			"user":        "user-1",
			"seats":       []any{"A1", "A2"},
			"subtotal":    25.98,
			"service_fee": 2.5,
			"total":       28.48,
			"status":      models.BookingConfirmed,
			"snapshot": map[string]any{
				"movie_title":  "Inception",
				"theatre_name": "Grand Cinema",
				"showtime_id":  "show_1",
			},
		},
	}

	booking := bookingFromRecord(rec)

	assert.Equal(t, "BK1758000000000ABC123", booking.Reference)
	assert.Equal(t, []string{"A1", "A2"}, booking.Seats)
	assert.Equal(t, 28.48, booking.Total)
	assert.Equal(t, "Inception", booking.Snapshot.MovieTitle)
	assert.Equal(t, "Grand Cinema", booking.Snapshot.TheatreName)
	assert.Equal(t, "show_1", booking.Snapshot.ShowtimeID)
}
