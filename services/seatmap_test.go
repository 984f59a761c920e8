package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cinebook/models"
)

func availableSeats(showtimeID string, labels ...string) []models.Seat {
	seats := make([]models.Seat, len(labels))
	for i, label := range labels {
		seats[i] = models.Seat{
			ShowtimeID: showtimeID,
			Label:      label,
			Status:     models.SeatAvailable,
		}
	}
	return seats
}

func TestSeatMap_ToggleSelectsAndDeselects(t *testing.T) {
	m := NewSeatMap(8, 10)
	m.ApplySeats(availableSeats("show_1", "A1", "A2"))

	assert.Equal(t, []string{"A1"}, m.Toggle("A1"))
	assert.Equal(t, []string{"A1", "A2"}, m.Toggle("A2"))

	// Toggling the same available seat twice returns to the original state.
	assert.Equal(t, []string{"A2"}, m.Toggle("A1"))
	assert.Equal(t, []string{}, m.Toggle("A2"))
}

func TestSeatMap_ToggleBookedIsNoOp(t *testing.T) {
	m := NewSeatMap(8, 10)
	m.ApplySeats([]models.Seat{
		{Label: "A1", Status: models.SeatAvailable},
		{Label: "A2", Status: models.SeatBooked},
		{Label: "A3", Status: models.SeatLocked},
	})

	m.Toggle("A1")
	assert.Equal(t, []string{"A1"}, m.Toggle("A2"))
	assert.Equal(t, []string{"A1"}, m.Toggle("A3"))
}

func TestSeatMap_ToggleUnknownLabelIsNoOp(t *testing.T) {
	m := NewSeatMap(8, 10)
	m.ApplySeats(availableSeats("show_1", "A1"))

	assert.Empty(t, m.Toggle("Z99"))
}

func TestSeatMap_SelectionPreservesInsertionOrder(t *testing.T) {
	m := NewSeatMap(8, 10)
	m.ApplySeats(availableSeats("show_1", "A1", "B5", "C3"))

	m.Toggle("C3")
	m.Toggle("A1")
	m.Toggle("B5")

	assert.Equal(t, []string{"C3", "A1", "B5"}, m.Selection())
}

func TestSeatMap_EmptySeatRecordsRendersUnavailableGrid(t *testing.T) {
	m := NewSeatMap(8, 10)

	assert.False(t, m.HasAvailability())
	assert.Empty(t, m.Toggle("A1"))

	grid := m.Grid()
	assert.Len(t, grid, 8)
	for _, row := range grid {
		assert.Len(t, row, 10)
		for _, cell := range row {
			assert.Equal(t, CellUnavailable, cell.Status)
		}
	}
}

func TestSeatMap_ApplySeatsDowngradesConflictingSelection(t *testing.T) {
	m := NewSeatMap(8, 10)
	m.ApplySeats(availableSeats("show_1", "A1", "A2"))
	m.Toggle("A1")
	m.Toggle("A2")

	// A concurrent subscription update reports A1 booked by someone else.
	dropped := m.ApplySeats([]models.Seat{{Label: "A1", Status: models.SeatBooked}})

	assert.Equal(t, []string{"A1"}, dropped)
	assert.Equal(t, []string{"A2"}, m.Selection())
}

func TestSeatMap_GridReportsClassAndSelection(t *testing.T) {
	m := NewSeatMap(3, 2)
	m.ApplySeats(availableSeats("show_1", "A1", "A2", "B1", "C2"))
	m.Toggle("A2")

	grid := m.Grid()

	assert.Equal(t, models.SeatClassVIP, grid[0][0].Class)    // row A
	assert.Equal(t, models.SeatClassVIP, grid[1][0].Class)    // row B
	assert.Equal(t, models.SeatClassRegular, grid[2][0].Class) // row C

	assert.Equal(t, CellAvailable, grid[0][0].Status)
	assert.Equal(t, CellSelected, grid[0][1].Status)
	assert.Equal(t, CellUnavailable, grid[2][0].Status) // no record for C1
}
