package services

import (
	"cinebook/models"
)

// Cell states of the seat map engine. Base status comes from the seat
// records plus the live lock state; "selected" only exists locally, on
// top of an available seat. Cells without a backing seat record stay
// unavailable so a showtime with no seat data renders a fully blocked
// grid instead of a bookable one.
const (
	CellAvailable   = "available"
	CellSelected    = "selected"
	CellLocked      = "locked"
	CellBooked      = "booked"
	CellUnavailable = "unavailable"
)

// SeatMap tracks the grid and the user's in-progress selection for one
// showtime. It is rebuilt whenever the showtime changes; nothing in it
// survives across showtimes.
type SeatMap struct {
	rows      []string
	cols      int
	status    map[string]string // label -> base status (never "selected")
	selection []string          // insertion-ordered selected labels
	selected  map[string]bool
}

// NewSeatMap builds a grid with the given number of lettered rows and
// numbered columns. All cells start unavailable until seat records are
// applied.
func NewSeatMap(rows, cols int) *SeatMap {
	if rows < 1 {
		rows = 1
	}
	if rows > 26 {
		rows = 26
	}
	if cols < 1 {
		cols = 1
	}

	rowLabels := make([]string, rows)
	for i := 0; i < rows; i++ {
		rowLabels[i] = string(rune('A' + i))
	}

	return &SeatMap{
		rows:     rowLabels,
		cols:     cols,
		status:   map[string]string{},
		selected: map[string]bool{},
	}
}

// ApplySeats overlays seat records (and their live lock state) onto the
// grid. Seats the user had selected that are now locked or booked by
// someone else are dropped from the selection; the dropped labels are
// returned so callers can notify the user instead of silently keeping a
// stale selection.
func (m *SeatMap) ApplySeats(seats []models.Seat) []string {
	for _, seat := range seats {
		switch seat.Status {
		case models.SeatAvailable:
			m.status[seat.Label] = CellAvailable
		case models.SeatLocked:
			m.status[seat.Label] = CellLocked
		case models.SeatBooked:
			m.status[seat.Label] = CellBooked
		default:
			m.status[seat.Label] = CellUnavailable
		}
	}

	var dropped []string
	kept := m.selection[:0]
	for _, label := range m.selection {
		if m.status[label] == CellAvailable {
			kept = append(kept, label)
		} else {
			delete(m.selected, label)
			dropped = append(dropped, label)
		}
	}
	m.selection = kept
	return dropped
}

// MarkLockedBySelf records that the given seats are locked by the
// current user, keeping them selectable rather than blocked.
func (m *SeatMap) MarkLockedBySelf(labels []string) {
	for _, label := range labels {
		m.status[label] = CellAvailable
		if !m.selected[label] {
			m.selected[label] = true
			m.selection = append(m.selection, label)
		}
	}
}

// Toggle flips the selection state of a seat and returns the new
// selection set. Toggling a booked, locked or unavailable seat is a
// no-op. Toggling a selected seat deselects it.
func (m *SeatMap) Toggle(label string) []string {
	base, ok := m.status[label]
	if !ok || base != CellAvailable {
		return m.Selection()
	}

	if m.selected[label] {
		delete(m.selected, label)
		for i, l := range m.selection {
			if l == label {
				m.selection = append(m.selection[:i], m.selection[i+1:]...)
				break
			}
		}
		return m.Selection()
	}

	m.selected[label] = true
	m.selection = append(m.selection, label)
	return m.Selection()
}

// Selection returns the selected seat labels in insertion order.
func (m *SeatMap) Selection() []string {
	out := make([]string, len(m.selection))
	copy(out, m.selection)
	return out
}

// HasAvailability reports whether any cell can still be selected.
func (m *SeatMap) HasAvailability() bool {
	for _, row := range m.rows {
		for col := 1; col <= m.cols; col++ {
			if m.status[models.SeatLabel(row, col)] == CellAvailable {
				return true
			}
		}
	}
	return false
}

// Cell describes one grid position for rendering.
type Cell struct {
	Label  string `json:"label"`
	Row    string `json:"row"`
	Number int    `json:"number"`
	Class  string `json:"class"`
	Status string `json:"status"`
}

// Grid renders the full seat map, row by row. Selected cells report
// "selected" on top of their base status.
func (m *SeatMap) Grid() [][]Cell {
	grid := make([][]Cell, len(m.rows))
	for i, row := range m.rows {
		cells := make([]Cell, m.cols)
		for col := 1; col <= m.cols; col++ {
			label := models.SeatLabel(row, col)
			cellStatus, ok := m.status[label]
			if !ok {
				cellStatus = CellUnavailable
			}
			if m.selected[label] {
				cellStatus = CellSelected
			}
			cells[col-1] = Cell{
				Label:  label,
				Row:    row,
				Number: col,
				Class:  models.SeatClassForRow(row),
				Status: cellStatus,
			}
		}
		grid[i] = cells
	}
	return grid
}
