package models

import (
	"fmt"
	"time"
)

// Seat status values. A seat only ever moves available -> locked -> booked,
// or back from locked to available when the lock is released or expires.
// Booked seats never change again.
const (
	SeatAvailable = "available"
	SeatLocked    = "locked"
	SeatBooked    = "booked"
)

// Seat classes, derived from the row: rows A and B are VIP.
const (
	SeatClassVIP     = "VIP"
	SeatClassRegular = "Regular"
)

type Seat struct {
	ID         string     `json:"id"`
	SeatKey    string     `json:"seat_key"` // {showtimeId}_{row}{col}, e.g. show_1_A3
	ShowtimeID string     `json:"showtime_id"`
	Label      string     `json:"label"` // row+column, e.g. A3
	Row        string     `json:"row"`
	Number     int        `json:"number"`
	Class      string     `json:"class"`  // VIP, Regular
	Status     string     `json:"status"` // available, locked, booked
	LockedBy   string     `json:"locked_by,omitempty"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	BookingID  string     `json:"booking_id,omitempty"`
}

// SeatKey builds the deterministic seat identifier used in the seats
// collection: {showtimeId}_{row}{col}.
func SeatKey(showtimeID, row string, number int) string {
	return fmt.Sprintf("%s_%s%d", showtimeID, row, number)
}

// SeatLabel builds the display label for a row/column pair, e.g. "A3".
func SeatLabel(row string, number int) string {
	return fmt.Sprintf("%s%d", row, number)
}

// SeatClassForRow derives the seat class from the row letter.
func SeatClassForRow(row string) string {
	if row == "A" || row == "B" {
		return SeatClassVIP
	}
	return SeatClassRegular
}
