package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatKey(t *testing.T) {
	assert.Equal(t, "show_1_A3", SeatKey("show_1", "A", 3))
	assert.Equal(t, "show_42_H10", SeatKey("show_42", "H", 10))
}

func TestSeatLabel(t *testing.T) {
	assert.Equal(t, "A1", SeatLabel("A", 1))
	assert.Equal(t, "H10", SeatLabel("H", 10))
}

func TestSeatClassForRow(t *testing.T) {
	assert.Equal(t, SeatClassVIP, SeatClassForRow("A"))
	assert.Equal(t, SeatClassVIP, SeatClassForRow("B"))
	assert.Equal(t, SeatClassRegular, SeatClassForRow("C"))
	assert.Equal(t, SeatClassRegular, SeatClassForRow("H"))
}

func TestSessionIsAdmin(t *testing.T) {
	admin := &Session{Role: RoleAdmin}
	user := &Session{Role: RoleUser}
	var nilSession *Session

	assert.True(t, admin.IsAdmin())
	assert.False(t, user.IsAdmin())
	assert.False(t, nilSession.IsAdmin())
}

func TestMovieJSON_CarriesSource(t *testing.T) {
	movie := Movie{
		ID:     "27205",
		Title:  "Inception",
		Genres: []string{"Sci-Fi", "Thriller"},
		Rating: 8.8,
		Source: SourceTMDB,
		Status: "now_showing",
	}

	data, err := json.Marshal(movie)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "tmdb", decoded["source"])
	assert.Equal(t, "now_showing", decoded["status"])
}

func TestSeatJSON_OmitsEmptyLockFields(t *testing.T) {
	seat := Seat{
		ID:         "seat_1",
		SeatKey:    "show_1_A1",
		ShowtimeID: "show_1",
		Label:      "A1",
		Row:        "A",
		Number:     1,
		Class:      SeatClassVIP,
		Status:     SeatAvailable,
	}

	data, err := json.Marshal(seat)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "locked_by")
	assert.NotContains(t, decoded, "locked_at")
	assert.NotContains(t, decoded, "booking_id")
}

func TestBookingJSON_RoundTrip(t *testing.T) {
	booking := Booking{
		ID:        "bk_1",
		Reference: "BK1758000000000XY12AB",
		UserID:    "user-1",
		Snapshot: BookingSnapshot{
			MovieTitle:  "Inception",
			TheatreName: "Grand Cinema",
			ShowtimeID:  "show_1",
		},
		Seats:      []string{"A1", "A2"},
		Subtotal:   25.98,
		ServiceFee: 2.50,
		Total:      28.48,
		Status:     BookingConfirmed,
	}

	data, err := json.Marshal(booking)
	require.NoError(t, err)

	var decoded Booking
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, booking.Reference, decoded.Reference)
	assert.Equal(t, booking.Snapshot, decoded.Snapshot)
	assert.Equal(t, booking.Total, decoded.Total)
}
