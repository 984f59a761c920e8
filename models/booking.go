package models

import (
	"time"
)

// Booking status values.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// BookingSnapshot is the denormalized movie/theatre/showtime context
// captured at confirmation time, so historical bookings stay stable even
// if the catalog changes afterwards.
type BookingSnapshot struct {
	MovieID      string `json:"movie_id"`
	MovieTitle   string `json:"movie_title"`
	PosterPath   string `json:"poster_path"`
	TheatreID    string `json:"theatre_id"`
	TheatreName  string `json:"theatre_name"`
	Location     string `json:"location"`
	ShowtimeID   string `json:"showtime_id"`
	ShowtimeDate string `json:"showtime_date"`
	ShowtimeTime string `json:"showtime_time"`
	Format       string `json:"format"`
}

type Booking struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"` // BK{epochMillis}{randomAlnum}
	UserID     string          `json:"user_id"`
	Snapshot   BookingSnapshot `json:"snapshot"`
	Seats      []string        `json:"seats"` // seat labels, e.g. ["A1","A2"]
	Subtotal   float64         `json:"subtotal"`
	ServiceFee float64         `json:"service_fee"`
	Total      float64         `json:"total"`
	Status     string          `json:"status"` // confirmed, cancelled
	CreatedAt  time.Time       `json:"created_at"`
}
