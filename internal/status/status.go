package status

import "errors"

// Authentication errors surfaced by the identity service.
var (
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrEmailTaken         = errors.New("identity: email is already registered")
	ErrWeakPassword       = errors.New("identity: password must be at least 8 characters")
	ErrUserNotFound       = errors.New("identity: no account found with this email")
)

// Store and booking errors.
var (
	ErrNotFound          = errors.New("store: record not found")
	ErrSeatUnavailable   = errors.New("seat: seat is not available")
	ErrSeatNotLocked     = errors.New("seat: seat is not locked by this user")
	ErrSeatBooked        = errors.New("seat: seat is already booked")
	ErrEmptySelection    = errors.New("booking: at least one seat must be selected")
	ErrInvalidTransition = errors.New("booking: invalid workflow transition")
	ErrShowtimeMismatch  = errors.New("booking: seat does not belong to this showtime")
)
