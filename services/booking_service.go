package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	"github.com/shopspring/decimal"

	"cinebook/internal/status"
	"cinebook/models"
	"cinebook/store"
	"cinebook/utils"
)

// Booking workflow stages. A workflow always moves forward through
// these; a failed confirmation drops back to SeatsSelected so the user
// can retry without re-picking seats.
type BookingStage string

const (
	StageNoSelection    BookingStage = "no_selection"
	StageTheatreChosen  BookingStage = "theatre_chosen"
	StageShowtimeChosen BookingStage = "showtime_chosen"
	StageSeatsSelected  BookingStage = "seats_selected"
	StageConfirming     BookingStage = "confirming"
	StageConfirmed      BookingStage = "confirmed"
)

// BookingWorkflow tracks one user's progress through theatre, showtime
// and seat selection. All transitions are validated; skipping ahead
// yields ErrInvalidTransition.
type BookingWorkflow struct {
	stage      BookingStage
	TheatreID  string
	ShowtimeID string
	Seats      []string
}

func NewBookingWorkflow() *BookingWorkflow {
	return &BookingWorkflow{stage: StageNoSelection}
}

func (w *BookingWorkflow) Stage() BookingStage {
	return w.stage
}

// ChooseTheatre picks or re-picks a theatre. Re-picking clears any
// downstream showtime and seat choices.
func (w *BookingWorkflow) ChooseTheatre(theatreID string) error {
	if w.stage == StageConfirming || w.stage == StageConfirmed {
		return status.ErrInvalidTransition
	}
	w.TheatreID = theatreID
	w.ShowtimeID = ""
	w.Seats = nil
	w.stage = StageTheatreChosen
	return nil
}

// ChooseShowtime requires a theatre first. Re-picking clears seats.
func (w *BookingWorkflow) ChooseShowtime(showtimeID string) error {
	switch w.stage {
	case StageTheatreChosen, StageShowtimeChosen, StageSeatsSelected:
	default:
		return status.ErrInvalidTransition
	}
	w.ShowtimeID = showtimeID
	w.Seats = nil
	w.stage = StageShowtimeChosen
	return nil
}

// SelectSeats records the seat choice for the chosen showtime.
func (w *BookingWorkflow) SelectSeats(labels []string) error {
	switch w.stage {
	case StageShowtimeChosen, StageSeatsSelected:
	default:
		return status.ErrInvalidTransition
	}
	if len(labels) == 0 {
		return status.ErrEmptySelection
	}
	w.Seats = append([]string(nil), labels...)
	w.stage = StageSeatsSelected
	return nil
}

// BeginConfirm freezes the selection while payment/confirmation runs.
func (w *BookingWorkflow) BeginConfirm() error {
	if w.stage != StageSeatsSelected {
		return status.ErrInvalidTransition
	}
	w.stage = StageConfirming
	return nil
}

// CompleteConfirm finishes a successful confirmation.
func (w *BookingWorkflow) CompleteConfirm() error {
	if w.stage != StageConfirming {
		return status.ErrInvalidTransition
	}
	w.stage = StageConfirmed
	return nil
}

// FailConfirm returns to seat selection so the attempt can be retried.
func (w *BookingWorkflow) FailConfirm() error {
	if w.stage != StageConfirming {
		return status.ErrInvalidTransition
	}
	w.stage = StageSeatsSelected
	return nil
}

// Reset clears the workflow back to its initial state.
func (w *BookingWorkflow) Reset() {
	w.stage = StageNoSelection
	w.TheatreID = ""
	w.ShowtimeID = ""
	w.Seats = nil
}

// Quote is a priced seat selection.
type Quote struct {
	Seats      []string        `json:"seats"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Total      decimal.Decimal `json:"total"`
}

// BookingPublisher notifies a user's realtime channel about confirmed
// bookings.
type BookingPublisher interface {
	PublishBookingConfirmed(userID string, booking *models.Booking)
}

// BookingMetrics records confirmation outcomes.
type BookingMetrics interface {
	TrackBooking(outcome string)
}

// BookingService turns a held seat selection into a confirmed booking.
// The booking row and the seat flips commit in one store transaction;
// the Redis lock state is promoted to booked afterwards so the locks
// stop expiring.
type BookingService struct {
	Store      *store.Client
	Seats      *SeatService
	Catalog    *CatalogService
	Publisher  BookingPublisher
	Metrics    BookingMetrics
	SeatPrice  decimal.Decimal
	ServiceFee decimal.Decimal
}

func NewBookingService(st *store.Client, seats *SeatService, catalog *CatalogService, pub BookingPublisher, metrics BookingMetrics, seatPrice, serviceFee decimal.Decimal) *BookingService {
	return &BookingService{
		Store:      st,
		Seats:      seats,
		Catalog:    catalog,
		Publisher:  pub,
		Metrics:    metrics,
		SeatPrice:  seatPrice,
		ServiceFee: serviceFee,
	}
}

// ComputeQuote prices a selection: per-seat price times seat count plus
// a flat service fee.
func (b *BookingService) ComputeQuote(seats []string) Quote {
	subtotal := b.SeatPrice.Mul(decimal.NewFromInt(int64(len(seats)))).Round(2)
	total := subtotal.Add(b.ServiceFee).Round(2)
	return Quote{
		Seats:      append([]string(nil), seats...),
		Subtotal:   subtotal,
		ServiceFee: b.ServiceFee.Round(2),
		Total:      total,
	}
}

// stageConfirm replays the selection through the booking workflow so a
// confirmation only proceeds from a complete theatre, showtime and seat
// pick. Returns the workflow frozen at the confirming stage.
func stageConfirm(theatreID, showtimeID string, seats []string) (*BookingWorkflow, error) {
	flow := NewBookingWorkflow()
	if err := flow.ChooseTheatre(theatreID); err != nil {
		return nil, err
	}
	if err := flow.ChooseShowtime(showtimeID); err != nil {
		return nil, err
	}
	if err := flow.SelectSeats(seats); err != nil {
		return nil, err
	}
	if err := flow.BeginConfirm(); err != nil {
		return nil, err
	}
	return flow, nil
}

// Confirm validates that the user holds every selected seat, then
// commits the booking and the seat status flips atomically. After the
// commit the Redis locks are promoted to permanent booked markers and
// the user's realtime channel is notified.
func (b *BookingService) Confirm(ctx context.Context, userID, showtimeID, token string, seats []string) (*models.Booking, error) {
	if len(seats) == 0 {
		return nil, status.ErrEmptySelection
	}

	detail, err := b.Catalog.GetShowtimeDetail(ctx, showtimeID)
	if err != nil {
		b.track("rejected")
		return nil, fmt.Errorf("booking: resolve showtime %s: %w", showtimeID, err)
	}

	flow, err := stageConfirm(detail.Theatre.ID, showtimeID, seats)
	if err != nil {
		b.track("rejected")
		return nil, fmt.Errorf("booking: stage confirmation: %w", err)
	}

	for _, label := range flow.Seats {
		holder, err := b.Seats.HolderOf(ctx, showtimeID, label)
		if err != nil {
			b.track("error")
			return nil, fmt.Errorf("booking: holder of %s: %w", label, err)
		}
		if holder != userID {
			b.track("rejected")
			return nil, fmt.Errorf("booking: seat %s: %w", label, status.ErrSeatNotLocked)
		}
	}

	quote := b.ComputeQuote(seats)
	reference, err := utils.BookingReference()
	if err != nil {
		b.track("error")
		return nil, fmt.Errorf("booking: reference: %w", err)
	}
	snapshot := snapshotFromDetail(detail)

	var bookingID string
	err = b.Store.App().RunInTransaction(func(txApp core.App) error {
		col, err := txApp.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		rec := core.NewRecord(col)
		rec.Set("reference", reference)
		rec.Set("user", userID)
		rec.Set("snapshot", snapshot)
		rec.Set("seats", seats)
		rec.Set("subtotal", quote.Subtotal.InexactFloat64())
		rec.Set("service_fee", quote.ServiceFee.InexactFloat64())
		rec.Set("total", quote.Total.InexactFloat64())
		rec.Set("status", models.BookingConfirmed)
		if err := txApp.Save(rec); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		bookingID = rec.Id

		for _, label := range seats {
			seatRec, err := txApp.FindFirstRecordByFilter(
				"seats",
				"showtime = {:showtime} && label = {:label}",
				dbx.Params{"showtime": showtimeID, "label": label},
			)
			if errors.Is(err, sql.ErrNoRows) {
				// The label exists in no seat row for this showtime, so
				// the selection was staged against a different showtime.
				return fmt.Errorf("seat %s: %w", label, status.ErrShowtimeMismatch)
			}
			if err != nil {
				return fmt.Errorf("seat %s: %w", label, err)
			}
			if seatRec.GetString("status") == models.SeatBooked {
				return fmt.Errorf("seat %s: %w", label, status.ErrSeatBooked)
			}
			seatRec.Set("status", models.SeatBooked)
			seatRec.Set("locked_by", "")
			seatRec.Set("booked_by", userID)
			seatRec.Set("booking", rec.Id)
			if err := txApp.Save(seatRec); err != nil {
				return fmt.Errorf("flip seat %s: %w", label, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = flow.FailConfirm()
		b.track("failed")
		return nil, fmt.Errorf("booking: commit: %w", err)
	}
	_ = flow.CompleteConfirm()

	// Promote the Redis locks so they stop expiring. The store already
	// has the booked state, so a failure here only costs a janitor pass.
	for _, label := range seats {
		if err := b.Seats.MarkSeatBooked(ctx, showtimeID, label, userID, token, bookingID); err != nil {
			slog.Error("booking: promote lock failed", "seat", label, "booking", bookingID, "error", err)
		}
	}

	booking := &models.Booking{
		ID:         bookingID,
		Reference:  reference,
		UserID:     userID,
		Snapshot:   snapshot,
		Seats:      append([]string(nil), seats...),
		Subtotal:   quote.Subtotal.InexactFloat64(),
		ServiceFee: quote.ServiceFee.InexactFloat64(),
		Total:      quote.Total.InexactFloat64(),
		Status:     models.BookingConfirmed,
	}

	b.track("confirmed")
	if b.Publisher != nil {
		b.Publisher.PublishBookingConfirmed(userID, booking)
	}
	go b.sendConfirmationEmail(userID, booking)

	slog.Info("booking confirmed", "booking", bookingID, "reference", reference, "user", userID, "seats", len(seats))
	return booking, nil
}

// MyBookings lists a user's bookings, newest first.
func (b *BookingService) MyBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	records, err := b.Store.Query("bookings", &store.Filter{
		Expr:   "user = {:user}",
		Params: dbx.Params{"user": userID},
	}, "-created", 0)
	if err != nil {
		return nil, fmt.Errorf("booking: list for %s: %w", userID, err)
	}

	bookings := make([]models.Booking, len(records))
	for i, rec := range records {
		bookings[i] = bookingFromRecord(rec)
	}
	return bookings, nil
}

// GetBooking fetches a booking, restricted to its owner.
func (b *BookingService) GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	rec, err := b.Store.Get("bookings", bookingID)
	if err != nil {
		return nil, err
	}
	booking := bookingFromRecord(rec)
	if booking.UserID != userID {
		return nil, status.ErrNotFound
	}
	return &booking, nil
}

func (b *BookingService) track(outcome string) {
	if b.Metrics != nil {
		b.Metrics.TrackBooking(outcome)
	}
}

// sendConfirmationEmail is best-effort; a mail failure never fails the
// booking.
func (b *BookingService) sendConfirmationEmail(userID string, booking *models.Booking) {
	app := b.Store.App()
	user, err := app.FindRecordById("users", userID)
	if err != nil || user.Email() == "" {
		return
	}

	settings := app.Settings()
	message := &mailer.Message{
		From: mail.Address{
			Name:    settings.Meta.SenderName,
			Address: settings.Meta.SenderAddress,
		},
		To:      []mail.Address{{Address: user.Email()}},
		Subject: fmt.Sprintf("Booking confirmed: %s", booking.Snapshot.MovieTitle),
		HTML: fmt.Sprintf(
			"<p>Your booking <strong>%s</strong> is confirmed.</p><p>%s at %s, %s %s. Seats: %s. Total: $%.2f</p>",
			booking.Reference,
			booking.Snapshot.MovieTitle,
			booking.Snapshot.TheatreName,
			booking.Snapshot.ShowtimeDate,
			booking.Snapshot.ShowtimeTime,
			strings.Join(booking.Seats, ", "),
			booking.Total,
		),
	}

	if err := app.NewMailClient().Send(message); err != nil {
		slog.Error("booking: confirmation email failed", "booking", booking.ID, "error", err)
	}
}

func snapshotFromDetail(detail *ShowtimeDetail) models.BookingSnapshot {
	return models.BookingSnapshot{
		MovieID:      detail.Movie.ID,
		MovieTitle:   detail.Movie.Title,
		PosterPath:   detail.Movie.PosterPath,
		TheatreID:    detail.Theatre.ID,
		TheatreName:  detail.Theatre.Name,
		Location:     detail.Theatre.Location,
		ShowtimeID:   detail.Showtime.ID,
		ShowtimeDate: detail.Showtime.Date,
		ShowtimeTime: detail.Showtime.Time,
		Format:       detail.Showtime.Format,
	}
}

func bookingFromRecord(rec *store.Record) models.Booking {
	booking := models.Booking{
		ID:         rec.ID,
		Reference:  rec.GetString("reference"),
		UserID:     rec.GetString("user"),
		Seats:      rec.GetStringSlice("seats"),
		Subtotal:   rec.GetFloat("subtotal"),
		ServiceFee: rec.GetFloat("service_fee"),
		Total:      rec.GetFloat("total"),
		Status:     rec.GetString("status"),
		CreatedAt:  rec.Created,
	}

	// The snapshot is stored as a JSON field; round-trip it into the
	// typed struct.
	if raw, ok := rec.Fields["snapshot"]; ok && raw != nil {
		if data, err := json.Marshal(raw); err == nil {
			_ = json.Unmarshal(data, &booking.Snapshot)
		}
	}
	return booking
}
