package realtime

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"cinebook/models"
)

// Publisher pushes seat and booking events to PubNub channels. Seat
// updates fan out on "showtime-{id}" so every open seat map for that
// showtime refreshes; booking confirmations go to the private
// "user-{id}" channel. Publishing is fire-and-forget: a realtime miss
// never fails the operation that triggered it, clients reconcile from
// the store on their next snapshot.
type Publisher struct {
	pn *pubnub.PubNub
}

// New builds a publisher. Empty keys return a disabled publisher whose
// methods are no-ops, so local setups run without a PubNub account.
func New(publishKey, subscribeKey, secretKey, userID string) *Publisher {
	if publishKey == "" || subscribeKey == "" {
		slog.Warn("realtime: pubnub keys missing, realtime updates disabled")
		return &Publisher{}
	}

	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	cfg.SecretKey = secretKey

	return &Publisher{pn: pubnub.NewPubNub(cfg)}
}

// Enabled reports whether publishes actually reach PubNub.
func (p *Publisher) Enabled() bool {
	return p != nil && p.pn != nil
}

// PublishSeatUpdate announces a seat status change on the showtime
// channel.
func (p *Publisher) PublishSeatUpdate(showtimeID, label, seatStatus, holder string) {
	p.publish(fmt.Sprintf("showtime-%s", showtimeID), map[string]any{
		"type":     "seat_update",
		"showtime": showtimeID,
		"seat":     label,
		"status":   seatStatus,
		"holder":   holder,
	})
}

// PublishBookingConfirmed notifies the booking owner's private channel.
func (p *Publisher) PublishBookingConfirmed(userID string, booking *models.Booking) {
	p.publish(fmt.Sprintf("user-%s", userID), map[string]any{
		"type":      "booking_confirmed",
		"booking":   booking.ID,
		"reference": booking.Reference,
		"seats":     booking.Seats,
		"total":     booking.Total,
	})
}

// PublishCatalogUpdate announces that a collection's contents changed,
// so browsing clients refetch their listing.
func (p *Publisher) PublishCatalogUpdate(collection string, count int) {
	p.publish("catalog", map[string]any{
		"type":       "catalog_update",
		"collection": collection,
		"count":      count,
	})
}

func (p *Publisher) publish(channel string, message map[string]any) {
	if !p.Enabled() {
		return
	}

	go func() {
		_, status, err := p.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			slog.Error("realtime: publish failed", "channel", channel, "status", status.StatusCode, "error", err)
		}
	}()
}
