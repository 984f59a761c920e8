package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/redis/go-redis/v9"

	"cinebook/internal/status"
	"cinebook/models"
	"cinebook/store"
)

// SeatPublisher broadcasts seat status transitions so clients holding a
// stale seat map can reconcile.
type SeatPublisher interface {
	PublishSeatUpdate(showtimeID, label, seatStatus, holder string)
}

// Lua scripts make every seat transition a compare-and-set: a seat is
// lockable only while free, releasable and bookable only by its holder
// presenting the lock token, and a booked seat never transitions again.
// Return codes: 1 ok, 0 not held / not free / wrong token, -1 already
// booked.
const lockSeatScript = `
local status = redis.call("HGET", KEYS[1], "status")
if status == "booked" then
	return -1
end
if status == "locked" then
	if redis.call("HGET", KEYS[1], "locked_by") == ARGV[1] then
		redis.call("HSET", KEYS[1], "token", ARGV[2])
		redis.call("EXPIRE", KEYS[1], ARGV[4])
		return 1
	end
	return 0
end
redis.call("HSET", KEYS[1], "status", "locked", "locked_by", ARGV[1], "token", ARGV[2], "locked_at", ARGV[3])
redis.call("EXPIRE", KEYS[1], ARGV[4])
return 1
`

const releaseSeatScript = `
local status = redis.call("HGET", KEYS[1], "status")
if status == "booked" then
	return -1
end
if status ~= "locked" then
	return 1
end
if redis.call("HGET", KEYS[1], "locked_by") ~= ARGV[1] then
	return 0
end
if redis.call("HGET", KEYS[1], "token") ~= ARGV[2] then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`

const bookSeatScript = `
local status = redis.call("HGET", KEYS[1], "status")
if status == "booked" then
	return -1
end
if status ~= "locked" or redis.call("HGET", KEYS[1], "locked_by") ~= ARGV[1] then
	return 0
end
if redis.call("HGET", KEYS[1], "token") ~= ARGV[2] then
	return 0
end
redis.call("HSET", KEYS[1], "status", "booked", "booking", ARGV[3])
redis.call("PERSIST", KEYS[1])
return 1
`

// SeatMetricsSink receives lock-hold durations when configured.
type SeatMetricsSink interface {
	TrackLockHold(duration time.Duration)
}

// SeatService arbitrates seat locks in Redis and merges lock state with
// the persisted seat records. The Redis key is the live source of truth
// for locks; the seats collection is the durable record of bookings.
type SeatService struct {
	Redis     *redis.Client
	Store     *store.Client
	Publisher SeatPublisher
	Metrics   SeatMetricsSink
	LockTTL   time.Duration
}

func NewSeatService(redisClient *redis.Client, storeClient *store.Client, publisher SeatPublisher, lockTTL time.Duration) *SeatService {
	return &SeatService{
		Redis:     redisClient,
		Store:     storeClient,
		Publisher: publisher,
		LockTTL:   lockTTL,
	}
}

func seatKey(showtimeID, label string) string {
	return fmt.Sprintf("seat:%s:%s", showtimeID, label)
}

// LockSeat claims a seat for a user with a TTL. Re-locking a seat the
// user already holds refreshes the TTL (heartbeat).
func (s *SeatService) LockSeat(ctx context.Context, showtimeID, label, userID, token string) error {
	res, err := s.Redis.Eval(ctx, lockSeatScript,
		[]string{seatKey(showtimeID, label)},
		userID, token, time.Now().Unix(), int(s.LockTTL.Seconds()),
	).Result()
	if err != nil {
		return fmt.Errorf("seat lock %s/%s: %w", showtimeID, label, err)
	}

	switch res.(int64) {
	case 1:
		if s.Publisher != nil {
			s.Publisher.PublishSeatUpdate(showtimeID, label, models.SeatLocked, userID)
		}
		return nil
	case -1:
		return status.ErrSeatBooked
	default:
		return status.ErrSeatUnavailable
	}
}

// LockSeats locks a batch of seats all-or-nothing: on the first
// conflict, already-acquired locks are rolled back and the conflicting
// label is returned with the error.
func (s *SeatService) LockSeats(ctx context.Context, showtimeID string, labels []string, userID, token string) (string, error) {
	for i, label := range labels {
		if err := s.LockSeat(ctx, showtimeID, label, userID, token); err != nil {
			for _, acquired := range labels[:i] {
				if relErr := s.ReleaseSeat(ctx, showtimeID, acquired, userID, token); relErr != nil {
					log.Printf("rollback release failed for %s/%s: %v", showtimeID, acquired, relErr)
				}
			}
			return label, err
		}
	}
	return "", nil
}

// ReleaseSeat drops a lock held by the user presenting its token.
// Releasing an unlocked seat is a no-op; releasing someone else's lock,
// a lock under a stale token, or a booked seat fails.
func (s *SeatService) ReleaseSeat(ctx context.Context, showtimeID, label, userID, token string) error {
	heldFor := s.lockHeldFor(ctx, showtimeID, label)
	res, err := s.Redis.Eval(ctx, releaseSeatScript,
		[]string{seatKey(showtimeID, label)},
		userID, token,
	).Result()
	if err != nil {
		return fmt.Errorf("seat release %s/%s: %w", showtimeID, label, err)
	}

	switch res.(int64) {
	case 1:
		if s.Metrics != nil && heldFor > 0 {
			s.Metrics.TrackLockHold(heldFor)
		}
		if s.Publisher != nil {
			s.Publisher.PublishSeatUpdate(showtimeID, label, models.SeatAvailable, "")
		}
		return nil
	case -1:
		return status.ErrSeatBooked
	default:
		return status.ErrSeatNotLocked
	}
}

// lockHeldFor reports how long the current lock on a seat has been
// held, or 0 when no metrics sink is set or the seat is not locked.
func (s *SeatService) lockHeldFor(ctx context.Context, showtimeID, label string) time.Duration {
	if s.Metrics == nil {
		return 0
	}
	raw, err := s.Redis.HGet(ctx, seatKey(showtimeID, label), "locked_at").Result()
	if err != nil {
		return 0
	}
	lockedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return time.Since(time.Unix(lockedAt, 0))
}

// ReleaseSeats releases a batch of locks, continuing past individual
// failures so navigation-away cleanup frees as much as possible.
func (s *SeatService) ReleaseSeats(ctx context.Context, showtimeID string, labels []string, userID, token string) {
	for _, label := range labels {
		if err := s.ReleaseSeat(ctx, showtimeID, label, userID, token); err != nil {
			log.Printf("release failed for %s/%s: %v", showtimeID, label, err)
		}
	}
}

// MarkSeatBooked flips a lock held by the user into a permanent booked
// state. Only the lock holder presenting its token can book; the key
// loses its TTL.
func (s *SeatService) MarkSeatBooked(ctx context.Context, showtimeID, label, userID, token, bookingID string) error {
	heldFor := s.lockHeldFor(ctx, showtimeID, label)
	res, err := s.Redis.Eval(ctx, bookSeatScript,
		[]string{seatKey(showtimeID, label)},
		userID, token, bookingID,
	).Result()
	if err != nil {
		return fmt.Errorf("seat book %s/%s: %w", showtimeID, label, err)
	}

	switch res.(int64) {
	case 1:
		if s.Metrics != nil && heldFor > 0 {
			s.Metrics.TrackLockHold(heldFor)
		}
		if s.Publisher != nil {
			s.Publisher.PublishSeatUpdate(showtimeID, label, models.SeatBooked, userID)
		}
		return nil
	case -1:
		return status.ErrSeatBooked
	default:
		return status.ErrSeatNotLocked
	}
}

// HolderOf returns the user currently holding the lock on a seat, or ""
// when the seat is not locked.
func (s *SeatService) HolderOf(ctx context.Context, showtimeID, label string) (string, error) {
	holder, err := s.Redis.HGet(ctx, seatKey(showtimeID, label), "locked_by").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("seat holder %s/%s: %w", showtimeID, label, err)
	}
	return holder, nil
}

// Availability reports the live status for each label: "available" when
// no lock key exists, otherwise the status stored in Redis.
func (s *SeatService) Availability(ctx context.Context, showtimeID string, labels []string) (map[string]string, error) {
	availability := make(map[string]string, len(labels))
	for _, label := range labels {
		seatStatus, err := s.Redis.HGet(ctx, seatKey(showtimeID, label), "status").Result()
		if err == redis.Nil {
			availability[label] = models.SeatAvailable
		} else if err != nil {
			return nil, fmt.Errorf("seat availability %s/%s: %w", showtimeID, label, err)
		} else {
			availability[label] = seatStatus
		}
	}
	return availability, nil
}

// SeatsForShowtime loads the persisted seat records for a showtime and
// overlays the live lock state from Redis.
func (s *SeatService) SeatsForShowtime(ctx context.Context, showtimeID string) ([]models.Seat, error) {
	records, err := s.Store.Query("seats",
		&store.Filter{Expr: "showtime = {:showtime}", Params: dbx.Params{"showtime": showtimeID}},
		"row,number", 0)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(records))
	for i, rec := range records {
		labels[i] = rec.GetString("label")
	}
	availability, err := s.Availability(ctx, showtimeID, labels)
	if err != nil {
		return nil, err
	}

	seats := make([]models.Seat, len(records))
	for i, rec := range records {
		seat := seatFromRecord(rec)
		// A persisted "booked" always wins; otherwise the live lock
		// state overrides whatever the record last mirrored.
		if seat.Status != models.SeatBooked {
			seat.Status = availability[seat.Label]
		}
		seats[i] = seat
	}
	return seats, nil
}

// SeatMapForShowtime builds the rendered seat map for a showtime, with
// seats held by userID kept selectable.
func (s *SeatService) SeatMapForShowtime(ctx context.Context, showtimeID, userID string, rows, cols int) (*SeatMap, error) {
	seats, err := s.SeatsForShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	m := NewSeatMap(rows, cols)
	m.ApplySeats(seats)

	if userID != "" {
		var mine []string
		for _, seat := range seats {
			if seat.Status != models.SeatLocked {
				continue
			}
			holder, err := s.HolderOf(ctx, showtimeID, seat.Label)
			if err != nil {
				return nil, err
			}
			if holder == userID {
				mine = append(mine, seat.Label)
			}
		}
		m.MarkLockedBySelf(mine)
	}
	return m, nil
}

// MaterializeSeats creates the seat grid records for a showtime that
// does not have any yet. Called when a showtime is added outside the
// seeded catalog.
func (s *SeatService) MaterializeSeats(showtimeID string, rows, cols int) error {
	existing, err := s.Store.Query("seats",
		&store.Filter{Expr: "showtime = {:showtime}", Params: dbx.Params{"showtime": showtimeID}},
		"", 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for r := 0; r < rows; r++ {
		row := string(rune('A' + r))
		for number := 1; number <= cols; number++ {
			_, err := s.Store.Create("seats", map[string]any{
				"showtime": showtimeID,
				"seat_key": models.SeatKey(showtimeID, row, number),
				"label":    models.SeatLabel(row, number),
				"row":      row,
				"number":   number,
				"class":    models.SeatClassForRow(row),
				"status":   models.SeatAvailable,
			})
			if err != nil {
				return fmt.Errorf("materialize seat %s%d: %w", row, number, err)
			}
		}
	}

	log.Printf("Materialized %dx%d seat grid for showtime %s", rows, cols, showtimeID)
	return nil
}

// StartJanitor reconciles seat records whose Redis lock expired: the
// record still says locked, but the key is gone, so the seat goes back
// to available and the downgrade is broadcast. Runs until ctx is done.
func (s *SeatService) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("Seat lock janitor started")

	for {
		select {
		case <-ticker.C:
			if err := s.reconcileExpiredLocks(ctx); err != nil {
				log.Printf("janitor pass failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("Seat lock janitor stopping")
			return
		}
	}
}

func (s *SeatService) reconcileExpiredLocks(ctx context.Context) error {
	records, err := s.Store.Query("seats",
		&store.Filter{Expr: "status = {:status}", Params: dbx.Params{"status": models.SeatLocked}},
		"", 0)
	if err != nil {
		return err
	}

	for _, rec := range records {
		showtimeID := rec.GetString("showtime")
		label := rec.GetString("label")

		exists, err := s.Redis.Exists(ctx, seatKey(showtimeID, label)).Result()
		if err != nil {
			return fmt.Errorf("janitor exists %s/%s: %w", showtimeID, label, err)
		}
		if exists > 0 {
			continue
		}

		// Lock expired without a release or booking.
		err = s.Store.Update("seats", rec.ID, map[string]any{
			"status":    models.SeatAvailable,
			"locked_by": "",
			"locked_at": nil,
		})
		if err != nil {
			log.Printf("janitor reset failed for %s/%s: %v", showtimeID, label, err)
			continue
		}
		if s.Publisher != nil {
			s.Publisher.PublishSeatUpdate(showtimeID, label, models.SeatAvailable, "")
		}
	}
	return nil
}

// MirrorLockState persists the current lock state onto the seat record
// so cold reads (and the janitor) see who holds what.
func (s *SeatService) MirrorLockState(showtimeID, label, userID string, lockedAt time.Time) error {
	rec, err := s.seatRecord(showtimeID, label)
	if err != nil {
		return err
	}
	return s.Store.Update("seats", rec.ID, map[string]any{
		"status":    models.SeatLocked,
		"locked_by": userID,
		"locked_at": lockedAt.UTC(),
	})
}

// MirrorReleaseState resets the seat record after an explicit release.
func (s *SeatService) MirrorReleaseState(showtimeID, label string) error {
	rec, err := s.seatRecord(showtimeID, label)
	if err != nil {
		return err
	}
	if rec.GetString("status") == models.SeatBooked {
		return status.ErrSeatBooked
	}
	return s.Store.Update("seats", rec.ID, map[string]any{
		"status":    models.SeatAvailable,
		"locked_by": "",
		"locked_at": nil,
	})
}

func (s *SeatService) seatRecord(showtimeID, label string) (*store.Record, error) {
	records, err := s.Store.Query("seats",
		&store.Filter{
			Expr:   "showtime = {:showtime} AND label = {:label}",
			Params: dbx.Params{"showtime": showtimeID, "label": label},
		}, "", 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, status.ErrNotFound
	}
	return records[0], nil
}

func seatFromRecord(rec *store.Record) models.Seat {
	seat := models.Seat{
		ID:         rec.ID,
		SeatKey:    rec.GetString("seat_key"),
		ShowtimeID: rec.GetString("showtime"),
		Label:      rec.GetString("label"),
		Row:        rec.GetString("row"),
		Number:     rec.GetInt("number"),
		Class:      rec.GetString("class"),
		Status:     rec.GetString("status"),
		LockedBy:   rec.GetString("locked_by"),
		BookingID:  rec.GetString("booking"),
	}
	if t := rec.GetTime("locked_at"); !t.IsZero() {
		seat.LockedAt = &t
	}
	return seat
}
