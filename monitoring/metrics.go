package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	heldSeats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "held_seats_total",
			Help: "Current number of locked seats per showtime",
		},
		[]string{"showtime_id"},
	)

	seatLockOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_lock_operations_total",
			Help: "Total seat lock operations",
		},
		[]string{"operation", "status"},
	)

	seatLockHoldDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seat_lock_hold_duration_seconds",
			Help:    "How long seat locks are held before release or booking",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Total booking confirmation attempts",
		},
		[]string{"outcome"},
	)

	catalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_lookups_total",
			Help: "Movie catalog lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectSeatMetrics(ctx)
		goroutineCount.Set(float64(runtime.NumGoroutine()))
	}
}

// collectSeatMetrics counts live lock keys per showtime. Lock keys are
// "seat:{showtime}:{label}".
func (m *Monitor) collectSeatMetrics(ctx context.Context) {
	counts := map[string]int{}

	iter := m.redis.Scan(ctx, 0, "seat:*", 500).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		rest := key[len("seat:"):]
		for i := 0; i < len(rest); i++ {
			if rest[i] == ':' {
				counts[rest[:i]]++
				break
			}
		}
	}
	if iter.Err() != nil {
		return
	}

	heldSeats.Reset()
	for showtimeID, n := range counts {
		heldSeats.WithLabelValues(showtimeID).Set(float64(n))
	}
}

// TrackSeatOperation records a lock/release/book attempt and its result.
func (m *Monitor) TrackSeatOperation(operation, status string) {
	seatLockOperations.WithLabelValues(operation, status).Inc()
}

// TrackLockHold records how long a lock was held before it resolved.
func (m *Monitor) TrackLockHold(duration time.Duration) {
	seatLockHoldDuration.Observe(duration.Seconds())
}

// TrackBooking records a booking confirmation outcome.
func (m *Monitor) TrackBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

// TrackCatalogLookup records a movie lookup by source and outcome.
func (m *Monitor) TrackCatalogLookup(source, outcome string) {
	catalogLookups.WithLabelValues(source, outcome).Inc()
}
