package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/status"
	"cinebook/models"
)

func setupTestSeatService() (*SeatService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	service := &SeatService{
		Redis:   db,
		LockTTL: 5 * time.Minute,
	}
	return service, mock
}

// matchAnyArgs ignores script argument values (lock args carry the
// current timestamp). The mock still checks the argument count, so
// expectations declare the same arity the service sends.
func matchAnyArgs(expected, actual []interface{}) error {
	return nil
}

// lockHoldRecorder captures observed lock-hold durations.
type lockHoldRecorder struct {
	held []time.Duration
}

func (r *lockHoldRecorder) TrackLockHold(d time.Duration) {
	r.held = append(r.held, d)
}

func TestSeatService_LockSeat_Success(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1", time.Now().Unix(), 300).
		SetVal(int64(1))

	err := service.LockSeat(context.Background(), "show_1", "A1", "user-1", "token-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatService_LockSeat_Conflict(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:A1"}, "user-2", "token-2", time.Now().Unix(), 300).
		SetVal(int64(0))

	err := service.LockSeat(context.Background(), "show_1", "A1", "user-2", "token-2")

	assert.ErrorIs(t, err, status.ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatService_LockSeat_AlreadyBooked(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1", time.Now().Unix(), 300).
		SetVal(int64(-1))

	err := service.LockSeat(context.Background(), "show_1", "A1", "user-1", "token-1")

	assert.ErrorIs(t, err, status.ErrSeatBooked)
}

func TestSeatService_LockSeats_RollbackOnConflict(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	// A1 locks fine, A2 conflicts, so A1 is released again.
	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1", time.Now().Unix(), 300).
		SetVal(int64(1))
	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:A2"}, "user-1", "token-1", time.Now().Unix(), 300).
		SetVal(int64(0))
	mock.ExpectEval(releaseSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1").
		SetVal(int64(1))

	conflict, err := service.LockSeats(context.Background(), "show_1", []string{"A1", "A2"}, "user-1", "token-1")

	assert.ErrorIs(t, err, status.ErrSeatUnavailable)
	assert.Equal(t, "A2", conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatService_ReleaseSeat_NotHolder(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectEval(releaseSeatScript, []string{"seat:show_1:A1"}, "user-2", "token-2").
		SetVal(int64(0))

	err := service.ReleaseSeat(context.Background(), "show_1", "A1", "user-2", "token-2")

	assert.ErrorIs(t, err, status.ErrSeatNotLocked)
}

func TestSeatService_ReleaseSeat_StaleTokenRejected(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	// The holder presents a token from an earlier, superseded lock.
	mock.ExpectEval(releaseSeatScript, []string{"seat:show_1:A1"}, "user-1", "stale-token").
		SetVal(int64(0))

	err := service.ReleaseSeat(context.Background(), "show_1", "A1", "user-1", "stale-token")

	assert.ErrorIs(t, err, status.ErrSeatNotLocked)
}

func TestSeatService_ReleaseSeat_BookedIsImmutable(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectEval(releaseSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1").
		SetVal(int64(-1))

	err := service.ReleaseSeat(context.Background(), "show_1", "A1", "user-1", "token-1")

	assert.ErrorIs(t, err, status.ErrSeatBooked)
}

func TestSeatService_ReleaseSeat_TracksLockHold(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	recorder := &lockHoldRecorder{}
	service.Metrics = recorder

	lockedAt := time.Now().Add(-30 * time.Second).Unix()
	mock.ExpectHGet("seat:show_1:A1", "locked_at").SetVal(strconv.FormatInt(lockedAt, 10))
	mock.ExpectEval(releaseSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1").
		SetVal(int64(1))

	err := service.ReleaseSeat(context.Background(), "show_1", "A1", "user-1", "token-1")

	require.NoError(t, err)
	require.Len(t, recorder.held, 1)
	assert.GreaterOrEqual(t, recorder.held[0], 30*time.Second)
}

func TestSeatService_MarkSeatBooked_OnlyHolderCanBook(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectEval(bookSeatScript, []string{"seat:show_1:A1"}, "user-2", "token-2", "bk-1").
		SetVal(int64(0))

	err := service.MarkSeatBooked(context.Background(), "show_1", "A1", "user-2", "token-2", "bk-1")

	assert.ErrorIs(t, err, status.ErrSeatNotLocked)
}

func TestSeatService_MarkSeatBooked_Success(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectEval(bookSeatScript, []string{"seat:show_1:A1"}, "user-1", "token-1", "bk-1").
		SetVal(int64(1))

	err := service.MarkSeatBooked(context.Background(), "show_1", "A1", "user-1", "token-1", "bk-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatService_Availability(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectHGet("seat:show_1:A1", "status").RedisNil()
	mock.ExpectHGet("seat:show_1:A2", "status").SetVal(models.SeatLocked)
	mock.ExpectHGet("seat:show_1:A3", "status").SetVal(models.SeatBooked)

	availability, err := service.Availability(context.Background(), "show_1", []string{"A1", "A2", "A3"})

	require.NoError(t, err)
	assert.Equal(t, models.SeatAvailable, availability["A1"])
	assert.Equal(t, models.SeatLocked, availability["A2"])
	assert.Equal(t, models.SeatBooked, availability["A3"])
}

func TestSeatService_HolderOf(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.ExpectHGet("seat:show_1:A1", "locked_by").SetVal("user-1")
	mock.ExpectHGet("seat:show_1:A2", "locked_by").RedisNil()

	holder, err := service.HolderOf(context.Background(), "show_1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", holder)

	holder, err = service.HolderOf(context.Background(), "show_1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "", holder)
}

// Two users race for the same seat: the CAS script makes exactly one
// the holder, the other sees it unavailable.
func TestSeatService_ConcurrentLock_AtMostOneWinner(t *testing.T) {
	service, mock := setupTestSeatService()
	defer mock.ClearExpect()

	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:F7"}, "user-1", "t1", time.Now().Unix(), 300).
		SetVal(int64(1))
	mock.CustomMatch(matchAnyArgs).
		ExpectEval(lockSeatScript, []string{"seat:show_1:F7"}, "user-2", "t2", time.Now().Unix(), 300).
		SetVal(int64(0))

	err1 := service.LockSeat(context.Background(), "show_1", "F7", "user-1", "t1")
	err2 := service.LockSeat(context.Background(), "show_1", "F7", "user-2", "t2")

	assert.NoError(t, err1)
	assert.ErrorIs(t, err2, status.ErrSeatUnavailable)
}
