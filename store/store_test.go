package store

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue_DateTime(t *testing.T) {
	dt, err := types.ParseDateTime("2024-01-20 14:00:00.000Z")
	require.NoError(t, err)

	got := NormalizeValue(dt)
	ts, ok := got.(time.Time)
	require.True(t, ok, "expected time.Time, got %T", got)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.January, ts.Month())
	assert.Equal(t, 20, ts.Day())
	assert.Equal(t, 14, ts.Hour())
}

func TestNormalizeValue_JSONRaw(t *testing.T) {
	raw := types.JSONRaw(`["Sci-Fi","Thriller"]`)

	got := NormalizeValue(raw)
	list, ok := got.([]any)
	require.True(t, ok, "expected decoded slice, got %T", got)
	assert.Equal(t, []any{"Sci-Fi", "Thriller"}, list)
}

func TestNormalizeValue_Passthrough(t *testing.T) {
	assert.Equal(t, "plain", NormalizeValue("plain"))
	assert.Equal(t, 8.8, NormalizeValue(8.8))
	assert.Nil(t, NormalizeValue(types.JSONRaw(nil)))
}

func TestSortColumns(t *testing.T) {
	assert.Equal(t, []string{"created DESC"}, sortColumns("-created"))
	assert.Equal(t, []string{"date ASC", "time ASC"}, sortColumns("date,time"))
	assert.Nil(t, sortColumns(""))
}

func TestFeed_DeliverReplacesUndeliveredSnapshot(t *testing.T) {
	f := newFeed()

	f.deliver([]*Record{{ID: "rec_1"}})
	f.deliver([]*Record{{ID: "rec_1"}, {ID: "rec_2"}})

	// Only the latest snapshot is readable; the stale one was dropped.
	snapshot := <-f.ch
	require.Len(t, snapshot, 2)
	assert.Equal(t, "rec_2", snapshot[1].ID)

	select {
	case extra := <-f.ch:
		t.Fatalf("unexpected extra snapshot: %v", extra)
	default:
	}
}

func TestFeed_DeliverAfterCloseIsNoop(t *testing.T) {
	f := newFeed()
	f.close()
	f.close()

	// A record hook racing with teardown must not panic.
	f.deliver([]*Record{{ID: "rec_1"}})

	_, open := <-f.ch
	assert.False(t, open)
}

func TestRecord_Accessors(t *testing.T) {
	now := time.Date(2024, 1, 20, 10, 30, 0, 0, time.UTC)
	rec := &Record{
		ID: "rec_1",
		Fields: map[string]any{
			"title":    "Inception",
			"rating":   8.8,
			"duration": 148,
			"featured": true,
			"genres":   []any{"Sci-Fi", "Thriller"},
			"date":     now,
		},
	}

	assert.Equal(t, "Inception", rec.GetString("title"))
	assert.Equal(t, 8.8, rec.GetFloat("rating"))
	assert.Equal(t, 148, rec.GetInt("duration"))
	assert.True(t, rec.GetBool("featured"))
	assert.Equal(t, []string{"Sci-Fi", "Thriller"}, rec.GetStringSlice("genres"))
	assert.Equal(t, now, rec.GetTime("date"))

	// Missing keys fall back to zero values.
	assert.Equal(t, "", rec.GetString("missing"))
	assert.Equal(t, 0.0, rec.GetFloat("missing"))
	assert.Nil(t, rec.GetStringSlice("missing"))
}
