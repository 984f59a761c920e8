package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"cinebook/internal/status"
)

// Client is a thin generic wrapper over the embedded document store. It
// exposes per-collection CRUD, filtered/ordered queries and a live
// subscription feed. Field values are normalized on the way out: store
// datetimes become UTC time.Time and raw JSON fields are decoded, so
// callers never deal with provider-specific encodings.
type Client struct {
	app core.App
}

func New(app core.App) *Client {
	return &Client{app: app}
}

// Record is a normalized document store record.
type Record struct {
	ID         string
	Collection string
	Fields     map[string]any
	Created    time.Time
	Updated    time.Time
}

// Filter is a parameterized query condition, e.g.
// {Expr: "showtime = {:id}", Params: dbx.Params{"id": showtimeID}}.
type Filter struct {
	Expr   string
	Params dbx.Params
}

// Create inserts a new record and returns its server-assigned id.
// Creation/update timestamps are assigned by the store.
func (c *Client) Create(collection string, fields map[string]any) (string, error) {
	col, err := c.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return "", fmt.Errorf("store: unknown collection %q: %w", collection, err)
	}

	rec := core.NewRecord(col)
	for k, v := range fields {
		rec.Set(k, v)
	}
	if err := c.app.Save(rec); err != nil {
		return "", fmt.Errorf("store: create %s: %w", collection, err)
	}
	return rec.Id, nil
}

// Update applies a partial update to an existing record.
func (c *Client) Update(collection, id string, fields map[string]any) error {
	rec, err := c.record(collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		rec.Set(k, v)
	}
	if err := c.app.Save(rec); err != nil {
		return fmt.Errorf("store: update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a record by id.
func (c *Client) Delete(collection, id string) error {
	rec, err := c.record(collection, id)
	if err != nil {
		return err
	}
	if err := c.app.Delete(rec); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get fetches a single record by id. Missing records yield
// status.ErrNotFound.
func (c *Client) Get(collection, id string) (*Record, error) {
	rec, err := c.record(collection, id)
	if err != nil {
		return nil, err
	}
	return normalize(rec), nil
}

// Query returns records matching the optional filter, ordered by sort
// ("-created" for newest first, comma-separated fields supported) and
// capped at limit when limit > 0.
func (c *Client) Query(collection string, filter *Filter, sort string, limit int) ([]*Record, error) {
	q := c.app.RecordQuery(collection)
	if filter != nil {
		q.AndWhere(dbx.NewExp(filter.Expr, filter.Params))
	}
	for _, col := range sortColumns(sort) {
		q.AndOrderBy(col)
	}
	if limit > 0 {
		q.Limit(int64(limit))
	}

	records := []*core.Record{}
	if err := q.All(&records); err != nil {
		return nil, fmt.Errorf("store: query %s: %w", collection, err)
	}

	out := make([]*Record, len(records))
	for i, rec := range records {
		out[i] = normalize(rec)
	}
	return out, nil
}

// feed is a single-slot snapshot channel. deliver replaces any
// undelivered snapshot; after close it becomes a no-op, so a record
// hook racing with subscription teardown never sends on a closed
// channel.
type feed struct {
	mu     sync.Mutex
	ch     chan []*Record
	closed bool
}

func newFeed() *feed {
	return &feed{ch: make(chan []*Record, 1)}
}

func (f *feed) deliver(snapshot []*Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- snapshot:
	default:
		select {
		case <-f.ch:
		default:
		}
		f.ch <- snapshot
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}

// Subscribe returns a channel that receives the full ordered snapshot of
// the collection after every change. Each delivery replaces the previous
// one entirely; stale snapshots are dropped when the consumer lags. The
// subscription ends when ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, collection, sort string) (<-chan []*Record, error) {
	// Initial snapshot, so subscribers start from authoritative state.
	initial, err := c.Query(collection, nil, sort, 0)
	if err != nil {
		return nil, err
	}

	f := newFeed()
	f.deliver(initial)

	push := func() {
		snapshot, err := c.Query(collection, nil, sort, 0)
		if err != nil {
			slog.Error("store: subscription snapshot failed", "collection", collection, "error", err)
			return
		}
		f.deliver(snapshot)
	}

	onChange := func(e *core.RecordEvent) error {
		push()
		return e.Next()
	}

	ids := []string{
		c.app.OnRecordAfterCreateSuccess(collection).BindFunc(onChange),
		c.app.OnRecordAfterUpdateSuccess(collection).BindFunc(onChange),
		c.app.OnRecordAfterDeleteSuccess(collection).BindFunc(onChange),
	}

	go func() {
		<-ctx.Done()
		c.app.OnRecordAfterCreateSuccess(collection).Unbind(ids[0])
		c.app.OnRecordAfterUpdateSuccess(collection).Unbind(ids[1])
		c.app.OnRecordAfterDeleteSuccess(collection).Unbind(ids[2])
		f.close()
	}()

	return f.ch, nil
}

// App exposes the underlying store application for transactional flows.
func (c *Client) App() core.App {
	return c.app
}

func (c *Client) record(collection, id string) (*core.Record, error) {
	rec, err := c.app.FindRecordById(collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrNotFound
		}
		return nil, fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

func normalize(rec *core.Record) *Record {
	fields := map[string]any{}
	for _, f := range rec.Collection().Fields {
		name := f.GetName()
		fields[name] = NormalizeValue(rec.Get(name))
	}

	return &Record{
		ID:         rec.Id,
		Collection: rec.Collection().Name,
		Fields:     fields,
		Created:    rec.GetDateTime("created").Time().UTC(),
		Updated:    rec.GetDateTime("updated").Time().UTC(),
	}
}

// NormalizeValue converts store-specific encodings into plain Go values:
// datetimes become UTC time.Time, raw JSON is decoded.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case types.DateTime:
		return val.Time().UTC()
	case *types.DateTime:
		if val == nil {
			return nil
		}
		return val.Time().UTC()
	case types.JSONRaw:
		if len(val) == 0 {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return string(val)
		}
		return decoded
	default:
		return v
	}
}

func sortColumns(sort string) []string {
	var cols []string
	for _, part := range strings.Split(sort, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			cols = append(cols, part[1:]+" DESC")
		} else {
			cols = append(cols, part+" ASC")
		}
	}
	return cols
}

// Accessors below keep callers out of the raw Fields map.

func (r *Record) GetString(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

func (r *Record) GetFloat(key string) float64 {
	switch v := r.Fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (r *Record) GetInt(key string) int {
	switch v := r.Fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (r *Record) GetBool(key string) bool {
	if v, ok := r.Fields[key].(bool); ok {
		return v
	}
	return false
}

func (r *Record) GetStringSlice(key string) []string {
	switch v := r.Fields[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (r *Record) GetTime(key string) time.Time {
	switch v := r.Fields[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
