package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

var (
	// ErrNotFound is returned when no rows have been stored yet.
	ErrNotFound = errors.New("no air quality data stored")
)

// MemoryStore is a concurrency-safe in-memory sink. It is used when no
// database is configured.
type MemoryStore struct {
	mu sync.RWMutex

	readings []airquality.SensorSample
	alerts   []airquality.AlertRecord

	// retention configuration
	maxHistory int           // max rows per table
	maxAge     time.Duration // optional max age for rows
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// EnsureSchema is a no-op for the in-memory store.
func (s *MemoryStore) EnsureSchema(context.Context) error { return nil }

// Persist appends the batch and enforces retention.
func (s *MemoryStore) Persist(ctx context.Context, readings []airquality.SensorSample, alerts []airquality.AlertRecord) (airquality.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return airquality.LoadResult{}, errors.Join(airquality.ErrLoad, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, readings...)
	s.alerts = append(s.alerts, alerts...)

	s.readings = retain(s.readings, s.maxHistory, s.cutoff(), func(r airquality.SensorSample) time.Time { return r.Timestamp })
	s.alerts = retain(s.alerts, s.maxHistory, s.cutoff(), func(a airquality.AlertRecord) time.Time { return a.Timestamp })

	return airquality.LoadResult{Readings: len(readings), Alerts: len(alerts)}, nil
}

func (s *MemoryStore) cutoff() time.Time {
	if s.maxAge <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.maxAge)
}

// retain drops rows beyond maxHistory and rows older than cutoff. Rows are
// assumed to be appended in time order.
func retain[T any](rows []T, maxHistory int, cutoff time.Time, ts func(T) time.Time) []T {
	// Enforce retention by count.
	if maxHistory > 0 && len(rows) > maxHistory {
		over := len(rows) - maxHistory
		rows = rows[over:]
	}

	// Enforce retention by age.
	if !cutoff.IsZero() {
		i := 0
		for ; i < len(rows); i++ {
			if !ts(rows[i]).Before(cutoff) {
				break
			}
		}
		rows = rows[i:]
	}
	return rows
}

// RecentReadings returns up to limit readings, newest first.
func (s *MemoryStore) RecentReadings(_ context.Context, limit int) ([]airquality.SensorSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return nil, ErrNotFound
	}
	return newestFirst(s.readings, limit), nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (s *MemoryStore) RecentAlerts(_ context.Context, limit int) ([]airquality.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.alerts) == 0 {
		return nil, ErrNotFound
	}
	return newestFirst(s.alerts, limit), nil
}

func newestFirst[T any](rows []T, limit int) []T {
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	out := make([]T, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rows[i])
	}
	return out
}

var (
	_ airquality.Sink         = (*MemoryStore)(nil)
	_ airquality.ReadingStore = (*MemoryStore)(nil)
)
