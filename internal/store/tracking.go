package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"dailydose/internal/library"
	"dailydose/internal/period"
)

// InitPolicy controls the count a brand-new TrackingRecord starts with.
type InitPolicy string

const (
	// InitZero starts new doses with an empty period (cold start).
	InitZero InitPolicy = "zero"
	// InitRandom seeds count_in_period uniformly from [0, count), simulating
	// partial history so new doses don't all flood the priority path at once.
	InitRandom InitPolicy = "random"
)

// Valid reports whether p is a known policy.
func (p InitPolicy) Valid() bool {
	return p == InitZero || p == InitRandom
}

// TrackingRecord is the mutable per-dose state: how often the dose has been
// shown in the current period window and when it was last shown at all.
type TrackingRecord struct {
	DoseID        string
	CountInPeriod int
	PeriodStart   time.Time
	LastShownAt   *time.Time
}

// GetTracking returns the tracking record for a dose, or nil if none exists.
func (db *DB) GetTracking(doseID string) (*TrackingRecord, error) {
	return getTracking(db.DB, doseID)
}

// Cycle is a single digest cycle's transaction over tracking state. Every
// mutation between BeginCycle and Commit lands atomically; Rollback leaves
// the store exactly as it was before the cycle started.
type Cycle struct {
	tx *sql.Tx
}

// BeginCycle opens the cycle transaction. Callers must Commit or Rollback.
// The caller is also responsible for serializing cycles: two interleaved
// cycles reading stale counts would corrupt quota accounting.
func (db *DB) BeginCycle() (*Cycle, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin cycle: %w", err)
	}
	return &Cycle{tx: tx}, nil
}

// Commit makes the cycle's mutations durable.
func (c *Cycle) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("commit cycle: %w", err)
	}
	return nil
}

// Rollback discards the cycle. Safe to call after Commit.
func (c *Cycle) Rollback() {
	c.tx.Rollback()
}

// Get returns the tracking record for a dose within the cycle, or nil.
func (c *Cycle) Get(doseID string) (*TrackingRecord, error) {
	return getTracking(c.tx, doseID)
}

// Upsert writes the full record.
func (c *Cycle) Upsert(rec *TrackingRecord) error {
	var last sql.NullInt64
	if rec.LastShownAt != nil {
		last = sql.NullInt64{Int64: rec.LastShownAt.UnixMilli(), Valid: true}
	}
	_, err := c.tx.Exec(`
		INSERT INTO tracking (dose_id, count_in_period, period_start, last_shown_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(dose_id) DO UPDATE SET
			count_in_period = excluded.count_in_period,
			period_start    = excluded.period_start,
			last_shown_at   = excluded.last_shown_at
	`, rec.DoseID, rec.CountInPeriod, rec.PeriodStart.UnixMilli(), last)
	if err != nil {
		return fmt.Errorf("upsert tracking %s: %w", rec.DoseID, err)
	}
	return nil
}

// Ensure returns the dose's tracking record, creating one under the given
// init policy if the dose is new. Soft-only doses always start at zero since
// they have no count to seed against.
func (c *Cycle) Ensure(dose library.Dose, now time.Time, policy InitPolicy, rng *rand.Rand) (*TrackingRecord, error) {
	rec, err := c.Get(dose.ID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	p := period.Day
	count := 0
	if f := dose.Frequency; f != nil {
		p = f.Period
		if policy == InitRandom {
			count = rng.Intn(f.Count)
		}
	}

	rec = &TrackingRecord{
		DoseID:        dose.ID,
		CountInPeriod: count,
		PeriodStart:   period.WindowStart(p, now),
	}
	if err := c.Upsert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Rollover resets the record if now has crossed into a new period window:
// count drops to 0 and period_start advances to the new window's start.
// There is no proration: a dose added mid-week owes its full weekly count
// in whatever days remain. Records already in the current window pass
// through untouched.
func (c *Cycle) Rollover(rec *TrackingRecord, p period.Period, now time.Time) error {
	start := period.WindowStart(p, now)
	if !rec.PeriodStart.Before(start) {
		return nil
	}
	rec.CountInPeriod = 0
	rec.PeriodStart = start
	return c.Upsert(rec)
}

// Relieve applies the post-selection update for one selected dose:
// count_in_period += 1 and last_shown_at = now. Unselected doses are never
// touched; their pressure compounds into the next tick.
func (c *Cycle) Relieve(doseID string, now time.Time) error {
	res, err := c.tx.Exec(`
		UPDATE tracking
		SET count_in_period = count_in_period + 1, last_shown_at = ?
		WHERE dose_id = ?
	`, now.UnixMilli(), doseID)
	if err != nil {
		return fmt.Errorf("relieve %s: %w", doseID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("relieve %s: no tracking record", doseID)
	}
	return nil
}

// LogSelection records one digest entry for diagnostics.
func (c *Cycle) LogSelection(doseID string, runAt time.Time, path string) error {
	_, err := c.tx.Exec(`
		INSERT INTO digest_log (dose_id, run_at, path) VALUES (?, ?, ?)
	`, doseID, runAt.UnixMilli(), path)
	if err != nil {
		return fmt.Errorf("log selection %s: %w", doseID, err)
	}
	return nil
}

// OrphanTracking returns dose ids that have tracking state but no dose
// definition. Any result is a consistency error upstream.
func (c *Cycle) OrphanTracking() ([]string, error) {
	rows, err := c.tx.Query(`
		SELECT t.dose_id FROM tracking t
		LEFT JOIN doses d ON d.id = t.dose_id
		WHERE d.id IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("orphan tracking: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getTracking(q querier, doseID string) (*TrackingRecord, error) {
	var rec TrackingRecord
	var start int64
	var last sql.NullInt64
	err := q.QueryRow(`
		SELECT dose_id, count_in_period, period_start, last_shown_at
		FROM tracking WHERE dose_id = ?
	`, doseID).Scan(&rec.DoseID, &rec.CountInPeriod, &start, &last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracking %s: %w", doseID, err)
	}
	rec.PeriodStart = time.UnixMilli(start)
	if last.Valid {
		t := time.UnixMilli(last.Int64)
		rec.LastShownAt = &t
	}
	return &rec, nil
}
