// Package engine orchestrates the digest cycle: snapshot the library, roll
// tracking state over period boundaries, score every dose, run the auction,
// and commit relief, all inside one store transaction so an aborted cycle
// leaves tracking state untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"dailydose/internal/config"
	"dailydose/internal/library"
	"dailydose/internal/period"
	"dailydose/internal/selection"
	"dailydose/internal/store"
)

// ErrConsistency marks a mismatch between the dose library and tracking
// state. The cycle aborts with no mutation committed.
var ErrConsistency = errors.New("consistency error")

// Entry is one selected dose in a digest, annotated with the path that
// admitted it.
type Entry struct {
	DoseID  string         `json:"dose_id"`
	Message string         `json:"message"`
	Path    selection.Path `json:"path"`
}

// Digest is the outcome of one cycle.
type Digest struct {
	RunAt   time.Time `json:"run_at"`
	Entries []Entry   `json:"entries"`
}

// Engine runs digest cycles against a store. At most one cycle may execute
// at a time per store; RunDigest serializes callers internally via runCh.
type Engine struct {
	db *store.DB

	alpha          float64
	slotLimit      int
	timings        []string
	initPolicy     store.InitPolicy
	neverShownDays float64

	rng    *rand.Rand
	runCh  chan struct{}
	stopCh chan struct{}
}

// New creates an Engine from selection configuration. Timings must already
// be validated (config.Load does this).
func New(db *store.DB, cfg config.SelectionConfig) *Engine {
	e := &Engine{
		db:             db,
		alpha:          cfg.Alpha,
		slotLimit:      cfg.DigestSize,
		timings:        cfg.DigestTimings,
		initPolicy:     store.InitPolicy(cfg.InitPolicy),
		neverShownDays: cfg.NeverShownDays,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		runCh:          make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
	e.runCh <- struct{}{}
	return e
}

// SetRand replaces the random source so auctions and seeded tracking state
// are reproducible under test.
func (e *Engine) SetRand(r *rand.Rand) {
	e.rng = r
}

// RunDigest executes one full cycle at the given timestamp and returns the
// selected doses. All errors abort the whole cycle; nothing is committed
// unless everything succeeded.
func (e *Engine) RunDigest(ctx context.Context, now time.Time) (*Digest, error) {
	// Single-writer guard around read-score-select-relieve.
	select {
	case <-e.runCh:
		defer func() { e.runCh <- struct{}{} }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lib, err := e.db.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	cycle, err := e.db.BeginCycle()
	if err != nil {
		return nil, err
	}
	defer cycle.Rollback()

	if orphans, err := cycle.OrphanTracking(); err != nil {
		return nil, err
	} else if len(orphans) > 0 {
		return nil, fmt.Errorf("%w: tracking state for unknown doses %v", ErrConsistency, orphans)
	}

	candidates := make([]selection.Candidate, 0, lib.Len())
	messages := make(map[string]string, lib.Len())
	for _, dose := range lib.Doses() {
		rec, err := cycle.Ensure(dose, now, e.initPolicy, e.rng)
		if err != nil {
			return nil, err
		}

		score, err := e.score(dose, rec, cycle, lib, now)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, selection.Candidate{ID: dose.ID, Score: score})
		messages[dose.ID] = dose.Message
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	picks := selection.Auction(candidates, e.slotLimit, e.rng)

	digest := &Digest{RunAt: now}
	for _, pick := range picks {
		if err := cycle.Relieve(pick.ID, now); err != nil {
			return nil, err
		}
		if err := cycle.LogSelection(pick.ID, now, string(pick.Path)); err != nil {
			return nil, err
		}
		digest.Entries = append(digest.Entries, Entry{
			DoseID:  pick.ID,
			Message: messages[pick.ID],
			Path:    pick.Path,
		})
	}

	if err := cycle.Commit(); err != nil {
		return nil, err
	}
	return digest, nil
}

// score rolls the dose's tracking state over any crossed period boundary and
// computes its urgency.
func (e *Engine) score(dose library.Dose, rec *store.TrackingRecord, cycle *store.Cycle, lib *library.Library, now time.Time) (selection.Score, error) {
	var quota *selection.QuotaState
	if f := dose.Frequency; f != nil {
		if err := cycle.Rollover(rec, f.Period, now); err != nil {
			return selection.Score{}, err
		}
		quota = &selection.QuotaState{
			DosesRemaining:   f.Count - rec.CountInPeriod,
			DigestsRemaining: period.DigestsRemaining(f.Period, now, e.timings),
		}
	}

	days := e.neverShownDays
	if rec.LastShownAt != nil {
		days = now.Sub(*rec.LastShownAt).Hours() / 24
		if days < 0 {
			days = 0
		}
	}

	return selection.Urgency(days, lib.Demand(dose), e.alpha, quota), nil
}

// StartScheduler fires a digest cycle at each configured timing and hands
// the result to deliver (which may be nil). Runs until Stop.
func (e *Engine) StartScheduler(deliver func(context.Context, *Digest)) {
	go func() {
		for {
			next := e.nextTick(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				digest, err := e.RunDigest(ctx, next)
				if err != nil {
					log.Printf("digest cycle failed: %v", err)
				} else {
					log.Printf("digest: selected %d doses", len(digest.Entries))
					if deliver != nil {
						deliver(ctx, digest)
					}
				}
				cancel()
			case <-e.stopCh:
				timer.Stop()
				return
			}
		}
	}()
}

// Stop shuts down the scheduler goroutine.
func (e *Engine) Stop() {
	close(e.stopCh)
}

// nextTick returns the next configured timing strictly after now. Timings
// are kept sorted by config validation.
func (e *Engine) nextTick(now time.Time) time.Time {
	nowHM := now.Format("15:04")
	for _, t := range e.timings {
		if t > nowHM {
			parsed, _ := time.Parse("15:04", t)
			return time.Date(now.Year(), now.Month(), now.Day(),
				parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		}
	}
	// All of today's ticks are spent; wrap to tomorrow's first timing.
	parsed, _ := time.Parse("15:04", e.timings[0])
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
}
