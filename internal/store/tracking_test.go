package store

import (
	"math/rand"
	"testing"
	"time"

	"dailydose/internal/library"
	"dailydose/internal/period"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDose(t *testing.T, db *DB, id string, count int, p period.Period) library.Dose {
	t.Helper()
	if tag, _ := db.GetTag("test"); tag == nil {
		if err := db.CreateTag(library.Tag{Name: "test", Demand: 1.0}); err != nil {
			t.Fatalf("CreateTag: %v", err)
		}
	}
	d := library.Dose{ID: id, Tag: "test", Message: "msg"}
	if count > 0 {
		d.Frequency = &library.Frequency{Kind: library.AtLeast, Count: count, Period: p}
	}
	if err := db.CreateDose(d); err != nil {
		t.Fatalf("CreateDose: %v", err)
	}
	return d
}

func beginCycle(t *testing.T, db *DB) *Cycle {
	t.Helper()
	c, err := db.BeginCycle()
	if err != nil {
		t.Fatalf("BeginCycle: %v", err)
	}
	return c
}

func TestEnsureZeroPolicy(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "d1", 3, period.Week)
	now := time.Date(2023, time.October, 25, 9, 0, 0, 0, time.UTC) // Wednesday

	c := beginCycle(t, db)
	rec, err := c.Ensure(dose, now, InitZero, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if rec.CountInPeriod != 0 {
		t.Errorf("CountInPeriod = %d, want 0", rec.CountInPeriod)
	}
	want := time.Date(2023, time.October, 22, 0, 0, 0, 0, time.UTC) // Sunday
	if !rec.PeriodStart.Equal(want) {
		t.Errorf("PeriodStart = %v, want %v", rec.PeriodStart, want)
	}
	if rec.LastShownAt != nil {
		t.Error("new record should have no last_shown_at")
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Ensure again returns the stored record, not a fresh one.
	c2 := beginCycle(t, db)
	defer c2.Rollback()
	again, err := c2.Ensure(dose, now, InitZero, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	if !again.PeriodStart.Equal(rec.PeriodStart) {
		t.Error("second Ensure should return the persisted record")
	}
}

func TestEnsureRandomPolicyRange(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	rng := rand.New(rand.NewSource(99))

	// Across repeated trials, every seeded count stays in [0, count).
	seen := map[int]bool{}
	for i := 0; i < 40; i++ {
		dose := seedDose(t, db, "d"+string(rune('a'+i%26))+string(rune('a'+i/26)), 4, period.Week)
		c := beginCycle(t, db)
		rec, err := c.Ensure(dose, now, InitRandom, rng)
		if err != nil {
			t.Fatalf("Ensure: %v", err)
		}
		if rec.CountInPeriod < 0 || rec.CountInPeriod >= 4 {
			t.Fatalf("CountInPeriod = %d, want within [0,4)", rec.CountInPeriod)
		}
		seen[rec.CountInPeriod] = true
		if err := c.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	if len(seen) < 2 {
		t.Errorf("random policy never varied: %v", seen)
	}
}

func TestEnsureRandomPolicySoftDose(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "soft", 0, "")
	c := beginCycle(t, db)
	defer c.Rollback()

	rec, err := c.Ensure(dose, time.Now(), InitRandom, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if rec.CountInPeriod != 0 {
		t.Errorf("soft dose count = %d, want 0", rec.CountInPeriod)
	}
}

func TestRolloverResetsAtBoundary(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "d1", 3, period.Week)
	saturday := time.Date(2023, time.October, 28, 22, 0, 0, 0, time.UTC)

	c := beginCycle(t, db)
	rec, _ := c.Ensure(dose, saturday, InitZero, rand.New(rand.NewSource(1)))
	rec.CountInPeriod = 2
	if err := c.Upsert(rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Still Saturday: same window, nothing resets.
	laterSaturday := time.Date(2023, time.October, 28, 23, 59, 0, 0, time.UTC)
	if err := c.Rollover(rec, period.Week, laterSaturday); err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if rec.CountInPeriod != 2 {
		t.Errorf("count reset inside window: %d", rec.CountInPeriod)
	}

	// Sunday midnight: new week, full reset, no proration.
	sunday := time.Date(2023, time.October, 29, 0, 0, 0, 0, time.UTC)
	if err := c.Rollover(rec, period.Week, sunday); err != nil {
		t.Fatalf("Rollover: %v", err)
	}
	if rec.CountInPeriod != 0 {
		t.Errorf("count = %d, want 0 after rollover", rec.CountInPeriod)
	}
	if !rec.PeriodStart.Equal(sunday) {
		t.Errorf("PeriodStart = %v, want %v", rec.PeriodStart, sunday)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// The reset is persisted.
	stored, err := db.GetTracking("d1")
	if err != nil {
		t.Fatalf("GetTracking: %v", err)
	}
	if stored.CountInPeriod != 0 || !stored.PeriodStart.Equal(sunday) {
		t.Errorf("persisted record = %+v, want reset at %v", stored, sunday)
	}
}

func TestRelieve(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "d1", 1, period.Day)
	now := time.Date(2023, time.October, 25, 9, 0, 0, 0, time.UTC)

	c := beginCycle(t, db)
	if _, err := c.Ensure(dose, now, InitZero, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := c.Relieve("d1", now); err != nil {
		t.Fatalf("Relieve: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rec, _ := db.GetTracking("d1")
	if rec.CountInPeriod != 1 {
		t.Errorf("CountInPeriod = %d, want 1", rec.CountInPeriod)
	}
	if rec.LastShownAt == nil || !rec.LastShownAt.Equal(now) {
		t.Errorf("LastShownAt = %v, want %v", rec.LastShownAt, now)
	}
}

func TestRelieveWithoutRecord(t *testing.T) {
	db := testDB(t)
	seedDose(t, db, "d1", 1, period.Day)

	c := beginCycle(t, db)
	defer c.Rollback()
	if err := c.Relieve("d1", time.Now()); err == nil {
		t.Error("expected error relieving a dose with no tracking record")
	}
}

func TestRollbackLeavesStoreUntouched(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "d1", 2, period.Week)
	now := time.Now()

	c := beginCycle(t, db)
	if _, err := c.Ensure(dose, now, InitZero, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := c.Relieve("d1", now); err != nil {
		t.Fatalf("Relieve: %v", err)
	}
	c.Rollback()

	rec, err := db.GetTracking("d1")
	if err != nil {
		t.Fatalf("GetTracking: %v", err)
	}
	if rec != nil {
		t.Errorf("aborted cycle leaked state: %+v", rec)
	}
}

func TestDeleteDoseCascadesTracking(t *testing.T) {
	db := testDB(t)
	dose := seedDose(t, db, "d1", 1, period.Day)

	c := beginCycle(t, db)
	if _, err := c.Ensure(dose, time.Now(), InitZero, rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	deleted, err := db.DeleteDose("d1")
	if err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	if !deleted {
		t.Fatal("expected dose to be deleted")
	}

	rec, err := db.GetTracking("d1")
	if err != nil {
		t.Fatalf("GetTracking: %v", err)
	}
	if rec != nil {
		t.Error("tracking record should cascade-delete with its dose")
	}
}

func TestOrphanTracking(t *testing.T) {
	db := testDB(t)

	// Simulate state written without foreign key enforcement.
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		t.Fatalf("disable fks: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO tracking (dose_id, count_in_period, period_start) VALUES ('ghost', 0, 0)`,
	); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}

	c := beginCycle(t, db)
	defer c.Rollback()
	orphans, err := c.OrphanTracking()
	if err != nil {
		t.Fatalf("OrphanTracking: %v", err)
	}
	if len(orphans) != 1 || orphans[0] != "ghost" {
		t.Errorf("orphans = %v, want [ghost]", orphans)
	}
}

func TestSnapshotValidates(t *testing.T) {
	db := testDB(t)
	seedDose(t, db, "d1", 2, period.Week)

	lib, err := db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if lib.Len() != 1 {
		t.Errorf("Len = %d, want 1", lib.Len())
	}
}
