package store

import (
	"database/sql"
	"fmt"
	"time"

	"dailydose/internal/library"
	"dailydose/internal/period"
)

// CreateDose inserts a new dose definition. The referenced tag must already
// exist (enforced by the foreign key).
func (db *DB) CreateDose(d library.Dose) error {
	now := time.Now().UnixMilli()

	var kind, per sql.NullString
	var count sql.NullInt64
	if f := d.Frequency; f != nil {
		kind = sql.NullString{String: string(f.Kind), Valid: true}
		count = sql.NullInt64{Int64: int64(f.Count), Valid: true}
		per = sql.NullString{String: string(f.Period), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO doses (id, tag_name, message, frequency_kind, frequency_count, frequency_period, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Tag, d.Message, kind, count, per, now)
	if err != nil {
		return fmt.Errorf("create dose %s: %w", d.ID, err)
	}
	return nil
}

// GetDose returns a dose by id, or nil if it does not exist.
func (db *DB) GetDose(id string) (*library.Dose, error) {
	d, err := scanDose(db.QueryRow(`
		SELECT id, tag_name, message, frequency_kind, frequency_count, frequency_period
		FROM doses WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dose %s: %w", id, err)
	}
	return d, nil
}

// ListDoses returns every dose definition ordered by id.
func (db *DB) ListDoses() ([]library.Dose, error) {
	rows, err := db.Query(`
		SELECT id, tag_name, message, frequency_kind, frequency_count, frequency_period
		FROM doses ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list doses: %w", err)
	}
	defer rows.Close()

	var doses []library.Dose
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dose: %w", err)
		}
		doses = append(doses, *d)
	}
	return doses, rows.Err()
}

// DeleteDose removes a dose and, via cascade, its tracking record. Returns
// false if no dose had that id.
func (db *DB) DeleteDose(id string) (bool, error) {
	res, err := db.Exec(`DELETE FROM doses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete dose %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Snapshot loads and validates the full dose/tag library as an immutable
// object for one digest cycle.
func (db *DB) Snapshot() (*library.Library, error) {
	tags, err := db.ListTags()
	if err != nil {
		return nil, err
	}
	doses, err := db.ListDoses()
	if err != nil {
		return nil, err
	}
	return library.New(doses, tags)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDose(row rowScanner) (*library.Dose, error) {
	var d library.Dose
	var kind, per sql.NullString
	var count sql.NullInt64
	if err := row.Scan(&d.ID, &d.Tag, &d.Message, &kind, &count, &per); err != nil {
		return nil, err
	}
	if kind.Valid {
		d.Frequency = &library.Frequency{
			Kind:   library.FrequencyKind(kind.String),
			Count:  int(count.Int64),
			Period: period.Period(per.String),
		}
	}
	return &d, nil
}
