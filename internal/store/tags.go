package store

import (
	"database/sql"
	"fmt"

	"dailydose/internal/library"
)

// CreateTag inserts a new tag. Fails if the name is already taken.
func (db *DB) CreateTag(t library.Tag) error {
	_, err := db.Exec(`INSERT INTO tags (name, demand) VALUES (?, ?)`, t.Name, t.Demand)
	if err != nil {
		return fmt.Errorf("create tag %s: %w", t.Name, err)
	}
	return nil
}

// GetTag returns a tag by name, or nil if it does not exist.
func (db *DB) GetTag(name string) (*library.Tag, error) {
	var t library.Tag
	err := db.QueryRow(`SELECT name, demand FROM tags WHERE name = ?`, name).
		Scan(&t.Name, &t.Demand)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", name, err)
	}
	return &t, nil
}

// ListTags returns all tags ordered by name.
func (db *DB) ListTags() ([]library.Tag, error) {
	rows, err := db.Query(`SELECT name, demand FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []library.Tag
	for rows.Next() {
		var t library.Tag
		if err := rows.Scan(&t.Name, &t.Demand); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
