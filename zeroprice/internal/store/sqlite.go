package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/solarwatch/dbopen"
	"github.com/hazyhaar/solarwatch/listing"
)

// Schema is the SQLite layout of the listing store.
const Schema = `
CREATE TABLE IF NOT EXISTS listings (
	link     TEXT PRIMARY KEY,
	title    TEXT NOT NULL DEFAULT '',
	price    TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	saved_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_position ON listings(position);
`

// SQLite stores the collection in a listings table. Save replaces the
// table contents in a single transaction.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite wraps an open database. The caller applies Schema, usually via
// dbopen.WithSchema, and owns db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

// OpenSQLite opens path with the listing schema applied. Commits are
// synced in full: a lost save means duplicate notifications.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path,
		dbopen.WithSchema(Schema),
		dbopen.WithMkdirAll(),
		dbopen.WithSynchronous("FULL"))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return NewSQLite(db), nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) ([]listing.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, price, link FROM listings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	entries := []listing.Entry{}
	for rows.Next() {
		var e listing.Entry
		if err := rows.Scan(&e.Title, &e.Price, &e.Link); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	return listing.Dedupe(entries), nil
}

func (s *SQLite) Save(ctx context.Context, entries []listing.Entry) error {
	entries = listing.Dedupe(entries)
	savedAt := s.now().UnixMilli()

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO listings (link, title, price, position, saved_at) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Link, e.Title, e.Price, i, savedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	return nil
}

var _ Store = (*SQLite)(nil)
