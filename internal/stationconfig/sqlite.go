package stationconfig

import (
	"context"
	"database/sql"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS countries (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		country_id TEXT NOT NULL REFERENCES countries(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stations (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL UNIQUE,
		city_id  TEXT NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
		url      TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS config_meta (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		initialized_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteBackend stores the document in a SQLite database opened with the
// mattn/go-sqlite3 driver (see database.OpenSQLite).
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend creates a new SQLite backend.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Migrate creates the tables if they do not exist.
func (b *SQLiteBackend) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Read loads the document. It is nil only when nothing was ever written;
// a configuration emptied by deletes reads back empty.
func (b *SQLiteBackend) Read(ctx context.Context) (*Document, error) {
	var doc Document

	var written int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config_meta`).Scan(&written); err != nil {
		return nil, fmt.Errorf("read config_meta: %w", err)
	}

	err := b.query(ctx, `SELECT id, name FROM countries ORDER BY position`, func(rows *sql.Rows) error {
		var c CountryRecord
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return err
		}
		doc.Countries = append(doc.Countries, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read countries: %w", err)
	}

	err = b.query(ctx, `SELECT id, name, country_id FROM cities ORDER BY position`, func(rows *sql.Rows) error {
		var c CityRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.CountryID); err != nil {
			return err
		}
		doc.Cities = append(doc.Cities, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read cities: %w", err)
	}

	err = b.query(ctx, `SELECT id, name, city_id, url FROM stations ORDER BY position`, func(rows *sql.Rows) error {
		var s StationRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.CityID, &s.URL); err != nil {
			return err
		}
		doc.Stations = append(doc.Stations, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}

	if written == 0 && doc.IsEmpty() {
		return nil, nil
	}
	return &doc, nil
}

// Write replaces the table contents in one transaction.
func (b *SQLiteBackend) Write(ctx context.Context, doc *Document) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"stations", "cities", "countries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO config_meta (id) VALUES (1)`); err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}

	for i, c := range doc.Countries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO countries (id, name, position) VALUES (?, ?, ?)`, c.ID, c.Name, i); err != nil {
			return fmt.Errorf("write country %q: %w", c.Name, err)
		}
	}
	for i, c := range doc.Cities {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cities (id, name, country_id, position) VALUES (?, ?, ?, ?)`, c.ID, c.Name, c.CountryID, i); err != nil {
			return fmt.Errorf("write city %q: %w", c.Name, err)
		}
	}
	for i, s := range doc.Stations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stations (id, name, city_id, url, position) VALUES (?, ?, ?, ?, ?)`, s.ID, s.Name, s.CityID, s.URL, i); err != nil {
			return fmt.Errorf("write station %q: %w", s.Name, err)
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) query(ctx context.Context, query string, scan func(*sql.Rows) error) error {
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

var _ Backend = (*SQLiteBackend)(nil)
