package stationconfig

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
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
		initialized_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// PostgresBackend stores the document in three PostgreSQL tables.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a new PostgreSQL backend.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Read loads the document. It is nil only when nothing was ever written;
// a configuration emptied by deletes reads back empty.
func (b *PostgresBackend) Read(ctx context.Context) (*Document, error) {
	var doc Document

	var written bool
	err := b.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM config_meta)`).Scan(&written)
	if err != nil {
		return nil, fmt.Errorf("read config_meta: %w", err)
	}

	countries, err := b.pool.Query(ctx, `SELECT id, name FROM countries ORDER BY position`)
	if err != nil {
		return nil, err
	}
	doc.Countries, err = pgx.CollectRows(countries, func(row pgx.CollectableRow) (CountryRecord, error) {
		var c CountryRecord
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("read countries: %w", err)
	}

	cities, err := b.pool.Query(ctx, `SELECT id, name, country_id FROM cities ORDER BY position`)
	if err != nil {
		return nil, err
	}
	doc.Cities, err = pgx.CollectRows(cities, func(row pgx.CollectableRow) (CityRecord, error) {
		var c CityRecord
		err := row.Scan(&c.ID, &c.Name, &c.CountryID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("read cities: %w", err)
	}

	stations, err := b.pool.Query(ctx, `SELECT id, name, city_id, url FROM stations ORDER BY position`)
	if err != nil {
		return nil, err
	}
	doc.Stations, err = pgx.CollectRows(stations, func(row pgx.CollectableRow) (StationRecord, error) {
		var s StationRecord
		err := row.Scan(&s.ID, &s.Name, &s.CityID, &s.URL)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}

	if !written && doc.IsEmpty() {
		return nil, nil
	}
	return &doc, nil
}

// Write replaces the table contents in one transaction.
func (b *PostgresBackend) Write(ctx context.Context, doc *Document) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	for _, table := range []string{"stations", "cities", "countries"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO config_meta (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"countries"}, []string{"id", "name", "position"},
		pgx.CopyFromSlice(len(doc.Countries), func(i int) ([]any, error) {
			c := doc.Countries[i]
			return []any{c.ID, c.Name, i}, nil
		}))
	if err != nil {
		return fmt.Errorf("write countries: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"cities"}, []string{"id", "name", "country_id", "position"},
		pgx.CopyFromSlice(len(doc.Cities), func(i int) ([]any, error) {
			c := doc.Cities[i]
			return []any{c.ID, c.Name, c.CountryID, i}, nil
		}))
	if err != nil {
		return fmt.Errorf("write cities: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"stations"}, []string{"id", "name", "city_id", "url", "position"},
		pgx.CopyFromSlice(len(doc.Stations), func(i int) ([]any, error) {
			s := doc.Stations[i]
			return []any{s.ID, s.Name, s.CityID, s.URL, i}, nil
		}))
	if err != nil {
		return fmt.Errorf("write stations: %w", err)
	}

	return tx.Commit(ctx)
}

var _ Backend = (*PostgresBackend)(nil)
