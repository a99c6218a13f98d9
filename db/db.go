package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atrium/model"
)

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the HTTP handlers depend on. Records
// are manipulated whole: create, full replace, delete.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	CreateEvent(ctx context.Context, event model.Event) error
	UpdateEvent(ctx context.Context, event model.Event) error
	DeleteEvent(ctx context.Context, id string) error

	ListSponsors(ctx context.Context) ([]model.Sponsor, error)
	GetSponsor(ctx context.Context, id string) (model.Sponsor, error)
	CreateSponsor(ctx context.Context, sponsor model.Sponsor) error
	UpdateSponsor(ctx context.Context, sponsor model.Sponsor) error
	DeleteSponsor(ctx context.Context, id string) error
}

// DB is a PostgreSQL-backed Store.
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds the database configuration.
type Config struct {
	URL string
}

// New creates a new database connection pool.
func New(ctx context.Context, config Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Set some reasonable defaults for the connection pool
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// InitSchema initializes the database schema.
func (db *DB) InitSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			venue TEXT NOT NULL DEFAULT '',
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'draft',
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sponsors (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tier TEXT NOT NULL DEFAULT 'community',
			website TEXT NOT NULL DEFAULT '',
			contact_email TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sponsors table: %w", err)
	}

	return nil
}

// ListEvents retrieves all events, newest first.
func (db *DB) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, description, venue, starts_at, ends_at, status, image_url, created_at
		FROM events
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// GetEvent retrieves a single event by id.
func (db *DB) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, title, description, venue, starts_at, ends_at, status, image_url, created_at
		FROM events
		WHERE id = $1
	`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, err
	}

	return event, nil
}

// CreateEvent inserts a new event.
func (db *DB) CreateEvent(ctx context.Context, event model.Event) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO events (id, title, description, venue, starts_at, ends_at, status, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, event.Title, event.Description, event.Venue, event.StartsAt,
		nullableTime(event.EndsAt), string(event.Status), event.ImageURL, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// UpdateEvent replaces an event whole.
func (db *DB) UpdateEvent(ctx context.Context, event model.Event) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, venue = $4, starts_at = $5, ends_at = $6, status = $7, image_url = $8
		WHERE id = $1
	`, event.ID, event.Title, event.Description, event.Venue, event.StartsAt,
		nullableTime(event.EndsAt), string(event.Status), event.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteEvent removes an event by id.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	result, err := db.Pool.Exec(ctx, `
		DELETE FROM events WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListSponsors retrieves all sponsors, newest first.
func (db *DB) ListSponsors(ctx context.Context) ([]model.Sponsor, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, description, tier, website, contact_email, logo_url, created_at
		FROM sponsors
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sponsors: %w", err)
	}
	defer rows.Close()

	var sponsors []model.Sponsor
	for rows.Next() {
		sponsor, err := scanSponsor(rows)
		if err != nil {
			return nil, err
		}
		sponsors = append(sponsors, sponsor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sponsors: %w", err)
	}

	return sponsors, nil
}

// GetSponsor retrieves a single sponsor by id.
func (db *DB) GetSponsor(ctx context.Context, id string) (model.Sponsor, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, name, description, tier, website, contact_email, logo_url, created_at
		FROM sponsors
		WHERE id = $1
	`, id)

	sponsor, err := scanSponsor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Sponsor{}, ErrNotFound
		}
		return model.Sponsor{}, err
	}

	return sponsor, nil
}

// CreateSponsor inserts a new sponsor.
func (db *DB) CreateSponsor(ctx context.Context, sponsor model.Sponsor) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO sponsors (id, name, description, tier, website, contact_email, logo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sponsor.ID, sponsor.Name, sponsor.Description, string(sponsor.Tier),
		sponsor.Website, sponsor.ContactEmail, sponsor.LogoURL, sponsor.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sponsor: %w", err)
	}

	return nil
}

// UpdateSponsor replaces a sponsor whole.
func (db *DB) UpdateSponsor(ctx context.Context, sponsor model.Sponsor) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE sponsors
		SET name = $2, description = $3, tier = $4, website = $5, contact_email = $6, logo_url = $7
		WHERE id = $1
	`, sponsor.ID, sponsor.Name, sponsor.Description, string(sponsor.Tier),
		sponsor.Website, sponsor.ContactEmail, sponsor.LogoURL)
	if err != nil {
		return fmt.Errorf("failed to update sponsor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteSponsor removes a sponsor by id.
func (db *DB) DeleteSponsor(ctx context.Context, id string) error {
	result, err := db.Pool.Exec(ctx, `
		DELETE FROM sponsors WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sponsor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var event model.Event
	var endsAt *time.Time
	if err := row.Scan(&event.ID, &event.Title, &event.Description, &event.Venue,
		&event.StartsAt, &endsAt, &event.Status, &event.ImageURL, &event.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, err
		}
		return model.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}
	if endsAt != nil {
		event.EndsAt = *endsAt
	}
	return event, nil
}

func scanSponsor(row pgx.Row) (model.Sponsor, error) {
	var sponsor model.Sponsor
	if err := row.Scan(&sponsor.ID, &sponsor.Name, &sponsor.Description, &sponsor.Tier,
		&sponsor.Website, &sponsor.ContactEmail, &sponsor.LogoURL, &sponsor.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Sponsor{}, err
		}
		return model.Sponsor{}, fmt.Errorf("failed to scan sponsor: %w", err)
	}
	return sponsor, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
