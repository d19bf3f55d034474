// Package postgres implements domain.DetectionStore on PostgreSQL via pgx,
// for deployments where multiple API replicas share one cache.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadvision/stopsign-detector/internal/domain"
)

// Store persists detection records in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to PostgreSQL and verifies connectivity.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %v", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStoreUnavailable, err)
	}

	logger.Info("postgres store connected")
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the detections table and key index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS detections (
			id         BIGSERIAL PRIMARY KEY,
			lat        DOUBLE PRECISION NOT NULL,
			lon        DOUBLE PRECISION NOT NULL,
			heading    DOUBLE PRECISION NOT NULL,
			detected   BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS detections_key_idx ON detections (lat, lon, heading);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup returns the earliest-inserted record matching the key exactly.
func (s *Store) Lookup(ctx context.Context, key domain.CacheKey) (domain.DetectionRecord, bool, error) {
	const query = `
		SELECT detected, created_at
		FROM detections
		WHERE lat = $1 AND lon = $2 AND heading = $3
		ORDER BY id ASC
		LIMIT 1
	`

	record := domain.DetectionRecord{Key: key}
	err := s.pool.QueryRow(ctx, query, key.Lat, key.Lon, key.Heading).
		Scan(&record.Detected, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DetectionRecord{}, false, nil
	}
	if err != nil {
		return domain.DetectionRecord{}, false, fmt.Errorf("%w: lookup: %v", domain.ErrStoreUnavailable, err)
	}

	return record, true, nil
}

// Insert appends a record without checking for duplicates.
func (s *Store) Insert(ctx context.Context, record domain.DetectionRecord) error {
	const query = `
		INSERT INTO detections (lat, lon, heading, detected, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		record.Key.Lat, record.Key.Lon, record.Key.Heading,
		record.Detected, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
