// Package sqlite implements domain.DetectionStore on an embedded SQLite
// database. It is the default backend for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roadvision/stopsign-detector/internal/domain"
)

// Store persists detection records in a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the SQLite database at path. WAL mode keeps
// concurrent readers from blocking on the append-only writer.
func New(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", domain.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", domain.ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", domain.ErrStoreUnavailable, err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// EnsureSchema creates the detections table and key index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS detections (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			lat        REAL    NOT NULL,
			lon        REAL    NOT NULL,
			heading    REAL    NOT NULL,
			detected   INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS detections_key_idx ON detections (lat, lon, heading);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Lookup returns the earliest-inserted record matching the key exactly.
// Duplicate rows for one key (racing inserts) resolve to the lowest id.
func (s *Store) Lookup(ctx context.Context, key domain.CacheKey) (domain.DetectionRecord, bool, error) {
	const query = `
		SELECT detected, created_at
		FROM detections
		WHERE lat = ? AND lon = ? AND heading = ?
		ORDER BY id ASC
		LIMIT 1
	`

	var detected bool
	var createdAtNanos int64
	err := s.db.QueryRowContext(ctx, query, key.Lat, key.Lon, key.Heading).Scan(&detected, &createdAtNanos)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DetectionRecord{}, false, nil
	}
	if err != nil {
		return domain.DetectionRecord{}, false, fmt.Errorf("%w: lookup: %v", domain.ErrStoreUnavailable, err)
	}

	return domain.DetectionRecord{
		Key:       key,
		Detected:  detected,
		CreatedAt: time.Unix(0, createdAtNanos).UTC(),
	}, true, nil
}

// Insert appends a record. No duplicate check: concurrent misses for the same
// key may insert twice, which Lookup's id-order tie-break tolerates.
func (s *Store) Insert(ctx context.Context, record domain.DetectionRecord) error {
	const query = `
		INSERT INTO detections (lat, lon, heading, detected, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.Key.Lat, record.Key.Lon, record.Key.Heading,
		record.Detected, record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
