package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceRepository handles database operations for feed sources
type SourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// AddSource registers a new source and returns its ID.
// Returns ErrDuplicateSource if feedURL is already registered.
func (r *SourceRepository) AddSource(ctx context.Context, name, feedURL, siteURL string) (string, error) {
	id := uuid.NewString()
	createdSec, createdNsec := toUnix(time.Now())

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, feed_url, site_url, created_at, created_at_nsec)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_url) DO NOTHING
	`, id, name, feedURL, siteURL, createdSec, createdNsec)
	if err != nil {
		return "", fmt.Errorf("failed to add source: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to add source: %w", err)
	}
	if n == 0 {
		return "", ErrDuplicateSource
	}

	return id, nil
}

// GetSource retrieves a source by its ID
func (r *SourceRepository) GetSource(ctx context.Context, id string) (*Source, error) {
	var source Source
	var createdSec, createdNsec int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, feed_url, site_url, created_at, created_at_nsec
		FROM sources
		WHERE id = ?
	`, id).Scan(&source.ID, &source.Name, &source.FeedURL, &source.SiteURL, &createdSec, &createdNsec)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	source.CreatedAt = fromUnix(createdSec, createdNsec)
	return &source, nil
}

// ListSources returns all sources in creation order
func (r *SourceRepository) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, feed_url, site_url, created_at, created_at_nsec
		FROM sources
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var source Source
		var createdSec, createdNsec int64
		if err := rows.Scan(&source.ID, &source.Name, &source.FeedURL, &source.SiteURL, &createdSec, &createdNsec); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		source.CreatedAt = fromUnix(createdSec, createdNsec)
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// CountSources returns the total number of sources
func (r *SourceRepository) CountSources(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}
