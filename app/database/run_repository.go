package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*SQLRunRepository)(nil)

// SQLRunRepository handles database operations for generation runs
type SQLRunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// InsertRun stores the outcome of one generation
func (r *SQLRunRepository) InsertRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (
			id, feed_name, member_id, destination, fetched, kept,
			result, error, content_hash, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.FeedName, run.MemberID, run.Destination, run.Fetched, run.Kept,
		run.Result, run.Error, run.ContentHash, run.StartedAt.UnixMilli(), run.Duration.Milliseconds())

	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetRecentRuns returns the latest runs of a feed, newest first
func (r *SQLRunRepository) GetRecentRuns(feedName string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_name, member_id, destination, fetched, kept,
		       result, error, content_hash, started_at, duration_ms
		FROM runs
		WHERE feed_name = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var startedAt, durationMs int64
		if err := rows.Scan(&run.ID, &run.FeedName, &run.MemberID, &run.Destination,
			&run.Fetched, &run.Kept, &run.Result, &run.Error, &run.ContentHash,
			&startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// GetRunStats aggregates all recorded runs by result
func (r *SQLRunRepository) GetRunStats() (*RunStats, error) {
	var stats RunStats
	var lastRun sql.NullInt64

	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN result = 'written' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = 'printed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = 'failed' THEN 1 ELSE 0 END), 0),
			MAX(started_at)
		FROM runs
	`).Scan(&stats.Total, &stats.Written, &stats.Skipped, &stats.Printed, &stats.Failed, &lastRun)

	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}

	if lastRun.Valid {
		t := time.UnixMilli(lastRun.Int64).UTC()
		stats.LastRun = &t
	}

	return &stats, nil
}
