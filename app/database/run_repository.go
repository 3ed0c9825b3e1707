package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// SyncRunRepository journals completed sync runs
type SyncRunRepository struct {
	db *DB
}

func NewSyncRunRepository(db *DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) CreateRun(run SyncRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := sq.Insert("sync_runs").
		Columns("id", "feed_url", "fetched", "new_count", "updated_count",
			"orphaned_count", "duplicate_count", "total", "started_at", "finished_at").
		Values(run.ID, run.FeedURL, run.Fetched, run.New, run.Updated,
			run.Orphaned, run.Duplicates, run.Total, formatTime(run.StartedAt), formatTime(run.FinishedAt)).
		RunWith(r.db.DB).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to insert sync run: %w", err)
	}

	return run.ID, nil
}

// GetLatestRun returns nil when no run has been journaled yet
func (r *SyncRunRepository) GetLatestRun() (*SyncRun, error) {
	var run SyncRun
	var startedAt, finishedAt string

	err := sq.Select("id", "feed_url", "fetched", "new_count", "updated_count",
		"orphaned_count", "duplicate_count", "total", "started_at", "finished_at").
		From("sync_runs").
		OrderBy("finished_at DESC").
		Limit(1).
		RunWith(r.db.DB).
		QueryRow().
		Scan(&run.ID, &run.FeedURL, &run.Fetched, &run.New, &run.Updated,
			&run.Orphaned, &run.Duplicates, &run.Total, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}

	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)

	return &run, nil
}

func (r *SyncRunRepository) GetRunCount() (int, error) {
	var count int
	err := sq.Select("COUNT(*)").
		From("sync_runs").
		RunWith(r.db.DB).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync runs: %w", err)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
