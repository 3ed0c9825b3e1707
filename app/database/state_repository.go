package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const sourceURLKey = "source_url"

// SourceStateRepository remembers which upstream feed the store was built from
type SourceStateRepository struct {
	db *DB
}

func NewSourceStateRepository(db *DB) *SourceStateRepository {
	return &SourceStateRepository{db: db}
}

// GetSourceURL returns "" when no sync has recorded a source yet
func (r *SourceStateRepository) GetSourceURL() (string, error) {
	var value string
	err := sq.Select("value").
		From("source_state").
		Where(sq.Eq{"key": sourceURLKey}).
		RunWith(r.db.DB).
		QueryRow().
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get source url: %w", err)
	}
	return value, nil
}

func (r *SourceStateRepository) SetSourceURL(url string) error {
	_, err := sq.Insert("source_state").
		Columns("key", "value", "updated_at").
		Values(sourceURLKey, url, formatTime(time.Now())).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		RunWith(r.db.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to set source url: %w", err)
	}
	return nil
}

func (r *SourceStateRepository) ClearSourceURL() error {
	_, err := sq.Delete("source_state").
		Where(sq.Eq{"key": sourceURLKey}).
		RunWith(r.db.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to clear source url: %w", err)
	}
	return nil
}
