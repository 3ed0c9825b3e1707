package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// ClassificationCallRepository keeps one row per collaborator request
type ClassificationCallRepository struct {
	db *DB
}

func NewClassificationCallRepository(db *DB) *ClassificationCallRepository {
	return &ClassificationCallRepository{db: db}
}

func (r *ClassificationCallRepository) RecordCall(call CallRecord) error {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}

	_, err := sq.Insert("classification_calls").
		Columns("id", "operation", "subject_id", "outcome", "error", "duration_ms", "created_at").
		Values(call.ID, call.Operation, call.SubjectID, call.Outcome, call.Error, call.DurationMs, formatTime(call.CreatedAt)).
		RunWith(r.db.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record classification call: %w", err)
	}

	return nil
}

func (r *ClassificationCallRepository) CountByOutcome(operation string) (map[string]int, error) {
	query := sq.Select("outcome", "COUNT(*)").
		From("classification_calls").
		GroupBy("outcome")
	if operation != "" {
		query = query.Where(sq.Eq{"operation": operation})
	}

	rows, err := query.RunWith(r.db.DB).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count classification calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan classification call count: %w", err)
		}
		counts[outcome] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classification call counts: %w", err)
	}

	return counts, nil
}
