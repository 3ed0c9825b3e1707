package database

import (
	"time"
)

type SyncRun struct {
	ID         string
	FeedURL    string
	Fetched    int
	New        int
	Updated    int
	Orphaned   int
	Duplicates int
	Total      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Call outcomes recorded for every collaborator request.
const (
	OutcomeUpdated      = "updated"
	OutcomeUnknownTheme = "unknown_theme"
	OutcomeFailed       = "failed"
	OutcomeKept         = "kept"
)

type CallRecord struct {
	ID         string
	Operation  string // classify, bootstrap, refresh
	SubjectID  string // record id or theme id
	Outcome    string
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}
