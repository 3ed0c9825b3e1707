package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-curator/app/confirm"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/store"
)

// ResetTask deletes records, themes, transcript stubs and the recorded
// source url after confirmation. The taxonomy is kept.
type ResetTask struct {
	Task
	store       *store.Store
	transcripts TranscriptWriter
	state       database.StateRepository
	confirmer   confirm.Confirmer

	Removed int
}

func NewResetTask(recordStore *store.Store, transcripts TranscriptWriter, state database.StateRepository, confirmer confirm.Confirmer) *ResetTask {
	return &ResetTask{
		Task:        NewTask(TaskTypeReset),
		store:       recordStore,
		transcripts: transcripts,
		state:       state,
		confirmer:   confirmer,
	}
}

func (t *ResetTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if !t.confirmer.Confirm("This removes episodes, themes, transcripts and the cached feed url. Continue?") {
		slog.Info("Reset cancelled")
		return nil
	}

	removed, err := t.store.Reset()
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	if t.transcripts != nil {
		cleared, err := t.transcripts.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear transcripts: %w", err)
		}
		removed += cleared
	}

	if t.state != nil {
		if err := t.state.ClearSourceURL(); err != nil {
			return fmt.Errorf("failed to clear source state: %w", err)
		}
	}

	t.Removed = removed

	if removed == 0 {
		slog.Info("Nothing to reset")
		return nil
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"removed", removed)

	return nil
}
