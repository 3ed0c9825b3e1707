package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-curator/app/confirm"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/reconcile"
	"github.com/lysyi3m/rss-curator/app/store"
)

type SyncOptions struct {
	FeedURL         string
	SkipTranscripts bool
	ExtractContent  bool
}

// SyncTask pulls the upstream feed into the record store. After Execute the
// ids of new and changed records are available from UpdatedIDs.
type SyncTask struct {
	Task
	options     SyncOptions
	source      FeedSource
	parser      *feed.Parser
	extractor   *feed.ContentExtractor
	store       *store.Store
	transcripts TranscriptWriter
	runs        database.RunRepository
	state       database.StateRepository
	confirmer   confirm.Confirmer

	result *reconcile.Result
}

func NewSyncTask(options SyncOptions, source FeedSource, parser *feed.Parser, extractor *feed.ContentExtractor, recordStore *store.Store, transcripts TranscriptWriter, runs database.RunRepository, state database.StateRepository, confirmer confirm.Confirmer) *SyncTask {
	return &SyncTask{
		Task:        NewTask(TaskTypeSync),
		options:     options,
		source:      source,
		parser:      parser,
		extractor:   extractor,
		store:       recordStore,
		transcripts: transcripts,
		runs:        runs,
		state:       state,
		confirmer:   confirmer,
	}
}

func (t *SyncTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	startedAt := time.Now().UTC()

	data, err := t.source.Fetch(ctx, t.options.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, incoming, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	slog.Debug("Feed parsed", "title", metadata.Title, "items", len(incoming))

	if err := t.checkSourceChange(); err != nil {
		return err
	}

	existing, err := t.store.LoadRecords()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	if t.options.ExtractContent && t.extractor != nil {
		t.backfillContent(ctx, incoming, existing)
	}

	result := reconcile.Reconcile(incoming, existing)
	t.result = &result

	if err := t.store.SaveRecords(result.Merged); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	if t.runs != nil {
		run := database.SyncRun{
			FeedURL:    t.options.FeedURL,
			Fetched:    len(incoming),
			New:        len(result.NewIDs),
			Updated:    len(result.UpdatedIDs) - len(result.NewIDs),
			Orphaned:   len(result.OrphanedIDs),
			Duplicates: result.Duplicates,
			Total:      len(result.Merged),
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		}
		if _, err := t.runs.CreateRun(run); err != nil {
			slog.Warn("Failed to record sync run", "error", err)
		}
	}

	transcriptCount := 0
	if t.options.SkipTranscripts || t.transcripts == nil {
		slog.Info("Skipping transcript templates")
	} else {
		transcriptCount, err = t.transcripts.EnsureTemplates(result.Merged, result.UpdatedIDs)
		if err != nil {
			return fmt.Errorf("failed to create transcript templates: %w", err)
		}
	}

	if result.Duplicates > 0 {
		slog.Warn("Feed contains duplicate ids, later copies ignored", "duplicates", result.Duplicates)
	}
	if result.StoredDuplicates > 0 {
		slog.Warn("Stored records contain duplicate ids, extra copies kept as is", "duplicates", result.StoredDuplicates)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"fetched", len(incoming),
		"new", len(result.NewIDs),
		"updated", len(result.UpdatedIDs)-len(result.NewIDs),
		"orphaned", len(result.OrphanedIDs),
		"transcripts", transcriptCount)

	return nil
}

// UpdatedIDs returns the new and changed record ids of the last Execute.
func (t *SyncTask) UpdatedIDs() []string {
	if t.result == nil {
		return nil
	}
	return t.result.UpdatedIDs
}

// checkSourceChange offers a reset when the feed url differs from the one
// recorded by the previous sync, or when records exist but no url was ever
// recorded. Declining keeps the data. Either way the new url is recorded.
func (t *SyncTask) checkSourceChange() error {
	if t.state == nil {
		return nil
	}

	lastURL, err := t.state.GetSourceURL()
	if err != nil {
		return fmt.Errorf("failed to read source state: %w", err)
	}

	if lastURL != t.options.FeedURL {
		existing, err := t.store.LoadRecords()
		if err != nil {
			return fmt.Errorf("failed to load records: %w", err)
		}

		if lastURL != "" || len(existing) > 0 {
			slog.Warn("Feed source changed", "previous", lastURL, "current", t.options.FeedURL, "records", len(existing))

			if t.confirmer.Confirm("Clear existing data and sync from the new source?") {
				if err := t.clearData(); err != nil {
					return err
				}
			} else {
				slog.Info("Keeping existing data")
			}
		}
	}

	if err := t.state.SetSourceURL(t.options.FeedURL); err != nil {
		return fmt.Errorf("failed to save source state: %w", err)
	}

	return nil
}

func (t *SyncTask) clearData() error {
	removed, err := t.store.Reset()
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	cleared := 0
	if t.transcripts != nil {
		cleared, err = t.transcripts.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear transcripts: %w", err)
		}
	}

	if err := t.state.ClearSourceURL(); err != nil {
		return fmt.Errorf("failed to clear source state: %w", err)
	}

	slog.Info("Existing data cleared", "documents", removed, "transcripts", cleared)
	return nil
}

// backfillContent fills empty bodies of records not yet stored with the
// readable text of their linked page. Failures leave the record as is.
func (t *SyncTask) backfillContent(ctx context.Context, incoming, existing []store.Record) {
	known := make(map[string]struct{}, len(existing))
	for _, record := range existing {
		known[record.ID] = struct{}{}
	}

	successCount := 0
	errorCount := 0

	for i := range incoming {
		if ctx.Err() != nil {
			return
		}

		record := &incoming[i]
		if _, ok := known[record.ID]; ok || record.Content != "" || record.Link == "" {
			continue
		}

		data, err := t.source.FetchHTML(ctx, record.Link)
		if err == nil {
			var content string
			content, err = t.extractor.Run(data, record.Link)
			if err == nil {
				record.Content = t.parser.Sanitize(content)
				record.ContentSnippet = feed.Snippet(record.Content)
			}
		}

		if err != nil {
			slog.Warn("Failed to extract content for record", "id", record.ID, "url", record.Link, "error", err)
			errorCount++
			continue
		}

		slog.Debug("Content extracted successfully", "id", record.ID, "url", record.Link, "content_length", len(record.Content))
		successCount++
	}

	if successCount+errorCount > 0 {
		slog.Info("Content extraction finished", "success", successCount, "errors", errorCount)
	}
}
