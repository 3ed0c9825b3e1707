package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-curator/app/ai"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

const (
	DefaultLimit = 5
	DefaultDelay = 1500 * time.Millisecond

	temperature = 0.2
	operation   = "classify"
)

var errIncompleteResult = errors.New("classification result is missing themeId or tags")

type RecordStore interface {
	LoadRecords() ([]store.Record, error)
	SaveRecords(records []store.Record) error
}

type Journal interface {
	RecordCall(call database.CallRecord) error
}

// Target selects the records to classify. Explicit IDs win over the
// computed backlog, which is capped at Limit.
type Target struct {
	IDs   []string
	Limit int
}

type result struct {
	ThemeID string   `json:"themeId"`
	Tags    []string `json:"tags"`
}

type Orchestrator struct {
	client  ai.Completer
	records RecordStore
	journal Journal
	delay   time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Orchestrator)

func WithJournal(journal Journal) Option {
	return func(o *Orchestrator) {
		o.journal = journal
	}
}

func WithDelay(delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.delay = delay
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func New(client ai.Completer, records RecordStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		records: records,
		delay:   DefaultDelay,
		logger:  slog.Default(),
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Classify assigns a theme and tags to each target record, one collaborator
// call at a time, persisting the store after every successful assignment.
// Per-record failures are logged and skipped; only a failed store write
// aborts the batch.
func (o *Orchestrator) Classify(ctx context.Context, target Target, themes []store.Theme, norm *taxonomy.Normalizer) (int, error) {
	if norm == nil {
		return 0, fmt.Errorf("tag taxonomy is required")
	}
	if len(themes) == 0 {
		return 0, fmt.Errorf("theme catalog is empty")
	}

	records, err := o.records.LoadRecords()
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	themeIndex := store.ThemeIndex(themes)
	ids := o.selectTargets(records, target, themeIndex)
	if len(ids) == 0 {
		o.logger.Info("No records need classification")
		return 0, nil
	}

	o.logger.Info("Classifying records", "count", len(ids))

	allowed := norm.Allowed()
	updated := 0

	for i, id := range ids {
		if i > 0 && o.delay > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				return updated, err
			}
		}
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		index := indexOf(records, id)
		if index < 0 {
			continue
		}
		record := records[index]

		o.logger.Debug("Classifying record", "id", record.ID, "title", record.Title)

		start := time.Now()
		res, err := o.request(ctx, record, themes, allowed)
		if err != nil {
			o.logger.Warn("Failed to classify record", "id", record.ID, "error", err)
			o.recordCall(record.ID, database.OutcomeFailed, err, start)
			continue
		}

		theme, ok := themeIndex[res.ThemeID]
		if !ok {
			o.logger.Warn("Classifier returned unknown theme, record left unchanged",
				"id", record.ID,
				"theme_id", res.ThemeID)
			o.recordCall(record.ID, database.OutcomeUnknownTheme, nil, start)
			continue
		}

		records[index].ThemeID = theme.ID
		records[index].Tags = norm.Fill(res.Tags, theme.RepresentativeTags, taxonomy.MinTags, taxonomy.MaxTags)

		if err := o.records.SaveRecords(records); err != nil {
			o.recordCall(record.ID, database.OutcomeFailed, err, start)
			return updated, fmt.Errorf("failed to persist classification for %s: %w", record.ID, err)
		}

		updated++
		o.recordCall(record.ID, database.OutcomeUpdated, nil, start)
		o.logger.Info("Record classified",
			"id", record.ID,
			"theme", theme.ID,
			"tags", records[index].Tags)
	}

	return updated, nil
}

func (o *Orchestrator) request(ctx context.Context, record store.Record, themes []store.Theme, allowed []string) (result, error) {
	raw, err := o.client.Complete(ctx, ai.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(record, themes, allowed),
		Temperature:  temperature,
		JSON:         true,
	})
	if err != nil {
		return result{}, err
	}

	var res result
	if err := json.Unmarshal(raw, &res); err != nil {
		return result{}, fmt.Errorf("failed to decode classification: %w", err)
	}
	if res.ThemeID == "" || res.Tags == nil {
		return result{}, errIncompleteResult
	}

	return res, nil
}

func (o *Orchestrator) selectTargets(records []store.Record, target Target, themeIndex map[string]store.Theme) []string {
	if len(target.IDs) > 0 {
		known := make(map[string]struct{}, len(records))
		for _, record := range records {
			known[record.ID] = struct{}{}
		}

		ids := make([]string, 0, len(target.IDs))
		seen := make(map[string]struct{}, len(target.IDs))
		for _, id := range target.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, ok := known[id]; !ok {
				o.logger.Warn("Requested record not found", "id", id)
				continue
			}
			ids = append(ids, id)
		}
		return ids
	}

	limit := target.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	ids := []string{}
	backlog := 0
	for _, record := range records {
		if !NeedsClassification(record, themeIndex) {
			continue
		}
		backlog++
		if len(ids) < limit {
			ids = append(ids, record.ID)
		}
	}

	if backlog > 0 {
		o.logger.Info("Found unclassified records", "backlog", backlog, "batch", len(ids))
	}

	return ids
}

// NeedsClassification reports whether a record lacks a valid theme or has no tags.
func NeedsClassification(record store.Record, themeIndex map[string]store.Theme) bool {
	_, valid := themeIndex[record.ThemeID]
	return record.ThemeID == "" || !valid || len(record.Tags) == 0
}

func (o *Orchestrator) recordCall(id, outcome string, callErr error, start time.Time) {
	if o.journal == nil {
		return
	}

	call := database.CallRecord{
		Operation:  operation,
		SubjectID:  id,
		Outcome:    outcome,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}

	if err := o.journal.RecordCall(call); err != nil {
		o.logger.Warn("Failed to journal classification call", "id", id, "error", err)
	}
}

func indexOf(records []store.Record, id string) int {
	for i, record := range records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
