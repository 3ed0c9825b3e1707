package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

type NormalizeReport struct {
	Changed      int
	Empty        int
	UnderMin     int
	MissingTheme int
	Dropped      int
}

// NormalizeTagsTask re-applies the current taxonomy to every stored tag
// list, topping lists up from the record's theme when they fall short.
type NormalizeTagsTask struct {
	Task
	store *store.Store

	Report NormalizeReport
}

func NewNormalizeTagsTask(recordStore *store.Store) *NormalizeTagsTask {
	return &NormalizeTagsTask{
		Task:  NewTask(TaskTypeNormalizeTags),
		store: recordStore,
	}
}

func (t *NormalizeTagsTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	records, err := t.store.LoadRecords()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	themes, err := t.store.LoadThemes()
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoThemes
	}
	if err != nil {
		return err
	}

	norm, err := loadNormalizer(t.store)
	if err != nil {
		return err
	}

	t.Report = normalizeRecords(records, store.ThemeIndex(themes), norm)

	if err := t.store.SaveRecords(records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"changed", t.Report.Changed,
		"empty", t.Report.Empty,
		"under_min", t.Report.UnderMin,
		"missing_theme", t.Report.MissingTheme,
		"dropped", t.Report.Dropped)

	return nil
}

func normalizeRecords(records []store.Record, themeIndex map[string]store.Theme, norm *taxonomy.Normalizer) NormalizeReport {
	var report NormalizeReport

	for i := range records {
		raw := records[i].Tags
		normalized := norm.Normalize(raw)
		report.Dropped += max(0, len(raw)-len(normalized))

		var fallback []string
		if records[i].ThemeID != "" {
			theme, ok := themeIndex[records[i].ThemeID]
			if ok {
				fallback = theme.RepresentativeTags
			} else {
				report.MissingTheme++
			}
		}

		final := norm.Fill(normalized, fallback, taxonomy.MinTags, taxonomy.MaxTags)

		if !slices.Equal(raw, final) {
			report.Changed++
		}
		if len(final) == 0 {
			report.Empty++
		}
		if len(final) > 0 && len(final) < taxonomy.MinTags {
			report.UnderMin++
		}

		records[i].Tags = final
	}

	return report
}
