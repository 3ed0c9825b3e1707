package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

type AnalyzeThemesTask struct {
	Task
	store   *store.Store
	builder ThemeBuilder
}

func NewAnalyzeThemesTask(recordStore *store.Store, builder ThemeBuilder) *AnalyzeThemesTask {
	return &AnalyzeThemesTask{
		Task:    NewTask(TaskTypeAnalyzeThemes),
		store:   recordStore,
		builder: builder,
	}
}

func (t *AnalyzeThemesTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	records, err := t.store.LoadRecords()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	var norm *taxonomy.Normalizer
	if t.store.HasTaxonomy() {
		norm, err = loadNormalizer(t.store)
		if err != nil {
			return err
		}
	}

	themes, err := t.builder.Bootstrap(ctx, records, norm)
	if err != nil {
		return fmt.Errorf("failed to analyze themes: %w", err)
	}

	if err := t.store.SaveThemes(themes); err != nil {
		return err
	}

	titles := make([]string, 0, len(themes))
	for _, theme := range themes {
		titles = append(titles, theme.Title)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"themes", strings.Join(titles, ", "),
		"path", t.store.Path(store.ThemesFile))

	return nil
}

type RefreshThemesTask struct {
	Task
	store   *store.Store
	builder ThemeBuilder
}

func NewRefreshThemesTask(recordStore *store.Store, builder ThemeBuilder) *RefreshThemesTask {
	return &RefreshThemesTask{
		Task:    NewTask(TaskTypeRefreshThemes),
		store:   recordStore,
		builder: builder,
	}
}

func (t *RefreshThemesTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
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

	records, err := t.store.LoadRecords()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	refreshed := t.builder.Refresh(ctx, themes, records, norm)

	if err := t.store.SaveThemes(refreshed); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"themes", len(refreshed))

	return nil
}
