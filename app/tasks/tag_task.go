package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-curator/app/classify"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

var (
	ErrNoThemes   = errors.New("themes.json not found, run analyze-themes first")
	ErrNoTaxonomy = errors.New("tag-taxonomy.json not found")
)

// TagTask classifies records. A task created for a sync only touches the
// ids the sync reported and builds the theme catalog when it is missing.
// A missing taxonomy or a failed theme analysis skips it rather than failing
// the sync, whose records are already saved.
type TagTask struct {
	Task
	target     classify.Target
	fromSync   bool
	store      *store.Store
	classifier Classifier
	builder    ThemeBuilder

	Updated int
}

func NewTagTask(target classify.Target, recordStore *store.Store, classifier Classifier) *TagTask {
	return &TagTask{
		Task:       NewTask(TaskTypeTag),
		target:     target,
		store:      recordStore,
		classifier: classifier,
	}
}

func NewSyncTagTask(ids []string, recordStore *store.Store, classifier Classifier, builder ThemeBuilder) *TagTask {
	return &TagTask{
		Task:       NewTask(TaskTypeTag),
		target:     classify.Target{IDs: ids},
		fromSync:   true,
		store:      recordStore,
		classifier: classifier,
		builder:    builder,
	}
}

func (t *TagTask) Execute(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if t.fromSync && len(t.target.IDs) == 0 {
		slog.Info("Skipping classification, no records changed")
		return nil
	}

	var norm *taxonomy.Normalizer
	if t.store.HasTaxonomy() {
		n, err := loadNormalizer(t.store)
		if err != nil {
			return err
		}
		norm = n
	}

	themes, err := t.loadThemes(ctx, norm)
	if err != nil {
		return err
	}
	if t.fromSync && len(themes) == 0 {
		return nil
	}

	if norm == nil {
		if t.fromSync {
			slog.Warn("Skipping classification, tag taxonomy not found", "path", t.store.Path(store.TaxonomyFile))
			return nil
		}
		return ErrNoTaxonomy
	}

	updated, err := t.classifier.Classify(ctx, t.target, themes, norm)
	if err != nil {
		return fmt.Errorf("failed to classify records: %w", err)
	}
	t.Updated = updated

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"updated", updated)

	return nil
}

func (t *TagTask) loadThemes(ctx context.Context, norm *taxonomy.Normalizer) ([]store.Theme, error) {
	if t.store.HasThemes() {
		themes, err := t.store.LoadThemes()
		if err != nil {
			return nil, err
		}
		return themes, nil
	}

	if !t.fromSync || t.builder == nil {
		return nil, ErrNoThemes
	}

	slog.Info("Theme catalog not found, analyzing themes first")

	records, err := t.store.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	themes, err := t.builder.Bootstrap(ctx, records, norm)
	if err != nil {
		slog.Warn("Skipping classification, theme analysis failed", "error", err)
		return nil, nil
	}

	if err := t.store.SaveThemes(themes); err != nil {
		return nil, err
	}

	return themes, nil
}

func loadNormalizer(s *store.Store) (*taxonomy.Normalizer, error) {
	tax, err := s.LoadTaxonomy()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoTaxonomy
		}
		return nil, err
	}

	norm, err := taxonomy.New(*tax)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag taxonomy: %w", err)
	}

	return norm, nil
}
