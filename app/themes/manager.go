package themes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lysyi3m/rss-curator/app/ai"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

const (
	bootstrapSampleCount  = 20
	bootstrapSnippetChars = 500
	catalogSampleCount    = 5
	bootstrapTemperature  = 0.7

	refreshSampleCount  = 5
	refreshSnippetChars = 200
	refreshTemperature  = 0.4
	refreshTimeout      = 60 * time.Second

	minRepresentativeTags = 3
	maxRepresentativeTags = 5
	minThemes             = 3
	maxThemes             = 5

	opBootstrap = "bootstrap"
	opRefresh   = "refresh"
)

var (
	ErrNoRecords       = errors.New("no records to analyze")
	ErrNoThemes        = errors.New("collaborator returned no themes")
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrEmptyVocabulary = errors.New("collaborator returned no candidate tags")
)

type Journal interface {
	RecordCall(call database.CallRecord) error
}

// Manager derives and maintains the theme catalog.
type Manager struct {
	client  ai.Completer
	journal Journal
	logger  *slog.Logger
}

type Option func(*Manager)

func WithJournal(journal Journal) Option {
	return func(m *Manager) {
		m.journal = journal
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(client ai.Completer, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Bootstrap builds a fresh catalog in two steps: a candidate vocabulary from
// a sample of records, then 3-5 themes over that vocabulary. norm may be nil
// when no taxonomy exists yet; representative tags are then kept as returned.
func (m *Manager) Bootstrap(ctx context.Context, records []store.Record, norm *taxonomy.Normalizer) ([]store.Theme, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	samples := buildSamples(records, bootstrapSampleCount, bootstrapSnippetChars)

	var allowed []string
	if norm != nil {
		allowed = norm.Allowed()
	}

	start := time.Now()
	tags, err := m.candidateTags(ctx, samples, allowed, norm)
	if err != nil {
		m.recordCall(opBootstrap, "vocabulary", database.OutcomeFailed, err, start)
		return nil, fmt.Errorf("failed to derive candidate tags: %w", err)
	}
	m.recordCall(opBootstrap, "vocabulary", database.OutcomeUpdated, nil, start)

	m.logger.Info("Candidate tags derived", "count", len(tags), "tags", strings.Join(tags, ", "))

	start = time.Now()
	raw, err := m.client.Complete(ctx, ai.Request{
		SystemPrompt: strategistSystemPrompt,
		UserPrompt:   catalogPrompt(tags, samples[:min(catalogSampleCount, len(samples))]),
		Temperature:  bootstrapTemperature,
		JSON:         true,
	})
	if err != nil {
		m.recordCall(opBootstrap, "catalog", database.OutcomeFailed, err, start)
		return nil, fmt.Errorf("failed to generate themes: %w", err)
	}

	themes, err := decodeThemes(raw)
	if err == nil {
		err = validateThemes(themes)
	}
	if err != nil {
		m.recordCall(opBootstrap, "catalog", database.OutcomeFailed, err, start)
		return nil, err
	}
	m.recordCall(opBootstrap, "catalog", database.OutcomeUpdated, nil, start)

	if len(themes) < minThemes || len(themes) > maxThemes {
		m.logger.Warn("Theme count outside the requested range", "count", len(themes), "min", minThemes, "max", maxThemes)
	}

	for i := range themes {
		themes[i].RepresentativeTags = m.representativeTags(themes[i].RepresentativeTags, norm)
	}

	return themes, nil
}

func (m *Manager) candidateTags(ctx context.Context, samples []sample, allowed []string, norm *taxonomy.Normalizer) ([]string, error) {
	raw, err := m.client.Complete(ctx, ai.Request{
		SystemPrompt: analystSystemPrompt,
		UserPrompt:   vocabularyPrompt(samples, allowed),
		Temperature:  bootstrapTemperature,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	if norm == nil {
		tags := dedupe(result.Tags)
		if len(tags) == 0 {
			return nil, ErrEmptyVocabulary
		}
		return tags, nil
	}

	tags := norm.Normalize(result.Tags)
	if len(tags) == 0 {
		m.logger.Warn("No candidate tag survived normalization, using the full vocabulary")
		return allowed, nil
	}

	return tags, nil
}

func (m *Manager) representativeTags(tags []string, norm *taxonomy.Normalizer) []string {
	if norm != nil {
		tags = norm.Normalize(tags)
	} else {
		tags = dedupe(tags)
	}
	if len(tags) > maxRepresentativeTags {
		tags = tags[:maxRepresentativeTags]
	}
	return tags
}

// Refresh rewrites each theme from the records currently assigned to it.
// Themes without records, or whose request fails, are returned unchanged.
// norm is required.
func (m *Manager) Refresh(ctx context.Context, themes []store.Theme, records []store.Record, norm *taxonomy.Normalizer) []store.Theme {
	refreshed := make([]store.Theme, 0, len(themes))
	allowed := norm.Allowed()

	for _, theme := range themes {
		var assigned []store.Record
		for _, record := range records {
			if record.ThemeID == theme.ID {
				assigned = append(assigned, record)
			}
		}

		if len(assigned) == 0 {
			m.logger.Info("Theme has no records, keeping as is", "theme", theme.ID)
			refreshed = append(refreshed, theme)
			continue
		}

		tagLists := make([][]string, len(assigned))
		for i, record := range assigned {
			tagLists[i] = record.Tags
		}
		fallback := taxonomy.TopTags(norm.Frequency(tagLists), maxRepresentativeTags)

		start := time.Now()
		updated, err := m.refreshTheme(ctx, theme, assigned, allowed, norm, fallback)
		if err != nil {
			m.logger.Warn("Failed to refresh theme", "theme", theme.ID, "error", err)
			m.recordCall(opRefresh, theme.ID, database.OutcomeFailed, err, start)
			refreshed = append(refreshed, theme)
			continue
		}

		m.recordCall(opRefresh, theme.ID, database.OutcomeUpdated, nil, start)
		m.logger.Info("Theme refreshed",
			"theme", updated.ID,
			"title", updated.Title,
			"tags", updated.RepresentativeTags)
		refreshed = append(refreshed, updated)
	}

	return refreshed
}

func (m *Manager) refreshTheme(ctx context.Context, theme store.Theme, assigned []store.Record, allowed []string, norm *taxonomy.Normalizer, fallback []string) (store.Theme, error) {
	samples := buildSamples(assigned, refreshSampleCount, refreshSnippetChars)

	raw, err := m.client.Complete(ctx, ai.Request{
		SystemPrompt: curatorSystemPrompt,
		UserPrompt:   refreshPrompt(theme, samples, allowed),
		Temperature:  refreshTemperature,
		Timeout:      refreshTimeout,
		JSON:         true,
	})
	if err != nil {
		return theme, err
	}

	var result struct {
		Title              string   `json:"title"`
		Description        string   `json:"description"`
		RepresentativeTags []string `json:"representativeTags"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return theme, fmt.Errorf("failed to decode theme: %w", err)
	}

	tags := norm.Normalize(result.RepresentativeTags)
	if len(tags) < minRepresentativeTags {
		tags = fallback
	}
	if len(tags) > maxRepresentativeTags {
		tags = tags[:maxRepresentativeTags]
	}

	updated := theme
	if title := strings.TrimSpace(result.Title); title != "" {
		updated.Title = title
	}
	if description := strings.TrimSpace(result.Description); description != "" {
		updated.Description = description
	}
	updated.RepresentativeTags = append([]string{}, tags...)

	return updated, nil
}

// decodeThemes accepts a bare array, {"themes": [...]}, or any object with
// an array value.
func decodeThemes(raw json.RawMessage) ([]store.Theme, error) {
	var themes []store.Theme
	if err := json.Unmarshal(raw, &themes); err == nil {
		return themes, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoThemes, err)
	}

	if value, ok := object["themes"]; ok {
		if err := json.Unmarshal(value, &themes); err == nil {
			return themes, nil
		}
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := json.Unmarshal(object[key], &themes); err == nil {
			return themes, nil
		}
	}

	return nil, ErrNoThemes
}

func validateThemes(themes []store.Theme) error {
	if len(themes) == 0 {
		return ErrNoThemes
	}

	seen := make(map[string]struct{}, len(themes))
	for _, theme := range themes {
		if strings.TrimSpace(theme.ID) == "" ||
			strings.TrimSpace(theme.Title) == "" ||
			strings.TrimSpace(theme.Description) == "" ||
			theme.RepresentativeTags == nil {
			return fmt.Errorf("%w: %+v", ErrInvalidTheme, theme)
		}
		if _, dup := seen[theme.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidTheme, theme.ID)
		}
		seen[theme.ID] = struct{}{}
	}

	return nil
}

func buildSamples(records []store.Record, count, snippetChars int) []sample {
	n := min(count, len(records))
	samples := make([]sample, n)
	for i := 0; i < n; i++ {
		snippet := records[i].ContentSnippet
		if snippet == "" {
			snippet = records[i].Content
		}
		runes := []rune(snippet)
		if len(runes) > snippetChars {
			snippet = string(runes[:snippetChars])
		}
		samples[i] = sample{Title: records[i].Title, ContentSnippet: snippet}
	}
	return samples
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (m *Manager) recordCall(operation, subject, outcome string, callErr error, start time.Time) {
	if m.journal == nil {
		return
	}

	call := database.CallRecord{
		Operation:  operation,
		SubjectID:  subject,
		Outcome:    outcome,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}

	if err := m.journal.RecordCall(call); err != nil {
		m.logger.Warn("Failed to journal theme call", "subject", subject, "error", err)
	}
}
