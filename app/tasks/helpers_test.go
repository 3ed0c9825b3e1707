package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lysyi3m/rss-curator/app/classify"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

const testFeedURL = "https://feeds.example.com/podcast.xml"

func podcastFeed(items ...string) []byte {
	body := ""
	for _, item := range items {
		body += item
	}
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>Example Podcast</title>
    <link>https://podcast.example.com</link>
    <description>Conversations</description>
` + body + `
  </channel>
</rss>`)
}

func feedItem(id, title, description string) string {
	return fmt.Sprintf(`
    <item>
      <title>%s</title>
      <link>https://podcast.example.com/episode/%s</link>
      <guid>https://podcast.example.com/episode/%s</guid>
      <pubDate>Mon, 06 Jan 2025 08:00:00 +0000</pubDate>
      <description><![CDATA[%s]]></description>
      <enclosure url="https://cdn.example.com/%s.mp3" type="audio/mpeg" length="1"/>
    </item>`, title, id, id, description, id)
}

type fakeSource struct {
	feed     []byte
	err      error
	pages    map[string][]byte
	fetched  int
	htmlURLs []string
}

func (f *fakeSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.fetched++
	if f.err != nil {
		return nil, f.err
	}
	return f.feed, nil
}

func (f *fakeSource) FetchHTML(ctx context.Context, url string) ([]byte, error) {
	f.htmlURLs = append(f.htmlURLs, url)
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return page, nil
}

type fakeRuns struct {
	runs []database.SyncRun
}

func (f *fakeRuns) CreateRun(run database.SyncRun) (string, error) {
	f.runs = append(f.runs, run)
	return fmt.Sprintf("run-%d", len(f.runs)), nil
}

func (f *fakeRuns) GetLatestRun() (*database.SyncRun, error) {
	if len(f.runs) == 0 {
		return nil, nil
	}
	return &f.runs[len(f.runs)-1], nil
}

func (f *fakeRuns) GetRunCount() (int, error) {
	return len(f.runs), nil
}

type fakeState struct {
	url     string
	cleared int
}

func (f *fakeState) GetSourceURL() (string, error) {
	return f.url, nil
}

func (f *fakeState) SetSourceURL(url string) error {
	f.url = url
	return nil
}

func (f *fakeState) ClearSourceURL() error {
	f.url = ""
	f.cleared++
	return nil
}

type fakeTranscripts struct {
	ids     []string
	cleared int
}

func (f *fakeTranscripts) EnsureTemplates(records []store.Record, ids []string) (int, error) {
	f.ids = append(f.ids, ids...)
	return len(ids), nil
}

func (f *fakeTranscripts) Clear() (int, error) {
	f.cleared++
	return 2, nil
}

type fakeClassifier struct {
	calls   int
	target  classify.Target
	themes  []store.Theme
	norm    *taxonomy.Normalizer
	updated int
	err     error
}

func (f *fakeClassifier) Classify(ctx context.Context, target classify.Target, themes []store.Theme, norm *taxonomy.Normalizer) (int, error) {
	f.calls++
	f.target = target
	f.themes = themes
	f.norm = norm
	return f.updated, f.err
}

type fakeBuilder struct {
	themes         []store.Theme
	err            error
	bootstrapCalls int
	refreshCalls   int
	bootstrapNorm  *taxonomy.Normalizer
}

func (f *fakeBuilder) Bootstrap(ctx context.Context, records []store.Record, norm *taxonomy.Normalizer) ([]store.Theme, error) {
	f.bootstrapCalls++
	f.bootstrapNorm = norm
	return f.themes, f.err
}

func (f *fakeBuilder) Refresh(ctx context.Context, themes []store.Theme, records []store.Record, norm *taxonomy.Normalizer) []store.Theme {
	f.refreshCalls++
	refreshed := make([]store.Theme, len(themes))
	for i, theme := range themes {
		theme.Description = "refreshed"
		refreshed[i] = theme
	}
	return refreshed
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(t.TempDir())
}

func saveTaxonomy(t *testing.T, s *store.Store) {
	t.Helper()
	err := s.SaveTaxonomy(store.Taxonomy{
		Tags:    []string{"职场", "成长", "情绪", "关系"},
		Aliases: map[string]string{"情感": "情绪"},
	})
	if err != nil {
		t.Fatalf("Failed to save taxonomy: %v", err)
	}
}

func saveThemes(t *testing.T, s *store.Store) []store.Theme {
	t.Helper()
	themes := []store.Theme{
		{ID: "career", Title: "Career", Description: "Work life", RepresentativeTags: []string{"职场", "成长"}},
		{ID: "feelings", Title: "Feelings", Description: "Inner life", RepresentativeTags: []string{"情绪", "关系"}},
	}
	if err := s.SaveThemes(themes); err != nil {
		t.Fatalf("Failed to save themes: %v", err)
	}
	return themes
}

func saveRecords(t *testing.T, s *store.Store, records ...store.Record) {
	t.Helper()
	if err := s.SaveRecords(records); err != nil {
		t.Fatalf("Failed to save records: %v", err)
	}
}

func loadRecords(t *testing.T, s *store.Store) []store.Record {
	t.Helper()
	records, err := s.LoadRecords()
	if err != nil {
		t.Fatalf("Failed to load records: %v", err)
	}
	return records
}
