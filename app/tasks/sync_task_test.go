package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/transcripts"
)

type countingConfirmer struct {
	answer bool
	asked  int
}

func (c *countingConfirmer) Confirm(string) bool {
	c.asked++
	return c.answer
}

type syncFixture struct {
	store       *store.Store
	source      *fakeSource
	runs        *fakeRuns
	state       *fakeState
	transcripts *fakeTranscripts
	confirmer   *countingConfirmer
}

func newSyncFixture(t *testing.T, feedData []byte) *syncFixture {
	t.Helper()
	return &syncFixture{
		store:       newTestStore(t),
		source:      &fakeSource{feed: feedData},
		runs:        &fakeRuns{},
		state:       &fakeState{},
		transcripts: &fakeTranscripts{},
		confirmer:   &countingConfirmer{answer: true},
	}
}

func (f *syncFixture) task(options SyncOptions) *SyncTask {
	if options.FeedURL == "" {
		options.FeedURL = testFeedURL
	}
	return NewSyncTask(options, f.source, feed.NewParser(feed.NewSanitizer()), feed.NewContentExtractor(),
		f.store, f.transcripts, f.runs, f.state, f.confirmer)
}

func TestSyncTaskFirstRun(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(
		feedItem("abc123", "Episode One", "<p>First</p>"),
		feedItem("def456", "Episode Two", "<p>Second</p>"),
	))

	task := f.task(SyncOptions{})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if f.confirmer.asked != 0 {
		t.Errorf("Expected no confirmation on first run, got %d prompts", f.confirmer.asked)
	}

	records := loadRecords(t, f.store)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got: %d", len(records))
	}
	if records[0].ID != "abc123" || records[1].ID != "def456" {
		t.Errorf("Expected feed order, got: %s, %s", records[0].ID, records[1].ID)
	}

	if !slices.Equal(task.UpdatedIDs(), []string{"abc123", "def456"}) {
		t.Errorf("Expected both records updated, got: %v", task.UpdatedIDs())
	}
	if !slices.Equal(f.transcripts.ids, []string{"abc123", "def456"}) {
		t.Errorf("Expected transcripts for updated ids, got: %v", f.transcripts.ids)
	}
	if f.state.url != testFeedURL {
		t.Errorf("Expected source url to be recorded, got: %q", f.state.url)
	}

	if len(f.runs.runs) != 1 {
		t.Fatalf("Expected 1 journaled run, got: %d", len(f.runs.runs))
	}
	run := f.runs.runs[0]
	if run.Fetched != 2 || run.New != 2 || run.Updated != 0 || run.Total != 2 {
		t.Errorf("Unexpected run counts: %+v", run)
	}
}

func TestSyncTaskPreservesClassification(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(feedItem("abc123", "Renamed Episode", "<p>First</p>")))
	f.state.url = testFeedURL
	saveRecords(t, f.store,
		store.Record{ID: "abc123", Title: "Episode One", ThemeID: "career", Tags: []string{"职场", "成长"}},
		store.Record{ID: "old999", Title: "Gone From Feed", ThemeID: "feelings", Tags: []string{"情绪"}},
	)

	task := f.task(SyncOptions{SkipTranscripts: true})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	records := loadRecords(t, f.store)
	if len(records) != 2 {
		t.Fatalf("Expected orphan to be retained, got %d records", len(records))
	}

	if records[0].Title != "Renamed Episode" {
		t.Errorf("Expected title from feed, got: %s", records[0].Title)
	}
	if records[0].ThemeID != "career" || !slices.Equal(records[0].Tags, []string{"职场", "成长"}) {
		t.Errorf("Expected classification to be preserved, got: %s %v", records[0].ThemeID, records[0].Tags)
	}
	if records[1].ID != "old999" || records[1].ThemeID != "feelings" {
		t.Errorf("Expected orphan unchanged at the end, got: %+v", records[1])
	}

	if !slices.Equal(task.UpdatedIDs(), []string{"abc123"}) {
		t.Errorf("Expected abc123 to be updated, got: %v", task.UpdatedIDs())
	}
	if len(f.transcripts.ids) != 0 {
		t.Errorf("Expected transcripts to be skipped, got: %v", f.transcripts.ids)
	}
	if f.runs.runs[0].Orphaned != 1 || f.runs.runs[0].Updated != 1 {
		t.Errorf("Unexpected run counts: %+v", f.runs.runs[0])
	}
}

func TestSyncTaskFetchErrorLeavesStoreUntouched(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.source.err = errors.New("connection refused")
	f.state.url = "https://old.example.com/feed"
	saveRecords(t, f.store, store.Record{ID: "abc123", Title: "Episode One", Tags: []string{}})

	err := f.task(SyncOptions{}).Execute(context.Background())
	if err == nil {
		t.Fatal("Expected fetch error")
	}

	if f.confirmer.asked != 0 {
		t.Error("Expected no source-change prompt before a successful fetch")
	}
	if f.state.url != "https://old.example.com/feed" {
		t.Errorf("Expected source state untouched, got: %q", f.state.url)
	}
	if len(loadRecords(t, f.store)) != 1 {
		t.Error("Expected stored records untouched")
	}
	if len(f.runs.runs) != 0 {
		t.Error("Expected no journaled run")
	}
}

func TestSyncTaskSourceChangeConfirmed(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(feedItem("abc123", "Episode One", "<p>First</p>")))
	f.state.url = "https://old.example.com/feed"
	saveRecords(t, f.store, store.Record{ID: "old999", Title: "Old Show", Tags: []string{}})
	saveThemes(t, f.store)

	if err := f.task(SyncOptions{}).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if f.confirmer.asked != 1 {
		t.Errorf("Expected one prompt, got: %d", f.confirmer.asked)
	}
	records := loadRecords(t, f.store)
	if len(records) != 1 || records[0].ID != "abc123" {
		t.Errorf("Expected only the new source's records, got: %+v", records)
	}
	if f.store.HasThemes() {
		t.Error("Expected themes to be removed")
	}
	if f.transcripts.cleared != 1 || f.state.cleared != 1 {
		t.Errorf("Expected transcripts and source state to be cleared, got %d and %d", f.transcripts.cleared, f.state.cleared)
	}
	if f.state.url != testFeedURL {
		t.Errorf("Expected new source url, got: %q", f.state.url)
	}
}

func TestSyncTaskSourceChangeDeclined(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(feedItem("abc123", "Episode One", "<p>First</p>")))
	f.confirmer.answer = false
	saveRecords(t, f.store, store.Record{ID: "old999", Title: "Template Episode", Tags: []string{}})

	if err := f.task(SyncOptions{}).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if f.confirmer.asked != 1 {
		t.Errorf("Expected a prompt for records without a recorded source, got: %d", f.confirmer.asked)
	}
	if len(loadRecords(t, f.store)) != 2 {
		t.Error("Expected existing records to be kept when declined")
	}
	if f.state.url != testFeedURL {
		t.Errorf("Expected new source url to be recorded anyway, got: %q", f.state.url)
	}
}

func TestSyncTaskExtractContent(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(
		feedItem("abc123", "Episode One", ""),
		feedItem("def456", "Episode Two", "<p>Has notes</p>"),
	))
	f.state.url = testFeedURL

	paragraph := strings.Repeat("In this episode we talk about careers, burnout and how to find meaning in everyday work. ", 8)
	f.source.pages = map[string][]byte{
		"https://podcast.example.com/episode/abc123": []byte(`<html><head><title>Episode One</title></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Episode One</h1><p>` + paragraph + `</p><p>` + paragraph + `</p></article>
</body></html>`),
	}

	task := f.task(SyncOptions{ExtractContent: true, SkipTranscripts: true})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !slices.Equal(f.source.htmlURLs, []string{"https://podcast.example.com/episode/abc123"}) {
		t.Errorf("Expected only the empty record to be fetched, got: %v", f.source.htmlURLs)
	}

	records := loadRecords(t, f.store)
	if !strings.Contains(records[0].Content, "burnout") {
		t.Errorf("Expected extracted content, got: %q", records[0].Content)
	}
	if records[0].ContentSnippet == "" {
		t.Error("Expected snippet to be derived from extracted content")
	}
	if !strings.Contains(records[1].Content, "Has notes") {
		t.Errorf("Expected feed content to be kept, got: %q", records[1].Content)
	}
}

func TestSyncTaskSourceChangeClearsTranscriptsWhenSkipped(t *testing.T) {
	f := newSyncFixture(t, podcastFeed(feedItem("abc123", "Episode One", "<p>First</p>")))
	f.state.url = "https://old.example.com/feed"
	saveRecords(t, f.store, store.Record{ID: "old999", Title: "Old Show", Tags: []string{}})

	dir := filepath.Join(t.TempDir(), "transcripts")
	writer := transcripts.NewWriter(dir, "Transcript coming soon.")
	if _, err := writer.EnsureTemplates(loadRecords(t, f.store), []string{"old999"}); err != nil {
		t.Fatalf("Failed to seed transcript: %v", err)
	}

	task := NewSyncTask(SyncOptions{FeedURL: testFeedURL, SkipTranscripts: true}, f.source,
		feed.NewParser(feed.NewSanitizer()), feed.NewContentExtractor(),
		f.store, writer, f.runs, f.state, f.confirmer)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "old999.md")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected old transcript to be removed, got: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc123.md")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no new transcript with templates skipped, got: %v", err)
	}
}
