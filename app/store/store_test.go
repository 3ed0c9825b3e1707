package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRecordsMissingFile(t *testing.T) {
	s := New(t.TempDir())

	records, err := s.LoadRecords()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected empty non-nil records, got: %v", records)
	}
}

func TestLoadRecordsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, RecordsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	records, err := New(dir).LoadRecords()
	if err != nil {
		t.Fatalf("Expected corrupt store to be treated as empty, got: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected 0 records, got: %d", len(records))
	}
}

func TestSaveAndLoadRecords(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested"))

	records := []Record{
		{
			ID:        "abc123",
			Title:     "Ep 1",
			Content:   "<p>Tom & Jerry</p>",
			Enclosure: Enclosure{URL: "https://cdn.example.com/1.mp3", Type: "audio/mpeg"},
			ThemeID:   "tech",
			Tags:      []string{"AI", "创业"},
		},
		{ID: "def456", Title: "Ep 2"},
	}

	if err := s.SaveRecords(records); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(s.Path(RecordsFile))
	if err != nil {
		t.Fatalf("Expected records file to exist, got: %v", err)
	}
	if !strings.Contains(string(data), "<p>Tom & Jerry</p>") {
		t.Error("Expected HTML to be stored unescaped")
	}
	if strings.Contains(string(data), `"themeId": ""`) {
		t.Error("Expected empty themeId to be omitted")
	}

	loaded, err := s.LoadRecords()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got: %d", len(loaded))
	}
	if loaded[0].ThemeID != "tech" || len(loaded[0].Tags) != 2 {
		t.Errorf("Expected classification to survive round trip, got: %+v", loaded[0])
	}
	if loaded[1].Tags == nil {
		t.Error("Expected missing tags to load as an empty list")
	}
}

func TestSaveRecordsLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	for i := 0; i < 3; i++ {
		if err := s.SaveRecords([]Record{{ID: "a"}}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("Unexpected temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file, got: %d", len(entries))
	}
}

func TestLoadThemesNotFound(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.LoadThemes()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
	if s.HasThemes() {
		t.Error("Expected HasThemes to be false")
	}
}

func TestTaxonomyRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.LoadTaxonomy(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}

	if err := s.SaveTaxonomy(Taxonomy{Tags: []string{"AI"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	taxonomy, err := s.LoadTaxonomy()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(taxonomy.Tags) != 1 || taxonomy.Tags[0] != "AI" {
		t.Errorf("Expected tags [AI], got: %v", taxonomy.Tags)
	}
	if taxonomy.Aliases == nil {
		t.Error("Expected aliases to default to an empty map")
	}
}

func TestReset(t *testing.T) {
	s := New(t.TempDir())

	if err := s.SaveRecords([]Record{{ID: "a"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := s.SaveThemes([]Theme{{ID: "t"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := s.SaveTaxonomy(Taxonomy{Tags: []string{"AI"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	removed, err := s.Reset()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 documents removed, got: %d", removed)
	}
	if s.HasThemes() {
		t.Error("Expected themes to be removed")
	}
	if !s.HasTaxonomy() {
		t.Error("Expected taxonomy to be kept")
	}

	removed, err = s.Reset()
	if err != nil {
		t.Fatalf("Expected reset of empty store to succeed, got: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected 0 documents removed, got: %d", removed)
	}
}
