package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	RecordsFile  = "episodes.json"
	ThemesFile   = "themes.json"
	TaxonomyFile = "tag-taxonomy.json"
)

var ErrNotFound = errors.New("document not found")

// Store reads and writes the three JSON documents kept in a data directory.
// Every write goes through a temporary file in the same directory followed by
// a rename, so a reader never observes a half-written document.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadRecords returns the stored records. A missing document is an empty
// store; an unparsable one is logged and also treated as empty.
func (s *Store) LoadRecords() ([]Record, error) {
	path := s.Path(RecordsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("Records document is corrupt, treating store as empty", "path", path, "error", err)
		return []Record{}, nil
	}

	for i := range records {
		if records[i].Tags == nil {
			records[i].Tags = []string{}
		}
	}

	return records, nil
}

func (s *Store) SaveRecords(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	if err := writeJSONAtomic(s.Path(RecordsFile), records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

func (s *Store) LoadThemes() ([]Theme, error) {
	var themes []Theme
	if err := readJSON(s.Path(ThemesFile), &themes); err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}
	return themes, nil
}

func (s *Store) SaveThemes(themes []Theme) error {
	if themes == nil {
		themes = []Theme{}
	}
	if err := writeJSONAtomic(s.Path(ThemesFile), themes); err != nil {
		return fmt.Errorf("failed to save themes: %w", err)
	}
	return nil
}

func (s *Store) LoadTaxonomy() (*Taxonomy, error) {
	var taxonomy Taxonomy
	if err := readJSON(s.Path(TaxonomyFile), &taxonomy); err != nil {
		return nil, fmt.Errorf("failed to load tag taxonomy: %w", err)
	}
	if taxonomy.Aliases == nil {
		taxonomy.Aliases = map[string]string{}
	}
	return &taxonomy, nil
}

func (s *Store) SaveTaxonomy(taxonomy Taxonomy) error {
	if err := writeJSONAtomic(s.Path(TaxonomyFile), taxonomy); err != nil {
		return fmt.Errorf("failed to save tag taxonomy: %w", err)
	}
	return nil
}

func (s *Store) HasThemes() bool {
	return fileExists(s.Path(ThemesFile))
}

func (s *Store) HasTaxonomy() bool {
	return fileExists(s.Path(TaxonomyFile))
}

// Reset removes the records and themes documents. The taxonomy is curated
// input and is left in place.
func (s *Store) Reset() (int, error) {
	removed := 0
	for _, name := range []string{RecordsFile, ThemesFile} {
		err := os.Remove(s.Path(name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
