package transcripts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-curator/app/store"
)

var safeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type frontMatter struct {
	Title        string   `yaml:"title"`
	Contributors []string `yaml:"contributors"`
}

// Writer creates one markdown transcript stub per episode. Existing files
// belong to whoever edited them and are never touched.
type Writer struct {
	dir         string
	placeholder string
}

func NewWriter(dir, placeholder string) *Writer {
	return &Writer{dir: dir, placeholder: placeholder}
}

func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) EnsureTemplates(records []store.Record, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	byID := make(map[string]store.Record, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	created := 0
	for _, id := range ids {
		record, ok := byID[id]
		if !ok {
			continue
		}
		if !safeIDPattern.MatchString(id) {
			slog.Warn("Skipping transcript for unsafe episode id", "id", id)
			continue
		}

		content, err := w.render(record)
		if err != nil {
			return created, err
		}

		path := filepath.Join(w.dir, id+".md")
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to create transcript %s: %w", id, err)
		}

		if _, err := file.Write(content); err != nil {
			file.Close()
			return created, fmt.Errorf("failed to write transcript %s: %w", id, err)
		}
		if err := file.Close(); err != nil {
			return created, fmt.Errorf("failed to close transcript %s: %w", id, err)
		}
		created++
	}

	return created, nil
}

func (w *Writer) render(record store.Record) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{Title: record.Title, Contributors: []string{}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n> ")
	buf.WriteString(strings.TrimSpace(w.placeholder))
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// Clear removes every markdown file in the transcripts directory.
func (w *Writer) Clear() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}
