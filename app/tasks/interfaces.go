package tasks

import (
	"context"

	"github.com/lysyi3m/rss-curator/app/classify"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/taxonomy"
)

// Classifier assigns themes and tags to stored records.
type Classifier interface {
	Classify(ctx context.Context, target classify.Target, themes []store.Theme, norm *taxonomy.Normalizer) (int, error)
}

// ThemeBuilder produces and maintains the theme catalog.
type ThemeBuilder interface {
	Bootstrap(ctx context.Context, records []store.Record, norm *taxonomy.Normalizer) ([]store.Theme, error)
	Refresh(ctx context.Context, themes []store.Theme, records []store.Record, norm *taxonomy.Normalizer) []store.Theme
}

// FeedSource fetches raw feed documents and article pages.
type FeedSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchHTML(ctx context.Context, url string) ([]byte, error)
}

// TranscriptWriter maintains the per-record transcript stubs.
type TranscriptWriter interface {
	EnsureTemplates(records []store.Record, ids []string) (int, error)
	Clear() (int, error)
}
