package reconcile

import (
	"cmp"

	"github.com/lysyi3m/rss-curator/app/store"
)

type Result struct {
	Merged      []store.Record
	NewIDs      []string
	UpdatedIDs  []string
	OrphanedIDs []string
	Duplicates  int
	// StoredDuplicates counts extra stored copies of an id. They are carried
	// through unmodified after the first copy.
	StoredDuplicates int
}

// feedFields is the comparable view of everything the feed owns.
type feedFields struct {
	Title          string
	Link           string
	PubDate        string
	Content        string
	ContentSnippet string
	Enclosure      store.Enclosure
	ProviderMeta   store.ProviderMeta
}

func compareFields(r store.Record) feedFields {
	return feedFields{
		Title:          r.Title,
		Link:           r.Link,
		PubDate:        r.PubDate,
		Content:        r.Content,
		ContentSnippet: r.ContentSnippet,
		Enclosure:      r.Enclosure,
		ProviderMeta:   r.ProviderMeta,
	}
}

// Reconcile merges a freshly normalized feed batch into the stored records.
// Incoming order is kept, records missing from the feed are appended after
// it, and classification fields always come from the stored copy.
func Reconcile(incoming, existing []store.Record) Result {
	result := Result{
		Merged:      make([]store.Record, 0, len(incoming)+len(existing)),
		NewIDs:      []string{},
		UpdatedIDs:  []string{},
		OrphanedIDs: []string{},
	}

	existingByID := make(map[string]store.Record, len(existing))
	for _, record := range existing {
		if _, ok := existingByID[record.ID]; !ok {
			existingByID[record.ID] = record
		}
	}

	seen := make(map[string]struct{}, len(incoming))
	for _, in := range incoming {
		if _, dup := seen[in.ID]; dup {
			result.Duplicates++
			continue
		}
		seen[in.ID] = struct{}{}

		prev, ok := existingByID[in.ID]
		if !ok {
			record := in
			record.ThemeID = ""
			record.Tags = []string{}
			result.Merged = append(result.Merged, record)
			result.NewIDs = append(result.NewIDs, in.ID)
			result.UpdatedIDs = append(result.UpdatedIDs, in.ID)
			continue
		}

		merged := mergeRecord(prev, in)
		if compareFields(merged) != compareFields(prev) {
			result.UpdatedIDs = append(result.UpdatedIDs, in.ID)
		}
		result.Merged = append(result.Merged, merged)
	}

	stored := make(map[string]struct{}, len(existing))
	for _, record := range existing {
		if _, dup := stored[record.ID]; dup {
			result.Merged = append(result.Merged, record)
			result.StoredDuplicates++
			continue
		}
		stored[record.ID] = struct{}{}

		if _, ok := seen[record.ID]; ok {
			continue
		}
		result.Merged = append(result.Merged, record)
		result.OrphanedIDs = append(result.OrphanedIDs, record.ID)
	}

	return result
}

func mergeRecord(prev, in store.Record) store.Record {
	merged := store.Record{
		ID:             prev.ID,
		Title:          cmp.Or(in.Title, prev.Title),
		Link:           cmp.Or(in.Link, prev.Link),
		PubDate:        cmp.Or(in.PubDate, prev.PubDate),
		Content:        cmp.Or(in.Content, prev.Content),
		ContentSnippet: cmp.Or(in.ContentSnippet, prev.ContentSnippet),
		Enclosure:      prev.Enclosure,
		ProviderMeta: store.ProviderMeta{
			Episode:  cmp.Or(in.ProviderMeta.Episode, prev.ProviderMeta.Episode),
			Duration: cmp.Or(in.ProviderMeta.Duration, prev.ProviderMeta.Duration),
			Image:    cmp.Or(in.ProviderMeta.Image, prev.ProviderMeta.Image),
		},
		ThemeID: prev.ThemeID,
		Tags:    append([]string{}, prev.Tags...),
	}

	if !in.Enclosure.IsEmpty() {
		merged.Enclosure = in.Enclosure
	}

	return merged
}
