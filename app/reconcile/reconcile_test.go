package reconcile

import (
	"reflect"
	"testing"

	"github.com/lysyi3m/rss-curator/app/store"
)

func TestReconcileEmptyStore(t *testing.T) {
	incoming := []store.Record{
		{ID: "abc123", Title: "Ep 1", Link: "https://example.com/episode/abc123"},
	}

	result := Reconcile(incoming, nil)

	if len(result.Merged) != 1 {
		t.Fatalf("Expected 1 merged record, got: %d", len(result.Merged))
	}
	if result.Merged[0].ID != "abc123" {
		t.Errorf("Expected id 'abc123', got: %s", result.Merged[0].ID)
	}
	if !reflect.DeepEqual(result.NewIDs, []string{"abc123"}) {
		t.Errorf("Expected new ids [abc123], got: %v", result.NewIDs)
	}
	if !reflect.DeepEqual(result.UpdatedIDs, []string{"abc123"}) {
		t.Errorf("Expected updated ids [abc123], got: %v", result.UpdatedIDs)
	}
	if result.Merged[0].Tags == nil || len(result.Merged[0].Tags) != 0 {
		t.Errorf("Expected empty tags on new record, got: %v", result.Merged[0].Tags)
	}
}

func TestReconcileKeepsClassification(t *testing.T) {
	existing := []store.Record{
		{ID: "e1", Title: "Old title", Link: "https://example.com/e1", ThemeID: "t1", Tags: []string{"x", "y"}},
	}
	incoming := []store.Record{
		{ID: "e1", Title: "New title", Link: "https://example.com/e1", ThemeID: "bogus", Tags: []string{"z"}},
	}

	result := Reconcile(incoming, existing)

	if len(result.Merged) != 1 {
		t.Fatalf("Expected 1 merged record, got: %d", len(result.Merged))
	}
	merged := result.Merged[0]
	if merged.Title != "New title" {
		t.Errorf("Expected new title, got: %s", merged.Title)
	}
	if merged.ThemeID != "t1" {
		t.Errorf("Expected themeId 't1', got: %s", merged.ThemeID)
	}
	if !reflect.DeepEqual(merged.Tags, []string{"x", "y"}) {
		t.Errorf("Expected tags [x y], got: %v", merged.Tags)
	}
	if !reflect.DeepEqual(result.UpdatedIDs, []string{"e1"}) {
		t.Errorf("Expected e1 flagged updated, got: %v", result.UpdatedIDs)
	}
	if len(result.NewIDs) != 0 {
		t.Errorf("Expected no new ids, got: %v", result.NewIDs)
	}
}

func TestReconcileEmptyIncomingFieldsKeepStored(t *testing.T) {
	existing := []store.Record{{
		ID:           "e1",
		Title:        "Title",
		Content:      "<p>Body</p>",
		Enclosure:    store.Enclosure{URL: "https://cdn.example.com/a.mp3", Type: "audio/mpeg"},
		ProviderMeta: store.ProviderMeta{Episode: "1", Duration: "01:00:00", Image: "https://img/1.jpg"},
	}}
	incoming := []store.Record{{
		ID:           "e1",
		Title:        "Title",
		ProviderMeta: store.ProviderMeta{Duration: "01:02:03"},
	}}

	result := Reconcile(incoming, existing)
	merged := result.Merged[0]

	if merged.Content != "<p>Body</p>" {
		t.Errorf("Expected stored content to be kept, got: %s", merged.Content)
	}
	if merged.Enclosure != existing[0].Enclosure {
		t.Errorf("Expected stored enclosure to be kept, got: %+v", merged.Enclosure)
	}
	expectedMeta := store.ProviderMeta{Episode: "1", Duration: "01:02:03", Image: "https://img/1.jpg"}
	if merged.ProviderMeta != expectedMeta {
		t.Errorf("Expected provider meta %+v, got: %+v", expectedMeta, merged.ProviderMeta)
	}
	if !reflect.DeepEqual(result.UpdatedIDs, []string{"e1"}) {
		t.Errorf("Expected e1 flagged updated, got: %v", result.UpdatedIDs)
	}
}

func TestReconcileRetainsOrphans(t *testing.T) {
	existing := []store.Record{
		{ID: "a", Title: "A", Tags: []string{}},
		{ID: "b", Title: "B", ThemeID: "t1", Tags: []string{"x"}},
		{ID: "c", Title: "C", Tags: []string{}},
	}
	incoming := []store.Record{
		{ID: "d", Title: "D"},
		{ID: "b", Title: "B"},
	}

	result := Reconcile(incoming, existing)

	if len(result.Merged) < len(existing) {
		t.Fatalf("Expected at least %d records, got: %d", len(existing), len(result.Merged))
	}

	var ids []string
	for _, record := range result.Merged {
		ids = append(ids, record.ID)
	}
	expected := []string{"d", "b", "a", "c"}
	if !reflect.DeepEqual(ids, expected) {
		t.Errorf("Expected order %v, got: %v", expected, ids)
	}
	if !reflect.DeepEqual(result.OrphanedIDs, []string{"a", "c"}) {
		t.Errorf("Expected orphans [a c], got: %v", result.OrphanedIDs)
	}
	if !reflect.DeepEqual(result.UpdatedIDs, []string{"d"}) {
		t.Errorf("Expected only d updated, got: %v", result.UpdatedIDs)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	existing := []store.Record{
		{ID: "a", Title: "A", ThemeID: "t1", Tags: []string{"x"}},
		{ID: "z", Title: "Orphan", Tags: []string{}},
	}
	incoming := []store.Record{
		{ID: "a", Title: "A2", Content: "c"},
		{ID: "b", Title: "B"},
	}

	first := Reconcile(incoming, existing)
	second := Reconcile(incoming, first.Merged)

	if !reflect.DeepEqual(first.Merged, second.Merged) {
		t.Errorf("Expected identical merge on second pass\nfirst:  %+v\nsecond: %+v", first.Merged, second.Merged)
	}
	if len(second.UpdatedIDs) != 0 {
		t.Errorf("Expected no updates on second pass, got: %v", second.UpdatedIDs)
	}
	if len(second.NewIDs) != 0 {
		t.Errorf("Expected no new ids on second pass, got: %v", second.NewIDs)
	}
}

func TestReconcileDuplicateIncoming(t *testing.T) {
	incoming := []store.Record{
		{ID: "a", Title: "First"},
		{ID: "a", Title: "Second"},
	}

	result := Reconcile(incoming, nil)

	if len(result.Merged) != 1 {
		t.Fatalf("Expected 1 merged record, got: %d", len(result.Merged))
	}
	if result.Merged[0].Title != "First" {
		t.Errorf("Expected first occurrence to win, got: %s", result.Merged[0].Title)
	}
	if result.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got: %d", result.Duplicates)
	}
}

func TestReconcileDoesNotAliasStoredTags(t *testing.T) {
	existing := []store.Record{{ID: "a", Tags: []string{"x"}}}
	result := Reconcile([]store.Record{{ID: "a"}}, existing)

	result.Merged[0].Tags[0] = "mutated"
	if existing[0].Tags[0] != "x" {
		t.Error("Expected merged tags to be a copy of stored tags")
	}
}

func TestReconcileRetainsStoredDuplicates(t *testing.T) {
	existing := []store.Record{
		{ID: "a", Title: "First copy", Tags: []string{"x"}},
		{ID: "a", Title: "Second copy", Tags: []string{"y"}},
		{ID: "b", Title: "Orphan"},
	}
	incoming := []store.Record{
		{ID: "a", Title: "From feed"},
	}

	result := Reconcile(incoming, existing)

	if len(result.Merged) < len(existing) {
		t.Fatalf("Expected at least %d merged records, got: %d", len(existing), len(result.Merged))
	}
	if result.StoredDuplicates != 1 {
		t.Errorf("Expected 1 stored duplicate, got: %d", result.StoredDuplicates)
	}
	if result.Merged[0].Title != "From feed" || !reflect.DeepEqual(result.Merged[0].Tags, []string{"x"}) {
		t.Errorf("Expected first copy merged with the feed, got: %+v", result.Merged[0])
	}
	if result.Merged[1].Title != "Second copy" {
		t.Errorf("Expected second copy carried through, got: %+v", result.Merged[1])
	}
	if !reflect.DeepEqual(result.OrphanedIDs, []string{"b"}) {
		t.Errorf("Expected orphaned ids [b], got: %v", result.OrphanedIDs)
	}

	onlyStored := Reconcile(nil, existing[:2])
	if len(onlyStored.Merged) != 2 {
		t.Errorf("Expected both stored copies retained, got: %d", len(onlyStored.Merged))
	}
}
