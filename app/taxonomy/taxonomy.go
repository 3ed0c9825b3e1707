package taxonomy

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lysyi3m/rss-curator/app/store"
)

// Tag-count bounds applied to every classified record.
const (
	MinTags = 2
	MaxTags = 3
)

var ErrEmptyVocabulary = errors.New("tag taxonomy has no tags")

// Normalize maps free-form tags onto the controlled vocabulary. The result
// only contains allowed tags, without duplicates, in first-seen order.
func Normalize(rawTags []string, aliases map[string]string, allowed map[string]struct{}) []string {
	result := make([]string, 0, len(rawTags))
	seen := make(map[string]struct{}, len(rawTags))

	for _, raw := range rawTags {
		tag := cleanTag(raw)
		if tag == "" {
			continue
		}
		if canonical, ok := aliases[tag]; ok {
			tag = canonical
		}
		if _, ok := allowed[tag]; !ok {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}

	return result
}

// Fill tops up primary with fallback entries until maxCount is reached.
// minCount is a target only: the result may stay below it when the
// fallback runs out.
func Fill(primary, fallback []string, minCount, maxCount int) []string {
	if maxCount <= 0 {
		return []string{}
	}

	result := make([]string, 0, maxCount)
	seen := make(map[string]struct{}, maxCount)
	add := func(tag string) {
		if len(result) >= maxCount {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}

	for _, tag := range primary {
		add(tag)
	}
	for _, tag := range fallback {
		add(tag)
	}

	return result
}

func cleanTag(raw string) string {
	tag := strings.TrimSpace(raw)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.TrimPrefix(tag, "＃")
	return strings.TrimSpace(tag)
}

type Normalizer struct {
	allowedList []string
	allowed     map[string]struct{}
	aliases     map[string]string
}

func New(taxonomy store.Taxonomy) (*Normalizer, error) {
	n := &Normalizer{
		allowed: make(map[string]struct{}, len(taxonomy.Tags)),
		aliases: make(map[string]string, len(taxonomy.Aliases)),
	}

	for _, tag := range taxonomy.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := n.allowed[tag]; ok {
			continue
		}
		n.allowed[tag] = struct{}{}
		n.allowedList = append(n.allowedList, tag)
	}

	if len(n.allowedList) == 0 {
		return nil, ErrEmptyVocabulary
	}

	for raw, canonical := range taxonomy.Aliases {
		n.aliases[cleanTag(raw)] = strings.TrimSpace(canonical)
	}

	return n, nil
}

func (n *Normalizer) Normalize(rawTags []string) []string {
	return Normalize(rawTags, n.aliases, n.allowed)
}

// Fill normalizes both lists before filling, so representative tags that
// drifted out of the vocabulary never leak into a record.
func (n *Normalizer) Fill(primary, fallback []string, minCount, maxCount int) []string {
	return Fill(n.Normalize(primary), n.Normalize(fallback), minCount, maxCount)
}

func (n *Normalizer) Allowed() []string {
	return append([]string(nil), n.allowedList...)
}

func (n *Normalizer) Contains(tag string) bool {
	_, ok := n.allowed[tag]
	return ok
}

// Frequency counts normalized tags across the given lists.
func (n *Normalizer) Frequency(tagLists [][]string) map[string]int {
	freq := make(map[string]int)
	for _, tags := range tagLists {
		for _, tag := range n.Normalize(tags) {
			freq[tag]++
		}
	}
	return freq
}

type TagCount struct {
	Tag   string
	Count int
}

// TopTags returns up to limit tags by descending count. Ties are ordered by
// Simplified Chinese collation so pinyin order is used for Han tags.
func TopTags(freq map[string]int, limit int) []string {
	counts := make([]TagCount, 0, len(freq))
	for tag, count := range freq {
		counts = append(counts, TagCount{Tag: tag, Count: count})
	}

	collator := collate.New(language.SimplifiedChinese)
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		if c := collator.CompareString(counts[i].Tag, counts[j].Tag); c != 0 {
			return c < 0
		}
		return counts[i].Tag < counts[j].Tag
	})

	if limit >= 0 && len(counts) > limit {
		counts = counts[:limit]
	}

	tags := make([]string, len(counts))
	for i, tc := range counts {
		tags[i] = tc.Tag
	}
	return tags
}
