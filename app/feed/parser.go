package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/rss-curator/app/store"
)

var (
	episodeLinkPattern = regexp.MustCompile(`(?i)/episode/([a-z0-9]+)`)
	guidHexPattern     = regexp.MustCompile(`(?i)/([a-f0-9]+)$`)
	blankPattern       = regexp.MustCompile(`\s+`)
)

type Parser struct {
	gofeedParser *gofeed.Parser
	sanitizer    *Sanitizer
}

func NewParser(sanitizer *Sanitizer) *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		sanitizer:    sanitizer,
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []store.Record, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}
	if metadata.ImageURL == "" && feed.ITunesExt != nil {
		metadata.ImageURL = feed.ITunesExt.Image
	}

	records := make([]store.Record, 0, len(feed.Items))
	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		records = append(records, p.normalizeItem(item, i))
	}

	return metadata, records, nil
}

// Sanitize applies the parser's HTML policy to content obtained elsewhere,
// such as an extracted article page.
func (p *Parser) Sanitize(rawHTML string) string {
	return p.sanitizer.Sanitize(rawHTML)
}

func (p *Parser) normalizeItem(item *gofeed.Item, index int) store.Record {
	rawContent := cmp.Or(item.Content, item.Description)

	record := store.Record{
		ID:             extractID(item, index),
		Title:          strings.TrimSpace(item.Title),
		Link:           item.Link,
		PubDate:        cmp.Or(item.Published, item.Updated),
		Content:        p.sanitizer.Sanitize(rawContent),
		ContentSnippet: Snippet(rawContent),
		Tags:           []string{},
	}

	// RSS 2.0 allows a single enclosure per item
	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		record.Enclosure = store.Enclosure{
			URL:  item.Enclosures[0].URL,
			Type: item.Enclosures[0].Type,
		}
	}

	if item.ITunesExt != nil {
		record.ProviderMeta = store.ProviderMeta{
			Episode:  item.ITunesExt.Episode,
			Duration: item.ITunesExt.Duration,
			Image:    item.ITunesExt.Image,
		}
	}
	if record.ProviderMeta.Image == "" && item.Image != nil {
		record.ProviderMeta.Image = item.Image.URL
	}

	return record
}

// extractID prefers the episode slug from the link, then a trailing hex
// segment of the GUID. The positional fallback is not stable across feed
// revisions.
func extractID(item *gofeed.Item, index int) string {
	if m := episodeLinkPattern.FindStringSubmatch(item.Link); len(m) > 1 {
		return m[1]
	}
	if m := guidHexPattern.FindStringSubmatch(item.GUID); len(m) > 1 {
		return m[1]
	}

	id := fmt.Sprintf("item-%d", index)
	slog.Debug("Using positional identifier for feed item", "id", id, "title", item.Title)
	return id
}

// Snippet renders HTML as plain text, one line per block element.
func Snippet(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return strings.TrimSpace(blankPattern.ReplaceAllString(rawHTML, " "))
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(blankPattern.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
