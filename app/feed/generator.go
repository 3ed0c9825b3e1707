package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lysyi3m/rss-curator/app/store"
)

// Generator renders the curated feed: upstream episodes with their theme and
// tags exposed as RSS categories.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, records []store.Record, themes []store.Theme) (string, error) {
	var buf bytes.Buffer
	themeIndex := store.ThemeIndex(themes)

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now()
	if len(records) > 0 {
		if published, ok := parseDate(records[0].PubDate); ok {
			lastBuildDate = published
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)
	g.writeElement(&buf, "language", channel.Language, 4)

	if channel.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", channel.ImageURL, 6)
		g.writeElement(&buf, "title", channel.Title, 6)
		g.writeElement(&buf, "link", channel.Link, 6)
		buf.WriteString("    </image>\n")
	}

	for _, record := range records {
		g.writeItem(&buf, record, themeIndex)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record store.Record, themeIndex map[string]store.Theme) {
	buf.WriteString("    <item>\n")

	guid := cmp.Or(record.Link, record.ID)
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", record.Title, 6)
	g.writeElement(buf, "link", record.Link, 6)
	g.writeElement(buf, "description", cmp.Or(record.ContentSnippet, "No description available"), 6)

	if record.Content != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		// a literal "]]>" would terminate the section early
		buf.WriteString(strings.ReplaceAll(record.Content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if published, ok := parseDate(record.PubDate); ok {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	} else {
		g.writeElement(buf, "pubDate", record.PubDate, 6)
	}

	if theme, ok := themeIndex[record.ThemeID]; ok && record.ThemeID != "" {
		g.writeElement(buf, "category", theme.Title, 6)
	}
	for _, tag := range record.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	if record.Enclosure.URL != "" && record.Enclosure.Type != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(record.Enclosure.URL),
			html.EscapeString(record.Enclosure.Type)))
	}

	g.writeElement(buf, "itunes:episode", record.ProviderMeta.Episode, 6)
	g.writeElement(buf, "itunes:duration", record.ProviderMeta.Duration, 6)
	if record.ProviderMeta.Image != "" {
		buf.WriteString(fmt.Sprintf("      <itunes:image href=\"%s\" />\n", html.EscapeString(record.ProviderMeta.Image)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func parseDate(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PublishedYear returns the year of a raw feed date, or 0 when it cannot be parsed.
func PublishedYear(pubDate string) int {
	t, ok := parseDate(pubDate)
	if !ok {
		return 0
	}
	return t.Year()
}
