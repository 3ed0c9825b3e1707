package classify

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/rss-curator/app/store"
)

const (
	maxContentChars = 800
	systemPrompt    = "You are a content classifier for a podcast. Output valid JSON only."
)

func buildPrompt(record store.Record, themes []store.Theme, allowedTags []string) string {
	var b strings.Builder

	b.WriteString("I need to classify a podcast episode into one of the following themes:\n\n")
	for _, theme := range themes {
		fmt.Fprintf(&b, "- ID: %s\n  Title: %s\n  Description: %s\n", theme.ID, theme.Title, theme.Description)
	}

	fmt.Fprintf(&b, "\nEpisode Title: %s\n", record.Title)
	fmt.Fprintf(&b, "Episode Content: %s\n\n", excerpt(record))

	b.WriteString("Task:\n")
	b.WriteString("1. Select exactly ONE theme ID from the list above that best fits this episode.\n")
	b.WriteString("2. Select 2-3 relevant tags (keywords) for this episode.\n")
	b.WriteString("3. Tags MUST be selected only from the allowed list below. Do not invent new tags.\n\n")

	b.WriteString("Allowed Tags:\n")
	for _, tag := range allowedTags {
		fmt.Fprintf(&b, "- %s\n", tag)
	}

	b.WriteString("\nReturn JSON:\n")
	b.WriteString("{\n  \"themeId\": \"theme_id_here\",\n  \"tags\": [\"tag1\", \"tag2\", \"tag3\"]\n}\n")

	return b.String()
}

func excerpt(record store.Record) string {
	content := record.ContentSnippet
	if content == "" {
		content = record.Content
	}
	return Truncate(content, maxContentChars)
}

// Truncate cuts s to at most n characters and marks the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
