package themes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lysyi3m/rss-curator/app/store"
)

const (
	analystSystemPrompt    = "You are a content analyst for a podcast. Output valid JSON only."
	strategistSystemPrompt = "You are a creative content strategist for a podcast. Output valid JSON only."
	curatorSystemPrompt    = "You are a podcast content curator. Output valid JSON only."
)

type sample struct {
	Title          string `json:"title"`
	ContentSnippet string `json:"contentSnippet"`
}

func samplesJSON(samples []sample) string {
	data, err := json.Marshal(samples)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func vocabularyPrompt(samples []sample, allowed []string) string {
	var b strings.Builder

	b.WriteString("Analyze the titles and summaries of the podcast episodes below and produce 10-15 core tags.\n\n")
	b.WriteString("Episodes:\n")
	b.WriteString(samplesJSON(samples))
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("1. Consider the topic, keywords and emotional tone of every episode.\n")
	b.WriteString("2. Tags should be specific and representative, in the language of the episodes.\n")
	if len(allowed) > 0 {
		b.WriteString("3. Prefer tags from the allowed list below.\n\nAllowed Tags:\n")
		b.WriteString(bulletList(allowed))
	}
	b.WriteString("\nReturn JSON:\n{\n  \"tags\": [\"tag1\", \"tag2\"]\n}\n")

	return b.String()
}

func catalogPrompt(tags []string, samples []sample) string {
	var b strings.Builder

	b.WriteString("Based on the tags below, propose 3-5 themes for this podcast.\n\n")
	b.WriteString("Core Tags:\n")
	b.WriteString(bulletList(tags))
	b.WriteString("\nEpisode Examples:\n")
	b.WriteString(samplesJSON(samples))
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("1. Each theme gets a short, evocative title.\n")
	b.WriteString("2. Each theme gets a one-sentence description of its core content.\n")
	b.WriteString("3. Each theme gets 3-5 representative tags chosen only from the core tags.\n")
	b.WriteString("4. Themes must be clearly distinct from each other.\n")
	b.WriteString("5. Theme ids are short lowercase identifiers.\n")
	b.WriteString("\nReturn a JSON array:\n")
	b.WriteString("[\n  {\n    \"id\": \"themeId\",\n    \"title\": \"Title\",\n    \"description\": \"One sentence\",\n    \"representativeTags\": [\"tag1\", \"tag2\", \"tag3\"]\n  }\n]\n")

	return b.String()
}

func refreshPrompt(theme store.Theme, samples []sample, allowed []string) string {
	var b strings.Builder

	b.WriteString("Update the title and description of the podcast theme below based on the episode samples, and pick representative tags.\n\n")
	fmt.Fprintf(&b, "Current Theme:\nID: %s\nTitle: %s\nDescription: %s\n\n", theme.ID, theme.Title, theme.Description)
	b.WriteString("Episode Samples (title + summary):\n")
	b.WriteString(samplesJSON(samples))
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("1. Keep the title short and evocative.\n")
	b.WriteString("2. The description is a single sentence focused on the theme's core content.\n")
	b.WriteString("3. Choose 3-5 representativeTags only from the allowed list. Do not invent new tags.\n\n")
	b.WriteString("Allowed Tags:\n")
	b.WriteString(bulletList(allowed))
	b.WriteString("\nReturn JSON:\n{\n  \"title\": \"New title\",\n  \"description\": \"One sentence\",\n  \"representativeTags\": [\"tag1\", \"tag2\", \"tag3\"]\n}\n")

	return b.String()
}
