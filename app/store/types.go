package store

type Enclosure struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (e Enclosure) IsEmpty() bool {
	return e.URL == "" && e.Type == ""
}

// ProviderMeta carries the podcast-host extension fields (iTunes namespace).
type ProviderMeta struct {
	Episode  string `json:"episode,omitempty"`
	Duration string `json:"duration,omitempty"`
	Image    string `json:"image,omitempty"`
}

// Record is one feed-derived episode. ThemeID and Tags are owned by
// classification; every other field is owned by the feed.
type Record struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Link           string       `json:"link"`
	PubDate        string       `json:"pubDate"`
	Content        string       `json:"content"`
	ContentSnippet string       `json:"contentSnippet"`
	Enclosure      Enclosure    `json:"enclosure"`
	ProviderMeta   ProviderMeta `json:"providerMeta"`
	ThemeID        string       `json:"themeId,omitempty"`
	Tags           []string     `json:"tags"`
}

type Theme struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	RepresentativeTags []string `json:"representativeTags"`
}

type Taxonomy struct {
	Tags    []string          `json:"tags"`
	Aliases map[string]string `json:"aliases"`
}

func ThemeIndex(themes []Theme) map[string]Theme {
	index := make(map[string]Theme, len(themes))
	for _, theme := range themes {
		index[theme.ID] = theme
	}
	return index
}
