package feed

// Metadata describes the upstream channel.
type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Language    string
}

// Channel is the header of a generated curated feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Language    string
	ImageURL    string
	Generator   string
}
