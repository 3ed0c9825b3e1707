package cfg

import (
	"time"
)

// Options holds the global command-line flags shared by every command.
type Options struct {
	DataDir        string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding episodes.json, themes.json and tag-taxonomy.json"`
	SiteConfig     string `long:"site-config" env:"SITE_CONFIG" default:"./site.yml" description:"Path to the site settings YAML file"`
	TranscriptsDir string `long:"transcripts-dir" env:"TRANSCRIPTS_DIR" default:"./transcripts" description:"Directory for transcript templates"`
	JournalPath    string `long:"journal" env:"JOURNAL_PATH" default:"./data/state.db" description:"SQLite file for the run journal"`
	FeedURL        string `long:"feed-url" env:"RSS_URL" description:"Upstream feed URL (overrides podcast.rss_url)"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"RSS Curator/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed and page fetch timeout in seconds"`
	Timezone       string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug          bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	Yes            bool   `short:"y" long:"yes" description:"Answer yes to every confirmation prompt"`

	AI AIOptions `group:"AI Options" namespace:"ai" env-namespace:"AI"`
}

type AIOptions struct {
	Provider     string `long:"provider" env:"PROVIDER" default:"deepseek" description:"Classification provider (deepseek, openai, openrouter, ollama, anthropic)"`
	APIKey       string `long:"api-key" env:"API_KEY" description:"API key; falls back to the provider's own variable (e.g. DEEPSEEK_API_KEY)"`
	APIURL       string `long:"api-url" env:"API_URL" description:"Override the provider endpoint"`
	Model        string `long:"model" env:"MODEL" description:"Override the provider model"`
	Timeout      int    `long:"timeout" env:"TIMEOUT" default:"30" description:"Per-request timeout in seconds"`
	RequestDelay int    `long:"request-delay" env:"REQUEST_DELAY" default:"1500" description:"Delay between classification requests in milliseconds"`
}

type Cfg struct {
	DataDir        string
	TranscriptsDir string
	JournalPath    string
	FeedURL        string
	UserAgent      string
	FetchTimeout   time.Duration
	Timezone       string
	Debug          bool
	AssumeYes      bool

	AI   AISettings
	Site Site

	Version string
}

type AISettings struct {
	Provider     string
	APIKey       string
	APIURL       string
	Model        string
	Timeout      time.Duration
	RequestDelay time.Duration
}

// Site mirrors the site settings file.
type Site struct {
	Podcast struct {
		Title       string `yaml:"title"`
		Link        string `yaml:"link"`
		Description string `yaml:"description"`
		Language    string `yaml:"language"`
		RSSURL      string `yaml:"rss_url"`
	} `yaml:"podcast"`
	Transcripts struct {
		PlaceholderNotice string `yaml:"placeholder_notice"`
	} `yaml:"transcripts"`
	Features struct {
		AITagging *bool `yaml:"ai_tagging"`
	} `yaml:"features"`
}
