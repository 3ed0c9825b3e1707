package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/rss-curator/app/ai"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	ErrMissingFeedURL     = errors.New("feed url is not configured (podcast.rss_url or --feed-url)")
	ErrMissingPlaceholder = errors.New("transcripts.placeholder_notice is not configured")
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// NewParser returns a go-flags parser bound to opts. AI options are exposed
// as --ai-provider, --ai-api-key and so on.
func NewParser(opts *Options) *flags.Parser {
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.NamespaceDelimiter = "-"
	return parser
}

func Load(opts Options) (*Cfg, error) {
	site, err := loadSite(opts.SiteConfig)
	if err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DataDir:        opts.DataDir,
		TranscriptsDir: opts.TranscriptsDir,
		JournalPath:    opts.JournalPath,
		FeedURL:        strings.TrimSpace(cmp.Or(opts.FeedURL, site.Podcast.RSSURL)),
		UserAgent:      opts.UserAgent,
		FetchTimeout:   time.Duration(opts.FetchTimeout) * time.Second,
		Timezone:       opts.Timezone,
		Debug:          opts.Debug,
		AssumeYes:      opts.Yes,
		AI: AISettings{
			Provider:     strings.ToLower(strings.TrimSpace(opts.AI.Provider)),
			APIKey:       resolveAPIKey(opts.AI),
			APIURL:       opts.AI.APIURL,
			Model:        opts.AI.Model,
			Timeout:      time.Duration(opts.AI.Timeout) * time.Second,
			RequestDelay: time.Duration(opts.AI.RequestDelay) * time.Millisecond,
		},
		Site:    site,
		Version: GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func loadSite(path string) (Site, error) {
	var site Site
	if path == "" {
		return site, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Site config not found, using flags only", "path", path)
		return site, nil
	}
	if err != nil {
		return site, fmt.Errorf("failed to read site config: %w", err)
	}

	if err := yaml.Unmarshal(data, &site); err != nil {
		return site, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}

	return site, nil
}

func resolveAPIKey(opts AIOptions) string {
	if opts.APIKey != "" {
		return opts.APIKey
	}
	if env := ai.APIKeyEnv(opts.Provider); env != "" {
		return os.Getenv(env)
	}
	return ""
}

// AITaggingEnabled defaults to true when the site file does not say otherwise.
func (c *Cfg) AITaggingEnabled() bool {
	if c.Site.Features.AITagging == nil {
		return true
	}
	return *c.Site.Features.AITagging
}

func (c *Cfg) ValidateFeedURL() error {
	if c.FeedURL == "" {
		return ErrMissingFeedURL
	}
	u, err := url.Parse(c.FeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid feed url %q", c.FeedURL)
	}
	return nil
}

func (c *Cfg) ValidatePlaceholder() error {
	if strings.TrimSpace(c.Site.Transcripts.PlaceholderNotice) == "" {
		return ErrMissingPlaceholder
	}
	return nil
}

func (c *Cfg) ResolveProvider() (ai.Provider, error) {
	return ai.ResolveProvider(ai.Settings{
		Kind:     c.AI.Provider,
		APIKey:   c.AI.APIKey,
		Endpoint: c.AI.APIURL,
		Model:    c.AI.Model,
	})
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
