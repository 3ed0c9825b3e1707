package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/rss-curator/app/ai"
	"github.com/lysyi3m/rss-curator/app/cfg"
	"github.com/lysyi3m/rss-curator/app/confirm"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/store"
	"github.com/lysyi3m/rss-curator/app/transcripts"
)

func main() {
	var opts cfg.Options

	parser := cfg.NewParser(&opts)
	registerCommands(parser, &opts)

	parser.CommandHandler = func(command flags.Commander, args []string) error {
		setupLogger(opts.Debug)
		return command.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			return
		}
		if errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			os.Exit(2)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// application bundles what every command needs: the resolved configuration,
// the document store and the run journal.
type application struct {
	cfg   *cfg.Cfg
	store *store.Store
	db    *database.DB

	runs  *database.SyncRunRepository
	calls *database.ClassificationCallRepository
	state *database.SourceStateRepository
}

func newApplication(opts *cfg.Options) (*application, error) {
	config, err := cfg.Load(*opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded", "version", config.Version, "data_dir", config.DataDir, "provider", config.AI.Provider)

	db, err := database.NewConnection(config.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &application{
		cfg:   config,
		store: store.New(config.DataDir),
		db:    db,
		runs:  database.NewSyncRunRepository(db),
		calls: database.NewClassificationCallRepository(db),
		state: database.NewSourceStateRepository(db),
	}, nil
}

func (a *application) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close journal", "error", err)
	}
}

func (a *application) confirmer() confirm.Confirmer {
	if a.cfg.AssumeYes {
		return confirm.Static(true)
	}
	return confirm.NewPrompt()
}

func (a *application) transcriptWriter() *transcripts.Writer {
	return transcripts.NewWriter(a.cfg.TranscriptsDir, a.cfg.Site.Transcripts.PlaceholderNotice)
}

func (a *application) fetcher() *feed.Fetcher {
	return feed.NewFetcher(&http.Client{}, a.cfg.UserAgent, a.cfg.FetchTimeout)
}

// aiClient resolves the configured provider. Commands that cannot work
// without classification call it before touching the network.
func (a *application) aiClient() (*ai.Client, error) {
	if !a.cfg.AITaggingEnabled() {
		return nil, errAITaggingDisabled
	}

	provider, err := a.cfg.ResolveProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s provider: %w", a.cfg.AI.Provider, err)
	}

	slog.Info("Using classification provider", "provider", provider.Kind, "endpoint", provider.Endpoint, "model", provider.Model)

	return ai.NewClient(provider, ai.WithTimeout(a.cfg.AI.Timeout)), nil
}

var errAITaggingDisabled = errors.New("AI tagging is disabled (features.ai_tagging = false)")
