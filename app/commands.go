package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/rss-curator/app/ai"
	"github.com/lysyi3m/rss-curator/app/api"
	"github.com/lysyi3m/rss-curator/app/cfg"
	"github.com/lysyi3m/rss-curator/app/classify"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/tasks"
	"github.com/lysyi3m/rss-curator/app/themes"
)

func registerCommands(parser *flags.Parser, opts *cfg.Options) {
	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"sync", "Sync episodes from the upstream feed", "Fetch the feed, merge it into episodes.json and classify new or changed episodes.", &syncCommand{opts: opts}},
		{"tag", "Classify episodes", "Assign a theme and tags to episodes that need classification.", &tagCommand{opts: opts}},
		{"analyze-themes", "Build the theme catalog", "Derive a fresh themes.json from a sample of episodes.", &analyzeThemesCommand{opts: opts}},
		{"refresh-themes", "Refresh theme descriptions", "Update each theme from the episodes currently assigned to it.", &refreshThemesCommand{opts: opts}},
		{"normalize-tags", "Re-normalize stored tags", "Apply the current tag taxonomy to every stored episode.", &normalizeTagsCommand{opts: opts}},
		{"reset", "Delete synced data", "Remove episodes, themes, transcripts and the cached feed url.", &resetCommand{opts: opts}},
		{"serve", "Serve the curated data over HTTP", "Expose the episodes, themes and a curated RSS feed.", &serveCommand{opts: opts}},
	}

	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			panic(fmt.Sprintf("failed to register %s command: %v", c.name, err))
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type syncCommand struct {
	SkipTag         bool `long:"skip-tag" description:"Do not classify updated episodes"`
	SkipTranscripts bool `long:"skip-transcripts" description:"Do not create transcript templates"`
	ExtractContent  bool `long:"extract-content" description:"Fetch article pages for new episodes without show notes"`

	opts *cfg.Options
}

func (c *syncCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.cfg.ValidateFeedURL(); err != nil {
		return err
	}
	if !c.SkipTranscripts {
		if err := app.cfg.ValidatePlaceholder(); err != nil {
			return err
		}
	}

	var client *ai.Client
	if !c.SkipTag {
		client, err = app.aiClient()
		switch {
		case errors.Is(err, errAITaggingDisabled):
			slog.Info("Skipping classification, AI tagging is disabled")
		case errors.Is(err, ai.ErrMissingAPIKey):
			slog.Info("Skipping classification, no API key configured", "env", ai.APIKeyEnv(app.cfg.AI.Provider))
		case err != nil:
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	syncTask := tasks.NewSyncTask(
		tasks.SyncOptions{
			FeedURL:         app.cfg.FeedURL,
			SkipTranscripts: c.SkipTranscripts,
			ExtractContent:  c.ExtractContent,
		},
		app.fetcher(),
		feed.NewParser(feed.NewSanitizer()),
		feed.NewContentExtractor(),
		app.store,
		app.transcriptWriter(),
		app.runs,
		app.state,
		app.confirmer(),
	)

	runner := tasks.NewRunner(tasks.DefaultTaskTimeout)
	if err := runner.Run(ctx, syncTask); err != nil {
		return err
	}

	if client == nil {
		return nil
	}

	tagTask := tasks.NewSyncTagTask(syncTask.UpdatedIDs(), app.store, newOrchestrator(app, client), newThemeManager(app, client))
	return runner.Run(ctx, tagTask)
}

type tagCommand struct {
	IDs   string `long:"ids" description:"Comma-separated episode ids to classify"`
	Limit int    `long:"limit" default:"5" description:"Maximum number of episodes to classify when no ids are given"`

	opts *cfg.Options
}

func (c *tagCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.aiClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	target := classify.Target{IDs: splitIDs(c.IDs), Limit: c.Limit}
	task := tasks.NewTagTask(target, app.store, newOrchestrator(app, client))

	return tasks.NewRunner(tasks.DefaultTaskTimeout).Run(ctx, task)
}

type analyzeThemesCommand struct {
	opts *cfg.Options
}

func (c *analyzeThemesCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.aiClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	task := tasks.NewAnalyzeThemesTask(app.store, newThemeManager(app, client))
	return tasks.NewRunner(tasks.DefaultTaskTimeout).Run(ctx, task)
}

type refreshThemesCommand struct {
	opts *cfg.Options
}

func (c *refreshThemesCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	client, err := app.aiClient()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	task := tasks.NewRefreshThemesTask(app.store, newThemeManager(app, client))
	return tasks.NewRunner(tasks.DefaultTaskTimeout).Run(ctx, task)
}

type normalizeTagsCommand struct {
	opts *cfg.Options
}

func (c *normalizeTagsCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	task := tasks.NewNormalizeTagsTask(app.store)
	return tasks.NewRunner(tasks.DefaultTaskTimeout).Run(context.Background(), task)
}

type resetCommand struct {
	opts *cfg.Options
}

func (c *resetCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	task := tasks.NewResetTask(app.store, app.transcriptWriter(), app.state, app.confirmer())
	return tasks.NewRunner(tasks.DefaultTaskTimeout).Run(context.Background(), task)
}

type serveCommand struct {
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL used for the feed self link"`
	APIAccessKey string `long:"api-access-key" env:"API_ACCESS_KEY" description:"API access key for /api endpoints (optional)"`

	opts *cfg.Options
}

func (c *serveCommand) Execute(args []string) error {
	app, err := newApplication(c.opts)
	if err != nil {
		return err
	}
	defer app.Close()

	podcast := app.cfg.Site.Podcast
	channel := feed.Channel{
		Title:       podcast.Title,
		Link:        podcast.Link,
		Description: podcast.Description,
		Language:    podcast.Language,
		Generator:   "RSS Curator " + app.cfg.Version,
	}
	if c.BaseURL != "" {
		channel.SelfLink = strings.TrimRight(c.BaseURL, "/") + "/feed.xml"
	}

	handler := api.NewHandler(app.store, app.runs, app.calls, channel)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port, "auth", c.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("HTTP server stopped")
	return nil
}

func newOrchestrator(app *application, client ai.Completer) *classify.Orchestrator {
	return classify.New(client, app.store,
		classify.WithJournal(app.calls),
		classify.WithDelay(app.cfg.AI.RequestDelay))
}

func newThemeManager(app *application, client ai.Completer) *themes.Manager {
	return themes.NewManager(client, themes.WithJournal(app.calls))
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
