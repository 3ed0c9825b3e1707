package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/store"
)

// NewHandler serves the curated store. runs and calls may be nil.
func NewHandler(records RecordSource, runs database.RunRepository, calls database.CallRepository, channel feed.Channel) *Handler {
	return &Handler{
		records:   records,
		runs:      runs,
		calls:     calls,
		generator: feed.NewGenerator(),
		channel:   channel,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if records, err := h.records.LoadRecords(); err == nil {
		health["episodes"] = len(records)
	}

	if h.runs != nil {
		if count, err := h.runs.GetRunCount(); err == nil {
			health["sync_runs"] = count
		}
		if run, err := h.runs.GetLatestRun(); err == nil && run != nil {
			health["last_sync_at"] = run.FinishedAt.In(time.Local).Format(time.RFC3339)
		}
	}

	if h.calls != nil {
		if counts, err := h.calls.CountByOutcome(""); err == nil {
			health["classification_calls"] = counts
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetEpisodes(c *gin.Context) {
	records, err := h.records.LoadRecords()
	if err != nil {
		slog.Error("Store error", "operation", "load_records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load episodes"})
		return
	}

	yearCounts := make(map[int]int)
	for _, record := range records {
		if year := feed.PublishedYear(record.PubDate); year > 0 {
			yearCounts[year]++
		}
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, EpisodesResponse{
		Episodes: records,
		Stats: Stats{
			Total:      len(records),
			YearCounts: yearCounts,
		},
		UpdatedAt: h.updatedAt().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetThemes(c *gin.Context) {
	themes, err := h.records.LoadThemes()
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"themes": []store.Theme{}})
		return
	}
	if err != nil {
		slog.Error("Store error", "operation", "load_themes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load themes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"themes": themes})
}

func (h *Handler) GetFeed(c *gin.Context) {
	records, err := h.records.LoadRecords()
	if err != nil {
		slog.Error("Store error", "operation", "load_records", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	themes, err := h.records.LoadThemes()
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("Store error", "operation", "load_themes", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(h.channel, records, themes)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Last-Updated", h.updatedAt().Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) updatedAt() time.Time {
	if h.runs != nil {
		if run, err := h.runs.GetLatestRun(); err == nil && run != nil {
			return run.FinishedAt
		}
	}
	return time.Now()
}
