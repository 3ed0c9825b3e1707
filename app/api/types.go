package api

import (
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/store"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, records []store.Record, themes []store.Theme) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// RecordSource is the read side of the record store.
type RecordSource interface {
	LoadRecords() ([]store.Record, error)
	LoadThemes() ([]store.Theme, error)
}

var _ RecordSource = (*store.Store)(nil)

type Handler struct {
	records   RecordSource
	runs      database.RunRepository
	calls     database.CallRepository
	generator GeneratorInterface
	channel   feed.Channel
}

type Stats struct {
	Total      int         `json:"total"`
	YearCounts map[int]int `json:"yearCounts"`
}

type EpisodesResponse struct {
	Episodes  []store.Record `json:"episodes"`
	Stats     Stats          `json:"stats"`
	UpdatedAt string         `json:"updatedAt"`
}
