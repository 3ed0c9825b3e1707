package database

type RunRepository interface {
	CreateRun(run SyncRun) (string, error)
	GetLatestRun() (*SyncRun, error)
	GetRunCount() (int, error)
}

type CallRepository interface {
	RecordCall(call CallRecord) error
	CountByOutcome(operation string) (map[string]int, error)
}

type StateRepository interface {
	GetSourceURL() (string, error)
	SetSourceURL(url string) error
	ClearSourceURL() error
}
