package database

type RunRepository interface {
	InsertRun(run Run) error
	GetRecentRuns(feedName string, limit int) ([]Run, error)
	GetRunStats() (*RunStats, error)
}
