package database

import (
	"time"
)

// Run is one recorded feed generation.
type Run struct {
	ID          string
	FeedName    string
	MemberID    string
	Destination string
	Fetched     int
	Kept        int
	Result      string // printed, written, skipped or failed
	Error       string
	ContentHash string
	StartedAt   time.Time
	Duration    time.Duration
}

const ResultFailed = "failed"

type RunStats struct {
	Total   int
	Written int
	Skipped int
	Printed int
	Failed  int
	LastRun *time.Time
}
