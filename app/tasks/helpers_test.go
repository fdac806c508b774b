package tasks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
)

type fakeFetcher struct {
	mu       sync.Mutex
	records  []feed.RawRecord
	err      error
	calls    int
	pageSize int
}

func (f *fakeFetcher) Fetch(ctx context.Context, memberID string, pageSize int) ([]feed.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.pageSize = pageSize
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRunRepository struct {
	mu   sync.Mutex
	runs []database.Run
}

func (r *fakeRunRepository) InsertRun(run database.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepository) GetRecentRuns(feedName string, limit int) ([]database.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []database.Run
	for _, run := range r.runs {
		if run.FeedName == feedName {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (r *fakeRunRepository) GetRunStats() (*database.RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &database.RunStats{Total: len(r.runs)}, nil
}

func (r *fakeRunRepository) all() []database.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]database.Run(nil), r.runs...)
}

func record(id, title, created string) feed.RawRecord {
	return feed.RawRecord{
		feed.FieldID:           json.Number(id),
		feed.FieldTitle:        title,
		feed.FieldAuthor:       "Uploader",
		feed.FieldCreatedAt:    json.Number(created),
		feed.FieldThumbnailURL: "http://i0.hdslb.com/" + id + ".jpg",
		feed.FieldDescription:  "about " + title,
		feed.FieldDuration:     "03:25",
	}
}

func sampleRecords() []feed.RawRecord {
	return []feed.RawRecord{
		record("1003", "Gameplay part 3", "1500000300"),
		record("1002", "Cooking show", "1500000200"),
		record("1001", "Gameplay part 1", "1500000100"),
	}
}

func testConfig(output string) *feed.Config {
	return &feed.Config{
		Name:     "uploader",
		MemberID: "42",
		FeedURL:  "http://example.com/atom.xml",
		Output:   output,
		Settings: feed.ConfigSettings{
			Enabled:         true,
			RefreshInterval: 3600,
			Count:           30,
		},
	}
}
