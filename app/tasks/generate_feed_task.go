package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/output"
)

type GenerateFeedTask struct {
	Task
	FeedConfig *feed.Config
	Result     output.Result
	pipeline   *Pipeline
	writer     *output.Writer
	runRepo    database.RunRepository
}

// NewGenerateFeedTask builds a run of one feed. runRepo may be nil when no
// history is kept.
func NewGenerateFeedTask(feedConfig *feed.Config, pipeline *Pipeline, writer *output.Writer, runRepo database.RunRepository) *GenerateFeedTask {
	return &GenerateFeedTask{
		Task:       NewTask(TaskTypeGenerateFeed, feedConfig.Name),
		FeedConfig: feedConfig,
		pipeline:   pipeline,
		writer:     writer,
		runRepo:    runRepo,
	}
}

func (t *GenerateFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.StartedAt == nil {
		t.Start()
	}

	destination := output.ParseDestination(t.FeedConfig.Output)
	run := database.Run{
		ID:          t.ID,
		FeedName:    t.FeedName,
		MemberID:    t.FeedConfig.MemberID,
		Destination: destination.String(),
		StartedAt:   t.StartedAt.UTC(),
	}

	err := t.generate(ctx, destination, &run)
	if err != nil {
		run.Result = database.ResultFailed
		run.Error = err.Error()
	}
	run.Duration = t.GetDuration()

	t.recordRun(run)

	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "GenerateFeed",
		"feed", t.FeedName,
		"duration", run.Duration,
		"fetched", run.Fetched,
		"kept", run.Kept,
		"result", string(t.Result),
		"destination", run.Destination)

	return nil
}

func (t *GenerateFeedTask) generate(ctx context.Context, destination output.Destination, run *database.Run) error {
	rendition, err := t.pipeline.Render(ctx, t.FeedConfig)
	if err != nil {
		return err
	}

	run.Fetched = rendition.Fetched
	run.Kept = rendition.Kept
	hash := sha256.Sum256(rendition.Content)
	run.ContentHash = hex.EncodeToString(hash[:])

	result, err := t.writer.Write(rendition.Content, destination, t.FeedConfig.Settings.ForceWrite)
	if err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	t.Result = result
	run.Result = string(result)

	return nil
}

func (t *GenerateFeedTask) recordRun(run database.Run) {
	if t.runRepo == nil {
		return
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if err := t.runRepo.InsertRun(run); err != nil {
		slog.Warn("Failed to record run", "feed", t.FeedName, "id", run.ID, "error", err)
	}
}
