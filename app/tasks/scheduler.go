package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/output"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
)

type SchedulerOptions struct {
	Interval    time.Duration
	WorkerCount int
}

type Scheduler struct {
	configCache *feed.ConfigCache
	pipeline    *Pipeline
	writer      *output.Writer
	runRepo     database.RunRepository
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu        sync.Mutex
	nextRunAt map[string]time.Time
}

// NewScheduler creates a scheduler over the feeds in configCache. runRepo may
// be nil.
func NewScheduler(configCache *feed.ConfigCache, pipeline *Pipeline, writer *output.Writer,
	runRepo database.RunRepository, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	workerCount := opts.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		configCache: configCache,
		pipeline:    pipeline,
		writer:      writer,
		runRepo:     runRepo,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
		nextRunAt:   make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks(time.Now())

		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				s.enqueueDueTasks(now)
			}
		}
	}()

	slog.Info("Scheduler started", "workers", s.workerCount, "interval", s.interval)
}

// Stop cancels pending work and waits for the workers to return. The queue
// is left open so a late EnqueueTask fails on the cancelled context instead
// of panicking.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// NewGenerateFeedTask builds a task for a loaded feed definition.
func (s *Scheduler) NewGenerateFeedTask(feedName string) (*GenerateFeedTask, error) {
	feedConfig, err := s.configCache.GetConfig(feedName)
	if err != nil {
		return nil, err
	}
	return NewGenerateFeedTask(feedConfig, s.pipeline, s.writer, s.runRepo), nil
}

func (s *Scheduler) enqueueDueTasks(now time.Time) {
	feedConfigs := s.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return
	}

	for _, feedConfig := range feedConfigs {
		if feedConfig.Output == "" {
			slog.Debug("Feed has no output, served on demand only", "feed", feedConfig.Name)
			continue
		}

		if !s.isDue(feedConfig, now) {
			continue
		}

		task := NewGenerateFeedTask(feedConfig, s.pipeline, s.writer, s.runRepo)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue GenerateFeedTask", "feed", feedConfig.Name, "error", err)
			continue
		}

		s.markScheduled(feedConfig, now)
	}
}

func (s *Scheduler) isDue(feedConfig *feed.Config, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextRunAt[feedConfig.Name]
	if ok && next.After(now) {
		slog.Debug("Feed not due for refresh yet", "feed", feedConfig.Name, "next_run_at", next)
		return false
	}
	return true
}

func (s *Scheduler) markScheduled(feedConfig *feed.Config, now time.Time) {
	refresh := time.Duration(feedConfig.Settings.RefreshInterval) * time.Second

	s.mu.Lock()
	s.nextRunAt[feedConfig.Name] = now.Add(refresh)
	s.mu.Unlock()
}

// NextRunAt reports when a feed is next due, if it has been scheduled.
func (s *Scheduler) NextRunAt(feedName string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextRunAt[feedName]
	return next, ok
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"feed", task.GetFeedName(),
			"id", task.GetID(),
			"duration", task.GetDuration(),
			"error", err)
	}
}
