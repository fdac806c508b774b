package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/bili-feedgen/app/api"
	"github.com/lysyi3m/bili-feedgen/app/bilibili"
	"github.com/lysyi3m/bili-feedgen/app/cfg"
	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/output"
	"github.com/lysyi3m/bili-feedgen/app/tasks"
)

const (
	exitFailure = 1
	exitUsage   = 2

	shutdownTimeout = 30 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one invocation and returns the process exit code: 0 on
// success, 1 when generation fails, 2 on a usage error.
func run(args []string, stdout io.Writer) int {
	config, err := cfg.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if config == nil {
		return 0
	}

	if config.ShowVersion {
		fmt.Fprintln(stdout, config.GeneratorName())
		return 0
	}

	setupLogger(config.Debug)

	client := bilibili.NewClient(&http.Client{}, bilibili.Options{
		BaseURL:   config.APIURL,
		UserAgent: config.UserAgent,
		Timeout:   config.RequestTimeout(),
		RateLimit: config.RateLimit,
	})
	pipeline := tasks.NewPipeline(client, feed.NewGenerator(config.GeneratorName()))
	writer := output.NewWriter(stdout)

	var runRepo database.RunRepository
	if config.HistoryDB != "" {
		db, err := openHistory(config.HistoryDB)
		if err != nil {
			slog.Error("Failed to open run history", "path", config.HistoryDB, "error", err)
			return exitFailure
		}
		defer db.Close()
		runRepo = database.NewRunRepository(db)
	}

	if !config.ServiceMode() {
		return generateOnce(config, pipeline, writer, runRepo)
	}

	if err := serve(config, pipeline, writer, runRepo); err != nil {
		slog.Error("Service stopped with error", "error", err)
		return exitFailure
	}
	return 0
}

// setupLogger sends logs to stderr, stdout carries the feed itself.
func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		AddSource:  debug,
	})

	slog.SetDefault(slog.New(handler))
}

func openHistory(path string) (*database.DB, error) {
	db, err := database.NewConnection(path)
	if err != nil {
		return nil, err
	}

	schema, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("Run history ready", "path", path, "schema_version", schema.Version, "migrated", schema.Applied)
	return db, nil
}

func generateOnce(config *cfg.Cfg, pipeline *tasks.Pipeline, writer *output.Writer, runRepo database.RunRepository) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := tasks.NewGenerateFeedTask(config.FeedConfig(), pipeline, writer, runRepo)
	if err := task.Execute(ctx); err != nil {
		slog.Error(describeFailure(err), "member_id", config.MemberID, "error", err)
		return exitFailure
	}
	return 0
}

// describeFailure names the kind of a failed run.
func describeFailure(err error) string {
	var apiErr *bilibili.APIError
	var malformedErr *feed.MalformedRecordError
	var emptyErr *feed.EmptyResultError
	var ioErr *output.IOError

	switch {
	case errors.As(err, &apiErr):
		return "Bilibili API request failed"
	case errors.As(err, &malformedErr):
		return "Bilibili API returned a malformed record"
	case errors.As(err, &emptyErr):
		return "Bilibili API returned no uploads"
	case errors.As(err, &ioErr):
		return "Failed to write feed"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	default:
		return "Feed generation failed"
	}
}

func serve(config *cfg.Cfg, pipeline *tasks.Pipeline, writer *output.Writer, runRepo database.RunRepository) error {
	configCache := feed.NewConfigCache(config.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load feed configurations: %w", err)
	}
	if config.MemberID != "" {
		if err := configCache.Add(config.FeedConfig()); err != nil {
			return fmt.Errorf("invalid command-line feed: %w", err)
		}
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount(), "feeds_dir", config.FeedsDir)

	scheduler := tasks.NewScheduler(configCache, pipeline, writer, runRepo, tasks.SchedulerOptions{
		Interval:    time.Duration(config.SchedulerInterval) * time.Second,
		WorkerCount: config.WorkerCount,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	if config.Listen != "" {
		if !config.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		handler := api.NewHandler(configCache, pipeline, runRepo, scheduler, config.Version)
		httpServer := &http.Server{
			Addr:         config.Listen,
			Handler:      api.NewServer(handler, config.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * config.RequestTimeout(),
			IdleTimeout:  120 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Starting HTTP server", "address", config.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			slog.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Shutdown complete")
	return nil
}
