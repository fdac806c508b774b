package api

import (
	"context"

	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/tasks"
)

type RendererInterface interface {
	Render(ctx context.Context, feedConfig *feed.Config) (*tasks.Rendition, error)
}

var _ RendererInterface = (*tasks.Pipeline)(nil)

type Handler struct {
	configCache *feed.ConfigCache
	renderer    RendererInterface
	runRepo     database.RunRepository
	scheduler   tasks.TaskSchedulerInterface
	version     string
}
