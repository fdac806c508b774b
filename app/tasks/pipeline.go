package tasks

import (
	"context"
	"fmt"

	"github.com/lysyi3m/bili-feedgen/app/bilibili"
	"github.com/lysyi3m/bili-feedgen/app/feed"
)

// Rendition is a serialized feed together with what went into it.
type Rendition struct {
	Content []byte
	Feed    *feed.Feed
	Fetched int
	Kept    int
}

// Pipeline turns a feed definition into a serialized Atom document:
// fetch, normalize, filter, assemble, serialize, validate.
type Pipeline struct {
	fetcher    bilibili.Fetcher
	normalizer *feed.Normalizer
	filterer   *feed.Filterer
	assembler  *feed.Assembler
	generator  *feed.Generator
	validator  *feed.Validator
}

func NewPipeline(fetcher bilibili.Fetcher, generator *feed.Generator) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		normalizer: feed.NewNormalizer(),
		filterer:   feed.NewFilterer(),
		assembler:  feed.NewAssembler(),
		generator:  generator,
		validator:  feed.NewValidator(),
	}
}

func (p *Pipeline) Render(ctx context.Context, feedConfig *feed.Config) (*Rendition, error) {
	records, err := p.fetcher.Fetch(ctx, feedConfig.MemberID, feedConfig.Settings.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploads: %w", err)
	}

	if len(records) == 0 && !feedConfig.Settings.AllowEmpty {
		return nil, &feed.EmptyResultError{MemberID: feedConfig.MemberID}
	}

	entries, err := p.normalizer.Run(records)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize uploads: %w", err)
	}

	kept := p.filterer.Run(entries, feed.ParseFilterSet(feedConfig.Filters))

	metadata := feed.Metadata{
		FeedURL:     feedConfig.FeedURL,
		MemberID:    feedConfig.MemberID,
		DisplayName: feedConfig.DisplayName,
	}
	if len(entries) > 0 {
		metadata.FallbackAuthor = entries[0].Author
	}

	assembled := p.assembler.Run(kept, metadata)

	content, err := p.generator.Run(assembled)
	if err != nil {
		return nil, fmt.Errorf("failed to generate feed: %w", err)
	}

	if err := p.validator.Run(content, len(assembled.Entries)); err != nil {
		return nil, fmt.Errorf("generated feed is invalid: %w", err)
	}

	return &Rendition{
		Content: content,
		Feed:    assembled,
		Fetched: len(records),
		Kept:    len(kept),
	}, nil
}
