package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/bili-feedgen/app/bilibili"
	"github.com/lysyi3m/bili-feedgen/app/feed"
)

func TestPipeline_Render(t *testing.T) {
	fetcher := &fakeFetcher{records: sampleRecords()}
	pipeline := NewPipeline(fetcher, feed.NewGenerator("bili-feedgen/test"))

	config := testConfig("")
	config.Settings.Count = 10
	config.Filters = []string{"Gameplay"}

	rendition, err := pipeline.Render(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, 10, fetcher.pageSize)
	assert.Equal(t, 3, rendition.Fetched)
	assert.Equal(t, 2, rendition.Kept)
	require.Len(t, rendition.Feed.Entries, 2)
	assert.Equal(t, "1003", rendition.Feed.Entries[0].ID)
	assert.Equal(t, "1001", rendition.Feed.Entries[1].ID)

	content := string(rendition.Content)
	assert.Contains(t, content, "http://www.bilibili.com/video/av1003/")
	assert.NotContains(t, content, "Cooking show")
}

func TestPipeline_RenderIsDeterministic(t *testing.T) {
	pipeline := NewPipeline(&fakeFetcher{records: sampleRecords()}, feed.NewGenerator("bili-feedgen/test"))

	first, err := pipeline.Render(context.Background(), testConfig(""))
	require.NoError(t, err)
	second, err := pipeline.Render(context.Background(), testConfig(""))
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
}

func TestPipeline_EmptyResult(t *testing.T) {
	pipeline := NewPipeline(&fakeFetcher{}, feed.NewGenerator("bili-feedgen/test"))

	_, err := pipeline.Render(context.Background(), testConfig(""))
	var emptyErr *feed.EmptyResultError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "42", emptyErr.MemberID)
}

func TestPipeline_EmptyResultAllowed(t *testing.T) {
	pipeline := NewPipeline(&fakeFetcher{}, feed.NewGenerator("bili-feedgen/test"))

	config := testConfig("")
	config.Settings.AllowEmpty = true

	rendition, err := pipeline.Render(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, 0, rendition.Fetched)
	assert.Empty(t, rendition.Feed.Entries)
}

func TestPipeline_FilteredToNothingIsNotEmptyResult(t *testing.T) {
	pipeline := NewPipeline(&fakeFetcher{records: sampleRecords()}, feed.NewGenerator("bili-feedgen/test"))

	config := testConfig("")
	config.Filters = []string{"nomatch"}

	rendition, err := pipeline.Render(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, 3, rendition.Fetched)
	assert.Equal(t, 0, rendition.Kept)
}

func TestPipeline_AuthorComesFromFetchedRecords(t *testing.T) {
	records := sampleRecords()
	records[0][feed.FieldAuthor] = "Channel"
	records[1][feed.FieldAuthor] = "Guest"
	pipeline := NewPipeline(&fakeFetcher{records: records}, feed.NewGenerator("bili-feedgen/test"))

	for _, filters := range [][]string{nil, {"Cooking"}, {"nomatch"}} {
		config := testConfig("")
		config.Settings.AllowEmpty = true
		config.Filters = filters

		rendition, err := pipeline.Render(context.Background(), config)
		require.NoError(t, err)
		assert.Equal(t, "Channel", rendition.Feed.Author.Name, "filters %v", filters)
		assert.Equal(t, "Channel's Bilibili feed", rendition.Feed.Title, "filters %v", filters)
	}
}

func TestPipeline_FetchError(t *testing.T) {
	apiErr := &bilibili.APIError{Endpoint: "http://space.bilibili.com", StatusCode: 403}
	pipeline := NewPipeline(&fakeFetcher{err: apiErr}, feed.NewGenerator("bili-feedgen/test"))

	_, err := pipeline.Render(context.Background(), testConfig(""))
	var got *bilibili.APIError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 403, got.StatusCode)
}

func TestPipeline_MalformedRecord(t *testing.T) {
	records := sampleRecords()
	delete(records[1], feed.FieldTitle)
	pipeline := NewPipeline(&fakeFetcher{records: records}, feed.NewGenerator("bili-feedgen/test"))

	_, err := pipeline.Render(context.Background(), testConfig(""))
	var malformed *feed.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, feed.FieldTitle, malformed.Field)
	assert.False(t, errors.Is(err, context.Canceled))
}
