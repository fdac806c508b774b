package feed

import (
	"cmp"
	"fmt"
	"time"
)

const (
	SpaceURLTemplate  = "http://space.bilibili.com/%s"
	DefaultFeedURL    = "http://0.0.0.0:8000/atom.xml"
	placeholderAuthor = "User %s"
)

// Metadata is the feed-level input to the assembler.
type Metadata struct {
	FeedURL     string
	MemberID    string
	DisplayName string // optional override for the author name
	// FallbackAuthor is the author of the first fetched record, before
	// filtering. It keeps the feed title stable when filters drop everything.
	FallbackAuthor string
}

type Assembler struct {
	now func() time.Time
}

func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

func (a *Assembler) Run(entries []Entry, metadata Metadata) *Feed {
	name := cmp.Or(metadata.DisplayName, metadata.FallbackAuthor)
	if name == "" && len(entries) > 0 {
		name = entries[0].Author
	}
	name = cmp.Or(name, fmt.Sprintf(placeholderAuthor, metadata.MemberID))

	space := fmt.Sprintf(SpaceURLTemplate, metadata.MemberID)

	feed := &Feed{
		ID:    metadata.FeedURL,
		Title: fmt.Sprintf("%s's Bilibili feed", name),
		Author: Author{
			Name: name,
			URI:  space + "/",
		},
		SelfLink:      metadata.FeedURL,
		AlternateLink: space,
		Entries:       append([]Entry(nil), entries...),
	}

	if len(entries) == 0 {
		feed.UpdatedAt = a.now().UTC()
		return feed
	}

	for _, entry := range entries {
		if entry.PublishedAt.After(feed.UpdatedAt) {
			feed.UpdatedAt = entry.PublishedAt
		}
	}
	feed.UpdatedAt = feed.UpdatedAt.UTC()

	return feed
}
