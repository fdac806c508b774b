package feed

import (
	"time"
)

// Feed processing types

// RawRecord is one upload as delivered by the API client, keyed by the
// canonical field names below.
type RawRecord map[string]any

const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldAuthor       = "author"
	FieldCreatedAt    = "created_at"
	FieldThumbnailURL = "thumbnail_url"
	FieldDescription  = "description"
	FieldDuration     = "duration"
)

type Entry struct {
	ID           string
	Title        string
	Author       string
	PublishedAt  time.Time
	ThumbnailURL string
	Description  string
	Duration     string // MM:SS as reported by the API
	Permalink    string // derived from ID
}

type Author struct {
	Name string
	URI  string
}

type Feed struct {
	ID            string // same as the feed URL
	Title         string
	Author        Author
	SelfLink      string
	AlternateLink string
	UpdatedAt     time.Time
	Entries       []Entry
}

// Configuration types

type Config struct {
	Name        string         // Derived from filename (without .yml extension)
	MemberID    string         `yaml:"member_id"`
	FeedURL     string         `yaml:"feed_url"`
	DisplayName string         `yaml:"display_name"`
	Output      string         `yaml:"output"` // empty means stdout
	Settings    ConfigSettings `yaml:"settings"`
	Filters     []string       `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Count           int  `yaml:"count"`
	ForceWrite      bool `yaml:"force_write"`
	AllowEmpty      bool `yaml:"allow_empty"`
}
