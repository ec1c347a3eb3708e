package domain

import "time"

// FeedSource is an immutable entry of the source registry.
type FeedSource struct {
	Name        string
	URL         string
	Category    string
	Reliability int
	Timeout     time.Duration
}

// RawEntry is the feed-format-specific record produced by one parse of one
// feed. It exists only inside a single fetch cycle and is discarded after
// normalization.
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Content     string
	Published   string
	ImageURL    string
}

// Article is the canonical persisted representation of one feed entry.
// URL is the natural key: at most one row per URL.
type Article struct {
	ID           string
	Title        string
	Content      string
	URL          string
	Source       string
	PublishedAt  time.Time
	FetchedAt    time.Time
	ContentHash  string
	IsProcessed  bool
	IsWarRelated bool
}
