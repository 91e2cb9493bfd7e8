package domain

import "time"

// FeedConfig is the feed-level metadata derived once per request.
type FeedConfig struct {
	ID          string
	Title       string
	Description string
	Link        string
}

// ItemRecord is one normalized listing entry. ID and Link are absolute URLs or
// magnet URIs and Title is never empty once a record is accepted.
type ItemRecord struct {
	ID          string
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}
