package publishers

import (
	"time"

	"github.com/Adda-Baaj/khobor-rss/internal/domain"
	"github.com/Adda-Baaj/khobor-rss/pkg/urls"
)

// Event announces a freshly generated feed to downstream consumers.
type Event struct {
	SourceURL   string      `json:"source_url"`
	SourceHost  string      `json:"source_host"`
	FeedTitle   string      `json:"feed_title"`
	Strategy    string      `json:"strategy"`
	ItemCount   int         `json:"item_count"`
	Items       []EventItem `json:"items"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// EventItem is the slice of an ItemRecord consumers need to act on it.
type EventItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// NewEvent constructs an Event for a feed generated at generatedAt.
func NewEvent(cfg domain.FeedConfig, strategy string, items []domain.ItemRecord, generatedAt time.Time) Event {
	out := make([]EventItem, 0, len(items))
	for _, it := range items {
		out = append(out, EventItem{
			ID:          it.ID,
			Title:       it.Title,
			Link:        it.Link,
			PublishedAt: it.PublishedAt,
		})
	}
	return Event{
		SourceURL:   cfg.Link,
		SourceHost:  urls.Hostname(cfg.Link),
		FeedTitle:   cfg.Title,
		Strategy:    strategy,
		ItemCount:   len(out),
		Items:       out,
		GeneratedAt: generatedAt.UTC(),
	}
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"source_host": e.SourceHost,
		"strategy":    e.Strategy,
	}
}
