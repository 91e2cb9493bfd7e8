// Package feed turns a FeedConfig and its items into serialized RSS, Atom or JSON Feed documents.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-rss/internal/domain"
	"github.com/Adda-Baaj/khobor-rss/pkg/urls"
	"github.com/google/uuid"
	"github.com/gorilla/feeds"
)

// Format names an output serialization.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// ParseFormat maps a request value to a Format; empty means RSS.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatRSS, nil
	case FormatRSS, FormatAtom, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported feed format %q", s)
	}
}

// ContentType returns the response media type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatAtom:
		return "application/atom+xml; charset=utf-8"
	case FormatJSON:
		return "application/feed+json; charset=utf-8"
	default:
		return "application/rss+xml; charset=utf-8"
	}
}

// NewConfig derives feed metadata for sourceURL, titled after the page or, when the
// page has no <title>, after its host.
func NewConfig(pageTitle, sourceURL string) domain.FeedConfig {
	title := strings.TrimSpace(pageTitle)
	if title == "" {
		host := urls.Hostname(sourceURL)
		if host == "" {
			host = sourceURL
		}
		title = "Feed for " + host
	}
	return domain.FeedConfig{
		ID:          sourceURL,
		Title:       title,
		Description: "Items scraped from " + sourceURL,
		Link:        sourceURL,
	}
}

// Builder serializes feeds. It holds no per-request state.
type Builder struct {
	now   func() time.Time
	newID func() string
}

// NewBuilder returns a Builder stamping feeds with now (time.Now when nil).
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now, newID: uuid.NewString}
}

// Build serializes cfg and items in format, keeping item order.
func (b *Builder) Build(cfg domain.FeedConfig, items []domain.ItemRecord, format Format) (string, error) {
	now := b.now().UTC()
	f := &feeds.Feed{
		Id:          cfg.ID,
		Title:       cfg.Title,
		Link:        &feeds.Link{Href: cfg.Link},
		Description: cfg.Description,
		Updated:     now,
		Created:     now,
		Items:       make([]*feeds.Item, 0, len(items)),
	}
	for _, rec := range items {
		f.Items = append(f.Items, &feeds.Item{
			Id:          rec.ID,
			Title:       rec.Title,
			Link:        &feeds.Link{Href: rec.Link},
			Description: rec.Description,
			Created:     rec.PublishedAt,
		})
	}

	var (
		out string
		err error
	)
	switch format {
	case FormatAtom:
		out, err = f.ToAtom()
	case FormatJSON:
		out, err = f.ToJSON()
	default:
		out, err = f.ToRss()
	}
	if err != nil {
		return "", fmt.Errorf("serialize %s feed: %w", format, err)
	}
	return out, nil
}

// ErrorFeed returns the metadata and single synthetic item describing a failed
// request. selfLink must be an absolute URL.
func (b *Builder) ErrorFeed(title, message, selfLink string) (domain.FeedConfig, []domain.ItemRecord) {
	cfg := domain.FeedConfig{
		ID:          selfLink,
		Title:       title,
		Description: message,
		Link:        selfLink,
	}
	item := domain.ItemRecord{
		ID:          "urn:uuid:" + b.newID(),
		Title:       title,
		Link:        selfLink,
		Description: message,
		PublishedAt: b.now().UTC(),
	}
	return cfg, []domain.ItemRecord{item}
}
