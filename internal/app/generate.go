package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/khobor-rss/internal/dom"
	"github.com/Adda-Baaj/khobor-rss/internal/extract"
	"github.com/Adda-Baaj/khobor-rss/internal/feed"
	"github.com/Adda-Baaj/khobor-rss/internal/fetch"
	"github.com/Adda-Baaj/khobor-rss/pkg/profiles"
	"github.com/Adda-Baaj/khobor-rss/pkg/publishers"
	"github.com/Adda-Baaj/khobor-rss/pkg/urls"
)

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrInvalidFormat   = errors.New("invalid format")
)

const (
	titleInvalidURL      = "Invalid URL"
	titleUnknownProfile  = "Unknown profile"
	titleInvalidStrategy = "Invalid strategy"
	titleInvalidFormat   = "Invalid format"
	titleProcessingError = "Processing Error"
)

// Request carries the raw caller parameters; nothing in it is trusted.
type Request struct {
	URL      string
	MaxItems string
	Strategy string
	Profile  string
	Format   string
}

// Result is a ready-to-send response. Err is set when Body is an error feed.
type Result struct {
	Body        string
	ContentType string
	Status      int
	ItemCount   int
	Strategy    string
	Err         error
}

// OK reports whether the result carries scraped items rather than an error feed.
func (r Result) OK() bool { return r.Err == nil }

// plan is a request after parameter resolution.
type plan struct {
	url        string
	maxItems   int
	defaultMax int
	format     feed.Format
	opts       extract.Options
	profile    string
}

// Generate runs validate, fetch, parse, extract and build for req. Every failure
// is rendered as a single-item error feed; Generate itself never fails.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	start := s.now()
	format, formatErr := feed.ParseFormat(req.Format)
	if formatErr != nil {
		format = feed.FormatRSS
	}

	if !urls.IsValid(req.URL) {
		err := fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
		return s.failure(format, http.StatusBadRequest, titleInvalidURL,
			"The url parameter must be an absolute URL such as https://example.com/list.", s.cfg.PublicURL, err)
	}
	if formatErr != nil {
		err := fmt.Errorf("%w: %v", ErrInvalidFormat, formatErr)
		return s.failure(format, http.StatusBadRequest, titleInvalidFormat,
			"The format parameter must be one of rss, atom or json.", s.cfg.PublicURL, err)
	}

	p, status, title, err := s.resolve(req, format)
	if err != nil {
		return s.failure(format, status, title, err.Error(), s.cfg.PublicURL, err)
	}

	s.log.InfoObj("feed request started", "request", map[string]any{
		"url":       p.url,
		"max_items": p.maxItems,
		"strategy":  p.opts.Strategy,
		"profile":   p.profile,
		"format":    string(p.format),
	})

	res := s.run(ctx, p)
	s.log.InfoObj("feed request finished", "request_result", map[string]any{
		"url":        p.url,
		"status":     res.Status,
		"items":      res.ItemCount,
		"elapsed_ms": s.now().Sub(start).Milliseconds(),
	})
	return res
}

// resolve turns raw parameters into a plan. On failure it returns the status and
// error feed title to respond with.
func (s *Service) resolve(req Request, format feed.Format) (plan, int, string, error) {
	p := plan{
		url:        strings.TrimSpace(req.URL),
		format:     format,
		defaultMax: s.cfg.DefaultMaxItems,
		opts: extract.Options{
			Strategy: s.cfg.DefaultStrategy,
			Generic:  extract.Config{DescriptionMaxLen: s.cfg.DescriptionMaxLen},
		},
	}

	profileID := strings.TrimSpace(req.Profile)
	if profileID != "" {
		prof, ok := s.profiles.ByID(profileID)
		if !ok {
			return plan{}, http.StatusBadRequest, titleUnknownProfile, fmt.Errorf("%w: %q", ErrUnknownProfile, profileID)
		}
		p.applyProfile(prof, s.cfg.DescriptionMaxLen)
	} else if prof, ok := s.profiles.ForHost(urls.Hostname(p.url)); ok {
		p.applyProfile(prof, s.cfg.DescriptionMaxLen)
	}

	if strategy := strings.ToLower(strings.TrimSpace(req.Strategy)); strategy != "" {
		if strategy != extract.StrategyGeneric && strategy != extract.StrategyTable {
			return plan{}, http.StatusBadRequest, titleInvalidStrategy, fmt.Errorf("%w: %q (expected generic or table)", ErrInvalidStrategy, req.Strategy)
		}
		p.opts.Strategy = strategy
	}

	p.maxItems = ParseMaxItems(req.MaxItems, p.defaultMax, s.cfg.MaxItemsLimit)
	p.opts.Now = s.now
	return p, 0, "", nil
}

func (p *plan) applyProfile(prof profiles.Profile, descMax int) {
	p.profile = prof.ID
	p.opts = prof.Options()
	if prof.MaxItems > 0 {
		p.defaultMax = prof.MaxItems
	}
	if p.opts.Generic.DescriptionMaxLen <= 0 {
		p.opts.Generic.DescriptionMaxLen = descMax
	}
}

// run executes the pipeline for a resolved plan.
func (s *Service) run(ctx context.Context, p plan) Result {
	strategy, err := extract.NewStrategy(p.opts)
	if err != nil {
		return s.failure(p.format, http.StatusBadRequest, titleInvalidStrategy, err.Error(), s.cfg.PublicURL,
			fmt.Errorf("%w: %v", ErrInvalidStrategy, err))
	}

	body, err := s.fetcher.FetchHTML(ctx, p.url)
	if err != nil {
		s.log.WarnObj("fetch failed", "fetch_error", map[string]any{
			"url":   p.url,
			"error": err.Error(),
		})
		return s.failure(p.format, fetchStatus(err), titleProcessingError, processingMessage(p.url, err), p.url, err)
	}

	doc, err := dom.Parse(body, p.url)
	if err != nil {
		return s.failure(p.format, http.StatusInternalServerError, titleProcessingError, processingMessage(p.url, err), p.url, err)
	}

	res := extract.Extract(doc, strategy, p.maxItems)
	s.log.DebugObj("extraction finished", "extract_meta", map[string]any{
		"url":        p.url,
		"strategy":   res.Strategy,
		"accepted":   len(res.Items),
		"skipped":    res.Skipped,
		"duplicates": res.Duplicates,
		"max_items":  p.maxItems,
	})

	cfg := feed.NewConfig(doc.Title(), p.url)
	out, err := s.builder.Build(cfg, res.Items, p.format)
	if err != nil {
		s.log.ErrorObj("feed serialization failed", "error", err)
		return s.failure(p.format, http.StatusInternalServerError, titleProcessingError, processingMessage(p.url, err), p.url, err)
	}

	s.publish(ctx, publishers.NewEvent(cfg, res.Strategy, res.Items, s.now()))

	return Result{
		Body:        out,
		ContentType: p.format.ContentType(),
		Status:      http.StatusOK,
		ItemCount:   len(res.Items),
		Strategy:    res.Strategy,
	}
}

// failure renders an error feed. If even that cannot be serialized the body
// falls back to plain text.
func (s *Service) failure(format feed.Format, status int, title, message, link string, cause error) Result {
	if !urls.IsValid(link) {
		link = s.cfg.PublicURL
	}
	cfg, items := s.builder.ErrorFeed(title, message, link)
	out, err := s.builder.Build(cfg, items, format)
	if err != nil {
		s.log.ErrorObj("error feed serialization failed", "error", err)
		return Result{
			Body:        title + ": " + message,
			ContentType: "text/plain; charset=utf-8",
			Status:      http.StatusInternalServerError,
			Err:         errors.Join(cause, err),
		}
	}
	return Result{
		Body:        out,
		ContentType: format.ContentType(),
		Status:      status,
		ItemCount:   len(items),
		Err:         cause,
	}
}

// ParseMaxItems reads the max_items parameter. Missing, non-numeric and
// negative values give def; an explicit 0 asks for an empty feed; values
// above limit are clamped.
func ParseMaxItems(raw string, def, limit int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		n = def
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

func fetchStatus(err error) int {
	var fe *fetch.FetchError
	var ne *fetch.NetworkError
	switch {
	case isTimeout(err):
		return http.StatusGatewayTimeout
	case errors.As(err, &fe), errors.As(err, &ne):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func processingMessage(pageURL string, err error) string {
	return fmt.Sprintf("Failed to generate a feed for %s: %v", pageURL, err)
}
