package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adda-Baaj/khobor-rss/internal/dom"
	"github.com/Adda-Baaj/khobor-rss/internal/domain"
	"github.com/Adda-Baaj/khobor-rss/pkg/urls"
)

const (
	minTitleRunes            = 3
	defaultDescriptionMaxLen = 300

	// NoContainers as ContainerSelector makes every page anchor a candidate.
	NoContainers = "none"
)

// Config holds the selectors of the generic heuristic strategy.
type Config struct {
	TitleSelector       string `json:"title_selector" yaml:"title_selector"`
	LinkSelector        string `json:"link_selector" yaml:"link_selector"`
	DescriptionSelector string `json:"description_selector" yaml:"description_selector"`
	ContainerSelector   string `json:"container_selector" yaml:"container_selector"`
	DescriptionMaxLen   int    `json:"description_max_len" yaml:"description_max_len"`
}

// DefaultConfig returns the selectors used when a caller configures none.
func DefaultConfig() Config {
	return Config{
		TitleSelector:       "h1, h2, h3, .title, .post-title",
		LinkSelector:        "a[href]",
		DescriptionSelector: "p, .excerpt, .summary",
		ContainerSelector:   ".post, .article, .entry, main .content",
		DescriptionMaxLen:   defaultDescriptionMaxLen,
	}
}

// WithDefaults fills empty fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.ContainerSelector) == "" {
		c.ContainerSelector = def.ContainerSelector
	}
	if strings.TrimSpace(c.TitleSelector) == "" {
		c.TitleSelector = def.TitleSelector
	}
	if strings.TrimSpace(c.LinkSelector) == "" {
		c.LinkSelector = def.LinkSelector
	}
	if strings.TrimSpace(c.DescriptionSelector) == "" {
		c.DescriptionSelector = def.DescriptionSelector
	}
	if c.DescriptionMaxLen <= 0 {
		c.DescriptionMaxLen = def.DescriptionMaxLen
	}
	return c
}

// Validate checks every selector parses.
func (c Config) Validate() error {
	for _, sel := range []string{c.TitleSelector, c.LinkSelector, c.DescriptionSelector, c.containers()} {
		if err := dom.ValidateSelector(sel); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) containers() string {
	sel := strings.TrimSpace(c.ContainerSelector)
	if strings.EqualFold(sel, NoContainers) {
		return ""
	}
	return sel
}

// candidate pairs an anchor with the element searched for its title and description.
type candidate struct {
	anchor  dom.Element
	context dom.Element
}

// GenericStrategy scrapes pages without a fixed structure: containers, then
// anchors, then nearby title and description elements.
type GenericStrategy struct {
	cfg Config
	now func() time.Time
}

// NewGenericStrategy builds the heuristic strategy. Empty selectors fall back to defaults.
func NewGenericStrategy(cfg Config, now func() time.Time) *GenericStrategy {
	return &GenericStrategy{cfg: cfg.WithDefaults(), now: nowOrDefault(now)}
}

func (g *GenericStrategy) Name() string { return StrategyGeneric }

// Config returns the effective selectors.
func (g *GenericStrategy) Config() Config { return g.cfg }

func (g *GenericStrategy) Walk(doc *dom.Document, limit int, emit func(domain.ItemRecord) bool) int {
	skipped := 0
	for _, c := range g.candidates(doc, limit) {
		rec, ok := g.build(doc, c)
		if !ok {
			skipped++
			continue
		}
		if !emit(rec) {
			break
		}
	}
	return skipped
}

// candidates lists (anchor, context) pairs in document order. At most 2*limit
// containers are considered; when none match, every anchor on the page is used
// with its parent as context.
func (g *GenericStrategy) candidates(doc *dom.Document, limit int) []candidate {
	if sel := g.cfg.containers(); sel != "" {
		containers := dom.SelectAll(doc, sel)
		if maxContainers := 2 * limit; len(containers) > maxContainers {
			containers = containers[:maxContainers]
		}
		var out []candidate
		for _, container := range containers {
			for _, a := range dom.SelectAll(container, g.cfg.LinkSelector) {
				out = append(out, candidate{anchor: a, context: container})
			}
		}
		if len(containers) > 0 {
			return out
		}
	}

	anchors := dom.SelectAll(doc, g.cfg.LinkSelector)
	out := make([]candidate, 0, len(anchors))
	for _, a := range anchors {
		ctx, ok := a.Parent()
		if !ok {
			ctx = a
		}
		out = append(out, candidate{anchor: a, context: ctx})
	}
	return out
}

func (g *GenericStrategy) build(doc *dom.Document, c candidate) (domain.ItemRecord, bool) {
	href, ok := dom.Attr(c.anchor, "href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return domain.ItemRecord{}, false
	}

	link := doc.ResolveURL(href)
	if !urls.IsValidLink(link) {
		return domain.ItemRecord{}, false
	}

	title := g.title(c)
	if title == "" {
		return domain.ItemRecord{}, false
	}

	return domain.ItemRecord{
		ID:          link,
		Title:       title,
		Link:        link,
		Description: g.description(c),
		PublishedAt: g.now().UTC(),
	}, true
}

// title prefers the anchor's own title attribute or text. Anything shorter than
// minTitleRunes is replaced by a title element found in the context, never the
// anchor itself; failing that the candidate has no title.
func (g *GenericStrategy) title(c candidate) string {
	attr, _ := dom.Attr(c.anchor, "title")
	title := firstNonEmpty(attr, dom.Text(c.anchor))
	if utf8.RuneCountInString(title) >= minTitleRunes {
		return title
	}

	if c.context.Same(c.anchor) {
		return ""
	}
	el, ok := dom.SelectOne(c.context, g.cfg.TitleSelector)
	if !ok || el.Same(c.anchor) {
		return ""
	}
	return dom.Text(el)
}

func (g *GenericStrategy) description(c candidate) string {
	if c.context.Same(c.anchor) {
		return ""
	}
	el, ok := dom.SelectOne(c.context, g.cfg.DescriptionSelector)
	if !ok {
		return ""
	}
	return truncateRunes(dom.Text(el), g.cfg.DescriptionMaxLen)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
