package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-rss/internal/dom"
	"github.com/Adda-Baaj/khobor-rss/internal/domain"
)

const noDescription = "No description available"

var magnetPattern = regexp.MustCompile(`(?i)^magnet:\?xt=urn:btih:[0-9a-z]+`)

// timestampLayouts are tried in order; values without a zone are read as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
}

// TableConfig describes row-based listings such as torrent indexes. The title
// cell index and the time cell picking are site heuristics, not guarantees.
type TableConfig struct {
	RowSelector         string `json:"row_selector" yaml:"row_selector"`
	TitleCell           int    `json:"title_cell" yaml:"title_cell"`
	TitleAnchorSelector string `json:"title_anchor_selector" yaml:"title_anchor_selector"`
	TimeCellSelector    string `json:"time_cell_selector" yaml:"time_cell_selector"`
}

// DefaultTableConfig targets a generic table: second cell is the title, centered
// cells hold size/date/seeders.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		RowSelector:         "tr",
		TitleCell:           2,
		TitleAnchorSelector: "a:not(.comments)",
		TimeCellSelector:    "td.text-center",
	}
}

// WithDefaults fills empty fields from DefaultTableConfig. TitleCell is a
// 1-based cell position; zero or negative means the default.
func (c TableConfig) WithDefaults() TableConfig {
	def := DefaultTableConfig()
	if strings.TrimSpace(c.RowSelector) == "" {
		c.RowSelector = def.RowSelector
	}
	if c.TitleCell <= 0 {
		c.TitleCell = def.TitleCell
	}
	if strings.TrimSpace(c.TitleAnchorSelector) == "" {
		c.TitleAnchorSelector = def.TitleAnchorSelector
	}
	if strings.TrimSpace(c.TimeCellSelector) == "" {
		c.TimeCellSelector = def.TimeCellSelector
	}
	return c
}

// Validate checks every selector parses.
func (c TableConfig) Validate() error {
	for _, sel := range []string{c.RowSelector, c.TitleAnchorSelector, c.TimeCellSelector} {
		if err := dom.ValidateSelector(sel); err != nil {
			return err
		}
	}
	return nil
}

// TableStrategy extracts one item per listing row carrying a magnet link.
type TableStrategy struct {
	cfg TableConfig
	now func() time.Time
}

// NewTableStrategy builds the row-based strategy.
func NewTableStrategy(cfg TableConfig, now func() time.Time) *TableStrategy {
	return &TableStrategy{cfg: cfg.WithDefaults(), now: nowOrDefault(now)}
}

func (t *TableStrategy) Name() string { return StrategyTable }

// Config returns the effective selectors.
func (t *TableStrategy) Config() TableConfig { return t.cfg }

func (t *TableStrategy) Walk(doc *dom.Document, _ int, emit func(domain.ItemRecord) bool) int {
	skipped := 0
	for _, row := range dom.SelectAll(doc, t.cfg.RowSelector) {
		rec, ok := t.build(row)
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

func (t *TableStrategy) build(row dom.Element) (domain.ItemRecord, bool) {
	magnet := findMagnet(row)
	if magnet == "" {
		return domain.ItemRecord{}, false
	}

	title := t.title(row)
	if title == "" {
		return domain.ItemRecord{}, false
	}

	raw := t.timestampText(row)
	description := noDescription
	if raw != "" {
		description = "Published: " + raw
	}

	return domain.ItemRecord{
		ID:          magnet,
		Title:       title,
		Link:        magnet,
		Description: description,
		PublishedAt: ParseTimestamp(raw, t.now()),
	}, true
}

func findMagnet(row dom.Element) string {
	for _, a := range dom.SelectAll(row, "a[href]") {
		href, _ := dom.Attr(a, "href")
		href = strings.TrimSpace(href)
		if magnetPattern.MatchString(href) {
			return href
		}
	}
	return ""
}

// title reads the configured cell: its first non-empty anchor text, else the cell text.
func (t *TableStrategy) title(row dom.Element) string {
	cells := dom.SelectAll(row, "td")
	if t.cfg.TitleCell > len(cells) {
		return ""
	}
	cell := cells[t.cfg.TitleCell-1]
	for _, a := range dom.SelectAll(cell, t.cfg.TitleAnchorSelector) {
		if text := dom.Text(a); text != "" {
			return text
		}
	}
	return dom.Text(cell)
}

// timestampText picks the 4th centered cell, or the 3rd when only three exist.
func (t *TableStrategy) timestampText(row dom.Element) string {
	cells := dom.SelectAll(row, t.cfg.TimeCellSelector)
	switch {
	case len(cells) >= 4:
		return dom.Text(cells[3])
	case len(cells) >= 3:
		return dom.Text(cells[2])
	default:
		return ""
	}
}

// ParseTimestamp parses s in one of the listing layouts and returns it in UTC.
// Empty or unparsable input yields fallback.
func ParseTimestamp(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback.UTC()
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC()
		}
	}
	return fallback.UTC()
}
