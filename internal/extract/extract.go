// Package extract turns a parsed page into ordered, capped ItemRecords.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-rss/internal/dom"
	"github.com/Adda-Baaj/khobor-rss/internal/domain"
)

const (
	StrategyGeneric = "generic"
	StrategyTable   = "table"
)

// Strategy walks a document and emits accepted records in document order. Walk
// stops as soon as emit returns false and reports how many candidates it rejected.
type Strategy interface {
	Name() string
	Walk(doc *dom.Document, limit int, emit func(domain.ItemRecord) bool) (skipped int)
}

// Result is the outcome of one extraction pass.
type Result struct {
	Strategy   string
	Items      []domain.ItemRecord
	Skipped    int
	Duplicates int
}

// Extract runs s over doc and keeps at most maxItems records, dropping any record
// whose ID was already emitted. Duplicates do not count against the cap.
func Extract(doc *dom.Document, s Strategy, maxItems int) Result {
	if s == nil {
		return Result{}
	}
	res := Result{Strategy: s.Name()}
	if doc == nil || maxItems <= 0 {
		return res
	}

	seen := make(map[string]struct{}, maxItems)
	res.Items = make([]domain.ItemRecord, 0, maxItems)
	res.Skipped = s.Walk(doc, maxItems, func(rec domain.ItemRecord) bool {
		if _, dup := seen[rec.ID]; dup {
			res.Duplicates++
			return true
		}
		seen[rec.ID] = struct{}{}
		res.Items = append(res.Items, rec)
		return len(res.Items) < maxItems
	})
	return res
}

// Options selects and parameterizes a strategy.
type Options struct {
	Strategy string
	Generic  Config
	Table    TableConfig
	Now      func() time.Time
}

// NewStrategy builds the strategy named by opts.Strategy.
func NewStrategy(opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Strategy)) {
	case "", StrategyGeneric:
		return NewGenericStrategy(opts.Generic, opts.Now), nil
	case StrategyTable:
		return NewTableStrategy(opts.Table, opts.Now), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", opts.Strategy)
	}
}

func nowOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
