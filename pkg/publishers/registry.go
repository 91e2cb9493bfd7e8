package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/khobor-rss/internal/logger"
)

// Builder constructs the Publisher described by cfg.
type Builder func(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error)

// Builders maps a sink type to its constructor.
type Builders map[string]Builder

// DefaultBuilders returns constructors for every supported sink type.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
	}
}

// Build constructs the publisher for cfg.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type", cfg.ID)
	}
	build, ok := b[typ]
	if !ok {
		return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
	}
	return build(ctx, cfg, logger.Ensure(log))
}

// BuildAll constructs a publisher per config. If one fails, those already
// built are closed before the error is returned.
func BuildAll(ctx context.Context, builders Builders, cfgs []PublisherConfig, log logger.Logger) ([]Publisher, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := builders.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, NewFanout(pubs).Close())
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
