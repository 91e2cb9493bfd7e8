package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/khobor-rss/internal/config"
	"github.com/Adda-Baaj/khobor-rss/internal/feed"
	"github.com/Adda-Baaj/khobor-rss/internal/fetch"
	"github.com/Adda-Baaj/khobor-rss/internal/logger"
	"github.com/Adda-Baaj/khobor-rss/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-rss/pkg/profiles"
	"github.com/Adda-Baaj/khobor-rss/pkg/publishers"
)

// htmlFetcher is the slice of the fetch adapter the service depends on.
type htmlFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) ([]byte, error)
}

// Dependencies are the collaborators a Service runs with. Zero fields get
// production defaults.
type Dependencies struct {
	Client     httpclient.Client
	Profiles   *profiles.Registry
	Publishers *publishers.Fanout
	Now        func() time.Time
}

// Service turns scrape requests into serialized feeds. It keeps no per-request
// state and is safe for concurrent use.
type Service struct {
	cfg      *config.Config
	fetcher  htmlFetcher
	profiles *profiles.Registry
	fanout   *publishers.Fanout
	builder  *feed.Builder
	now      func() time.Time
	log      logger.Logger
}

// New builds a service from config files: the profile registry, the publisher
// registry and a resty-backed fetcher.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	profileReg, err := profiles.LoadRegistry(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles registry: %w", err)
	}
	profileList := profileReg.All()
	profileIDs := make([]string, 0, len(profileList))
	for _, p := range profileList {
		profileIDs = append(profileIDs, p.ID)
	}
	log.InfoObj("profiles registry loaded", "profiles_meta", map[string]any{
		"count": len(profileIDs),
		"ids":   profileIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultBuilders(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	return NewService(cfg, Dependencies{
		Client:     httpclient.NewRestyClient(cfg.FetchTimeout),
		Profiles:   profileReg,
		Publishers: publishers.NewFanout(pubClients),
	}, log)
}

// NewService wires a service from explicit dependencies.
func NewService(cfg *config.Config, deps Dependencies, log logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	client := deps.Client
	if client == nil {
		client = httpclient.NewRestyClient(cfg.FetchTimeout)
	}
	reg := deps.Profiles
	if reg == nil {
		reg = profiles.Empty()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		cfg: cfg,
		fetcher: fetch.New(client, fetch.Options{
			UserAgent:    cfg.UserAgent,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
		profiles: reg,
		fanout:   deps.Publishers,
		builder:  feed.NewBuilder(now),
		now:      now,
		log:      logger.Ensure(log),
	}, nil
}

// Close releases publisher connections.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.fanout.Close()
}

// publish announces a generated feed. Failures are logged and never reach the caller.
func (s *Service) publish(ctx context.Context, evt publishers.Event) {
	if s.fanout.Size() == 0 {
		return
	}
	delivered, err := s.fanout.Publish(ctx, evt)
	if err != nil {
		s.log.WarnObj("feed event publish failed", "publish_error", map[string]any{
			"source_url": evt.SourceURL,
			"delivered":  delivered,
			"error":      err.Error(),
		})
		return
	}
	s.log.DebugObj("feed event published", "publish_meta", map[string]any{
		"source_url": evt.SourceURL,
		"delivered":  delivered,
	})
}

// isTimeout reports whether err came from a deadline rather than a refusal.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
