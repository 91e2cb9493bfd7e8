package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/Adda-Baaj/khobor-rss/internal/logger"
	"github.com/Adda-Baaj/khobor-rss/pkg/httpclient"
)

const maxErrorBodyBytes = 512

// httpPublisher delivers each event as a JSON body to a webhook.
type httpPublisher struct {
	id       string
	method   string
	endpoint string
	client   *resty.Client
	log      logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = defaultHTTPMethod
	}

	client := httpclient.NewRestyHTTPClient(cfg.HTTP.timeout()).
		SetHeaders(cfg.HTTP.Headers).
		SetHeader("Content-Type", "application/json")

	return &httpPublisher{
		id:       cfg.ID,
		method:   method,
		endpoint: cfg.HTTP.URL,
		client:   client,
		log:      logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends evt and treats any non-2xx answer as a failed delivery.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(evt).
		Execute(h.method, h.endpoint)
	if err != nil {
		return fmt.Errorf("%s %s: %w", h.method, h.endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s: status %d: %s", h.method, h.endpoint, resp.StatusCode(), errorBody(resp.Body()))
	}

	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
		"items":        evt.ItemCount,
	})
	return nil
}

// errorBody trims a response body to a loggable size.
func errorBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(body))
}
