// Package fetch performs the single outbound page download of a feed request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Adda-Baaj/khobor-rss/pkg/httpclient"
)

const defaultMaxBodyBytes = 5 << 20

// FetchError reports a non-success HTTP status from the upstream page.
type FetchError struct {
	URL        string
	StatusCode int
	StatusText string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.StatusCode, e.StatusText)
}

// NetworkError reports a transport failure before any HTTP status was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Options tunes a Fetcher.
type Options struct {
	UserAgent    string
	MaxBodyBytes int64
}

// Fetcher downloads HTML pages through an httpclient.Client.
type Fetcher struct {
	client    httpclient.Client
	userAgent string
	maxBody   int64
}

// New builds a Fetcher. client must not be nil.
func New(client httpclient.Client, opts Options) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		client:    client,
		userAgent: strings.TrimSpace(opts.UserAgent),
		maxBody:   opts.MaxBodyBytes,
	}
}

// Headers returns the request headers sent with every fetch.
func (f *Fetcher) Headers() map[string]string {
	headers := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if f.userAgent != "" {
		headers["User-Agent"] = f.userAgent
	}
	return headers
}

// FetchHTML GETs pageURL and returns the body, truncated to the configured cap.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	if f == nil || f.client == nil {
		return nil, errors.New("fetcher is not initialized")
	}

	resp, err := f.client.Get(ctx, pageURL, f.Headers())
	if err != nil {
		return nil, &NetworkError{URL: pageURL, Err: err}
	}

	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, &FetchError{URL: pageURL, StatusCode: code, StatusText: statusText(resp)}
	}

	body := resp.Body()
	if int64(len(body)) > f.maxBody {
		body = body[:f.maxBody]
	}
	return body, nil
}

// statusText prefers the reason phrase sent by the server, e.g. "404 Not Found" -> "Not Found".
func statusText(resp httpclient.Response) string {
	code := resp.StatusCode()
	status := strings.TrimSpace(resp.Status())
	status = strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
	if status == "" {
		status = http.StatusText(code)
	}
	return status
}
