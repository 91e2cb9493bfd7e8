package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Adda-Baaj/khobor-rss/pkg/httpclient"
)

type stubResponse struct {
	body       []byte
	statusCode int
	status     string
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.statusCode }
func (s stubResponse) Status() string  { return s.status }

// stubClient records the last request headers and returns a canned response.
type stubClient struct {
	resp    httpclient.Response
	err     error
	headers map[string]string
	url     string
}

func (s *stubClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	s.url = url
	s.headers = headers
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestFetchHTMLSendsBrowserUserAgent(t *testing.T) {
	client := &stubClient{resp: stubResponse{body: []byte("<html></html>"), statusCode: 200, status: "200 OK"}}
	f := New(client, Options{UserAgent: "Mozilla/5.0 Test"})

	body, err := f.FetchHTML(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("FetchHTML: %v", err)
	}
	if string(body) != "<html></html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if client.headers["User-Agent"] != "Mozilla/5.0 Test" {
		t.Fatalf("User-Agent = %q", client.headers["User-Agent"])
	}
	if client.url != "https://example.com" {
		t.Fatalf("url = %q", client.url)
	}
}

func TestFetchHTMLNon2xxReturnsFetchError(t *testing.T) {
	client := &stubClient{resp: stubResponse{statusCode: http.StatusNotFound, status: "404 Not Found"}}
	_, err := New(client, Options{}).FetchHTML(context.Background(), "https://example.com/missing")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound || fe.StatusText != "Not Found" {
		t.Fatalf("unexpected fetch error %+v", fe)
	}
}

func TestFetchHTMLFallsBackToStandardStatusText(t *testing.T) {
	client := &stubClient{resp: stubResponse{statusCode: http.StatusServiceUnavailable}}
	_, err := New(client, Options{}).FetchHTML(context.Background(), "https://example.com")

	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusText != "Service Unavailable" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFetchHTMLTransportFailureReturnsNetworkError(t *testing.T) {
	cause := errors.New("dial tcp: no such host")
	_, err := New(&stubClient{err: cause}, Options{}).FetchHTML(context.Background(), "https://nowhere.invalid")

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
}

func TestFetchHTMLTruncatesBody(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 64)
	client := &stubClient{resp: stubResponse{body: body, statusCode: 200}}

	got, err := New(client, Options{MaxBodyBytes: 10}).FetchHTML(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("FetchHTML: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 bytes, got %d", len(got))
	}
}
