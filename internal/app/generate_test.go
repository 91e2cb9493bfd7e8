package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-rss/internal/config"
	"github.com/Adda-Baaj/khobor-rss/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-rss/pkg/profiles"
	"github.com/Adda-Baaj/khobor-rss/pkg/publishers"
)

var fixedNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type stubResponse struct {
	body   []byte
	code   int
	status string
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.code }
func (s stubResponse) Status() string  { return s.status }

type stubClient struct {
	pages map[string]string
	err   error
	calls int
}

func (s *stubClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	page, ok := s.pages[url]
	if !ok {
		return stubResponse{code: http.StatusNotFound, status: "404 Not Found"}, nil
	}
	return stubResponse{body: []byte(page), code: http.StatusOK, status: "200 OK"}, nil
}

type recordingPublisher struct {
	events []publishers.Event
	err    error
}

func (r *recordingPublisher) ID() string   { return "rec" }
func (r *recordingPublisher) Type() string { return "test" }
func (r *recordingPublisher) Publish(_ context.Context, evt publishers.Event) error {
	r.events = append(r.events, evt)
	return r.err
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:            "khobor-rss",
		PublicURL:          "http://localhost:8080",
		UserAgent:          config.DefaultUserAgent,
		FetchTimeout:       time.Second,
		MaxBodyBytes:       1 << 20,
		DefaultMaxItems:    20,
		MaxItemsLimit:      50,
		DefaultStrategy:    config.StrategyGeneric,
		DescriptionMaxLen:  300,
		CacheMaxAgeSeconds: 300,
	}
}

func newTestService(t *testing.T, client httpclient.Client, deps Dependencies) *Service {
	t.Helper()
	deps.Client = client
	deps.Now = func() time.Time { return fixedNow }
	svc, err := NewService(testConfig(), deps, nil)
	require.NoError(t, err)
	return svc
}

const blogPage = `<html><head><title>Example Blog</title></head><body>
<div class="post"><h2>First Story</h2><a href="/posts/1">Read more</a><p>First summary.</p></div>
<div class="post"><h2>Second Story</h2><a href="/posts/2">Hi</a><p>Second summary.</p></div>
<div class="post"><a href="javascript:void(0)">Broken link here</a></div>
</body></html>`

func torrentPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Tracker</title></head><body><table>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<tr class="default"><td>cat</td><td><a href="/view/%d">Release %d</a></td>
<td class="text-center"><a href="magnet:?xt=urn:btih:abc%d">m</a></td><td class="text-center">1 GiB</td>
<td class="text-center">2024-03-15 10:30:00</td></tr>`, i, i, i)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func parseFeed(t *testing.T, body string) *gofeed.Feed {
	t.Helper()
	f, err := gofeed.NewParser().ParseString(body)
	require.NoError(t, err)
	return f
}

func TestGenerateGenericFeed(t *testing.T) {
	client := &stubClient{pages: map[string]string{"https://blog.example.com/": blogPage}}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://blog.example.com/"})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "application/rss+xml; charset=utf-8", res.ContentType)
	assert.Equal(t, "generic", res.Strategy)

	f := parseFeed(t, res.Body)
	assert.Equal(t, "rss", f.FeedType)
	assert.Equal(t, "Example Blog", f.Title)
	require.Len(t, f.Items, 2)
	assert.Equal(t, "Read more", f.Items[0].Title)
	assert.Equal(t, "https://blog.example.com/posts/1", f.Items[0].Link)
	assert.Equal(t, "Second Story", f.Items[1].Title)
	assert.Equal(t, "Second summary.", f.Items[1].Description)
}

func TestGenerateTableStrategyCapsItems(t *testing.T) {
	client := &stubClient{pages: map[string]string{"https://tracker.example/": torrentPage(10)}}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{
		URL:      "https://tracker.example/",
		Strategy: "table",
		MaxItems: "3",
	})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, 3, res.ItemCount)

	f := parseFeed(t, res.Body)
	require.Len(t, f.Items, 3)
	assert.Equal(t, "Release 0", f.Items[0].Title)
	assert.Equal(t, "magnet:?xt=urn:btih:abc0", f.Items[0].Link)
	require.NotNil(t, f.Items[0].PublishedParsed)
	assert.True(t, f.Items[0].PublishedParsed.Equal(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)))
}

func TestGenerateEmptyFeedIsValid(t *testing.T) {
	client := &stubClient{pages: map[string]string{"https://empty.example/": `<html><body><p>nothing</p></body></html>`}}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://empty.example/"})
	require.True(t, res.OK())
	f := parseFeed(t, res.Body)
	assert.Equal(t, "Feed for empty.example", f.Title)
	assert.Empty(t, f.Items)
}

func TestGenerateInvalidURLSkipsFetch(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		t.Run(raw, func(t *testing.T) {
			client := &stubClient{}
			svc := newTestService(t, client, Dependencies{})

			res := svc.Generate(context.Background(), Request{URL: raw})
			assert.Equal(t, http.StatusBadRequest, res.Status)
			assert.ErrorIs(t, res.Err, ErrInvalidURL)
			assert.Zero(t, client.calls)

			f := parseFeed(t, res.Body)
			assert.Equal(t, "Invalid URL", f.Title)
			require.Len(t, f.Items, 1)
		})
	}
}

func TestGenerateUpstreamStatusBecomesProcessingError(t *testing.T) {
	svc := newTestService(t, &stubClient{pages: map[string]string{}}, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://gone.example/"})
	assert.Equal(t, http.StatusBadGateway, res.Status)
	require.Error(t, res.Err)

	f := parseFeed(t, res.Body)
	assert.Equal(t, "Processing Error", f.Title)
	require.Len(t, f.Items, 1)
	assert.Contains(t, f.Items[0].Description, "404")
	assert.Contains(t, f.Items[0].Description, "Not Found")
}

func TestGenerateUnreachableHost(t *testing.T) {
	client := &stubClient{err: errors.New("dial tcp: lookup nowhere.invalid: no such host")}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://nowhere.invalid/"})
	assert.Equal(t, http.StatusBadGateway, res.Status)
	f := parseFeed(t, res.Body)
	require.Len(t, f.Items, 1)
	assert.Contains(t, f.Items[0].Description, "no such host")
}

func TestGenerateTimeoutMapsToGatewayTimeout(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("get: %w", context.DeadlineExceeded)}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://slow.example/"})
	assert.Equal(t, http.StatusGatewayTimeout, res.Status)
}

func TestGenerateRejectsBadParameters(t *testing.T) {
	svc := newTestService(t, &stubClient{}, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://a.example/", Strategy: "magic"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.ErrorIs(t, res.Err, ErrInvalidStrategy)

	res = svc.Generate(context.Background(), Request{URL: "https://a.example/", Format: "csv"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.ErrorIs(t, res.Err, ErrInvalidFormat)
	assert.Equal(t, "application/rss+xml; charset=utf-8", res.ContentType)

	res = svc.Generate(context.Background(), Request{URL: "https://a.example/", Profile: "missing"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.ErrorIs(t, res.Err, ErrUnknownProfile)
	assert.Equal(t, "Unknown profile", parseFeed(t, res.Body).Title)
}

func TestGenerateAtomAndJSONFormats(t *testing.T) {
	client := &stubClient{pages: map[string]string{"https://blog.example.com/": blogPage}}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{URL: "https://blog.example.com/", Format: "atom"})
	require.True(t, res.OK())
	assert.Equal(t, "application/atom+xml; charset=utf-8", res.ContentType)
	assert.Equal(t, "atom", parseFeed(t, res.Body).FeedType)

	res = svc.Generate(context.Background(), Request{URL: "https://blog.example.com/", Format: "JSON"})
	require.True(t, res.OK())
	assert.Equal(t, "application/feed+json; charset=utf-8", res.ContentType)
	assert.Equal(t, "json", parseFeed(t, res.Body).FeedType)
}

func TestGenerateUsesProfileByHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - id: tracker
    strategy: table
    hosts: [tracker.example]
    max_items: 2
`), 0o644))
	reg, err := profiles.LoadRegistry(path)
	require.NoError(t, err)

	client := &stubClient{pages: map[string]string{"https://www.tracker.example/": torrentPage(5)}}
	svc := newTestService(t, client, Dependencies{Profiles: reg})

	res := svc.Generate(context.Background(), Request{URL: "https://www.tracker.example/"})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, "table", res.Strategy)
	assert.Equal(t, 2, res.ItemCount)

	res = svc.Generate(context.Background(), Request{URL: "https://www.tracker.example/", MaxItems: "4"})
	assert.Equal(t, 4, res.ItemCount)
}

func TestGeneratePublishesEvents(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("sink down")}
	client := &stubClient{pages: map[string]string{"https://blog.example.com/": blogPage}}
	svc := newTestService(t, client, Dependencies{
		Publishers: publishers.NewFanout([]publishers.Publisher{rec}),
	})

	res := svc.Generate(context.Background(), Request{URL: "https://blog.example.com/"})
	require.True(t, res.OK(), "publish failures must not change the response")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "blog.example.com", rec.events[0].SourceHost)
	assert.Equal(t, 2, rec.events[0].ItemCount)
	assert.True(t, rec.events[0].GeneratedAt.Equal(fixedNow), "GeneratedAt = %v", rec.events[0].GeneratedAt)

	svc.Generate(context.Background(), Request{URL: "https://gone.example/"})
	assert.Len(t, rec.events, 1, "error feeds are not announced")
}

func TestGenerateZeroMaxItemsGivesEmptyFeed(t *testing.T) {
	client := &stubClient{pages: map[string]string{"https://tracker.example/": torrentPage(30)}}
	svc := newTestService(t, client, Dependencies{})

	res := svc.Generate(context.Background(), Request{
		URL:      "https://tracker.example/",
		Strategy: "table",
		MaxItems: "0",
	})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Zero(t, res.ItemCount)

	f := parseFeed(t, res.Body)
	assert.Equal(t, "Tracker", f.Title)
	assert.Empty(t, f.Items)
}

func TestGenerateProfileFollowsConfiguredDescriptionLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - id: blog
    hosts: [b.example]
`), 0o644))
	reg, err := profiles.LoadRegistry(path)
	require.NoError(t, err)

	long := strings.Repeat("x", 250)
	page := `<html><body><div class="post"><a href="/a">Long story</a><p>` + long + `</p></div></body></html>`
	client := &stubClient{pages: map[string]string{
		"https://b.example/": page,
		"https://c.example/": page,
	}}

	cfg := testConfig()
	cfg.DescriptionMaxLen = 50
	svc, err := NewService(cfg, Dependencies{
		Client:   client,
		Profiles: reg,
		Now:      func() time.Time { return fixedNow },
	}, nil)
	require.NoError(t, err)

	for _, u := range []string{"https://b.example/", "https://c.example/"} {
		res := svc.Generate(context.Background(), Request{URL: u})
		require.True(t, res.OK(), "unexpected error for %s: %v", u, res.Err)
		f := parseFeed(t, res.Body)
		require.Len(t, f.Items, 1)
		assert.Len(t, f.Items[0].Description, 50, "url=%s", u)
	}
}

func TestParseMaxItems(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"abc", 20},
		{"0", 0},
		{"-4", 20},
		{" 7 ", 7},
		{"500", 50},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseMaxItems(tc.raw, 20, 50), "raw=%q", tc.raw)
	}
}
