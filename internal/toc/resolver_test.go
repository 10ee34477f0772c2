package toc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/page"
)

type recLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recLogger) Debugf(string, ...any) {}

func (l *recLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

type fakeFetcher struct {
	mu    sync.Mutex
	html  map[string]string
	calls []string
}

func (f *fakeFetcher) FetchHTML(_ context.Context, _, target string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)

	if body, ok := f.html[target]; ok {
		return body, nil
	}
	return "", &fetch.FetchError{Kind: fetch.KindNotFound, Status: 404, Message: "not found"}
}

func (f *fakeFetcher) FetchJSON(context.Context, string, string, time.Duration) (any, error) {
	return nil, fetch.ParseError("no json here")
}

func newTestResolver(f Fetcher, log Logger) *Resolver {
	r := NewResolver(f, log)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func htmlConfig(tocURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.TOCURL = tocURL
	cfg.TOC.LinkSelector = "ul.chapters a"
	cfg.Network.RequestDelay = 0
	return cfg
}

func tocPage(next string, links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><meta property="og:title" content="Hidden Heir"></head><body><ul class="chapters">`)
	for _, l := range links {
		title, href, _ := strings.Cut(l, "|")
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, href, title)
	}
	b.WriteString(`</ul>`)
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">Next</a>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestFinalizeDedupesFirstSeen(t *testing.T) {
	got, err := Finalize([]chapters.Stub{
		{Title: "A", URL: "https://s.example/a"},
		{Title: "B", URL: "https://s.example/b"},
		{Title: "A again", URL: "https://s.example/a"},
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, chapters.Stub{ID: "chapter-1", Title: "A", URL: "https://s.example/a", Order: 1}, got[0])
	assert.Equal(t, chapters.Stub{ID: "chapter-2", Title: "B", URL: "https://s.example/b", Order: 2}, got[1])

	_, err = Finalize(nil)
	assert.Equal(t, fetch.KindParse, fetch.Classify(err).Kind)
}

func TestParseLinks(t *testing.T) {
	doc, err := page.Parse(tocPage("",
		"One|/c/1",
		"|c/2",
		"Skip|javascript:void(0)",
		"Dup|/c/1",
		"  Three\n  part |https://other.example/c/3",
	))
	require.NoError(t, err)

	got := ParseLinks(doc, "https://s.example/book/", "ul.chapters a")
	assert.Equal(t, []chapters.Stub{
		{Title: "One", URL: "https://s.example/c/1"},
		{Title: "Untitled Chapter", URL: "https://s.example/book/c/2"},
		{Title: "Three part", URL: "https://other.example/c/3"},
	}, got)
}

func TestResolveHTMLSinglePage(t *testing.T) {
	f := &fakeFetcher{html: map[string]string{
		"https://s.example/toc": tocPage("", "Ch 1|/c1", "Ch 2|/c2", "Ch 1|/c1"),
	}}
	cfg := htmlConfig("https://s.example/toc")
	cfg.Metadata.TitleSelector = `meta[property="og:title"]`

	res, err := newTestResolver(f, &recLogger{}).Resolve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Len(t, res.Chapters, 2)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "Hidden Heir", res.Details.Title)
}

func TestResolveHTMLNoLinksFails(t *testing.T) {
	f := &fakeFetcher{html: map[string]string{
		"https://s.example/toc": tocPage(""),
	}}

	_, err := newTestResolver(f, &recLogger{}).Resolve(context.Background(), htmlConfig("https://s.example/toc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No chapter links found")
}

func TestResolveHTMLPaginatedStopsOnCycle(t *testing.T) {
	f := &fakeFetcher{html: map[string]string{
		"https://s.example/toc":        tocPage("/toc?page=2", "Ch 1|/c1", "Ch 2|/c2"),
		"https://s.example/toc?page=2": tocPage("/toc?page=3", "Ch 2|/c2", "Ch 3|/c3"),
		"https://s.example/toc?page=3": tocPage("/toc", "Ch 4|/c4"),
	}}
	cfg := htmlConfig("https://s.example/toc")
	cfg.TOC.Paginated = true
	cfg.TOC.NextPageSelector = "a.next"

	res, err := newTestResolver(f, &recLogger{}).Resolve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Len(t, f.calls, 3)

	var urls []string
	for _, s := range res.Chapters {
		urls = append(urls, s.URL)
	}
	assert.Equal(t, []string{
		"https://s.example/c1",
		"https://s.example/c2",
		"https://s.example/c3",
		"https://s.example/c4",
	}, urls)
	assert.Equal(t, 4, res.Chapters[3].Order)
}

func TestResolveHTMLPaginatedCancelled(t *testing.T) {
	f := &fakeFetcher{html: map[string]string{
		"https://s.example/toc": tocPage("/toc?page=2", "Ch 1|/c1"),
	}}
	cfg := htmlConfig("https://s.example/toc")
	cfg.TOC.Paginated = true
	cfg.TOC.NextPageSelector = "a.next"
	cfg.Network.RequestDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(f, &recLogger{}).Resolve(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.calls, 1)
}

func jsonConfig(tocURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.Type = config.SourceJSON
	cfg.Source.TOCURL = tocURL
	cfg.TOC.JSONListPath = "items"
	cfg.TOC.JSONTitlePath = "t"
	cfg.TOC.JSONURLPath = "u"
	cfg.TOC.JSONNextPath = "next"
	cfg.Network.RequestDelay = 0
	return cfg
}

func TestResolveJSONEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"t":"Ch1","u":"/c1"},{"t":"Ch2","u":"/c2"}],"next":null}`)
	}))
	defer srv.Close()

	r := NewResolver(fetch.New(srv.Client(), &recLogger{}), &recLogger{})
	res, err := r.Resolve(context.Background(), jsonConfig(srv.URL+"/api/toc"))
	require.NoError(t, err)

	assert.Equal(t, []chapters.Stub{
		{ID: "chapter-1", Title: "Ch1", URL: srv.URL + "/c1", Order: 1},
		{ID: "chapter-2", Title: "Ch2", URL: srv.URL + "/c2", Order: 2},
	}, res.Chapters)
	assert.Equal(t, 1, res.Pages)
}

func TestResolveJSONPaginatesAndSkipsBadItems(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, `{"data":{"items":[{"t":"Ch1","u":"/c1"},{"t":7,"u":"/bad"},{"t":"No url"}]},"next":"?page=2"}`)
		case "2":
			fmt.Fprint(w, `{"data":{"items":[{"t":"Ch2","u":"c2"},{"t":"Ch1","u":"/c1"}]},"next":"/api/toc"}`)
		}
	}))
	defer srv.Close()

	cfg := jsonConfig(srv.URL + "/api/toc")
	cfg.TOC.JSONListPath = "data.items"

	log := &recLogger{}
	res, err := newTestResolver(fetch.New(srv.Client(), log), log).Resolve(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	require.Len(t, res.Chapters, 2)
	assert.Equal(t, srv.URL+"/c1", res.Chapters[0].URL)
	assert.Equal(t, srv.URL+"/api/c2", res.Chapters[1].URL)
	assert.Len(t, log.warns, 2)
}

func TestResolveJSONListPathNotArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":{"t":"x"}}`)
	}))
	defer srv.Close()

	_, err := NewResolver(fetch.New(srv.Client(), &recLogger{}), &recLogger{}).
		Resolve(context.Background(), jsonConfig(srv.URL))
	require.Error(t, err)
	assert.Equal(t, fetch.KindParse, fetch.Classify(err).Kind)
}

func TestTOCToCleanedChapter(t *testing.T) {
	f := &fakeFetcher{html: map[string]string{
		"https://s.example/toc": tocPage("", "First|/c1", "Second|/c2", "Third|/c3"),
		"https://s.example/c1": `<html><body><h2 class="ct">Chapter One: Dawn</h2>
<div id="content"><p>It began.</p><div class="ads">buy</div><p>Read at s.example</p><br></div>
<a class="next" href="/c2">Next chapter</a></body></html>`,
	}}
	cfg := htmlConfig("https://s.example/toc")
	cfg.Chapter.ContainerSelector = "#content"
	cfg.Chapter.TitleSelector = "h2.ct"
	cfg.Cleanup.TextToRemove = []string{"Read at s.example"}

	res, err := newTestResolver(f, &recLogger{}).Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Chapters, 3)

	cr := chapters.NewContentResolver(f, &recLogger{})
	p, err := cr.Resolve(context.Background(), res.Chapters[0].URL, chapters.URLSet(res.Chapters), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Pages)

	out, err := chapters.Clean(p.Content, p.FirstPage, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Chapter One: Dawn", out.Title)
	assert.Equal(t, "<p>It began.</p><p></p><br/>", out.Content)
}

func TestLookup(t *testing.T) {
	v := map[string]any{
		"data": map[string]any{
			"list": []any{map[string]any{"url": "/a"}, "x"},
		},
		"nil": nil,
	}

	got, ok := LookupString(v, "data.list.0.url")
	assert.True(t, ok)
	assert.Equal(t, "/a", got)

	_, ok = Lookup(v, "data.list.5")
	assert.False(t, ok)
	_, ok = Lookup(v, "nil")
	assert.False(t, ok)
	_, ok = Lookup(v, "")
	assert.False(t, ok)
	_, ok = LookupString(v, "data.list")
	assert.False(t, ok)
}

func TestDetailsApplyFillsBlanksOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metadata.Author = "Set By User"

	Details{Title: "T", Author: "Scraped", CoverURL: "https://s.example/c.jpg"}.Apply(cfg)

	assert.Equal(t, "T", cfg.Metadata.Title)
	assert.Equal(t, "Set By User", cfg.Metadata.Author)
	assert.Equal(t, "https://s.example/c.jpg", cfg.Cover.URL)
}
