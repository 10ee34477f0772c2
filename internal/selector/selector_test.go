package selector

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/page"
)

type mapFetcher map[string]string

func (m mapFetcher) FetchHTML(_ context.Context, _, target string, _ time.Duration) (string, error) {
	if body, ok := m[target]; ok {
		return body, nil
	}
	return "", &fetch.FetchError{Kind: fetch.KindNotFound, Status: 404, Message: "not found"}
}

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := page.Parse(body)
	require.NoError(t, err)
	return doc
}

const toc = `<html><head>
<meta property="og:title" content="Hidden Heir">
<meta property="og:image" content="/img/cover.jpg">
</head><body>
<header><a href="/">Home</a><a href="/about">About</a></header>
<div class="info"><span class="author">Jane Doe</span><p class="description">A story.</p></div>
<ul class="chapter-list">
<li><a href="/c/1">Chapter 1</a></li>
<li><a href="/c/2">Chapter 2</a></li>
<li><a href="/c/3">Chapter 3</a></li>
<li><a href="/c/4">Chapter 4</a></li>
<li><a href="/c/5">Chapter 5</a></li>
<li><a href="/c/6">Chapter 6</a></li>
<li><a href="">  </a></li>
</ul>
</body></html>`

func TestEvaluateMultiAttribute(t *testing.T) {
	doc := mustDoc(t, toc)

	res, err := Evaluate(doc, "https://s.example/novel/", Query{
		Selector: "ul.chapter-list a", ReturnType: ReturnAttribute, Attribute: "href", Multi: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Multi)
	assert.Len(t, res.Values, 6)
	assert.Equal(t, "https://s.example/c/1", res.Values[0])
}

func TestEvaluateMultiText(t *testing.T) {
	res, err := Evaluate(mustDoc(t, toc), "https://s.example/", Query{
		Selector: "ul.chapter-list a", ReturnType: ReturnText, Multi: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Chapter 6", res.Values[5])
	assert.Len(t, res.Values, 6)
}

func TestEvaluateSingle(t *testing.T) {
	doc := mustDoc(t, toc)

	res, err := Evaluate(doc, "https://s.example/", Query{Selector: ".author", ReturnType: ReturnText})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.String())

	res, err = Evaluate(doc, "https://s.example/", Query{Selector: ".info", ReturnType: ReturnHTML})
	require.NoError(t, err)
	assert.Equal(t, `<span class="author">Jane Doe</span><p class="description">A story.</p>`, res.String())

	res, err = Evaluate(doc, "https://s.example/x/", Query{
		Selector: `meta[property="og:image"]`, ReturnType: ReturnAttribute, Attribute: "content",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://s.example/img/cover.jpg", res.String())
}

func TestEvaluateFailures(t *testing.T) {
	doc := mustDoc(t, toc)

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"empty selector", Query{ReturnType: ReturnText}, "Selector is empty"},
		{"invalid selector", Query{Selector: "ul[", ReturnType: ReturnText}, "Invalid selector"},
		{"no match", Query{Selector: ".missing", ReturnType: ReturnText}, "not found on the page"},
		{"empty single", Query{Selector: "ul.chapter-list li:last-child a", ReturnType: ReturnText}, "had no content"},
		{"missing attribute", Query{Selector: ".author", ReturnType: ReturnAttribute, Attribute: "href"}, "had no content"},
		{"multi html yields nothing", Query{Selector: "li", ReturnType: ReturnHTML, Multi: true}, "could not extract"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(doc, "https://s.example/", tt.q)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, fetch.KindParse, fetch.Classify(err).Kind)
		})
	}
}

func TestTesterFetchesPage(t *testing.T) {
	tester := NewTester(mapFetcher{"https://s.example/toc": toc}, "", time.Second)

	res, err := tester.Test(context.Background(), Query{URL: "https://s.example/toc", Selector: ".author", ReturnType: ReturnText})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.String())

	_, err = tester.Test(context.Background(), Query{URL: "https://s.example/gone", Selector: "a", ReturnType: ReturnText})
	assert.Equal(t, fetch.KindNotFound, fetch.Classify(err).Kind)
}

func TestQueryFor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.TOCURL = "https://s.example/toc"
	cfg.TOC.LinkSelector = "ul a"
	cfg.Chapter.ContainerSelector = "#content"

	q, err := QueryFor(cfg, "toc-link", "")
	require.NoError(t, err)
	assert.Equal(t, Query{URL: "https://s.example/toc", Selector: "ul a", ReturnType: ReturnAttribute, Attribute: "href", Multi: true}, q)

	_, err = QueryFor(cfg, "container", "")
	assert.ErrorContains(t, err, "--chapter-url")

	q, err = QueryFor(cfg, "container", "https://s.example/c/1")
	require.NoError(t, err)
	assert.Equal(t, ReturnHTML, q.ReturnType)
	assert.Equal(t, "https://s.example/c/1", q.URL)

	_, err = QueryFor(cfg, "author", "")
	assert.ErrorContains(t, err, "empty")

	_, err = QueryFor(cfg, "bogus", "")
	assert.ErrorContains(t, err, "toc-link")
}

func TestGenerateSelector(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<div id="main"><p>a</p></div>
<div class="box 2col hover:red"><p>b</p></div>
<section><p>one</p><p>two</p></section>
<article><span>x</span></article>
<div id="9lives">z</div>
</body></html>`)

	tests := []struct {
		sel  string
		want string
	}{
		{"#main", "#main"},
		{".box", "div.box"},
		{"section p:last-child", "html > body > section > p:nth-of-type(2)"},
		{"article span", "html > body > article > span"},
		{`[id="9lives"]`, `div[id="9lives"]`},
	}

	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got := GenerateSelector(doc.Find(tt.sel))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, doc.Find(got).Length(), "generated selector must select exactly one node")
		})
	}

	assert.Empty(t, GenerateSelector(doc.Find(".missing")))
}

func TestDetectTOC(t *testing.T) {
	d := DetectTOC(mustDoc(t, toc))

	assert.Equal(t, "ul.chapter-list a", d.TOCLink)
	assert.Equal(t, "span.author", d.Author)
	assert.Equal(t, "p.description", d.Synopsis)
	assert.Equal(t, "html > head > meta:nth-of-type(1)", d.Title)
	assert.Equal(t, "html > head > meta:nth-of-type(2)", d.Cover)
}

func TestDetectTOCNeedsMoreThanFiveLinks(t *testing.T) {
	d := DetectTOC(mustDoc(t, `<html><body><h1 class="title">T</h1><ul>
<li><a href="1">1</a></li><li><a href="2">2</a></li><li><a href="3">3</a></li>
<li><a href="4">4</a></li><li><a href="5">5</a></li></ul></body></html>`))

	assert.Empty(t, d.TOCLink)
	assert.Equal(t, "h1.title", d.Title)
}

func paragraphs(n int) string {
	p := "<p>" + strings.Repeat("word ", 30) + "</p>"
	return strings.Repeat(p, n)
}

func chapterDoc() string {
	return fmt.Sprintf(`<html><body>
<nav><div class="menu">%s</div></nav>
<div id="sidebar-ads">%s</div>
<div class="chapter-content"><h2>Chapter 1</h2>%s</div>
<div class="comments">%s</div>
<a href="/c/1?page=2" class="next-page">Next</a>
</body></html>`, paragraphs(10), paragraphs(4), paragraphs(6), paragraphs(3))
}

func TestContentScore(t *testing.T) {
	doc := mustDoc(t, chapterDoc())

	_, ok := ContentScore(doc.Find("h2"))
	assert.False(t, ok)

	score, ok := ContentScore(doc.Find(".chapter-content"))
	require.True(t, ok)
	text := len([]rune(strings.TrimSpace(doc.Find(".chapter-content").Text())))
	assert.InDelta(t, (6*25+float64(text)/100)*1.5, score, 0.001)
}

func TestDetectChapter(t *testing.T) {
	d := DetectChapter(mustDoc(t, chapterDoc()))

	assert.Equal(t, "div.chapter-content", d.Container)
	assert.Equal(t, "div.chapter-content > h2", d.ChapterTitle)
	assert.Equal(t, "a.next-page", d.NextPage)
}

func TestDetectChapterNextByText(t *testing.T) {
	d := DetectChapter(mustDoc(t, `<html><body><div class="text">`+paragraphs(3)+`</div>
<div class="pager"><a href="/p">Prev</a><a href="/n">下一页</a></div></body></html>`))

	assert.Equal(t, "div.text", d.Container)
	assert.Equal(t, "div.pager > a:nth-of-type(2)", d.NextPage)
	assert.Empty(t, d.ChapterTitle)
}

func TestDetectorDetect(t *testing.T) {
	f := mapFetcher{
		"https://s.example/toc": toc,
		"https://s.example/c/1": chapterDoc(),
	}

	got, err := NewDetector(f, "", time.Second).Detect(context.Background(), "https://s.example/toc", "https://s.example/c/1")
	require.NoError(t, err)
	assert.Equal(t, "ul.chapter-list a", got.TOCLink)
	assert.Equal(t, "div.chapter-content", got.Container)

	cfg := config.DefaultConfig()
	cfg.Chapter.TitleSelector = "keep-me"
	got.ChapterTitle = ""
	got.Apply(cfg)
	assert.Equal(t, "ul.chapter-list a", cfg.TOC.LinkSelector)
	assert.Equal(t, "keep-me", cfg.Chapter.TitleSelector)

	keys := make([]string, 0)
	for _, f := range got.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "chapter.container_selector")
	assert.NotContains(t, keys, "chapter.title_selector")
}

func TestDetectorFailures(t *testing.T) {
	f := mapFetcher{
		"https://s.example/toc":   `<html><body><p>nothing</p></body></html>`,
		"https://s.example/c/1":   chapterDoc(),
		"https://s.example/empty": `<html><body><p>short</p></body></html>`,
	}
	d := NewDetector(f, "", time.Second)

	_, err := d.Detect(context.Background(), "https://s.example/toc", "https://s.example/c/1")
	assert.ErrorIs(t, err, ErrNoTOCLinks)

	_, err = d.Detect(context.Background(), "https://s.example/toc", "https://s.example/empty")
	assert.ErrorIs(t, err, ErrNoContainer)

	_, err = d.Detect(context.Background(), "https://s.example/toc", "https://s.example/missing")
	assert.Equal(t, fetch.KindNotFound, fetch.Classify(err).Kind)
}
