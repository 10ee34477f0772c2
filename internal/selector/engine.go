// Package selector evaluates CSS selectors against live pages and guesses
// selectors for unknown sites.
package selector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/page"
)

type ReturnType string

const (
	ReturnText      ReturnType = "text"
	ReturnHTML      ReturnType = "html"
	ReturnAttribute ReturnType = "attribute"
)

// Query describes one selector test against URL.
type Query struct {
	URL        string
	Selector   string
	ReturnType ReturnType
	Attribute  string
	Multi      bool
}

// Result holds one value for single queries and every non-empty value for
// multi queries.
type Result struct {
	Values []string
	Multi  bool
}

func (r Result) String() string {
	if !r.Multi && len(r.Values) == 1 {
		return r.Values[0]
	}
	return strings.Join(r.Values, "\n")
}

// Evaluate runs q against an already parsed doc. Attribute values are
// resolved against pageURL.
func Evaluate(doc *goquery.Document, pageURL string, q Query) (Result, error) {
	if strings.TrimSpace(q.Selector) == "" {
		return Result{}, fetch.ParseError("Selector is empty.")
	}
	if _, err := page.CompileSelector(q.Selector); err != nil {
		return Result{}, err
	}

	found := doc.Find(q.Selector)
	if found.Length() == 0 {
		return Result{}, fetch.ParseError("Selector %q not found on the page.", q.Selector)
	}

	if q.Multi {
		var values []string
		found.Each(func(_ int, s *goquery.Selection) {
			var v string
			switch q.ReturnType {
			case ReturnText:
				v = strings.TrimSpace(s.Text())
			case ReturnAttribute:
				v = attr(s, pageURL, q.Attribute)
			}
			if v != "" {
				values = append(values, v)
			}
		})
		if len(values) == 0 {
			return Result{}, fetch.ParseError("Selector %q found elements, but could not extract the required content.", q.Selector)
		}
		return Result{Values: values, Multi: true}, nil
	}

	el := found.First()
	var v string
	switch q.ReturnType {
	case ReturnText:
		v = strings.TrimSpace(el.Text())
	case ReturnHTML:
		inner, err := el.Html()
		if err != nil {
			return Result{}, fetch.ParseError("Failed to render %q: %v", q.Selector, err)
		}
		v = strings.TrimSpace(inner)
	case ReturnAttribute:
		v = attr(el, pageURL, q.Attribute)
	default:
		return Result{}, fmt.Errorf("unknown return type %q", q.ReturnType)
	}

	if v == "" {
		return Result{}, fetch.ParseError("Selector %q found an element, but it had no content or the required attribute.", q.Selector)
	}
	return Result{Values: []string{v}}, nil
}

func attr(s *goquery.Selection, pageURL, name string) string {
	if name == "" {
		return ""
	}
	v, ok := s.Attr(name)
	if !ok || strings.TrimSpace(v) == "" {
		return ""
	}
	return page.ResolveURL(pageURL, v)
}

// Tester fetches pages for interactive selector checks. Nothing is cached
// or retried.
type Tester struct {
	fetcher page.HTMLFetcher
	proxy   string
	timeout time.Duration
}

func NewTester(f page.HTMLFetcher, proxy string, timeout time.Duration) *Tester {
	return &Tester{fetcher: f, proxy: proxy, timeout: timeout}
}

func (t *Tester) Test(ctx context.Context, q Query) (Result, error) {
	if q.URL == "" {
		return Result{}, fmt.Errorf("no page URL to test %q against", q.Selector)
	}

	doc, err := page.Load(ctx, t.fetcher, t.proxy, q.URL, t.timeout)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(doc, q.URL, q)
}

type preset struct {
	onChapter bool
	query     func(cfg *config.Config) Query
}

var presets = map[string]preset{
	"title": {query: func(c *config.Config) Query {
		return Query{Selector: c.Metadata.TitleSelector, ReturnType: ReturnText}
	}},
	"author": {query: func(c *config.Config) Query {
		return Query{Selector: c.Metadata.AuthorSelector, ReturnType: ReturnText}
	}},
	"synopsis": {query: func(c *config.Config) Query {
		return Query{Selector: c.Metadata.SynopsisSelector, ReturnType: ReturnText}
	}},
	"cover": {query: func(c *config.Config) Query {
		return Query{Selector: c.Metadata.CoverSelector, ReturnType: ReturnAttribute, Attribute: "src"}
	}},
	"toc-link": {query: func(c *config.Config) Query {
		return Query{Selector: c.TOC.LinkSelector, ReturnType: ReturnAttribute, Attribute: "href", Multi: true}
	}},
	"toc-next": {query: func(c *config.Config) Query {
		return Query{Selector: c.TOC.NextPageSelector, ReturnType: ReturnAttribute, Attribute: "href"}
	}},
	"chapter-title": {onChapter: true, query: func(c *config.Config) Query {
		return Query{Selector: c.Chapter.TitleSelector, ReturnType: ReturnText}
	}},
	"chapter-next": {onChapter: true, query: func(c *config.Config) Query {
		return Query{Selector: c.Chapter.NextPageSelector, ReturnType: ReturnAttribute, Attribute: "href"}
	}},
	"container": {onChapter: true, query: func(c *config.Config) Query {
		return Query{Selector: c.Chapter.ContainerSelector, ReturnType: ReturnHTML}
	}},
}

// Keys lists the configured selectors QueryFor understands.
func Keys() []string {
	keys := make([]string, 0, len(presets))
	for k := range presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QueryFor builds the test query for a named selector of cfg. TOC-page
// selectors run against the TOC URL and chapter selectors against
// chapterURL.
func QueryFor(cfg *config.Config, key, chapterURL string) (Query, error) {
	p, ok := presets[key]
	if !ok {
		return Query{}, fmt.Errorf("unknown selector %q (want one of %s)", key, strings.Join(Keys(), ", "))
	}

	q := p.query(cfg)
	if q.Selector == "" {
		return Query{}, fmt.Errorf("selector %q is empty in the active config", key)
	}

	if p.onChapter {
		if chapterURL == "" {
			return Query{}, fmt.Errorf("selector %q needs a first chapter URL (--chapter-url)", key)
		}
		q.URL = chapterURL
	} else {
		if cfg.Source.TOCURL == "" {
			return Query{}, fmt.Errorf("selector %q needs a TOC URL (--url or source.toc_url)", key)
		}
		q.URL = cfg.Source.TOCURL
	}

	return q, nil
}
