// Package toc turns a table of contents, HTML or JSON, possibly spread
// over several pages, into an ordered and deduplicated chapter list.
package toc

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/page"
	"github.com/brogergvhs/noveld/internal/util"
)

const untitled = "Untitled Chapter"

type Fetcher interface {
	page.HTMLFetcher
	FetchJSON(ctx context.Context, proxy, target string, timeout time.Duration) (any, error)
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type Result struct {
	Chapters []chapters.Stub
	Details  Details
	Pages    int
}

type Resolver struct {
	fetcher Fetcher
	log     Logger
	sleep   func(context.Context, time.Duration) error
}

func NewResolver(f Fetcher, log Logger) *Resolver {
	return &Resolver{fetcher: f, log: log, sleep: util.Sleep}
}

// Resolve produces the chapter list for cfg.Source. Any failure here is
// fatal for the run.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.ValidateTOC(); err != nil {
		return nil, err
	}

	var (
		res   Result
		found []chapters.Stub
		err   error
	)

	if cfg.Source.Type == config.SourceJSON {
		found, res.Pages, err = r.fromJSON(ctx, cfg)
	} else {
		found, res.Pages, res.Details, err = r.fromHTML(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	res.Chapters, err = Finalize(found)
	if err != nil {
		return nil, err
	}

	r.log.Debugf("Resolved %d chapters from %d TOC page(s)", len(res.Chapters), res.Pages)
	return &res, nil
}

func (r *Resolver) fromHTML(ctx context.Context, cfg *config.Config) ([]chapters.Stub, int, Details, error) {
	sel := cfg.TOC.LinkSelector
	if _, err := page.CompileSelector(sel); err != nil {
		return nil, 0, Details{}, err
	}

	tocURL := cfg.Source.TOCURL
	doc, err := page.Load(ctx, r.fetcher, cfg.Network.ProxyURL, tocURL, cfg.Network.Timeout)
	if err != nil {
		return nil, 0, Details{}, err
	}
	r.log.Debugf("TOC page %s: %s", tocURL, page.Describe(doc))

	details := ParseDetails(doc, tocURL, cfg.Metadata)

	if !cfg.TOC.Paginated {
		found := ParseLinks(doc, tocURL, sel)
		if len(found) == 0 {
			return nil, 1, details, fetch.ParseError("No chapter links found on %s using selector %q", tocURL, sel)
		}
		return found, 1, details, nil
	}

	if _, err := page.CompileSelector(cfg.TOC.NextPageSelector); err != nil {
		return nil, 0, details, err
	}

	var all []chapters.Stub
	visited := mapset.NewThreadUnsafeSet(tocURL)
	current := tocURL
	pages := 0

	for {
		pages++
		all = append(all, ParseLinks(doc, current, sel)...)

		next := nextHref(doc, current, cfg.TOC.NextPageSelector)
		if next == "" || visited.Contains(next) {
			break
		}

		if err := r.sleep(ctx, cfg.Network.RequestDelay); err != nil {
			return nil, pages, details, err
		}
		visited.Add(next)

		r.log.Debugf("Fetching TOC page %d: %s", pages+1, next)
		doc, err = page.Load(ctx, r.fetcher, cfg.Network.ProxyURL, next, cfg.Network.Timeout)
		if err != nil {
			return nil, pages, details, err
		}
		current = next
	}

	return all, pages, details, nil
}

func (r *Resolver) fromJSON(ctx context.Context, cfg *config.Config) ([]chapters.Stub, int, error) {
	t := cfg.TOC
	var all []chapters.Stub
	visited := mapset.NewThreadUnsafeSet[string]()
	current := cfg.Source.TOCURL
	pages := 0

	for current != "" {
		if pages > 0 {
			if err := r.sleep(ctx, cfg.Network.RequestDelay); err != nil {
				return nil, pages, err
			}
		}
		visited.Add(current)

		data, err := r.fetcher.FetchJSON(ctx, cfg.Network.ProxyURL, current, cfg.Network.Timeout)
		if err != nil {
			return nil, pages, err
		}
		pages++

		raw, _ := Lookup(data, t.JSONListPath)
		items, ok := raw.([]any)
		if !ok {
			return nil, pages, fetch.ParseError("JSON path %q on %s did not resolve to an array", t.JSONListPath, current)
		}

		for i, item := range items {
			title, okTitle := LookupString(item, t.JSONTitlePath)
			link, okURL := LookupString(item, t.JSONURLPath)
			if !okTitle || !okURL {
				r.log.Warnf("Skipping item %d on %s: missing string at %q or %q", i, current, t.JSONTitlePath, t.JSONURLPath)
				continue
			}
			all = append(all, chapters.Stub{
				Title: titleOrUntitled(title),
				URL:   page.ResolveURL(current, link),
			})
		}

		next := ""
		if t.JSONNextPath != "" {
			if s, ok := LookupString(data, t.JSONNextPath); ok && strings.TrimSpace(s) != "" {
				next = page.ResolveURL(current, s)
			}
		}
		if next != "" && visited.Contains(next) {
			r.log.Debugf("JSON next page %s already visited, stopping", next)
			next = ""
		}
		current = next
	}

	return all, pages, nil
}

// ParseLinks extracts chapter links matched by selector on one page. Hrefs
// are resolved against pageURL and repeated URLs keep their first title.
func ParseLinks(doc *goquery.Document, pageURL, selector string) []chapters.Stub {
	var out []chapters.Stub
	seen := map[string]bool{}

	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !page.UsableHref(href) {
			return
		}

		u := page.ResolveURL(pageURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		out = append(out, chapters.Stub{
			Title: titleOrUntitled(a.Text()),
			URL:   u,
		})
	})

	return out
}

// Finalize dedupes found by URL keeping the first occurrence and assigns
// the dense order and ids.
func Finalize(found []chapters.Stub) ([]chapters.Stub, error) {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(found))
	unique := make([]chapters.Stub, 0, len(found))

	for _, s := range found {
		if !seen.Add(s.URL) {
			continue
		}
		unique = append(unique, s)
	}

	if len(unique) == 0 {
		return nil, fetch.ParseError("No chapters found. Check the TOC selectors or JSON paths")
	}

	return chapters.Renumber(unique), nil
}

func nextHref(doc *goquery.Document, pageURL, selector string) string {
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok || !page.UsableHref(href) {
		return ""
	}
	return page.ResolveURL(pageURL, href)
}

func titleOrUntitled(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return untitled
	}
	return s
}
