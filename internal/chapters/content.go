package chapters

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/page"
	"github.com/brogergvhs/noveld/internal/util"
)

const DefaultMaxPages = 20

type Logger interface {
	Debugf(format string, args ...any)
}

// Page is the stitched result of all pages of one chapter.
type Page struct {
	Content   string
	FirstPage *goquery.Document
	Pages     int
}

type ContentResolver struct {
	fetcher page.HTMLFetcher
	log     Logger
	sleep   func(context.Context, time.Duration) error
}

func NewContentResolver(f page.HTMLFetcher, log Logger) *ContentResolver {
	return &ContentResolver{fetcher: f, log: log, sleep: util.Sleep}
}

// Resolve walks the pages of chapterURL and concatenates the inner markup
// of the content container from each. Pages are fetched one after another
// with the configured delay in between.
//
// Following stops when there is no next link, the link was already
// visited, the link is another chapter from known, or the page ceiling is
// reached.
func (r *ContentResolver) Resolve(ctx context.Context, chapterURL string, known mapset.Set[string], cfg *config.Config) (*Page, error) {
	if _, err := page.CompileSelector(cfg.Chapter.ContainerSelector); err != nil {
		return nil, err
	}

	maxPages := cfg.Network.MaxPagesPerChapter
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	visited := mapset.NewThreadUnsafeSet[string]()
	var (
		b         strings.Builder
		firstPage *goquery.Document
		pages     int
	)

	for current := chapterURL; current != ""; {
		if pages > 0 {
			if err := r.sleep(ctx, cfg.Network.RequestDelay); err != nil {
				return nil, err
			}
		}
		visited.Add(current)

		doc, err := page.Load(ctx, r.fetcher, cfg.Network.ProxyURL, current, cfg.Network.Timeout)
		if err != nil {
			return nil, err
		}
		pages++

		if firstPage == nil && hasBody(doc) {
			firstPage = doc
		}

		if inner, err := doc.Find(cfg.Chapter.ContainerSelector).First().Html(); err == nil {
			b.WriteString(inner)
		}

		next := FindNextLink(doc, current, cfg.Chapter.NextPageSelector, cfg.Chapter.NextPageHeuristic)
		switch {
		case next == "":
			current = ""
		case visited.Contains(next):
			r.log.Debugf("Next page %s already visited, stopping", next)
			current = ""
		case next != chapterURL && known != nil && known.Contains(next):
			r.log.Debugf("Next page %s is another chapter, stopping", next)
			current = ""
		case pages >= maxPages:
			r.log.Debugf("Reached %d pages for %s, stopping", maxPages, chapterURL)
			current = ""
		default:
			current = next
		}
	}

	if firstPage == nil {
		return nil, fetch.ParseError("Could not fetch or parse the first page of %s", chapterURL)
	}

	content := b.String()
	if strings.TrimSpace(content) == "" {
		return nil, fetch.ParseError("No content found for %s using container selector %q", chapterURL, cfg.Chapter.ContainerSelector)
	}

	return &Page{Content: content, FirstPage: firstPage, Pages: pages}, nil
}

func hasBody(doc *goquery.Document) bool {
	inner, err := doc.Find("body").Html()
	return err == nil && strings.TrimSpace(inner) != ""
}
