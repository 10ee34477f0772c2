package selector

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/page"
)

var (
	ErrNoContainer = errors.New("could not reliably detect the main content container, please set it manually")
	ErrNoTOCLinks  = errors.New("could not reliably detect the chapter links container, please set it manually")
)

const (
	minTOCLinks      = 5
	minContentText   = 200
	minContentParas  = 2
	contentBoost     = 1.5
	noisePenalty     = 0.2
	noisyAncestors   = "nav, footer, .sidebar, #comments"
	contentCandidate = "div, article, section, main"
)

var (
	contentHint = regexp.MustCompile(`(?i)content|chapter|entry|reading|text|neirong|zhangjie`)
	noiseHint   = regexp.MustCompile(`(?i)comment|meta|sidebar|nav|ad|footer`)
	nextHint    = regexp.MustCompile(`(?i)next|»|下一页|下一章`)
)

// Detected is a best-effort guess. Empty fields were not detected.
type Detected struct {
	Title        string
	Author       string
	Cover        string
	Synopsis     string
	TOCLink      string
	Container    string
	ChapterTitle string
	NextPage     string
}

type Field struct {
	Key   string
	Value string
}

// Fields lists the detected selectors under their config keys.
func (d Detected) Fields() []Field {
	all := []Field{
		{"metadata.title_selector", d.Title},
		{"metadata.author_selector", d.Author},
		{"metadata.cover_selector", d.Cover},
		{"metadata.synopsis_selector", d.Synopsis},
		{"toc.link_selector", d.TOCLink},
		{"chapter.container_selector", d.Container},
		{"chapter.title_selector", d.ChapterTitle},
		{"chapter.next_page_selector", d.NextPage},
	}

	out := all[:0]
	for _, f := range all {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// Apply copies the detected selectors into cfg, leaving fields that were
// not detected untouched.
func (d Detected) Apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Metadata.TitleSelector, d.Title)
	set(&cfg.Metadata.AuthorSelector, d.Author)
	set(&cfg.Metadata.CoverSelector, d.Cover)
	set(&cfg.Metadata.SynopsisSelector, d.Synopsis)
	set(&cfg.TOC.LinkSelector, d.TOCLink)
	set(&cfg.Chapter.ContainerSelector, d.Container)
	set(&cfg.Chapter.TitleSelector, d.ChapterTitle)
	set(&cfg.Chapter.NextPageSelector, d.NextPage)
}

func firstOf(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return GenerateSelector(s)
		}
	}
	return ""
}

// DetectTOC guesses the novel details and the chapter link selector from
// a table of contents page.
func DetectTOC(doc *goquery.Document) Detected {
	d := Detected{
		Title:    firstOf(doc, "h1, .post-title, .entry-title", `meta[property="og:title"]`),
		Author:   firstOf(doc, `.author, .author-name, a[rel="author"], .zuozhe`),
		Cover:    firstOf(doc, "img.novel-cover, .cover img, #cover img", `meta[property="og:image"]`),
		Synopsis: firstOf(doc, ".synopsis, .description, .entry-content p, .jianjie", `meta[property="og:description"]`),
	}

	var best *goquery.Selection
	most := 0
	doc.Find("ul, ol, div").Each(func(_ int, s *goquery.Selection) {
		n := s.Find("a").Length()
		if n > most && n > minTOCLinks {
			most = n
			best = s
		}
	})
	if best != nil {
		d.TOCLink = GenerateSelector(best) + " a"
	}

	return d
}

// ContentScore rates s as a chapter body container. Candidates below the
// text or paragraph minimum score zero and report false.
func ContentScore(s *goquery.Selection) (float64, bool) {
	text := utf8.RuneCountInString(strings.TrimSpace(s.Text()))
	paras := s.Find("p").Length()
	if text < minContentText || paras < minContentParas {
		return 0, false
	}

	links := s.Find("a").Length()
	score := float64(paras*25) + float64(text)/100 - float64(links*5)

	id, _ := s.Attr("id")
	class, _ := s.Attr("class")
	hint := class + " " + id
	if contentHint.MatchString(hint) {
		score *= contentBoost
	}
	if noiseHint.MatchString(hint) {
		score *= noisePenalty
	}

	return score, true
}

// DetectChapter guesses the content container, chapter title and next
// page link of a chapter page.
func DetectChapter(doc *goquery.Document) Detected {
	var (
		d    Detected
		best *goquery.Selection
		top  = -1.0
	)

	doc.Find("body").Find(contentCandidate).Each(func(_ int, s *goquery.Selection) {
		if s.Closest(noisyAncestors).Length() > 0 {
			return
		}
		score, ok := ContentScore(s)
		if ok && score > top {
			top = score
			best = s
		}
	})

	if best != nil {
		d.Container = GenerateSelector(best)

		title := best.Find("h1, h2, h3").First()
		if title.Length() == 0 {
			title = doc.Find("h1, h2, h3").First()
		}
		d.ChapterTitle = GenerateSelector(title)
	}

	next := doc.Find(`a[rel="next"], a.next-page, a.nav-next, a.next_page`).First()
	if next.Length() == 0 {
		next = doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return nextHint.MatchString(a.Text())
		}).First()
	}
	d.NextPage = GenerateSelector(next)

	return d
}

// Detector loads a TOC page and a chapter page and runs both detectors.
type Detector struct {
	fetcher page.HTMLFetcher
	proxy   string
	timeout time.Duration
}

func NewDetector(f page.HTMLFetcher, proxy string, timeout time.Duration) *Detector {
	return &Detector{fetcher: f, proxy: proxy, timeout: timeout}
}

// Detect fetches both pages concurrently. It fails when either page
// fails to load or when no content or link container was found.
func (d *Detector) Detect(ctx context.Context, tocURL, chapterURL string) (Detected, error) {
	var tocDoc, chapterDoc *goquery.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := page.Load(gctx, d.fetcher, d.proxy, tocURL, d.timeout)
		tocDoc = doc
		return err
	})
	g.Go(func() error {
		doc, err := page.Load(gctx, d.fetcher, d.proxy, chapterURL, d.timeout)
		chapterDoc = doc
		return err
	})
	if err := g.Wait(); err != nil {
		return Detected{}, err
	}

	found := DetectTOC(tocDoc)
	ch := DetectChapter(chapterDoc)
	found.Container = ch.Container
	found.ChapterTitle = ch.ChapterTitle
	found.NextPage = ch.NextPage

	if found.Container == "" {
		return found, ErrNoContainer
	}
	if found.TOCLink == "" {
		return found, ErrNoTOCLinks
	}
	return found, nil
}
