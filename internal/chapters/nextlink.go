package chapters

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/noveld/internal/page"
)

// Anchors that commonly mark the next page of a split chapter.
const nextPageSelectors = `a[rel="next"], a.next-page, a.nav-next, a.next_page, a.next, ` +
	`.next-page a, .nav-next a, .next_page a`

var (
	nextPageText = regexp.MustCompile(`(?i)next\s*page|^\s*next\s*[›»>→]*\s*$|^\s*[›»>→]+\s*$|下一页|下页|continue reading`)
	chapterText  = regexp.MustCompile(`(?i)chapter|\bch\.|章|episode`)
)

// FindNextLink locates the link to the following page of the same chapter
// and returns it absolute, or "" when there is none. The configured
// selector wins; the heuristic is only consulted when it is enabled and the
// selector is empty or matches nothing usable.
//
// The heuristic rejects anchors whose text mentions a chapter, so
// "Next chapter" links are not taken for page links. It is tuned for
// English and Chinese sites.
func FindNextLink(doc *goquery.Document, pageURL, selector string, heuristic bool) string {
	if selector != "" {
		if href := hrefOf(doc.Find(selector).First()); href != "" {
			return page.ResolveURL(pageURL, href)
		}
	}
	if !heuristic {
		return ""
	}

	var found string
	doc.Find(nextPageSelectors).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if chapterText.MatchString(linkLabel(a)) {
			return true
		}
		found = hrefOf(a)
		return found == ""
	})
	if found != "" {
		return page.ResolveURL(pageURL, found)
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := linkLabel(a)
		if !nextPageText.MatchString(label) || chapterText.MatchString(label) {
			return true
		}
		found = hrefOf(a)
		return found == ""
	})
	if found != "" {
		return page.ResolveURL(pageURL, found)
	}

	return ""
}

// hrefOf returns a usable href of s itself or of its first descendant link.
func hrefOf(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if href, ok := s.Attr("href"); ok && page.UsableHref(href) {
		return strings.TrimSpace(href)
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok && page.UsableHref(href) {
		return strings.TrimSpace(href)
	}
	return ""
}

func linkLabel(a *goquery.Selection) string {
	label := strings.TrimSpace(a.Text())
	if title, ok := a.Attr("title"); ok {
		label += " " + title
	}
	if aria, ok := a.Attr("aria-label"); ok {
		label += " " + aria
	}
	return strings.TrimSpace(label)
}
