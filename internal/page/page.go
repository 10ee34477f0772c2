// Package page loads remote HTML into goquery documents and resolves the
// links found in them.
package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/brogergvhs/noveld/internal/fetch"
)

// HTMLFetcher is the part of fetch.Fetcher the DOM-level components need.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, proxy, target string, timeout time.Duration) (string, error)
}

// Load fetches target through proxy and parses it.
func Load(ctx context.Context, f HTMLFetcher, proxy, target string, timeout time.Duration) (*goquery.Document, error) {
	body, err := f.FetchHTML(ctx, proxy, target, timeout)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// Parse reads a full HTML document.
func Parse(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fetch.ParseError("Failed to parse HTML: %v", err)
	}
	return doc, nil
}

// ParseFragment parses markup as the children of a <div>, the way a
// browser treats innerHTML. The returned document's root is that div.
func ParseFragment(markup string) (*goquery.Document, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return nil, fetch.ParseError("Failed to parse HTML fragment: %v", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	return goquery.NewDocumentFromNode(root), nil
}

// ResolveURL makes href absolute against baseURL.
func ResolveURL(baseURL, href string) string {
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}

// UsableHref reports whether href points somewhere worth following.
func UsableHref(href string) bool {
	h := strings.TrimSpace(strings.ToLower(href))
	return h != "" && h != "#" && !strings.HasPrefix(h, "javascript:")
}

// CompileSelector validates a selector group before it is used for
// extraction, so typos surface as errors instead of empty results.
func CompileSelector(sel string) (cascadia.SelectorGroup, error) {
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fetch.ParseError("Invalid selector %q: %v", sel, err)
	}
	return g, nil
}

// NodeName is the lower-case tag of the first node in s.
func NodeName(s *goquery.Selection) string {
	return goquery.NodeName(s)
}

// Value extracts the human-readable value of s: meta content, image
// source or trimmed text.
func Value(s *goquery.Selection) string {
	switch NodeName(s) {
	case "meta":
		v, _ := s.Attr("content")
		return strings.TrimSpace(v)
	case "img":
		if v, ok := s.Attr("src"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		v, _ := s.Attr("data-src")
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(s.Text())
	}
}

// Describe summarises a document for debug logs.
func Describe(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return fmt.Sprintf("%q (%d anchors)", title, doc.Find("a").Length())
}
