package packaging

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/brogergvhs/noveld/internal/page"
	"github.com/brogergvhs/noveld/internal/util"
)

const chapterRule = "\n\n---\n\n"

var (
	blankRuns   = regexp.MustCompile(`\n{3,}`)
	spaceAtEdge = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

var paragraphLike = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "pre": true, "hr": true,
}

type TXTWriter struct{}

func (TXTWriter) Ext() string { return ".txt" }

func (TXTWriter) Write(b *Book, path string) error {
	return util.WriteFileAtomic(path, []byte(RenderText(b)))
}

// RenderText renders the book as plain text: a metadata header, then each
// chapter separated by a rule.
func RenderText(b *Book) string {
	var sb strings.Builder

	header := []string{b.Title}
	if b.Author != "" {
		header = append(header, "by "+b.Author)
	}
	if b.Publisher != "" {
		header = append(header, "Publisher: "+b.Publisher)
	}
	if len(b.Genres) > 0 {
		header = append(header, "Genres: "+strings.Join(b.Genres, ", "))
	}
	if b.Synopsis != "" {
		header = append(header, "", b.Synopsis)
	}
	sb.WriteString(strings.Join(header, "\n"))
	sb.WriteString(chapterRule)

	for _, ch := range b.Chapters {
		if b.IncludeTitle {
			sb.WriteString(ch.Title + "\n\n")
		}
		sb.WriteString(HTMLToText(ch.Content))
		sb.WriteString(chapterRule)
	}

	return sb.String()
}

// HTMLToText flattens chapter markup. Line breaks become newlines and
// block elements are separated by a blank line.
func HTMLToText(markup string) string {
	frag, err := page.ParseFragment(markup)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				sb.WriteString("\n")
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && paragraphLike[n.Data] {
			sb.WriteString("\n\n")
		}
	}
	for c := frag.Get(0).FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	text := strings.ReplaceAll(sb.String(), "\u00a0", " ")
	text = spaceAtEdge.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
