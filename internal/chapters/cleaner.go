package chapters

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/page"
)

// Cleaned is the cleaner output. Title is empty unless a title selector is
// configured and matched on the first page.
type Cleaned struct {
	Content string
	Title   string
}

var (
	nbsp    = strings.NewReplacer("&nbsp;", "&#160;", "\u00a0", "&#160;")
	voidTag = regexp.MustCompile(`(?i)<(br|hr|img|input|link|meta)\b([^>]*)>`)
)

// Clean removes unwanted elements and phrases from stitched chapter
// markup and makes the result XHTML friendly.
func Clean(content string, firstPage *goquery.Document, cfg *config.Config) (Cleaned, error) {
	var out Cleaned

	if sel := cfg.Chapter.TitleSelector; sel != "" && firstPage != nil {
		if _, err := page.CompileSelector(sel); err != nil {
			return out, err
		}
		out.Title = strings.TrimSpace(firstPage.Find(sel).First().Text())
	}

	frag, err := page.ParseFragment(content)
	if err != nil {
		return out, err
	}

	if sel := cfg.Cleanup.ElementsToRemove; sel != "" {
		if _, err := page.CompileSelector(sel); err != nil {
			return out, err
		}
		frag.Find(sel).Remove()
	}

	markup, err := frag.Selection.Html()
	if err != nil {
		return out, err
	}

	markup = RemovePhrases(markup, renderedPhrases(cfg.Cleanup.TextToRemove))
	markup = nbsp.Replace(markup)
	markup = CloseVoidElements(markup)

	out.Content = strings.TrimSpace(markup)
	return out, nil
}

// RemovePhrases deletes every literal occurrence of each phrase. Removal
// repeats until nothing matches, so a second pass is always a no-op.
func RemovePhrases(s string, phrases []string) string {
	var res []*regexp.Regexp
	for _, p := range phrases {
		if p == "" {
			continue
		}
		res = append(res, regexp.MustCompile(regexp.QuoteMeta(p)))
	}

	for changed := len(res) > 0; changed; {
		changed = false
		for _, re := range res {
			if next := re.ReplaceAllLiteralString(s, ""); next != s {
				s = next
				changed = true
			}
		}
	}

	return s
}

// renderedPhrases adds the escaped form of each phrase. The renderer
// writes quotes, apostrophes and ampersands in text as entities, so a
// phrase typed as plain text would otherwise never match.
func renderedPhrases(phrases []string) []string {
	out := make([]string, 0, 2*len(phrases))
	for _, p := range phrases {
		out = append(out, p)
		if esc := html.EscapeString(p); esc != p {
			out = append(out, esc)
		}
	}
	return out
}

// CloseVoidElements rewrites <br>, <img ...> and friends to self-closing
// form. Tags that are already self-closed are left alone.
func CloseVoidElements(s string) string {
	return voidTag.ReplaceAllStringFunc(s, func(m string) string {
		sub := voidTag.FindStringSubmatch(m)
		attrs := sub[2]
		if strings.HasSuffix(attrs, "/") {
			return m
		}
		return "<" + strings.ToLower(sub[1]) + attrs + " />"
	})
}
