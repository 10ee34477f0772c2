package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// GenerateSelector builds a selector for the first node of s: the id when
// there is one, else tag and classes, else a child step under the parent's
// selector.
func GenerateSelector(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return generate(s.Get(0))
}

func generate(n *html.Node) string {
	if id := attrOf(n, "id"); id != "" {
		if plainIdent.MatchString(id) {
			return "#" + id
		}
		return fmt.Sprintf(`%s[id=%q]`, n.Data, id)
	}

	sel := n.Data
	if classes := usableClasses(attrOf(n, "class")); len(classes) > 0 {
		return sel + "." + strings.Join(classes, ".")
	}

	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return sel
	}

	same, index := 0, 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		same++
		if c == n {
			index = same
		}
	}

	if same > 1 {
		return fmt.Sprintf("%s > %s:nth-of-type(%d)", generate(parent), sel, index)
	}
	return generate(parent) + " > " + sel
}

func usableClasses(attr string) []string {
	var out []string
	for _, c := range strings.Fields(attr) {
		// drops pseudo-like and digit-leading utility classes
		if plainIdent.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
