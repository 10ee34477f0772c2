package packaging

import (
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/go-shiori/go-epub"

	"github.com/brogergvhs/noveld/internal/util"
)

type EPUBWriter struct{}

func (EPUBWriter) Ext() string { return ".epub" }

func (EPUBWriter) Write(b *Book, path string) error {
	if len(b.Chapters) == 0 {
		return fmt.Errorf("no chapters to compile")
	}

	e, err := epub.NewEpub(b.Title)
	if err != nil {
		return fmt.Errorf("failed to create EPub: %w", err)
	}

	if b.Author != "" {
		e.SetAuthor(b.Author)
	}
	if b.Synopsis != "" {
		e.SetDescription(b.Synopsis)
	}
	e.SetLang(b.Language)

	if b.Cover != nil {
		internal, err := e.AddImage(b.Cover.DataURL(), "cover"+b.Cover.Ext())
		if err != nil {
			return fmt.Errorf("failed to add cover: %w", err)
		}
		e.SetCover(internal, "")
	}

	if info := infoSection(b); info != "" {
		if _, err := e.AddSection(info, "Information", "info.xhtml", ""); err != nil {
			return fmt.Errorf("failed to add info section: %w", err)
		}
	}

	for _, ch := range b.Chapters {
		body := ch.Content
		if b.IncludeTitle {
			body = "<h1>" + html.EscapeString(ch.Title) + "</h1>\n" + body
		}
		if _, err := e.AddSection(body, ch.Title, ch.ID+".xhtml", ""); err != nil {
			return fmt.Errorf("failed to add chapter %s: %w", ch.ID, err)
		}
	}

	partial := util.PartialPath(path)
	if err := e.Write(partial); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("failed to write EPub: %w", err)
	}
	return os.Rename(partial, path)
}

func infoSection(b *Book) string {
	var sb strings.Builder
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "<p><strong>%s:</strong> %s</p>\n", label, html.EscapeString(value))
		}
	}

	row("Author", b.Author)
	row("Publisher", b.Publisher)
	row("Genres", strings.Join(b.Genres, ", "))
	if b.Synopsis != "" {
		fmt.Fprintf(&sb, "<p>%s</p>\n", html.EscapeString(b.Synopsis))
	}

	if sb.Len() == 0 {
		return ""
	}
	return "<h1>" + html.EscapeString(b.Title) + "</h1>\n" + sb.String()
}
