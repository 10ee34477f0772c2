package toc

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/page"
)

// Details is novel metadata scraped from the TOC page.
type Details struct {
	Title    string
	Author   string
	Synopsis string
	CoverURL string
}

// ParseDetails reads the metadata selectors from doc. Selectors that are
// empty, invalid or unmatched leave the field blank.
func ParseDetails(doc *goquery.Document, pageURL string, m config.Metadata) Details {
	d := Details{
		Title:    pick(doc, m.TitleSelector),
		Author:   pick(doc, m.AuthorSelector),
		Synopsis: pick(doc, m.SynopsisSelector),
	}

	if src := pick(doc, m.CoverSelector); src != "" && page.UsableHref(src) {
		d.CoverURL = page.ResolveURL(pageURL, src)
	}

	return d
}

func pick(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	if _, err := page.CompileSelector(selector); err != nil {
		return ""
	}
	return page.Value(doc.Find(selector).First())
}

// Apply fills blank metadata fields from d.
func (d Details) Apply(cfg *config.Config) {
	if cfg.Metadata.Title == "" {
		cfg.Metadata.Title = d.Title
	}
	if cfg.Metadata.Author == "" {
		cfg.Metadata.Author = d.Author
	}
	if cfg.Metadata.Synopsis == "" {
		cfg.Metadata.Synopsis = d.Synopsis
	}
	if cfg.Cover.URL == "" && cfg.Cover.Base64 == "" {
		cfg.Cover.URL = d.CoverURL
	}
}
