// Package packaging writes downloaded chapters out as a single EPUB or
// plain text file.
package packaging

import (
	"fmt"
	"strings"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/cover"
)

type Metadata struct {
	Title        string
	Author       string
	Synopsis     string
	Publisher    string
	Genres       []string
	Language     string
	IncludeTitle bool
}

// Book is everything a Packager needs. Chapters are successful ones only,
// in reading order.
type Book struct {
	Metadata
	Chapters []chapters.Chapter
	Cover    *cover.Image
}

// NewBook keeps the chapters that downloaded successfully and sorts them
// by order. img may be nil.
func NewBook(cfg *config.Config, chs []chapters.Chapter, img *cover.Image) *Book {
	m := cfg.Metadata
	b := &Book{
		Metadata: Metadata{
			Title:        strings.TrimSpace(m.Title),
			Author:       strings.TrimSpace(m.Author),
			Synopsis:     strings.TrimSpace(m.Synopsis),
			Publisher:    strings.TrimSpace(m.Publisher),
			Genres:       m.GenreList(),
			Language:     m.Language,
			IncludeTitle: m.IncludeTitleInContent,
		},
		Cover: img,
	}
	if b.Title == "" {
		b.Title = "Untitled"
	}
	if b.Language == "" {
		b.Language = "en"
	}

	for _, ch := range chs {
		if ch.Status == chapters.StatusSuccess {
			b.Chapters = append(b.Chapters, ch)
		}
	}
	chapters.SortByOrder(b.Chapters)

	return b
}

// Packager renders a Book to path.
type Packager interface {
	Ext() string
	Write(b *Book, path string) error
}

// For returns the packager for a config format.
func For(format string) (Packager, error) {
	switch format {
	case config.FormatEPUB:
		return EPUBWriter{}, nil
	case config.FormatTXT:
		return TXTWriter{}, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
