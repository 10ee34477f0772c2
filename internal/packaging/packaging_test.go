package packaging

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/cover"
)

func done(order int, title, content string) chapters.Chapter {
	return chapters.Chapter{
		Stub:    chapters.Stub{ID: chapters.ID(order), Title: title, URL: "https://s.example/" + title, Order: order},
		Content: content,
		Status:  chapters.StatusSuccess,
	}
}

func sampleBook(t *testing.T) *Book {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Metadata.Title = "Hidden Heir"
	cfg.Metadata.Author = "Jane Doe"
	cfg.Metadata.Publisher = "Night Press"
	cfg.Metadata.Genres = "Fantasy, Drama"
	cfg.Metadata.Synopsis = "An heir hides."
	cfg.Metadata.IncludeTitleInContent = true

	failed := done(2, "Two", "")
	failed.Status = chapters.StatusError

	return NewBook(cfg, []chapters.Chapter{
		done(3, "Three", "<p>c</p>"),
		failed,
		done(1, "One", "<p>a &amp; b</p><p>line<br/>break</p>"),
	}, nil)
}

func TestNewBook(t *testing.T) {
	b := sampleBook(t)

	require.Len(t, b.Chapters, 2)
	assert.Equal(t, "One", b.Chapters[0].Title)
	assert.Equal(t, "Three", b.Chapters[1].Title)
	assert.Equal(t, []string{"Fantasy", "Drama"}, b.Genres)
	assert.Equal(t, "en", b.Language)

	empty := NewBook(config.DefaultConfig(), nil, nil)
	assert.Equal(t, "Untitled", empty.Title)
}

func TestFor(t *testing.T) {
	p, err := For(config.FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, ".txt", p.Ext())

	p, err = For(config.FormatEPUB)
	require.NoError(t, err)
	assert.Equal(t, ".epub", p.Ext())

	_, err = For("pdf")
	assert.Error(t, err)
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<p>First  line<br/>second</p>
<div><p>Nested</p></div><p>a&#160;b</p><ul><li>x</li><li>y</li></ul>`)
	assert.Equal(t, "First  line\nsecond\n\nNested\n\na b\n\nx\n\ny", got)
}

func TestRenderText(t *testing.T) {
	want := strings.Join([]string{
		"Hidden Heir",
		"by Jane Doe",
		"Publisher: Night Press",
		"Genres: Fantasy, Drama",
		"",
		"An heir hides.",
		"",
		"---",
		"",
		"One",
		"",
		"a & b",
		"",
		"line",
		"break",
		"",
		"---",
		"",
		"Three",
		"",
		"c",
		"",
		"---",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, RenderText(sampleBook(t)))
}

func TestTXTWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.txt")
	require.NoError(t, TXTWriter{}.Write(sampleBook(t), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Hidden Heir\n"))

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestEPUBWriter(t *testing.T) {
	b := sampleBook(t)
	img, err := cover.DecodeDataURL("data:image/gif;base64,R0lGODlhAQABAAAAACw=")
	require.NoError(t, err)
	b.Cover = img

	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, EPUBWriter{}.Write(b, path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	var chapterOne string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if strings.HasSuffix(f.Name, "chapter-1.xhtml") {
			rc, err := f.Open()
			require.NoError(t, err)
			raw, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			chapterOne = string(raw)
		}
	}

	assert.Contains(t, strings.Join(names, " "), "info.xhtml")
	assert.Contains(t, strings.Join(names, " "), "cover.gif")
	assert.Contains(t, chapterOne, "<h1>One</h1>")
	assert.Contains(t, chapterOne, "a &amp; b")

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestEPUBWriterNeedsChapters(t *testing.T) {
	err := EPUBWriter{}.Write(NewBook(config.DefaultConfig(), nil, nil), filepath.Join(t.TempDir(), "x.epub"))
	assert.Error(t, err)
}
