package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "noveld")
}

func TestLoadMergedWithoutProfileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, used, err := LoadMerged(Options{TOCURL: "https://site.example/toc", ConcurrentDownloads: 3})
	require.NoError(t, err)

	assert.Contains(t, used, "default config in memory")
	assert.Equal(t, "https://site.example/toc", cfg.Source.TOCURL)
	assert.Equal(t, 3, cfg.Network.ConcurrentDownloads)
	assert.Equal(t, 20, cfg.Network.MaxPagesPerChapter)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.True(t, cfg.Chapter.NextPageHeuristic)
}

func TestLoadMergedReadsActiveProfile(t *testing.T) {
	root := isolate(t)

	path, err := InitDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "configs", "Default.yaml"), path)

	raw := []byte(`
source:
  type: json
  toc_url: https://api.example/chapters
toc:
  json_list_path: data.items
  json_title_path: t
  json_url_path: u
network:
  request_delay: 250ms
  retry_delay: 1s
  exponential_backoff: true
cleanup:
  text_to_remove: ["Read at example.com"]
`)
	require.NoError(t, os.WriteFile(path, raw, 0644))

	cfg, used, err := LoadMerged(Options{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, SourceJSON, cfg.Source.Type)
	assert.Equal(t, "data.items", cfg.TOC.JSONListPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Network.RequestDelay)
	assert.Equal(t, time.Second, cfg.Network.RetryDelay)
	assert.True(t, cfg.Network.ExponentialBackoff)
	assert.False(t, cfg.Network.ChapterCache)
	assert.Equal(t, []string{"Read at example.com"}, cfg.Cleanup.TextToRemove)

	// keys absent from the file keep their defaults
	assert.Equal(t, 2, cfg.Network.MaxRetries)
	assert.True(t, cfg.Chapter.NextPageHeuristic)
	require.NoError(t, cfg.ValidateTOC())
}

func TestSaveYAMLRoundTripsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")

	cfg := DefaultConfig()
	cfg.Network.RequestDelay = 1500 * time.Millisecond
	require.NoError(t, SaveYAML(cfg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "request_delay: 1.5s")

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, back.Network.RequestDelay)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateTOC())

	cfg.Source.TOCURL = "https://site.example/toc"
	assert.Error(t, cfg.ValidateTOC())

	cfg.TOC.LinkSelector = "ul.chapters a"
	assert.NoError(t, cfg.ValidateTOC())

	cfg.TOC.Paginated = true
	assert.Error(t, cfg.ValidateTOC())
	cfg.TOC.NextPageSelector = "a.next"
	assert.NoError(t, cfg.ValidateTOC())

	assert.Error(t, cfg.ValidateRun())
	cfg.Chapter.ContainerSelector = "#content"
	assert.NoError(t, cfg.ValidateRun())

	cfg.Format = "pdf"
	assert.Error(t, cfg.ValidateRun())

	cfg.Source.Type = "rss"
	assert.Error(t, cfg.ValidateTOC())
}

func TestGenreList(t *testing.T) {
	m := Metadata{Genres: " Fantasy, ,Adventure ,Slice of Life"}
	assert.Equal(t, []string{"Fantasy", "Adventure", "Slice of Life"}, m.GenreList())
	assert.Nil(t, Metadata{}.GenreList())
}

func TestProfileLifecycle(t *testing.T) {
	isolate(t)

	_, err := InitDefaultConfig()
	require.NoError(t, err)

	path, err := CreateEmptyConfig("royal")
	require.NoError(t, err)

	got, err := ConfigPathByLabel("royal")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	require.NoError(t, SwitchConfig("royal"))
	require.NoError(t, RenameConfig("royal", "rr"))

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "rr", label)

	infos, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Default", infos[0].Label)
	assert.True(t, infos[1].Active)

	require.NoError(t, RemoveConfig("rr"))
	label, err = CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "Default", label)

	_, err = ConfigPathByLabel("rr")
	assert.Error(t, err)
	assert.Error(t, RemoveConfig("Default"))
}

func TestProfileLabelsAreFileNames(t *testing.T) {
	isolate(t)

	for _, bad := range []string{"", "  ", "../escape", `a\b`, ".."} {
		_, err := CreateEmptyConfig(bad)
		assert.Error(t, err, "%q", bad)
	}

	_, err := CreateEmptyConfig("site")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("site")
	assert.ErrorContains(t, err, "already exists")

	_, err = ActiveConfigPath()
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestAddConfigCopiesFile(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "shared.yaml")
	cfg := DefaultConfig()
	cfg.TOC.LinkSelector = ".toc a"
	require.NoError(t, SaveYAML(cfg, src))

	require.NoError(t, AddConfig("shared", src))
	path, err := ConfigPathByLabel("shared")
	require.NoError(t, err)

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".toc a", got.TOC.LinkSelector)

	assert.Error(t, AddConfig("shared", src))
	assert.Error(t, AddConfig("other", filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestInitDefaultConfigTwice(t *testing.T) {
	isolate(t)

	path, err := InitDefaultConfig()
	require.NoError(t, err)

	again, err := InitDefaultConfig()
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, path, again)
}

func TestLoadMergedTitleTransform(t *testing.T) {
	isolate(t)

	cfg, _, err := LoadMerged(Options{TitleFind: `^Vol\. \d+ `})
	require.NoError(t, err)
	assert.Equal(t, `^Vol\. \d+ `, cfg.Chapter.TitleFind)
	assert.Equal(t, "", cfg.Chapter.TitleReplace)

	cfg, _, err = LoadMerged(Options{TitleReplace: "ignored without a pattern"})
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Chapter.TitleReplace)
}
