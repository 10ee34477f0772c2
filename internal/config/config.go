package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceHTML = "html"
	SourceJSON = "json"

	FormatEPUB = "epub"
	FormatTXT  = "txt"

	CacheDuckDB = "duckdb"
	CacheMemory = "memory"
)

// Config is the per-run generation settings. Empty selector or path
// strings disable the feature they drive.
type Config struct {
	Output       string `yaml:"output"`
	Format       string `yaml:"format"`
	Debug        bool   `yaml:"debug"`
	CacheBackend string `yaml:"cache_backend"`
	CachePath    string `yaml:"cache_path"`
	DefaultRange string `yaml:"default_range"`
	DefaultList  string `yaml:"default_list"`

	Network  Network  `yaml:"network"`
	Source   Source   `yaml:"source"`
	TOC      TOC      `yaml:"toc"`
	Chapter  Chapter  `yaml:"chapter"`
	Cleanup  Cleanup  `yaml:"cleanup"`
	Metadata Metadata `yaml:"metadata"`
	Cover    Cover    `yaml:"cover"`
}

type Network struct {
	ProxyURL            string        `yaml:"proxy_url"`
	RequestDelay        time.Duration `yaml:"request_delay"`
	Timeout             time.Duration `yaml:"timeout"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads"`
	MaxRetries          int           `yaml:"max_retries"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	ExponentialBackoff  bool          `yaml:"exponential_backoff"`
	MaxPagesPerChapter  int           `yaml:"max_pages_per_chapter"`
	ChapterCache        bool          `yaml:"chapter_cache"`
	CloudflareBypass    bool          `yaml:"cloudflare_bypass"`
	UserAgent           string        `yaml:"user_agent"`
	Cookie              string        `yaml:"cookie"`
	CookieFile          string        `yaml:"cookie_file"`
}

type Source struct {
	Type   string `yaml:"type"`
	TOCURL string `yaml:"toc_url"`
}

type TOC struct {
	LinkSelector     string `yaml:"link_selector"`
	Paginated        bool   `yaml:"paginated"`
	NextPageSelector string `yaml:"next_page_selector"`
	JSONListPath     string `yaml:"json_list_path"`
	JSONTitlePath    string `yaml:"json_title_path"`
	JSONURLPath      string `yaml:"json_url_path"`
	JSONNextPath     string `yaml:"json_next_path"`
}

type Chapter struct {
	ContainerSelector string `yaml:"container_selector"`
	TitleSelector     string `yaml:"title_selector"`
	NextPageSelector  string `yaml:"next_page_selector"`
	NextPageHeuristic bool   `yaml:"next_page_heuristic"`

	// TitleFind is a regular expression replaced by TitleReplace in every
	// chapter title of the table of contents.
	TitleFind    string `yaml:"title_find"`
	TitleReplace string `yaml:"title_replace"`
}

type Cleanup struct {
	ElementsToRemove string   `yaml:"elements_to_remove"`
	TextToRemove     []string `yaml:"text_to_remove"`
}

type Metadata struct {
	Title                 string `yaml:"title"`
	Author                string `yaml:"author"`
	Synopsis              string `yaml:"synopsis"`
	Publisher             string `yaml:"publisher"`
	Genres                string `yaml:"genres"`
	Language              string `yaml:"language"`
	IncludeTitleInContent bool   `yaml:"include_title_in_content"`

	TitleSelector    string `yaml:"title_selector"`
	AuthorSelector   string `yaml:"author_selector"`
	SynopsisSelector string `yaml:"synopsis_selector"`
	CoverSelector    string `yaml:"cover_selector"`
}

type Cover struct {
	URL    string `yaml:"url"`
	Base64 string `yaml:"base64"`
}

// GenreList splits the comma separated genre field, dropping blanks.
func (m Metadata) GenreList() []string {
	var out []string
	for _, g := range strings.Split(m.Genres, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

type Options struct {
	IgnoreConfig        bool
	Debug               bool
	Output              string
	Format              string
	TOCURL              string
	ProxyURL            string
	ConcurrentDownloads int
	DefaultRange        string
	DefaultList         string
	Cookie              string
	CookieFile          string
	UserAgent           string
	NoCache             bool
	CacheBackend        string
	TitleFind           string
	TitleReplace        string
}

func DefaultConfig() *Config {
	return &Config{
		Output:       ".",
		Format:       FormatEPUB,
		CacheBackend: CacheDuckDB,
		Network: Network{
			RequestDelay:        800 * time.Millisecond,
			Timeout:             30 * time.Second,
			ConcurrentDownloads: 1,
			MaxRetries:          2,
			RetryDelay:          500 * time.Millisecond,
			MaxPagesPerChapter:  20,
			ChapterCache:        true,
		},
		Source: Source{Type: SourceHTML},
		Chapter: Chapter{
			NextPageHeuristic: true,
		},
		Cleanup: Cleanup{
			ElementsToRemove: "script, style, .ads, .comments",
			TextToRemove:     []string{},
		},
		Metadata: Metadata{
			Language: "en",
		},
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadYAML decodes path over the defaults so keys missing from the file
// keep their default values.
func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadFile reads a single profile file without touching the active label.
func LoadFile(path string) (*Config, error) {
	c, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	normalizeDefaults(c)
	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `noveld config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Format != "" {
		c.Format = strings.ToLower(o.Format)
	}
	if o.TOCURL != "" {
		c.Source.TOCURL = o.TOCURL
	}
	if o.ProxyURL != "" {
		c.Network.ProxyURL = o.ProxyURL
	}
	if o.ConcurrentDownloads != 0 {
		c.Network.ConcurrentDownloads = o.ConcurrentDownloads
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.Cookie != "" {
		c.Network.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.Network.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.Network.UserAgent = o.UserAgent
	}
	if o.TitleFind != "" {
		c.Chapter.TitleFind = o.TitleFind
		c.Chapter.TitleReplace = o.TitleReplace
	}
	if o.NoCache {
		c.Network.ChapterCache = false
	}
	if o.CacheBackend != "" {
		c.CacheBackend = o.CacheBackend
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.Format == "" {
		c.Format = FormatEPUB
	}
	if c.CacheBackend == "" {
		c.CacheBackend = CacheDuckDB
	}
	if c.Source.Type == "" {
		c.Source.Type = SourceHTML
	}
	if c.Network.Timeout <= 0 {
		c.Network.Timeout = 30 * time.Second
	}
	if c.Network.ConcurrentDownloads <= 0 {
		c.Network.ConcurrentDownloads = 1
	}
	if c.Network.MaxRetries < 0 {
		c.Network.MaxRetries = 0
	}
	if c.Network.MaxPagesPerChapter <= 0 {
		c.Network.MaxPagesPerChapter = 20
	}
	if c.Metadata.Language == "" {
		c.Metadata.Language = "en"
	}
	if c.Cleanup.TextToRemove == nil {
		c.Cleanup.TextToRemove = []string{}
	}
}

// ValidateTOC checks the fields needed to resolve a chapter list.
func (c *Config) ValidateTOC() error {
	if c.Source.TOCURL == "" {
		return errors.New("missing --url and no source.toc_url in config")
	}

	switch c.Source.Type {
	case SourceHTML:
		if c.TOC.LinkSelector == "" {
			return errors.New("toc.link_selector is required for html sources")
		}
		if c.TOC.Paginated && c.TOC.NextPageSelector == "" {
			return errors.New("toc.next_page_selector is required when toc.paginated is set")
		}
	case SourceJSON:
		if c.TOC.JSONListPath == "" || c.TOC.JSONTitlePath == "" || c.TOC.JSONURLPath == "" {
			return errors.New("toc.json_list_path, toc.json_title_path and toc.json_url_path are required for json sources")
		}
	default:
		return fmt.Errorf("unknown source.type %q (want %q or %q)", c.Source.Type, SourceHTML, SourceJSON)
	}

	return nil
}

// ValidateRun checks everything a full download needs.
func (c *Config) ValidateRun() error {
	if err := c.ValidateTOC(); err != nil {
		return err
	}
	if c.Chapter.ContainerSelector == "" {
		return errors.New("chapter.container_selector is required")
	}
	if c.Format != FormatEPUB && c.Format != FormatTXT {
		return fmt.Errorf("unknown format %q (want %q or %q)", c.Format, FormatEPUB, FormatTXT)
	}
	return nil
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -format: %s\n", c.Format)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	fmt.Printf(" -source: %s %s\n", c.Source.Type, c.Source.TOCURL)
	if c.Network.ProxyURL != "" {
		fmt.Printf(" -proxy_url: %s\n", c.Network.ProxyURL)
	}
	fmt.Printf(" -request_delay: %s\n", c.Network.RequestDelay)
	fmt.Printf(" -timeout: %s\n", c.Network.Timeout)
	fmt.Printf(" -concurrent_downloads: %d\n", c.Network.ConcurrentDownloads)
	fmt.Printf(" -max_retries: %d (delay %s, exponential %t)\n",
		c.Network.MaxRetries, c.Network.RetryDelay, c.Network.ExponentialBackoff)
	fmt.Printf(" -max_pages_per_chapter: %d\n", c.Network.MaxPagesPerChapter)
	fmt.Printf(" -chapter_cache: %t (%s)\n", c.Network.ChapterCache, c.CacheBackend)
	if c.Network.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.Network.CloudflareBypass)
	}
	if c.Network.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.Network.CookieFile)
	}
	if c.DefaultRange != "" {
		fmt.Printf(" -range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		fmt.Printf(" -list: %s\n", c.DefaultList)
	}

	if c.Source.Type == SourceJSON {
		fmt.Printf(" -toc json: list=%q title=%q url=%q next=%q\n",
			c.TOC.JSONListPath, c.TOC.JSONTitlePath, c.TOC.JSONURLPath, c.TOC.JSONNextPath)
	} else {
		fmt.Printf(" -toc links: %q\n", c.TOC.LinkSelector)
		if c.TOC.Paginated {
			fmt.Printf(" -toc next page: %q\n", c.TOC.NextPageSelector)
		}
	}
	fmt.Printf(" -chapter container: %q\n", c.Chapter.ContainerSelector)
	if c.Chapter.TitleSelector != "" {
		fmt.Printf(" -chapter title: %q\n", c.Chapter.TitleSelector)
	}
	if c.Chapter.NextPageSelector != "" {
		fmt.Printf(" -chapter next page: %q\n", c.Chapter.NextPageSelector)
	}
	if c.Chapter.TitleFind != "" {
		fmt.Printf(" -chapter titles: %q -> %q\n", c.Chapter.TitleFind, c.Chapter.TitleReplace)
	}
	if c.Cleanup.ElementsToRemove != "" {
		fmt.Printf(" -remove elements: %q\n", c.Cleanup.ElementsToRemove)
	}
	if len(c.Cleanup.TextToRemove) > 0 {
		fmt.Printf(" -remove text: %s\n", strings.Join(c.Cleanup.TextToRemove, " | "))
	}
	if c.Metadata.Title != "" {
		fmt.Printf(" -title: %s\n", c.Metadata.Title)
	}
	if c.Metadata.Author != "" {
		fmt.Printf(" -author: %s\n", c.Metadata.Author)
	}
}
