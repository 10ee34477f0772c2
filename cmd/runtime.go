package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/cache"
	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"
)

// Flags shared by every command that talks to a site.
var (
	flagURL        string
	flagProxy      string
	flagSourceType string
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string

	flagTitleFind    string
	flagTitleReplace string
	flagMoves        []string
	flagOrder        string
)

func addSourceFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagURL, "url", "", "table of contents URL (overrides source.toc_url)")
	c.Flags().StringVar(&flagSourceType, "source", "", "table of contents type: html or json")
	c.Flags().StringVar(&flagProxy, "proxy", "", "CORS proxy prefix, e.g. https://proxy.example/?url=")
	c.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	c.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	c.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
}

// addArrangeFlags registers the table of contents edits applied before
// chapters are listed or selected.
func addArrangeFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagTitleFind, "title-find", "", "regular expression to replace in every chapter title (overrides chapter.title_find)")
	c.Flags().StringVar(&flagTitleReplace, "title-replace", "", "replacement for --title-find, $1 refers to a group")
	c.Flags().StringArrayVar(&flagMoves, "move", nil, "move the chapter at one position to another (from:to, repeatable)")
	c.Flags().StringVar(&flagOrder, "order", "", "put these positions first, in this order (e.g. 3,1,2)")
}

func arrange(stubs []chapters.Stub, cfg *config.Config) ([]chapters.Stub, error) {
	return chapters.Arrange(stubs, chapters.Arrangement{
		TitleFind:    cfg.Chapter.TitleFind,
		TitleReplace: cfg.Chapter.TitleReplace,
		Moves:        flagMoves,
		Order:        flagOrder,
	})
}

func sourceOptions() config.Options {
	return config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		TOCURL:       flagURL,
		ProxyURL:     flagProxy,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		UserAgent:    flagUserAgent,
		TitleFind:    flagTitleFind,
		TitleReplace: flagTitleReplace,
	}
}

// session is the wiring every site-facing command starts from.
type session struct {
	cfg      *config.Config
	used     string
	log      *ui.Logger
	fetcher  *fetch.Fetcher
	chapters *cache.ChapterCache
}

func newSession(opts config.Options) (*session, error) {
	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}
	if flagSourceType != "" {
		cfg.Source.Type = flagSourceType
	}

	log := ui.NewLogger(cfg.Debug)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Network.Timeout,
		UserAgent:        util.PickUserAgent(cfg.Network.UserAgent),
		Cookie:           cfg.Network.Cookie,
		CookieFile:       cfg.Network.CookieFile,
		DebugLogger:      log,
		CloudflareBypass: cfg.Network.CloudflareBypass,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:     cfg,
		used:    used,
		log:     log,
		fetcher: fetch.New(client, log),
	}, nil
}

// openCache attaches the chapter cache unless it is turned off. A cache that
// fails to open is logged and skipped; downloads work without it.
func (s *session) openCache(ctx context.Context) {
	if !s.cfg.Network.ChapterCache {
		return
	}

	store, err := openStore(ctx, s.cfg)
	if err != nil {
		s.log.Warnf("Chapter cache disabled: %v", err)
		return
	}

	s.chapters = cache.New(store, s.log.With("component", "cache"))
	if n, err := s.chapters.SweepExpired(); err != nil {
		s.log.Warnf("Cache sweep failed: %v", err)
	} else if n > 0 {
		s.log.Debugf("Dropped %d expired cache entries", n)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return cache.NewMemoryStore(ctx)
	case config.CacheDuckDB, "":
		path := cfg.CachePath
		if path == "" {
			path = cache.DefaultPath()
		}
		return cache.OpenDuckDB(path)
	}
	return nil, fmt.Errorf("unknown cache_backend %q", cfg.CacheBackend)
}

func (s *session) Close() {
	if s.chapters != nil {
		if err := s.chapters.Close(); err != nil {
			s.log.Warnf("Closing cache: %v", err)
		}
	}
	s.log.Sync()
}
