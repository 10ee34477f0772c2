package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/cover"
	"github.com/brogergvhs/noveld/internal/downloader"
	"github.com/brogergvhs/noveld/internal/packaging"
	"github.com/brogergvhs/noveld/internal/toc"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagChapter string
	flagRange   string
	flagList    string

	// runtime
	flagOutput       string
	flagFormat       string
	flagConcurrency  int
	flagNoCache      bool
	flagCacheBackend string
	flagRetryFailed  bool
	flagDryRun       bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download chapters and compile them into one EPUB or TXT file. Uses the active profile, overwritten by CLI flags",
		RunE:  runDownload,
	}

	addSourceFlags(downloadCmd)
	addArrangeFlags(downloadCmd)

	// selection
	downloadCmd.Flags().StringVar(&flagChapter, "chapter", "", "download a single chapter by position or exact title")
	downloadCmd.Flags().StringVar(&flagRange, "range", "", "download a range of chapters by position (e.g. 5-12)")
	downloadCmd.Flags().StringVar(&flagList, "list", "", "download specific chapter positions (e.g. 1,3,5)")

	// runtime
	downloadCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output folder")
	downloadCmd.Flags().StringVar(&flagFormat, "format", "", "output format: epub or txt")
	downloadCmd.Flags().IntVarP(&flagConcurrency, "concurrency", "c", 0, "parallel chapter downloads")
	downloadCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "do not read or write the chapter cache")
	downloadCmd.Flags().StringVar(&flagCacheBackend, "cache-backend", "", "chapter cache backend: duckdb or memory")
	downloadCmd.Flags().BoolVar(&flagRetryFailed, "retry-failed", false, "run one more pass over chapters that failed")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list the selected chapters without downloading")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	opts := sourceOptions()
	opts.Output = flagOutput
	opts.Format = flagFormat
	opts.ConcurrentDownloads = flagConcurrency
	opts.DefaultRange = flagRange
	opts.DefaultList = flagList
	opts.NoCache = flagNoCache
	opts.CacheBackend = flagCacheBackend

	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.cfg

	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	packager, err := packaging.For(cfg.Format)
	if err != nil {
		return err
	}

	fmt.Printf("Config file: %s\n", s.used)
	if cfg.Debug {
		cfg.Print()
	}
	fmt.Println()

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	ctx, stop := util.SetupInterruptHandler(context.Background(), cfg.Output)
	defer stop()

	res, err := toc.NewResolver(s.fetcher, s.log).Resolve(ctx, cfg)
	if err != nil {
		return fmt.Errorf("table of contents: %w", err)
	}
	res.Details.Apply(cfg)

	all, err := arrange(res.Chapters, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d chapters on %d page(s).\n", len(all), res.Pages)
	if cfg.Metadata.Title != "" {
		fmt.Printf("Title: %s\n", cfg.Metadata.Title)
	}

	selected := chapters.Filter(all, flagChapter, cfg.DefaultRange, cfg.DefaultList)
	if len(selected) == 0 {
		if flagChapter != "" {
			return fmt.Errorf("chapter %q not found", flagChapter)
		}
		return errors.New("no chapters selected")
	}

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
		printStubs(selected)
		return nil
	}

	s.openCache(ctx)

	var chapterCache downloader.Cache
	if s.chapters != nil {
		chapterCache = s.chapters
	}
	orch := downloader.New(chapters.NewContentResolver(s.fetcher, s.log), chapterCache, s.log.With("component", "downloader"))
	tracker := downloader.NewTracker(selected)
	stats := &ui.Stats{}
	start := time.Now()

	pm := ui.NewProgressManager()
	runPass(ctx, pm.Register("Chapters"), orch, tracker, stats, selected, all, cfg)

	if flagRetryFailed && ctx.Err() == nil && tracker.Failed() > 0 {
		retry := tracker.Retry()
		s.log.Infof("Retrying %d failed chapter(s)", len(retry))
		runPass(ctx, pm.Register("Retry   "), orch, tracker, stats, retry, all, cfg)
	}
	pm.Close()

	for _, ch := range tracker.Errored() {
		s.log.Errorf("%s: %v", ch.Title, ch.Err)
	}

	if tracker.Succeeded() == 0 {
		if ctx.Err() != nil {
			return errors.New("download cancelled before any chapter finished")
		}
		return errors.New("every selected chapter failed")
	}
	if ctx.Err() != nil {
		s.log.Warnf("Cancelled with %d chapter(s) unfinished, writing what was downloaded", len(tracker.Incomplete()))
	}

	img := cover.NewResolver(s.fetcher, s.log).Resolve(context.WithoutCancel(ctx), cfg)
	book := packaging.NewBook(cfg, tracker.Chapters(), img)
	out := util.OutputPath(cfg.Output, book.Title, packager.Ext())

	if err := packager.Write(book, out); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Chapters: %d/%d (%.0f%%)\n", tracker.Succeeded(), tracker.Total(), tracker.Percent())
	fmt.Printf("Failed:   %d\n", tracker.Failed())
	fmt.Printf("Cached:   %d\n", stats.CacheHits.Load())
	fmt.Printf("Text:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))
	fmt.Printf("Saved:    %s\n", out)

	return nil
}

// runPass drains one orchestrator run into the tracker and the progress bar.
func runPass(
	ctx context.Context,
	bar *ui.ProgressHandle,
	orch *downloader.Orchestrator,
	tracker *downloader.Tracker,
	stats *ui.Stats,
	selected, all []chapters.Stub,
	cfg *config.Config,
) {
	bar.SetTotal(len(selected))
	done, failed := 0, 0

	for u := range orch.Run(ctx, selected, all, cfg) {
		tracker.Apply(u)

		switch u.Chapter.Status {
		case chapters.StatusSuccess:
			done++
			stats.Succeeded.Add(1)
			stats.TotalBytes.Add(int64(len(u.Chapter.Content)))
			if u.Cached {
				stats.CacheHits.Add(1)
			}
		case chapters.StatusError:
			done++
			failed++
			stats.Failed.Add(1)
		}
		bar.Update(done, failed)
	}

	bar.MarkDone(ctx.Err() != nil)
}

func printStubs(stubs []chapters.Stub) {
	for _, ch := range stubs {
		fmt.Printf("%4d) %s\n      %s\n", ch.Order, ch.Title, ch.URL)
	}
}
