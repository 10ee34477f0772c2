// Package downloader drives chapter downloads for a batch with bounded
// concurrency, retries and the chapter cache.
package downloader

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/brogergvhs/noveld/internal/chapters"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/fetch"
	"github.com/brogergvhs/noveld/internal/util"
)

const MaxBackoff = 30 * time.Second

// ContentSource stitches all pages of one chapter.
type ContentSource interface {
	Resolve(ctx context.Context, chapterURL string, known mapset.Set[string], cfg *config.Config) (*chapters.Page, error)
}

// Cache holds cleaned chapter content and the extracted title by chapter
// URL. title is empty when no title selector matched.
type Cache interface {
	Get(url string) (content, title string, ok bool)
	Put(url, content, title string)
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Update is a snapshot of one chapter after a status change.
type Update struct {
	Chapter chapters.Chapter
	Cached  bool
}

type Orchestrator struct {
	source ContentSource
	cache  Cache
	log    Logger
	sleep  func(context.Context, time.Duration) error
}

// New returns an orchestrator. cache may be nil.
func New(source ContentSource, cache Cache, log Logger) *Orchestrator {
	return &Orchestrator{source: source, cache: cache, log: log, sleep: util.Sleep}
}

// Run downloads selected in the background and streams one Update per
// status transition. all is the full TOC, used to tell a next page apart
// from the next chapter. The channel is closed when every chapter has
// finished or, after ctx is cancelled, when in-flight chapters have been
// abandoned. Abandoned chapters get no terminal update.
func (o *Orchestrator) Run(ctx context.Context, selected, all []chapters.Stub, cfg *config.Config) <-chan Update {
	retries := max(cfg.Network.MaxRetries, 0)
	out := make(chan Update, len(selected)*(retries+2))
	known := chapters.URLSet(all)

	go func() {
		defer close(out)
		runBounded(ctx, cfg.Network.ConcurrentDownloads, len(selected), func(i int) {
			o.download(ctx, selected[i], known, cfg, out)
		})
	}()

	return out
}

func (o *Orchestrator) download(ctx context.Context, stub chapters.Stub, known mapset.Set[string], cfg *config.Config, out chan<- Update) {
	ch := chapters.Chapter{Stub: stub, Status: chapters.StatusDownloading}
	out <- Update{Chapter: ch}

	useCache := cfg.Network.ChapterCache && o.cache != nil
	if useCache {
		if content, title, ok := o.cache.Get(stub.URL); ok {
			o.log.Debugf("Cache hit for %s", stub.URL)
			if title != "" {
				ch.Title = title
			}
			ch.Content = content
			ch.Status = chapters.StatusSuccess
			out <- Update{Chapter: ch, Cached: true}
			return
		}
	}

	if err := o.sleep(ctx, cfg.Network.RequestDelay); err != nil {
		return
	}

	for attempt := 1; ; attempt++ {
		ch.Attempts = attempt
		if attempt > 1 {
			out <- Update{Chapter: ch}
		}

		cleaned, err := o.fetchChapter(ctx, stub.URL, known, cfg)
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			if cleaned.Title != "" {
				ch.Title = cleaned.Title
			}
			ch.Content = cleaned.Content
			ch.Status = chapters.StatusSuccess
			ch.Err = nil
			if useCache {
				o.cache.Put(stub.URL, cleaned.Content, cleaned.Title)
			}
			out <- Update{Chapter: ch}
			return
		}

		fe := fetch.Classify(err)
		ch.Err = fe

		wait, retry := RetryDelay(fe, attempt, cfg.Network)
		if !retry {
			o.log.Warnf("%s failed after %d attempt(s): %v", stub.Title, attempt, fe)
			ch.Status = chapters.StatusError
			out <- Update{Chapter: ch}
			return
		}

		o.log.Debugf("Attempt %d for %s failed (%s), retrying in %s", attempt, stub.Title, fe.Kind, wait)
		if err := o.sleep(ctx, wait); err != nil {
			return
		}
	}
}

func (o *Orchestrator) fetchChapter(ctx context.Context, url string, known mapset.Set[string], cfg *config.Config) (chapters.Cleaned, error) {
	p, err := o.source.Resolve(ctx, url, known, cfg)
	if err != nil {
		return chapters.Cleaned{}, err
	}
	return chapters.Clean(p.Content, p.FirstPage, cfg)
}

// RetryDelay reports how long to wait after failed attempt number attempt
// (1-based) and whether to retry at all.
func RetryDelay(fe *fetch.FetchError, attempt int, n config.Network) (time.Duration, bool) {
	if attempt > n.MaxRetries || !fe.Retryable() {
		return 0, false
	}
	if fe.Kind == fetch.KindRateLimit && fe.RetryAfter > 0 {
		return fe.RetryAfter, true
	}
	if !n.ExponentialBackoff {
		return n.RetryDelay, true
	}
	return Backoff(n.RetryDelay, attempt), true
}

// Backoff is base*2^(attempt-1), capped at MaxBackoff.
func Backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		if d >= MaxBackoff {
			break
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}
