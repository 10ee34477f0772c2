// Package cache keeps fetched chapter content for a fixed window so that
// re-running a download does not hit the source site again.
package cache

import (
	"errors"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

const TTL = 24 * time.Hour

var ErrNotFound = errors.New("cache entry not found")

type Entry struct {
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the persistence behind a ChapterCache. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(key string) (Entry, error)
	Put(key string, e Entry) error
	DeleteOlderThan(cutoff time.Time) (int, error)
	Clear() error
	Close() error
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type ChapterCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   Logger
}

func New(store Store, log Logger) *ChapterCache {
	return &ChapterCache{store: store, ttl: TTL, now: time.Now, log: log}
}

// Key derives the storage key for a chapter URL. The hash is not
// collision checked.
func Key(chapterURL string) string {
	return "chapter_" + strconv.FormatUint(xxh3.HashString(chapterURL), 36)
}

// Get returns fresh content and the extracted title for chapterURL. Title
// is empty when none was extracted. Lookup errors count as a miss.
func (c *ChapterCache) Get(chapterURL string) (content, title string, ok bool) {
	e, err := c.store.Get(Key(chapterURL))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warnf("Cache read for %s failed: %v", chapterURL, err)
		}
		return "", "", false
	}

	if c.now().Sub(e.Timestamp) > c.ttl {
		c.log.Debugf("Cache entry for %s expired", chapterURL)
		return "", "", false
	}

	return e.Content, e.Title, true
}

// Put stores content and title for chapterURL. A failed write is logged and followed
// by a sweep of expired entries; it is never reported to the caller.
func (c *ChapterCache) Put(chapterURL, content, title string) {
	err := c.store.Put(Key(chapterURL), Entry{Content: content, Title: title, Timestamp: c.now()})
	if err == nil {
		return
	}

	c.log.Warnf("Cache write for %s failed: %v", chapterURL, err)
	if n, err := c.SweepExpired(); err != nil {
		c.log.Warnf("Cache sweep failed: %v", err)
	} else {
		c.log.Debugf("Cache sweep removed %d expired entries", n)
	}
}

// SweepExpired drops every entry older than the expiry window.
func (c *ChapterCache) SweepExpired() (int, error) {
	return c.store.DeleteOlderThan(c.now().Add(-c.ttl))
}

func (c *ChapterCache) Clear() error {
	return c.store.Clear()
}

func (c *ChapterCache) Close() error {
	return c.store.Close()
}
