package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemoryStore keeps entries for the lifetime of the process only.
type MemoryStore struct {
	c *bigcache.BigCache
}

func NewMemoryStore(ctx context.Context) (*MemoryStore, error) {
	cfg := bigcache.DefaultConfig(TTL)
	cfg.Shards = 64
	cfg.MaxEntrySize = 64 * 1024
	cfg.HardMaxCacheSize = 256
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{c: c}, nil
}

func (s *MemoryStore) Get(key string) (Entry, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *MemoryStore) Put(key string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.c.Set(key, b)
}

func (s *MemoryStore) DeleteOlderThan(cutoff time.Time) (int, error) {
	var stale []string

	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}

		var e Entry
		if err := json.Unmarshal(info.Value(), &e); err != nil || e.Timestamp.Before(cutoff) {
			stale = append(stale, info.Key())
		}
	}

	removed := 0
	for _, k := range stale {
		if err := s.c.Delete(k); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Clear() error {
	return s.c.Reset()
}

func (s *MemoryStore) Close() error {
	return s.c.Close()
}
