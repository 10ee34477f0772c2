package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `CREATE TABLE IF NOT EXISTS chapter_cache (
	key       VARCHAR PRIMARY KEY,
	content   VARCHAR NOT NULL,
	stored_at TIMESTAMP NOT NULL,
	title     VARCHAR NOT NULL DEFAULT ''
)`

// Files written before titles were cached lack the column.
const migrateTitle = `ALTER TABLE chapter_cache ADD COLUMN IF NOT EXISTS title VARCHAR DEFAULT ''`

// DuckDBStore persists entries in a single DuckDB file.
type DuckDBStore struct {
	db *sql.DB
}

func OpenDuckDB(path string) (*DuckDBStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create cache folder: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	for _, stmt := range []string{schema, migrateTitle} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	return &DuckDBStore{db: db}, nil
}

// DefaultPath is the cache file under the user's cache directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "noveld", "cache.duckdb")
}

func (s *DuckDBStore) Get(key string) (Entry, error) {
	var e Entry
	err := s.db.QueryRow(
		`SELECT content, COALESCE(title, ''), stored_at FROM chapter_cache WHERE key = ?`, key,
	).Scan(&e.Content, &e.Title, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *DuckDBStore) Put(key string, e Entry) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO chapter_cache (key, content, title, stored_at) VALUES (?, ?, ?, ?)`,
		key, e.Content, e.Title, e.Timestamp.UTC(),
	)
	return err
}

func (s *DuckDBStore) DeleteOlderThan(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM chapter_cache WHERE stored_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *DuckDBStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM chapter_cache`)
	return err
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
