// Package cache memoizes classification results in SQLite so repeated
// planning runs over large module graphs skip reclassification.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"chunksplit/cas"
	"chunksplit/chunk"
)

// FileName is the cache database name inside the cache directory.
const FileName = "classify.db"

// Cache stores results keyed by (rule digest, mode, module id). Rows written
// under another rule digest are never returned.
type Cache struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS classifications (
	digest TEXT NOT NULL,
	mode TEXT NOT NULL,
	module_id TEXT NOT NULL,
	chunk TEXT NOT NULL,
	ok INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (digest, mode, module_id)
);
CREATE INDEX IF NOT EXISTS idx_classifications_digest ON classifications(digest);
`

// Open opens or creates the cache in dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns a cached result. found is false on a miss.
func (c *Cache) Get(digest string, mode chunk.Mode, id string) (res chunk.Result, found bool, err error) {
	var name string
	var ok bool
	err = c.db.QueryRow(
		`SELECT chunk, ok FROM classifications WHERE digest = ? AND mode = ? AND module_id = ?`,
		digest, string(mode), id,
	).Scan(&name, &ok)
	if err == sql.ErrNoRows {
		return chunk.None(), false, nil
	}
	if err != nil {
		return chunk.None(), false, fmt.Errorf("querying cache: %w", err)
	}
	return chunk.Result{Name: name, OK: ok}, true, nil
}

// Put stores a result, replacing any previous entry.
func (c *Cache) Put(digest string, mode chunk.Mode, id string, res chunk.Result) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO classifications (digest, mode, module_id, chunk, ok, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		digest, string(mode), id, res.Name, res.OK, cas.NowMs(),
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// GetOrClassify returns the cached result for id, classifying and storing it
// on a miss.
func (c *Cache) GetOrClassify(cl *chunk.Classifier, mode chunk.Mode, id string) (chunk.Result, error) {
	digest := cl.Digest()

	res, found, err := c.Get(digest, mode, id)
	if err != nil {
		return chunk.None(), err
	}
	if found {
		return res, nil
	}

	res = cl.Classify(id, mode)
	if err := c.Put(digest, mode, id, res); err != nil {
		return chunk.None(), err
	}
	return res, nil
}

// Purge deletes every entry not written under keepDigest and returns the
// number of rows removed.
func (c *Cache) Purge(keepDigest string) (int64, error) {
	result, err := c.db.Exec(`DELETE FROM classifications WHERE digest != ?`, keepDigest)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return result.RowsAffected()
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int64, error) {
	var n int64
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM classifications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache: %w", err)
	}
	return n, nil
}
