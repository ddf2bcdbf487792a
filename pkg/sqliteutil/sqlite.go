// Package sqliteutil opens sqlite databases with the pragmas the rest of the
// codebase assumes.
package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenDB opens (and creates if needed) the sqlite database at path. WAL mode
// and a busy timeout are set through the DSN; the pool is capped at a single
// connection because modernc/sqlite serializes writers anyway.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(10000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(ON)")

	if path == ":memory:" {
		q.Set("mode", "memory")
		q.Set("cache", "shared")
		return "file::memory:?" + q.Encode()
	}
	return "file:" + strings.ReplaceAll(path, " ", "%20") + "?" + q.Encode()
}
