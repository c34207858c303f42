package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle shared by the repositories
type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite database at path.
// All statements go through a single connection, so writers are serialized and
// readers never see a half-written row.
func NewConnection(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	pragmas := url.Values{}
	pragmas.Add("_pragma", "busy_timeout(5000)")
	pragmas.Add("_pragma", "journal_mode(WAL)")
	pragmas.Add("_pragma", "foreign_keys(1)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// toUnix splits t into whole seconds and the nanosecond remainder.
// A single UnixNano value only covers the years 1678 to 2262.
func toUnix(t time.Time) (int64, int64) {
	return t.Unix(), int64(t.Nanosecond())
}

func fromUnix(sec, nsec int64) time.Time {
	return time.Unix(sec, nsec).UTC()
}
