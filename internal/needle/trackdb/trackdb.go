// Package trackdb persists needle tracking sessions and per-cycle results
// in a sqlite database, so a procedure can be reviewed or replayed after the
// fact.
package trackdb

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/smartneedle/needletrack/internal/monitoring"
)

//go:embed schema.sql
var schemaSQL string

// TrackDB wraps the sqlite handle for the tracking store.
type TrackDB struct {
	*sql.DB
}

// Open opens (creating if needed) the tracking database at path and applies
// the embedded schema.
func Open(path string) (*TrackDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tracking database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply tracking schema: %w", err)
	}
	monitoring.Logf("initialized tracking database schema at %s", path)
	return &TrackDB{db}, nil
}
