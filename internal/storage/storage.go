// Package storage is the per-room embedded SQL store (SPEC_FULL.md §4.2):
// chunk snapshots and preview tiles, schema-versioned via the engine's
// user_version pragma. Grounded on the teacher's internal/store/store.go
// open/pragma/migrate shape, adapted from its embedded-migration-files
// approach to the single numeric schema version the original multipixel
// database.rs uses.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// snapshotWindow mirrors original_source/src/database.rs's
// SECONDS_BETWEEN_SNAPSHOTS: a chunk_save within this window of the last row
// updates it in place; otherwise a new history row is inserted.
const snapshotWindow = 4 * time.Hour

const currentSchemaVersion = 1

// Compression tags stored alongside a blob so the reader knows how to
// decode it without guessing.
const (
	CompressionNone = 0
	CompressionLZ4  = 1
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path, applies
// pragmas, and migrates the schema to currentSchemaVersion.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite + WAL: single writer connection avoids SQLITE_BUSY thrash

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=OFF",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) userVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) setUserVersion(v int) error {
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version=%d", v))
	return err
}
