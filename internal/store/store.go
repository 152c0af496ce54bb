// Package store persists Output, EnrichedTransaction, TransactionClassification,
// P2MSOutputClassification, and Checkpoint rows in an embedded SQLite
// database, with foreign keys and a trigger enforcing that only multisig
// outputs are ever classified.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Metrics is the subset of internal/metrics.Store the repository needs.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

// Store wraps a pair of SQLite handles: a single-connection write handle
// (SQLite serializes writers regardless, so there is no benefit to a pool)
// and a read handle sized for concurrent read-only queries, following the
// dual-handle WAL pattern used elsewhere for embedded SQLite services.
type Store struct {
	wdb     *sql.DB
	rdb     *sql.DB
	metrics Metrics
}

// Open connects to the SQLite database at path, applying the pragmas the
// write/read handles need (WAL journaling, NORMAL synchronous, a busy
// timeout so concurrent access blocks briefly rather than failing outright).
func Open(path string, metrics Metrics) (*Store, error) {
	wdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open write handle: %w", err)
	}
	if err := applyPragmas(wdb); err != nil {
		return nil, err
	}
	wdb.SetMaxOpenConns(1)

	rdb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open read handle: %w", err)
	}
	if err := applyPragmas(rdb); err != nil {
		return nil, err
	}
	rdb.SetMaxOpenConns(4)

	return &Store{wdb: wdb, rdb: rdb, metrics: metrics}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return nil
}

// Close closes both handles.
func (s *Store) Close() error {
	werr := s.wdb.Close()
	rerr := s.rdb.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
