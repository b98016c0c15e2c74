// Package store is the data access layer for the book catalog.
//
// One SQLite database holds the catalog rows, an FTS5 index kept in lockstep
// by triggers, and a small meta table for the ingestion cursor. The store
// receives an already-opened *sql.DB (see dbopen) and never opens its own.
package store

import (
	"database/sql"
	"errors"
)

// Sentinel errors surfaced by mutating operations.
var (
	// ErrNotFound is returned when the targeted row does not exist.
	ErrNotFound = errors.New("store: book not found")
	// ErrNoFields is returned by Update when nothing updatable was supplied.
	ErrNoFields = errors.New("store: no updatable fields")
)

// Store wraps the catalog database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
