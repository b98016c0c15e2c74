package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/hazyhaar/biblio/dbopen"
)

// GetCursor returns the stored cursor value under key, 0 when no cursor has
// been persisted yet. Cursor values live in the meta table as decimal text.
func (s *Store) GetCursor(ctx context.Context, key string) (int64, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor: %w", err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("get cursor: parse %q: %w", raw, err)
	}
	return v, nil
}

// SetCursor stores value under key, creating or replacing the meta row.
func (s *Store) SetCursor(ctx context.Context, key string, value int64) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, strconv.FormatInt(value, 10))
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
