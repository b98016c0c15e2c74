package store

import "context"

// Stats returns aggregate counters for the catalog.
func (s *Store) Stats(ctx context.Context) (*CatalogStats, error) {
	var stats CatalogStats
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&stats.Books)
	if err != nil {
		return nil, err
	}
	err = s.DB.QueryRowContext(ctx, `SELECT COUNT(DISTINCT lang) FROM books WHERE lang != ''`).Scan(&stats.Languages)
	if err != nil {
		return nil, err
	}
	err = s.DB.QueryRowContext(ctx, `SELECT COUNT(DISTINCT category) FROM books WHERE category != ''`).Scan(&stats.Categories)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
