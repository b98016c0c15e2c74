package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/biblio/dbopen"
)

const bookColumns = `id, source_chat_id, source_message_id, file_id, file_unique_id,
	file_name, mime_type, file_size, title, author, lang, tags, category, cover,
	cover_file_id, source, created_at, updated_at`

// Upsert inserts the book or merges it into the row holding the same natural
// key, in one transaction. Returns the stored row.
func (s *Store) Upsert(ctx context.Context, b *Book) (*Book, error) {
	var out *Book
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		existing, err := getByKeyTx(ctx, tx, b.SourceChatID, b.SourceMessageID)
		if err != nil {
			return err
		}

		merged := merge(existing, b)
		merged.UpdatedAt = time.Now().UnixMilli()

		if existing == nil {
			merged.CreatedAt = merged.UpdatedAt
			res, err := tx.ExecContext(ctx,
				`INSERT INTO books (source_chat_id, source_message_id, file_id, file_unique_id,
				file_name, mime_type, file_size, title, author, lang, tags, category, cover,
				cover_file_id, source, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				merged.SourceChatID, merged.SourceMessageID, merged.FileID, merged.FileUniqueID,
				merged.FileName, merged.MimeType, merged.FileSize, merged.Title, merged.Author,
				merged.Lang, merged.Tags, merged.Category, merged.Cover, merged.CoverFileID,
				merged.Source, merged.CreatedAt, merged.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert book: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("insert book id: %w", err)
			}
			merged.ID = id
		} else {
			merged.ID = existing.ID
			merged.CreatedAt = existing.CreatedAt
			if _, err := tx.ExecContext(ctx,
				`UPDATE books SET file_id = ?, file_unique_id = ?, file_name = ?, mime_type = ?,
				file_size = ?, title = ?, author = ?, lang = ?, tags = ?, category = ?,
				cover_file_id = ?, source = ?, updated_at = ? WHERE id = ?`,
				merged.FileID, merged.FileUniqueID, merged.FileName, merged.MimeType,
				merged.FileSize, merged.Title, merged.Author, merged.Lang, merged.Tags,
				merged.Category, merged.CoverFileID, merged.Source, merged.UpdatedAt,
				merged.ID); err != nil {
				return fmt.Errorf("update book: %w", err)
			}
		}

		out = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get retrieves a book by id. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Book, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// GetByKey retrieves a book by its natural key. Returns (nil, nil) when absent.
func (s *Store) GetByKey(ctx context.Context, chatID, messageID int64) (*Book, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE source_chat_id = ? AND source_message_id = ?`,
		chatID, messageID)
	return scanBook(row)
}

// Search returns the page of books matching q plus the total match count
// over the same predicates.
func (s *Store) Search(ctx context.Context, q Query) ([]*Book, int, error) {
	if q.Limit <= 0 {
		q.Limit = 60
	}
	where, args := buildFilters(q)

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+where+
			` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBookRows(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// Update applies the given fields to a book. Only title, author, lang, tags,
// source, category, and cover are updatable; unknown keys are ignored.
// Returns ErrNoFields when nothing updatable remains after filtering and
// ErrNotFound when the id matches no row.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]string) error {
	sets := make([]string, 0, len(updatableColumns)+1)
	args := make([]any, 0, len(updatableColumns)+2)
	for _, col := range updatableColumns {
		v, ok := fields[col]
		if !ok {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if len(sets) == 0 {
		return ErrNoFields
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UnixMilli(), id)

	res, err := dbopen.Exec(ctx, s.DB,
		`UPDATE books SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// updatableColumns is the Update allow-list, in deterministic SET order.
var updatableColumns = []string{"title", "author", "lang", "tags", "source", "category", "cover"}

// Delete removes a book by id and reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByKey removes a book by its natural key and reports whether a row
// was removed. Removing an unknown key is not an error.
func (s *Store) DeleteByKey(ctx context.Context, chatID, messageID int64) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM books WHERE source_chat_id = ? AND source_message_id = ?`,
		chatID, messageID)
	if err != nil {
		return false, fmt.Errorf("delete book by key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRefs returns a key-only page of the catalog in ascending id order.
func (s *Store) ListRefs(ctx context.Context, limit, offset int) ([]BookRef, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, source_chat_id, source_message_id FROM books ORDER BY id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()

	var refs []BookRef
	for rows.Next() {
		var r BookRef
		if err := rows.Scan(&r.ID, &r.SourceChatID, &r.SourceMessageID); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// --- Filters and scanning ---

func buildFilters(q Query) (string, []any) {
	var conds []string
	var args []any
	if match := ftsQuery(q.Text); match != "" {
		conds = append(conds, `id IN (SELECT rowid FROM books_fts WHERE books_fts MATCH ?)`)
		args = append(args, match)
	}
	if q.Lang != "" {
		conds = append(conds, `lang = ?`)
		args = append(args, q.Lang)
	}
	if q.Category != "" {
		conds = append(conds, `category = ?`)
		args = append(args, q.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ftsQuery turns raw user input into a safe FTS5 match expression: each
// whitespace-separated token is double-quoted so quotes and operators in the
// input match literally instead of breaking the query syntax. Returns ""
// when the input carries no tokens.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func getByKeyTx(ctx context.Context, tx *sql.Tx, chatID, messageID int64) (*Book, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE source_chat_id = ? AND source_message_id = ?`,
		chatID, messageID)
	return scanBook(row)
}

func scanBook(row *sql.Row) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.SourceChatID, &b.SourceMessageID, &b.FileID, &b.FileUniqueID,
		&b.FileName, &b.MimeType, &b.FileSize, &b.Title, &b.Author, &b.Lang,
		&b.Tags, &b.Category, &b.Cover, &b.CoverFileID, &b.Source,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &b, nil
}

func scanBookRows(rows *sql.Rows) (*Book, error) {
	var b Book
	err := rows.Scan(
		&b.ID, &b.SourceChatID, &b.SourceMessageID, &b.FileID, &b.FileUniqueID,
		&b.FileName, &b.MimeType, &b.FileSize, &b.Title, &b.Author, &b.Lang,
		&b.Tags, &b.Category, &b.Cover, &b.CoverFileID, &b.Source,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &b, nil
}
