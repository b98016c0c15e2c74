package store

import "database/sql"

// Schema is the complete catalog schema.
const Schema = `
-- Catalog entries, one per document message in the source channel
CREATE TABLE IF NOT EXISTS books (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    source_chat_id    INTEGER NOT NULL,
    source_message_id INTEGER NOT NULL,
    file_id           TEXT NOT NULL DEFAULT '',
    file_unique_id    TEXT NOT NULL DEFAULT '',
    file_name         TEXT NOT NULL DEFAULT '',
    mime_type         TEXT NOT NULL DEFAULT '',
    file_size         INTEGER NOT NULL DEFAULT 0,
    title             TEXT NOT NULL DEFAULT '',
    author            TEXT NOT NULL DEFAULT '',
    lang              TEXT NOT NULL DEFAULT '',
    tags              TEXT NOT NULL DEFAULT '',
    category          TEXT NOT NULL DEFAULT '',
    cover             TEXT NOT NULL DEFAULT '',
    cover_file_id     TEXT NOT NULL DEFAULT '',
    source            TEXT NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL,
    UNIQUE(source_chat_id, source_message_id)
);
CREATE INDEX IF NOT EXISTS idx_books_updated ON books(updated_at DESC);

-- Ingestion cursor and other single-value state
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT ''
);

-- FTS5 on books (title + author + tags)
CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts5(
    title, author, tags, content='books', content_rowid='id',
    tokenize='unicode61 remove_diacritics 2'
);

-- Triggers to keep FTS5 in sync
CREATE TRIGGER IF NOT EXISTS books_ai AFTER INSERT ON books BEGIN
    INSERT INTO books_fts(rowid, title, author, tags) VALUES (new.id, new.title, new.author, new.tags);
END;
CREATE TRIGGER IF NOT EXISTS books_ad AFTER DELETE ON books BEGIN
    INSERT INTO books_fts(books_fts, rowid, title, author, tags) VALUES('delete', old.id, old.title, old.author, old.tags);
END;
CREATE TRIGGER IF NOT EXISTS books_au AFTER UPDATE ON books BEGIN
    INSERT INTO books_fts(books_fts, rowid, title, author, tags) VALUES('delete', old.id, old.title, old.author, old.tags);
    INSERT INTO books_fts(rowid, title, author, tags) VALUES (new.id, new.title, new.author, new.tags);
END;
`

// Column migrations for databases created before these fields existed.
// Safe on current databases (applyColumnMigration is a no-op when the
// column is already present).
const (
	MigrationCategory    = `ALTER TABLE books ADD COLUMN category TEXT NOT NULL DEFAULT ''`
	MigrationCover       = `ALTER TABLE books ADD COLUMN cover TEXT NOT NULL DEFAULT ''`
	MigrationCoverFileID = `ALTER TABLE books ADD COLUMN cover_file_id TEXT NOT NULL DEFAULT ''`
)

// ApplySchema creates all tables, triggers, and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return err
	}
	applyColumnMigration(db, "books", "category", MigrationCategory)
	applyColumnMigration(db, "books", "cover", MigrationCover)
	applyColumnMigration(db, "books", "cover_file_id", MigrationCoverFileID)
	return nil
}

// applyColumnMigration adds a column if it doesn't exist (idempotent).
func applyColumnMigration(db *sql.DB, table, column, ddl string) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil || count > 0 {
		return
	}
	db.Exec(ddl)
}
