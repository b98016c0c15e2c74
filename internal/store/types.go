package store

// Book is one catalog entry. The pair (SourceChatID, SourceMessageID) is the
// natural key: re-ingesting the same source message mutates the existing row
// instead of creating a second one. Empty string means "absent" for every
// text field; timestamps are Unix milliseconds.
type Book struct {
	ID              int64  `json:"id"`
	SourceChatID    int64  `json:"source_chat_id"`
	SourceMessageID int64  `json:"source_message_id"`
	FileID          string `json:"file_id"`
	FileUniqueID    string `json:"file_unique_id"`
	FileName        string `json:"file_name"`
	MimeType        string `json:"mime_type"`
	FileSize        int64  `json:"file_size"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Lang            string `json:"lang"`
	Tags            string `json:"tags"`
	Category        string `json:"category"`
	Cover           string `json:"cover"`
	CoverFileID     string `json:"cover_file_id"`
	Source          string `json:"source"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// BookRef is the key-only projection the cleanup sweeper pages over.
type BookRef struct {
	ID              int64
	SourceChatID    int64
	SourceMessageID int64
}

// Query selects catalog entries. Zero-valued fields do not filter; set
// fields compose with AND. Text matches the FTS index, Lang and Category
// are exact.
type Query struct {
	Text     string
	Lang     string
	Category string
	Limit    int
	Offset   int
}

// CatalogStats aggregates catalog counters.
type CatalogStats struct {
	Books      int64 `json:"books"`
	Languages  int64 `json:"languages"`
	Categories int64 `json:"categories"`
}
