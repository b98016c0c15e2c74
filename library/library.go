// Package library is the book catalog service: a searchable library whose
// source of truth is a Telegram channel. Documents posted to the channel
// become catalog entries, remove commands delete them, and a periodic
// sweeper reconciles the catalog against messages deleted out of band.
package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/biblio/internal/store"
	"github.com/hazyhaar/biblio/internal/sweep"
	"github.com/hazyhaar/biblio/telegram"
)

// Feed is the slice of the bot API the service depends on. *telegram.Client
// satisfies it; tests substitute a fake.
type Feed interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	FileStream(ctx context.Context, filePath string) (io.ReadCloser, int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64) (int64, error)
}

// Service is the catalog orchestrator. It owns the store and the feed
// client, runs the ingestion poller and the cleanup sweeper, and exposes
// the business methods the HTTP and MCP layers call.
type Service struct {
	store   *store.Store
	feed    Feed
	config  *Config
	logger  *slog.Logger
	sweeper *sweep.Sweeper

	// syncMu serializes ingestion cycles: the background poller and a
	// manual sync must never interleave their cursor advancement.
	syncMu sync.Mutex
}

// New creates a library Service. feed may be nil; the catalog then serves
// reads only and feed-dependent operations return ErrFeedDisabled.
func New(st *store.Store, feed Feed, cfg *Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:  st,
		feed:   feed,
		config: cfg,
		logger: logger,
	}
	if feed != nil && cfg.CleanupInterval > 0 && cfg.MaintChatID != 0 {
		svc.sweeper = sweep.NewSweeper(st, feed, cfg.MaintChatID, logger, cfg.CleanupInterval)
	}
	return svc
}

// Start launches the background loops. It returns immediately; the loops
// stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.feedEnabled() {
		go s.pollLoop(ctx)
	}
	if s.sweeper != nil {
		go s.sweeper.Run(ctx)
	}
}

func (s *Service) feedEnabled() bool {
	return s.feed != nil && s.config.BookChatID != 0
}

// Search returns the catalog page matching q plus the total match count.
// Filter values are trimmed; all set filters compose with AND.
func (s *Service) Search(ctx context.Context, q store.Query) ([]*store.Book, int, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Lang = strings.TrimSpace(q.Lang)
	q.Category = strings.TrimSpace(q.Category)
	books, total, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if books == nil {
		books = []*store.Book{}
	}
	return books, total, nil
}

// Get returns one catalog entry or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*store.Book, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// BookPatch is a partial admin edit. Nil means "leave unchanged"; a pointer
// to the empty string clears the field.
type BookPatch struct {
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	Lang     *string `json:"lang"`
	Tags     *string `json:"tags"`
	Source   *string `json:"source"`
	Category *string `json:"category"`
	Cover    *string `json:"cover"`
}

// Update applies an admin edit to a catalog entry and returns the updated
// row. Set values are trimmed; lang and tags are normalized. Returns
// ErrNoFields when the patch sets nothing and ErrNotFound for an unknown id.
func (s *Service) Update(ctx context.Context, id int64, patch BookPatch) (*store.Book, error) {
	fields := map[string]string{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("title", patch.Title)
	set("author", patch.Author)
	set("source", patch.Source)
	set("category", patch.Category)
	set("cover", patch.Cover)
	if patch.Lang != nil {
		fields["lang"] = NormalizeLang(*patch.Lang)
	}
	if patch.Tags != nil {
		fields["tags"] = NormalizeTags(strings.TrimSpace(*patch.Tags))
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	err := s.store.Update(ctx, id, fields)
	switch err {
	case nil:
	case store.ErrNotFound:
		return nil, ErrNotFound
	case store.ErrNoFields:
		return nil, ErrNoFields
	default:
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a catalog entry. With alsoFeed set, the source channel
// message is deleted first, best-effort: a feed failure is logged and the
// catalog deletion proceeds. Returns ErrNotFound for an unknown id and
// whether a row was actually removed.
func (s *Service) Delete(ctx context.Context, id int64, alsoFeed bool) (bool, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, ErrNotFound
	}
	if alsoFeed && s.feed != nil {
		if err := s.feed.DeleteMessage(ctx, b.SourceChatID, b.SourceMessageID); err != nil {
			s.logger.Warn("library: delete source message",
				"book_id", id, "message_id", b.SourceMessageID, "error", err)
		}
	}
	return s.store.Delete(ctx, id)
}

// Stats returns aggregate catalog counters.
func (s *Service) Stats(ctx context.Context) (*store.CatalogStats, error) {
	return s.store.Stats(ctx)
}

// Download resolves a book's file in the feed and opens its byte stream.
// The caller owns the reader. Size is -1 when the feed does not announce a
// length. The stream is single-pass and must be forwarded incrementally.
func (s *Service) Download(ctx context.Context, id int64) (*store.Book, io.ReadCloser, int64, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.feed == nil {
		return nil, nil, 0, ErrFeedDisabled
	}
	f, err := s.feed.GetFile(ctx, b.FileID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("library: resolve file: %w", err)
	}
	if f.FilePath == "" {
		return nil, nil, 0, fmt.Errorf("library: feed returned no file path for book %d", id)
	}
	rc, size, err := s.feed.FileStream(ctx, f.FilePath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("library: open file stream: %w", err)
	}
	return b, rc, size, nil
}

// SweepOnce runs one reconciliation pass immediately. Returns a zero Result
// when the sweeper is not configured.
func (s *Service) SweepOnce(ctx context.Context) sweep.Result {
	if s.sweeper == nil {
		return sweep.Result{}
	}
	return s.sweeper.SweepOnce(ctx)
}
