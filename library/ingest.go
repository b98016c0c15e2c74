package library

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/biblio/internal/store"
	"github.com/hazyhaar/biblio/telegram"
)

// cursorKey names the meta row holding the next feed event id to request.
const cursorKey = "tg_offset"

// removeCommand is the channel text command that removes a catalog entry.
const removeCommand = "/remove"

// pollLoop runs ingestion cycles until ctx is cancelled: one immediately,
// then one per poll interval. A failed cycle is logged and retried at the
// next tick from the last committed cursor, so no event is ever skipped.
func (s *Service) pollLoop(ctx context.Context) {
	s.logger.Info("poller: started", "interval", s.config.PollInterval, "chat_id", s.config.BookChatID)
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if n, err := s.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("poller: stopped")
				return
			}
			s.logger.Warn("poller: cycle failed", "processed", n, "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("poller: stopped")
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce runs one ingestion cycle: fetch the next batch of feed events at
// the persisted cursor and process them in order, advancing the cursor past
// each event only after its side effect has been applied. Returns how many
// events were fully processed. Cycles are mutually exclusive; a manual sync
// and the background poller never interleave.
func (s *Service) SyncOnce(ctx context.Context) (int, error) {
	if !s.feedEnabled() {
		return 0, ErrFeedDisabled
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	offset, err := s.store.GetCursor(ctx, cursorKey)
	if err != nil {
		return 0, err
	}
	updates, err := s.feed.GetUpdates(ctx, offset, int(s.config.PollTimeout.Seconds()))
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range updates {
		u := &updates[i]
		if err := s.processUpdate(ctx, u); err != nil {
			// The cursor stays on this event; the next cycle re-delivers it.
			return processed, fmt.Errorf("update %d: %w", u.UpdateID, err)
		}
		if err := s.store.SetCursor(ctx, cursorKey, u.UpdateID+1); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// processUpdate applies one feed event to the catalog. Events without a
// message, from other chats, or without a document are skip decisions, not
// errors: they still advance the cursor.
func (s *Service) processUpdate(ctx context.Context, u *telegram.Update) error {
	msg := u.Msg()
	if msg == nil {
		return nil
	}
	if msg.Chat.ID != s.config.BookChatID {
		return nil
	}
	if strings.HasPrefix(msg.Text, removeCommand) {
		return s.handleRemove(ctx, msg)
	}
	if msg.Document == nil {
		return nil
	}
	return s.ingestDocument(ctx, msg)
}

// handleRemove resolves the remove target from the command argument or the
// reply reference (the reply wins) and deletes the catalog entry by natural
// key. The source message delete and the acknowledgement are best-effort.
// An unresolvable command is a no-op.
func (s *Service) handleRemove(ctx context.Context, msg *telegram.Message) error {
	var target int64
	parts := strings.Fields(msg.Text)
	if len(parts) >= 2 {
		if n, err := strconv.ParseInt(parts[1], 10, 64); err == nil && n > 0 {
			target = n
		}
	}
	if msg.ReplyTo != nil && msg.ReplyTo.MessageID != 0 {
		target = msg.ReplyTo.MessageID
	}
	if target == 0 {
		return nil
	}

	removed, err := s.store.DeleteByKey(ctx, msg.Chat.ID, target)
	if err != nil {
		return err
	}
	if err := s.feed.DeleteMessage(ctx, msg.Chat.ID, target); err != nil {
		s.logger.Debug("poller: delete source message", "message_id", target, "error", err)
	}
	if removed {
		s.logger.Info("poller: removed book", "chat_id", msg.Chat.ID, "message_id", target)
		if err := s.feed.SendMessage(ctx, msg.Chat.ID, fmt.Sprintf("Removed book %d.", target)); err != nil {
			s.logger.Warn("poller: send ack", "message_id", target, "error", err)
		}
	}
	return nil
}

// ingestDocument turns a document message into an idempotent catalog upsert
// keyed by (chat id, message id).
func (s *Service) ingestDocument(ctx context.Context, msg *telegram.Message) error {
	fields := ParseCaption(msg.Caption)
	doc := msg.Document

	source := fields["source"]
	if source == "" && msg.From != nil {
		source = msg.From.Username
	}

	b := &store.Book{
		SourceChatID:    msg.Chat.ID,
		SourceMessageID: msg.MessageID,
		FileID:          doc.FileID,
		FileUniqueID:    doc.FileUniqueID,
		FileName:        doc.FileName,
		MimeType:        doc.MimeType,
		FileSize:        doc.FileSize,
		Title:           fields["title"],
		Author:          fields["author"],
		Lang:            NormalizeLang(fields["lang"]),
		Tags:            NormalizeTags(fields["tags"]),
		Category:        strings.TrimSpace(fields["category"]),
		CoverFileID:     doc.ThumbFileID(),
		Source:          source,
	}
	stored, err := s.store.Upsert(ctx, b)
	if err != nil {
		return err
	}
	s.logger.Debug("poller: upserted book",
		"book_id", stored.ID, "message_id", msg.MessageID, "title", stored.Title)
	return nil
}
