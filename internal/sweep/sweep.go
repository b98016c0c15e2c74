// Package sweep reconciles the catalog against the source channel.
//
// The bot API offers no way to ask whether a message still exists, so the
// sweeper probes indirectly: it copies each cataloged source message into a
// throwaway maintenance chat and immediately deletes the copy. A copy that
// fails because the source is gone identifies a silently-deleted message,
// and the catalog entry is purged. Every other failure leaves the entry
// alone.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/biblio/internal/store"
)

// Feed is the slice of the bot API the sweeper probes with.
type Feed interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID, messageID int64) (int64, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Result reports the outcome of one sweep cycle.
type Result struct {
	Probed int `json:"probed"`
	Purged int `json:"purged"`
	Failed int `json:"failed"`
}

// Sweeper periodically probes every cataloged source message.
type Sweeper struct {
	store       *store.Store
	feed        Feed
	maintChatID int64
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	probeDelay  time.Duration
}

// NewSweeper creates a Sweeper probing into maintChatID.
func NewSweeper(st *store.Store, feed Feed, maintChatID int64, logger *slog.Logger, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Sweeper{
		store:       st,
		feed:        feed,
		maintChatID: maintChatID,
		logger:      logger,
		interval:    interval,
		batchSize:   200,
		probeDelay:  200 * time.Millisecond,
	}
}

// Run sweeps once immediately, then on every interval tick. Blocks until
// ctx.Done().
func (sw *Sweeper) Run(ctx context.Context) {
	sw.logger.Info("sweeper: started", "interval", sw.interval)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("sweeper: stopped")
			return
		case <-ticker.C:
			sw.cycle(ctx)
		}
	}
}

func (sw *Sweeper) cycle(ctx context.Context) {
	res := sw.SweepOnce(ctx)
	if res.Probed > 0 {
		sw.logger.Info("sweeper: cycle done",
			"probed", res.Probed, "purged", res.Purged, "failed", res.Failed)
	}
}

// SweepOnce probes the whole catalog in batches and returns the tallies.
// It stops early when ctx is cancelled.
func (sw *Sweeper) SweepOnce(ctx context.Context) Result {
	var res Result
	offset := 0
	for {
		refs, err := sw.store.ListRefs(ctx, sw.batchSize, offset)
		if err != nil {
			sw.logger.Warn("sweeper: list refs", "error", err)
			return res
		}
		if len(refs) == 0 {
			return res
		}
		for _, ref := range refs {
			if ctx.Err() != nil {
				return res
			}
			sw.probe(ctx, ref, &res)
			if err := sleepCtx(ctx, sw.probeDelay); err != nil {
				return res
			}
		}
		offset += sw.batchSize
	}
}

// probe copies one source message into the maintenance chat. Success means
// the source still exists; the copy is deleted best-effort. A "gone" failure
// purges the catalog entry; anything else is logged and the entry kept.
func (sw *Sweeper) probe(ctx context.Context, ref store.BookRef, res *Result) {
	res.Probed++

	copyID, err := sw.feed.CopyMessage(ctx, sw.maintChatID, ref.SourceChatID, ref.SourceMessageID)
	if err == nil {
		if derr := sw.feed.DeleteMessage(ctx, sw.maintChatID, copyID); derr != nil {
			sw.logger.Debug("sweeper: undo copy", "book_id", ref.ID, "error", derr)
		}
		return
	}

	if MessageGone(err) {
		if _, perr := sw.store.Delete(ctx, ref.ID); perr != nil {
			res.Failed++
			sw.logger.Warn("sweeper: purge", "book_id", ref.ID, "error", perr)
			return
		}
		res.Purged++
		sw.logger.Info("sweeper: purged entry for deleted source message",
			"book_id", ref.ID, "message_id", ref.SourceMessageID)
		return
	}

	res.Failed++
	sw.logger.Warn("sweeper: probe failed", "book_id", ref.ID,
		"message_id", ref.SourceMessageID, "error", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
