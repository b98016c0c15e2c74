package library

import "time"

// Config configures the library service.
type Config struct {
	// BookChatID is the source channel documents are ingested from.
	// Zero disables ingestion; the catalog then serves reads only.
	BookChatID int64

	// MaintChatID is the throwaway chat the sweeper copies probe messages
	// into. Zero disables the sweeper.
	MaintChatID int64

	// PollInterval is the pause between ingestion cycles.
	PollInterval time.Duration

	// PollTimeout bounds the long-poll wait, in whole seconds.
	PollTimeout time.Duration

	// CleanupInterval is the pause between sweeper cycles. Zero disables
	// the sweeper.
	CleanupInterval time.Duration

	// CoverCacheDir is where feed thumbnails are cached on disk.
	CoverCacheDir string
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 10 * time.Second
	}
	if c.CoverCacheDir == "" {
		c.CoverCacheDir = "data/covers"
	}
}
