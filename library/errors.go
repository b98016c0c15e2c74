package library

import "errors"

// ErrNotFound is returned when the requested catalog entry does not exist.
var ErrNotFound = errors.New("library: book not found")

// ErrNoFields is returned by Update when the patch sets nothing updatable.
var ErrNoFields = errors.New("library: no fields to update")

// ErrFeedDisabled is returned when an operation needs the message feed but
// no bot token or source channel is configured.
var ErrFeedDisabled = errors.New("library: feed not configured")
