package domain

import (
	"context"
	"time"
)

// RecordQuery selects rows from the classification output table, newest
// first.
type RecordQuery struct {
	GenuineOnly bool
	Since       time.Time // zero means no lower bound
	Limit       int       // <= 0 means no limit
}

// ChangeEvent is one row change announced by the data source's realtime feed.
type ChangeEvent struct {
	Table  string
	Op     string // INSERT, UPDATE or DELETE
	Record RawRecord

	Topic     string
	Partition int
	Offset    int64

	// Commit acknowledges the event. Nil when the feed needs no acknowledgement.
	Commit func(ctx context.Context) error
}

// ResponderCredential is a stored first-responder login.
type ResponderCredential struct {
	Username     string
	PasswordHash string
	LastLogin    time.Time
	CreatedAt    time.Time
}
