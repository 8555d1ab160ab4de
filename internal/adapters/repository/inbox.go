// Package repository provides the inbox record store queried by the
// change-watch and poll detectors, and the change notifications that drive
// the change watcher.
package repository

import (
	"context"
	"time"
)

// Record is one received message as stored in the inbox.
type Record struct {
	Sender     string
	Body       string
	ReceivedAt time.Time
}

// Inbox exposes the most recent received message.
type Inbox interface {
	// Latest returns the record with the greatest ReceivedAt.
	// Returns ErrEmpty if the inbox holds no records.
	Latest(ctx context.Context) (Record, error)
}

// Notifier reports that the inbox content may have changed. Notifications
// carry no data; subscribers query the Inbox themselves.
type Notifier interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func()) (cancel func(), err error)
}

// Store is an Inbox that can also be appended to and observed.
type Store interface {
	Inbox
	Notifier
	Append(ctx context.Context, r Record) error
}

var (
	_ Store = (*FileInbox)(nil)
	_ Store = (*MemoryInbox)(nil)
)
