package repository

import (
	"context"
	"sync"
)

// MemoryInbox keeps records in memory. It is used when no inbox file is
// configured and in tests.
type MemoryInbox struct {
	mu      sync.Mutex
	records []Record
	subs    map[int]func()
	nextSub int
	failure error
}

// NewMemoryInbox creates an empty in-memory inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{subs: make(map[int]func())}
}

// Latest returns the most recently received record.
func (m *MemoryInbox) Latest(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failure != nil {
		return Record{}, m.failure
	}
	if len(m.records) == 0 {
		return Record{}, ErrEmpty
	}
	latest := m.records[0]
	for _, r := range m.records[1:] {
		if r.ReceivedAt.After(latest.ReceivedAt) {
			latest = r
		}
	}
	return latest, nil
}

// Append stores r and notifies subscribers.
func (m *MemoryInbox) Append(_ context.Context, r Record) error {
	m.mu.Lock()
	m.records = append(m.records, r)
	subs := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// Subscribe registers fn to run after every Append.
func (m *MemoryInbox) Subscribe(fn func()) (func(), error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

// SetFailure makes Latest return err until cleared with nil.
func (m *MemoryInbox) SetFailure(err error) {
	m.mu.Lock()
	m.failure = err
	m.mu.Unlock()
}

// Len returns the number of stored records.
func (m *MemoryInbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
