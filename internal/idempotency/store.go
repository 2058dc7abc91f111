package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInFlight is returned by Begin while an earlier request with the same
// key has not finished.
var ErrInFlight = errors.New("request with this idempotency key is in flight")

type State int

const (
	// Fresh means the caller owns the key and must Finish or Abort it.
	Fresh State = iota
	// Done means a request with the key already succeeded.
	Done
)

const (
	valuePending = "pending"
	valueDone    = "done"
)

// Store deduplicates requests carrying a client idempotency key.
type Store interface {
	Begin(ctx context.Context, key string) (State, error)
	Finish(ctx context.Context, key string) error
	Abort(ctx context.Context, key string) error
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Store used when Redis is not configured.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Begin(ctx context.Context, key string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, ok := m.entries[key]; ok && now.Before(entry.expires) {
		if entry.value == valueDone {
			return Done, nil
		}
		return Fresh, ErrInFlight
	}
	m.entries[key] = memoryEntry{value: valuePending, expires: now.Add(m.ttl)}
	return Fresh, nil
}

func (m *Memory) Finish(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: valueDone, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Abort(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
