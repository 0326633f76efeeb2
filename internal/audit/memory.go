package audit

import (
	"context"
	"sync"
)

// MemoryBackend keeps the most recent entries in memory.
type MemoryBackend struct {
	entries []*Entry
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryBackend creates a ring of at most maxSize entries.
func NewMemoryBackend(maxSize int) *MemoryBackend {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryBackend{maxSize: maxSize}
}

// Write appends entries, evicting the oldest ones beyond capacity.
func (m *MemoryBackend) Write(_ context.Context, entries []*Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entries...)
	if over := len(m.entries) - m.maxSize; over > 0 {
		m.entries = append([]*Entry(nil), m.entries[over:]...)
	}
	return nil
}

// Query returns matching entries in insertion order.
func (m *MemoryBackend) Query(_ context.Context, filter *Filter) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, e := range m.entries {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	return paginate(out, filter), nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

func matches(e *Entry, f *Filter) bool {
	if f == nil {
		return true
	}
	if f.ToolName != "" && e.ToolName != f.ToolName {
		return false
	}
	if f.CallID != "" && e.CallID != f.CallID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.ErrorCode != "" && e.ErrorCode != f.ErrorCode {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

func paginate(out []*Entry, f *Filter) []*Entry {
	if f == nil {
		return out
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*Entry{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
