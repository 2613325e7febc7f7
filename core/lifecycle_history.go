package core

import (
	"sync"
)

const defaultHistoryCapacity = 100

type lifecycleHistory struct {
	mu    sync.Mutex
	items []LifecycleRecord
	head  int
	count int
}

func newLifecycleHistory(capacity int) *lifecycleHistory {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &lifecycleHistory{items: make([]LifecycleRecord, capacity)}
}

func (h *lifecycleHistory) Add(record LifecycleRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *lifecycleHistory) Recent(limit int) []LifecycleRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]LifecycleRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *lifecycleHistory) Last() (LifecycleRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return LifecycleRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}
