package journal

import (
	"context"
	"sync"
)

// MemoryJournal keeps entries for the lifetime of the process.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Record(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, e)
	return nil
}

func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}

	recent := make([]Entry, 0, limit)
	for i := len(j.entries) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, j.entries[i])
	}
	return recent, nil
}
