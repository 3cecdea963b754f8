package state

import (
	"sync"
	"time"
)

const DefaultJournalSize = 512

// Journal is a bounded in-memory log of change events, kept so the
// serving layer can answer "what happened recently" without replaying
// the live event stream.
type Journal struct {
	mu      sync.RWMutex
	entries []Event
	maxSize int
}

// NewJournal creates a journal holding at most maxEntries events.
func NewJournal(maxEntries int) *Journal {
	if maxEntries <= 0 {
		maxEntries = DefaultJournalSize
	}
	return &Journal{
		entries: make([]Event, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// Add appends events, discarding the oldest past capacity.
func (j *Journal) Add(events ...Event) {
	if len(events) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, events...)
	if len(j.entries) > j.maxSize {
		j.entries = j.entries[len(j.entries)-j.maxSize:]
	}
}

// Recent returns events from the trailing window, oldest first.
func (j *Journal) Recent(window time.Duration) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var result []Event
	for _, e := range j.entries {
		if !e.At.Before(cutoff) {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of stored events.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}
