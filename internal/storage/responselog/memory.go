// --- File: internal/storage/responselog/memory.go ---
package responselog

import (
	"context"
	"sync"
)

// MemoryWriter collects entries in-process; used by tests, such as the
// Intake's unit tests, that don't stand up Firestore.
type MemoryWriter struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) Write(_ context.Context, e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
}

func (w *MemoryWriter) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}
