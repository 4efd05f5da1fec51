// --- File: internal/storage/rendezvous/local.go ---
package rendezvous

import (
	"context"
	"sync"
	"time"

	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

// LocalStore is an in-process rendezvous.Store for single-process
// deployments (spec.md §4.1: "acceptable only when the service is
// deployed as one process"). Reads treat expired keys as missing, and a
// background sweep deletes them, so a late Response Intake lookup after TTL
// still sees a miss the same way the Redis-backed store would.
type LocalStore struct {
	mu      sync.Mutex
	entries map[string]localEntry
	stop    chan struct{}
	once    sync.Once
}

type localEntry struct {
	value   string
	expires time.Time
}

// NewLocalStore starts a background sweeper that reaps expired entries
// every sweepInterval. Callers must call Close to stop the sweeper.
func NewLocalStore(sweepInterval time.Duration) *LocalStore {
	s := &LocalStore{
		entries: make(map[string]localEntry),
		stop:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

func (s *LocalStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expires) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (s *LocalStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *LocalStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = localEntry{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (s *LocalStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		return "", rendezvous.ErrNotFound
	}
	return e.value, nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		return false, nil
	}
	return true, nil
}
