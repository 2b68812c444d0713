// Package pending tracks users who were asked for a chapter number and
// whose next text message should be read as one.
package pending

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL bounds how long an unanswered prompt stays pending.
const DefaultTTL = 10 * time.Minute

// Store holds the per-user "awaiting chapter number" flag.
type Store interface {
	Mark(ctx context.Context, userID int64) error
	Pending(ctx context.Context, userID int64) (bool, error)
	Clear(ctx context.Context, userID int64) error
}

// Memory is an in-process Store. Entries expire after the TTL.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-process store. ttl <= 0 means DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]time.Time),
	}
}

// Mark flags the user as awaiting a chapter number.
func (m *Memory) Mark(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = m.now().Add(m.ttl)
	return nil
}

// Pending reports whether the user has an unexpired flag.
func (m *Memory) Pending(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.entries[userID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(expires) {
		delete(m.entries, userID)
		return false, nil
	}
	return true, nil
}

// Clear removes the user's flag.
func (m *Memory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, expires := range m.entries {
		if !now.Before(expires) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Janitor periodically sweeps a Memory store.
type Janitor struct {
	store    *Memory
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewJanitor creates a background sweeper.
func NewJanitor(store *Memory, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (j *Janitor) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			select {
			case <-j.stopChan:
				return
			case <-time.After(j.interval):
			}
			if n := j.store.Sweep(); n > 0 {
				j.logger.Debug("expired pending prompts", "removed", n)
			}
		}
	}()
}

// Stop stops the janitor gracefully.
func (j *Janitor) Stop() {
	close(j.stopChan)
	j.wg.Wait()
}
