// Package history holds the bounded, newest-first list of clipboard entries
// captured by the watcher. It knows nothing about polling or the OS.
package history

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained when New is given a
// non-positive capacity.
const DefaultCapacity = 20

// Entry is one captured clipboard text and the time it was recorded.
type Entry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a fixed-capacity history, newest entry at index 0.
// Add is expected to be called from a single writer; readers may call
// Snapshot concurrently and always observe a complete slice.
type Store struct {
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	entries []Entry // newest first; replaced wholesale on every Add
	version uint64  // total number of Add calls

	subMu   sync.Mutex
	subs    map[uint64]chan struct{}
	nextSub uint64
}

// New returns an empty Store holding at most capacity entries.
func New(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity: capacity,
		now:      time.Now,
		entries:  make([]Entry, 0),
		subs:     make(map[uint64]chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Capacity returns the maximum number of retained entries.
func (s *Store) Capacity() int { return s.capacity }

// Add records content as the newest entry, evicting the oldest one when the
// store is full, and then notifies subscribers.
func (s *Store) Add(content string) {
	s.mu.Lock()
	ts := s.now()
	if len(s.entries) > 0 && ts.Before(s.entries[0].Timestamp) {
		ts = s.entries[0].Timestamp
	}

	keep := s.entries
	if len(keep) >= s.capacity {
		keep = keep[:s.capacity-1]
	}
	next := make([]Entry, 0, len(keep)+1)
	next = append(next, Entry{Content: content, Timestamp: ts})
	next = append(next, keep...)

	s.entries = next
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Snapshot returns a copy of the current entries, newest first.
func (s *Store) Snapshot() []Entry {
	entries, _ := s.View()
	return entries
}

// View returns a copy of the current entries together with the number of
// entries ever added. Both values come from the same state.
func (s *Store) View() ([]Entry, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, s.version
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe registers for change notifications. The channel receives a
// signal after every Add; signals coalesce while the receiver is busy, so a
// consumer should re-read View on each one. Call cancel to unsubscribe; it
// closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
