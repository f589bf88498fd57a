// Package history keeps the most-recently-used list of searched cities.
//
// The list is unique under case-insensitive comparison, newest first, and
// never longer than MaxEntries. A Store is loaded from its Persister when
// opened and written back after every mutation.
package history

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/drewbanne/Weatherly/models"

	"go.uber.org/zap"
)

const (
	// MaxEntries bounds the history length
	MaxEntries = 5
	// StorageKey is the namespaced key the history is persisted under
	StorageKey = "weatherly.recent-searches"
)

// ErrNoEntry is returned by Select for an index outside the history
var ErrNoEntry = errors.New("no history entry at that index")

// Entry is one remembered city with its last-known snapshot, if any
type Entry struct {
	City     string                  `json:"city"`
	Snapshot *models.WeatherSnapshot `json:"snapshot,omitempty"`
}

// Persister loads and saves the history array in durable storage
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
	Close() error
}

// Store is the search history. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry
	persister Persister
	logger    *zap.Logger
}

// Open loads the persisted history. A nil persister keeps history in memory only.
// Unreadable storage is logged and the store starts empty; the stored data is
// left as is until the next mutation overwrites it.
func Open(ctx context.Context, p Persister, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Store{persister: p, logger: logger}
	if p == nil {
		return s, nil
	}

	entries, err := p.Load(ctx)
	if err != nil {
		logger.Warn("failed to load history, starting empty", zap.Error(err))
		return s, nil
	}
	// storage written by an older or foreign writer may break the invariants
	for i := len(entries) - 1; i >= 0; i-- {
		s.entries = insert(s.entries, entries[i])
	}
	logger.Debug("history loaded", zap.Int("entries", len(s.entries)))
	return s, nil
}

// Record moves city to the front of the history, dropping any earlier
// occurrence that differs only in case, and returns the new list of names.
// Blank input is a no-op.
func (s *Store) Record(city string, last *models.WeatherSnapshot) []string {
	city = strings.TrimSpace(city)
	if city == "" {
		return s.Names()
	}

	s.mu.Lock()
	if last == nil {
		// keep what we knew about the city when the caller has nothing newer
		for _, e := range s.entries {
			if strings.EqualFold(e.City, city) {
				last = e.Snapshot
				break
			}
		}
	}
	s.entries = insert(s.entries, Entry{City: city, Snapshot: last})
	names := names(s.entries)
	s.persistLocked()
	s.mu.Unlock()

	return names
}

// Attach sets the last-known snapshot of an existing entry without reordering.
// It reports whether a matching entry was found.
func (s *Store) Attach(city string, snap models.WeatherSnapshot) bool {
	city = strings.TrimSpace(city)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if strings.EqualFold(s.entries[i].City, city) {
			s.entries[i].Snapshot = &snap
			s.persistLocked()
			return true
		}
	}
	return false
}

// Clear empties the history
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.persistLocked()
	s.mu.Unlock()
}

// Select returns the city at index, 0 being the most recent
func (s *Store) Select(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.entries) {
		return "", ErrNoEntry
	}
	return s.entries[index].City, nil
}

// Names returns the cities, most recent first
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return names(s.entries)
}

// Entries returns a copy of the history, most recent first
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases the persistence backend
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

// persistLocked writes the current list; failures are logged, not returned.
// Callers hold s.mu.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.persister.Save(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist history", zap.Error(err))
	}
}

// insert returns entries with e at the front, without case-insensitive
// duplicates of e, truncated to MaxEntries. The result is a new slice.
func insert(entries []Entry, e Entry) []Entry {
	e.City = strings.TrimSpace(e.City)
	if e.City == "" {
		return entries
	}
	out := make([]Entry, 0, MaxEntries)
	out = append(out, e)
	for _, existing := range entries {
		if len(out) == MaxEntries {
			break
		}
		if strings.EqualFold(existing.City, e.City) {
			continue
		}
		out = append(out, existing)
	}
	return out
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.City
	}
	return out
}
