// Package file implements the persistence interfaces on flat JSON documents
// in a local state directory. The maps are bounded by the monitoring ceiling
// and non-relational, so a structured database would be overkill; every
// mutation is flushed with a temp-file-and-rename write.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"spotfence/internal/domain/repository"

	"github.com/pkg/errors"
)

const (
	regionsFile = "regions.json"
	ledgerFile  = "ledger.json"
)

// RegionBookkeepingStore is the file-backed id -> display-name map.
type RegionBookkeepingStore struct {
	path string

	mu      sync.Mutex
	entries map[string]string
}

// NewRegionBookkeepingStore loads (or initializes) the bookkeeping map from
// the state directory.
func NewRegionBookkeepingStore(dir string) (repository.RegionBookkeepingStore, error) {
	store := &RegionBookkeepingStore{
		path:    filepath.Join(dir, regionsFile),
		entries: make(map[string]string),
	}
	if err := loadJSON(store.path, &store.entries); err != nil {
		return nil, errors.Wrap(err, "load region bookkeeping")
	}

	return store, nil
}

// All returns a copy of the full bookkeeping map.
func (s *RegionBookkeepingStore) All(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}

	return out, nil
}

// DisplayName looks up the recorded name for a spot id.
func (s *RegionBookkeepingStore) DisplayName(_ context.Context, spotID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.entries[spotID]

	return name, ok, nil
}

// Upsert records or updates the name for a spot id and flushes.
func (s *RegionBookkeepingStore) Upsert(_ context.Context, spotID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[spotID] = displayName

	return s.flush()
}

// Remove deletes the entry for a spot id and flushes.
func (s *RegionBookkeepingStore) Remove(_ context.Context, spotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, spotID)

	return s.flush()
}

// Clear empties the map and flushes.
func (s *RegionBookkeepingStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]string)

	return s.flush()
}

func (s *RegionBookkeepingStore) flush() error {
	return writeJSON(s.path, s.entries)
}

// NotificationLedgerStore is the file-backed id -> last-fired map.
type NotificationLedgerStore struct {
	path string

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewNotificationLedgerStore loads (or initializes) the ledger from the
// state directory.
func NewNotificationLedgerStore(dir string) (repository.NotificationLedgerStore, error) {
	store := &NotificationLedgerStore{
		path:    filepath.Join(dir, ledgerFile),
		entries: make(map[string]time.Time),
	}
	if err := loadJSON(store.path, &store.entries); err != nil {
		return nil, errors.Wrap(err, "load notification ledger")
	}

	return store, nil
}

// LastFired returns the most recent delivery time for a spot id.
func (s *NotificationLedgerStore) LastFired(_ context.Context, spotID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	firedAt, ok := s.entries[spotID]

	return firedAt, ok, nil
}

// RecordFired stores the delivery time for a spot id and flushes.
func (s *NotificationLedgerStore) RecordFired(_ context.Context, spotID string, firedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[spotID] = firedAt

	return s.flush()
}

// PruneOlderThan removes entries before the cutoff and flushes when any were
// removed.
func (s *NotificationLedgerStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, firedAt := range s.entries {
		if firedAt.Before(cutoff) {
			delete(s.entries, id)
			pruned++
		}
	}

	if pruned == 0 {
		return 0, nil
	}

	return pruned, s.flush()
}

func (s *NotificationLedgerStore) flush() error {
	return writeJSON(s.path, s.entries)
}

// loadJSON reads a JSON document into out; a missing file leaves out empty.
func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.WithStack(err)
	}

	return errors.WithStack(json.Unmarshal(data, out))
}

// writeJSON flushes a document with temp-file-and-rename so readers never
// observe a partial write.
func writeJSON(path string, in any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.Rename(tmp, path))
}
