package fake

import (
	"sort"
	"strings"

	"go.dedis.ch/dmarket/core/store"
)

// InMemorySnapshot is a fake implementation of a store snapshot.
//
// - implements store.Snapshot
type InMemorySnapshot struct {
	values    map[string][]byte
	ErrRead   error
	ErrWrite  error
	ErrDelete error
	ErrScan   error
}

// NewSnapshot creates a new empty snapshot.
func NewSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values: make(map[string][]byte),
	}
}

// NewBadSnapshot creates a new empty snapshot that will always return an error.
func NewBadSnapshot() *InMemorySnapshot {
	return &InMemorySnapshot{
		values:    make(map[string][]byte),
		ErrRead:   fakeErr,
		ErrWrite:  fakeErr,
		ErrDelete: fakeErr,
		ErrScan:   fakeErr,
	}
}

// Len returns the number of keys in the snapshot.
func (snap *InMemorySnapshot) Len() int {
	return len(snap.values)
}

// Get implements store.Snapshot.
func (snap *InMemorySnapshot) Get(key []byte) ([]byte, error) {
	return snap.values[string(key)], snap.ErrRead
}

// Set implements store.Snapshot.
func (snap *InMemorySnapshot) Set(key, value []byte) error {
	if snap.ErrWrite != nil {
		return snap.ErrWrite
	}

	snap.values[string(key)] = value

	return nil
}

// Delete implements store.Snapshot.
func (snap *InMemorySnapshot) Delete(key []byte) error {
	delete(snap.values, string(key))

	return snap.ErrDelete
}

// Scan implements store.Snapshot.
func (snap *InMemorySnapshot) Scan(prefix []byte, fn func(k, v []byte) error) error {
	if snap.ErrScan != nil {
		return snap.ErrScan
	}

	keys := make([]string, 0, len(snap.values))
	for key := range snap.values {
		if strings.HasPrefix(key, string(prefix)) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), append([]byte{}, snap.values[key]...))
		if err != nil {
			return err
		}
	}

	return nil
}

// Store is a fake implementation of a store that runs every session on the
// same in-memory snapshot, without rollback.
//
// - implements store.Store
type Store struct {
	Snapshot  *InMemorySnapshot
	ErrView   error
	ErrUpdate error
	ErrClose  error
}

// NewStore returns a fake store with an empty snapshot.
func NewStore() *Store {
	return &Store{Snapshot: NewSnapshot()}
}

// NewBadStore returns a fake store that fails to open any session.
func NewBadStore() *Store {
	return &Store{Snapshot: NewSnapshot(), ErrView: fakeErr, ErrUpdate: fakeErr, ErrClose: fakeErr}
}

// View implements store.Store.
func (s *Store) View(fn func(store.Snapshot) error) error {
	if s.ErrView != nil {
		return s.ErrView
	}

	return fn(s.Snapshot)
}

// Update implements store.Store.
func (s *Store) Update(fn func(store.Snapshot) error) error {
	if s.ErrUpdate != nil {
		return s.ErrUpdate
	}

	return fn(s.Snapshot)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.ErrClose
}
