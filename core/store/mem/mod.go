// Package mem implements an in-memory store.
//
// The keys are kept ordered in a B-tree. An update works on a copy-on-write
// clone of the tree which replaces the current one only when the update
// succeeds.
package mem

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Store is an in-memory implementation of a store.
//
// - implements store.Store
type Store struct {
	sync.Mutex

	tree *btree.BTreeG[item]
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{
		tree: btree.NewG(degree, less),
	}
}

// View implements store.Store. It runs the callback with a read-only snapshot
// of the current state.
func (s *Store) View(fn func(store.Snapshot) error) error {
	s.Lock()
	defer s.Unlock()

	return fn(&Snapshot{tree: s.tree, readOnly: true})
}

// Update implements store.Store. It runs the callback with a snapshot that is
// applied to the store only if the callback returns no error.
func (s *Store) Update(fn func(store.Snapshot) error) error {
	s.Lock()
	defer s.Unlock()

	snap := &Snapshot{tree: s.tree.Clone()}

	err := fn(snap)
	if err != nil {
		return err
	}

	s.tree = snap.tree

	return nil
}

// Close implements store.Store. It does nothing.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.Lock()
	defer s.Unlock()

	return s.tree.Len()
}

// Snapshot is a view of the in-memory store.
//
// - implements store.Snapshot
type Snapshot struct {
	tree     *btree.BTreeG[item]
	readOnly bool
}

// Get implements store.Readable. It returns a copy of the value of the key or
// nil if it does not exist.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	it, found := s.tree.Get(item{key: key})
	if !found {
		return nil, nil
	}

	return append([]byte{}, it.value...), nil
}

// Set implements store.Writable. It sets the value of the key.
func (s *Snapshot) Set(key, value []byte) error {
	if s.readOnly {
		return xerrors.New("snapshot is read-only")
	}

	s.tree.ReplaceOrInsert(item{
		key:   append([]byte{}, key...),
		value: append([]byte{}, value...),
	})

	return nil
}

// Delete implements store.Writable. It deletes the key if it exists.
func (s *Snapshot) Delete(key []byte) error {
	if s.readOnly {
		return xerrors.New("snapshot is read-only")
	}

	s.tree.Delete(item{key: key})

	return nil
}

// Scan implements store.Iterable. It iterates over the keys matching the
// prefix in ascending order. The callback must not write to the snapshot.
func (s *Snapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	var err error

	s.tree.AscendGreaterOrEqual(item{key: prefix}, func(it item) bool {
		if !bytes.HasPrefix(it.key, prefix) {
			return false
		}

		err = fn(append([]byte{}, it.key...), append([]byte{}, it.value...))

		return err == nil
	})

	if err != nil {
		return xerrors.Errorf("callback failed: %v", err)
	}

	return nil
}
