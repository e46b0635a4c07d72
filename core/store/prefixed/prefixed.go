// Package prefixed implements a snapshot that scopes every key in a namespace.
//
// Several collections can share the same backing store without collision as
// long as they use different namespaces.
package prefixed

import (
	"encoding/binary"

	"go.dedis.ch/dmarket/core/store"
)

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type iterable struct {
	store.Iterable
	prefix []byte
}

type snapshot struct {
	*readable
	*writable
	*iterable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)

	return &snapshot{
		&readable{snap, p},
		&writable{snap, p},
		&iterable{snap, p},
	}
}

// NewReadable creates a new prefixed Readable.
func NewReadable(prefix string, r store.Readable) store.Readable {
	return &readable{r, []byte(prefix)}
}

// Get implements store.Readable. It returns the value of the key in the
// namespace.
func (s *readable) Get(key []byte) ([]byte, error) {
	return s.Readable.Get(NewPrefixedKey(s.prefix, key))
}

// Set implements store.Writable. It sets the key in the namespace.
func (s *writable) Set(key []byte, value []byte) error {
	return s.Writable.Set(NewPrefixedKey(s.prefix, key), value)
}

// Delete implements store.Writable. It deletes the key in the namespace.
func (s *writable) Delete(key []byte) error {
	return s.Writable.Delete(NewPrefixedKey(s.prefix, key))
}

// Scan implements store.Iterable. It iterates over the keys of the namespace
// that start with the prefix. The keys given to the callback are stripped from
// the namespace.
func (s *iterable) Scan(prefix []byte, fn func(key, value []byte) error) error {
	header := len(NewPrefixedKey(s.prefix, nil))

	return s.Iterable.Scan(NewPrefixedKey(s.prefix, prefix), func(k, v []byte) error {
		return fn(k[header:], v)
	})
}

// NewPrefixedKey returns the key scoped in the namespace. The namespace is
// encoded with its length so that a namespace can never be the prefix of
// another one.
func NewPrefixedKey(prefix, key []byte) []byte {
	res := make([]byte, 2, 2+len(prefix)+len(key))
	binary.LittleEndian.PutUint16(res, uint16(len(prefix)))

	res = append(res, prefix...)
	res = append(res, key...)

	return res
}
