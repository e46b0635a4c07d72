// Package store defines the primitives of a simple key/value storage.
//
// A snapshot is a view of the store that can be read and written. A store
// applies the writes of a snapshot atomically: either every write of an update
// is applied, or none of them.
package store

// Readable is the interface for a readable store.
type Readable interface {
	// Get returns the value associated to the key, or nil if the key is not
	// set.
	Get(key []byte) ([]byte, error)
}

// Writable is the interface for a writable store.
type Writable interface {
	Set(key []byte, value []byte) error

	Delete(key []byte) error
}

// Iterable is the interface for a store that can iterate over its keys.
type Iterable interface {
	// Scan calls the function for every key that starts with the prefix, in
	// the lexicographic order of the keys. The iteration stops on the first
	// error returned by the callback.
	Scan(prefix []byte, fn func(key, value []byte) error) error
}

// Snapshot is a state of the store that can be read and write independently. A
// write is applied only to the snapshot reference.
type Snapshot interface {
	Readable
	Writable
	Iterable
}

// Store is a persistent key/value store.
type Store interface {
	// View runs the callback with a read-only snapshot. Any write returns an
	// error.
	View(fn func(Snapshot) error) error

	// Update runs the callback with a writable snapshot. The writes are
	// applied only if the callback returns no error.
	Update(fn func(Snapshot) error) error

	// Close releases the resources of the store.
	Close() error
}
