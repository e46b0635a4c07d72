// Package kv implements a store persisted in a bbolt file
// (https://github.com/etcd-io/bbolt). The keys live in one bucket of the file
// and every update of the store is a bbolt transaction.
package kv

import (
	"bytes"
	"time"

	"go.dedis.ch/dmarket/core/store"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

const (
	filePerm = 0600

	// lockTimeout is how long to wait for a file locked by another process.
	lockTimeout = time.Second
)

// Store is a store persisted in a bucket of a bbolt file.
//
// - implements store.Store
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens or creates the file and returns the store over the bucket. The
// bucket is created by the first update.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, xerrors.New("bucket name is empty")
	}

	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}

	s := &Store{
		db:     db,
		bucket: []byte(bucket),
	}

	return s, nil
}

// View implements store.Store. A view before the first update sees an empty
// store.
func (s *Store) View(fn func(store.Snapshot) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(snapshot{bucket: tx.Bucket(s.bucket)})
	})
}

// Update implements store.Store. The transaction is rolled back when the
// callback fails.
func (s *Store) Update(fn func(store.Snapshot) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return xerrors.Errorf("failed to create bucket: %v", err)
		}

		return fn(snapshot{bucket: bucket, writable: true})
	})
}

// Close implements store.Store. The store cannot be used afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// snapshot reads and writes a bucket during a transaction. The memory of the
// bucket is only valid until the transaction ends, so the snapshot hands out
// copies.
//
// - implements store.Snapshot
type snapshot struct {
	bucket   *bbolt.Bucket
	writable bool
}

// Get implements store.Readable.
func (s snapshot) Get(key []byte) ([]byte, error) {
	if s.bucket == nil {
		return nil, nil
	}

	value := s.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	return append([]byte{}, value...), nil
}

// Set implements store.Writable.
func (s snapshot) Set(key, value []byte) error {
	if !s.writable {
		return xerrors.New("snapshot is read-only")
	}

	return s.bucket.Put(key, value)
}

// Delete implements store.Writable.
func (s snapshot) Delete(key []byte) error {
	if !s.writable {
		return xerrors.New("snapshot is read-only")
	}

	return s.bucket.Delete(key)
}

// Scan implements store.Iterable. bbolt keeps the keys sorted, so the cursor
// walks the prefix in the lexicographic order.
func (s snapshot) Scan(prefix []byte, fn func(key, value []byte) error) error {
	if s.bucket == nil {
		return nil
	}

	cursor := s.bucket.Cursor()

	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		err := fn(append([]byte{}, k...), append([]byte{}, v...))
		if err != nil {
			return xerrors.Errorf("callback failed: %v", err)
		}
	}

	return nil
}
