package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

func TestStore_Update(t *testing.T) {
	db := NewStore()

	err := db.Update(func(snap store.Snapshot) error {
		require.NoError(t, snap.Set([]byte("A"), []byte{1}))
		require.NoError(t, snap.Set([]byte("B"), []byte{2}))

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, db.Len())

	err = db.Update(func(snap store.Snapshot) error {
		require.NoError(t, snap.Set([]byte("C"), []byte{3}))
		require.NoError(t, snap.Delete([]byte("A")))

		return xerrors.New("oops")
	})
	require.EqualError(t, err, "oops")

	err = db.View(func(snap store.Snapshot) error {
		value, err := snap.Get([]byte("A"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, value)

		value, err = snap.Get([]byte("C"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)
}

func TestStore_View(t *testing.T) {
	db := NewStore()

	err := db.View(func(snap store.Snapshot) error {
		require.EqualError(t, snap.Set([]byte("A"), nil), "snapshot is read-only")
		require.EqualError(t, snap.Delete([]byte("A")), "snapshot is read-only")

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSnapshot_Set(t *testing.T) {
	db := NewStore()

	value := []byte{1}

	err := db.Update(func(snap store.Snapshot) error {
		return snap.Set([]byte("A"), value)
	})
	require.NoError(t, err)

	// The store keeps its own copy of the value.
	value[0] = 2

	err = db.View(func(snap store.Snapshot) error {
		res, err := snap.Get([]byte("A"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, res)

		// Neither does a value returned by a read.
		res[0] = 3

		return nil
	})
	require.NoError(t, err)

	err = db.View(func(snap store.Snapshot) error {
		res, err := snap.Get([]byte("A"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, res)

		return snap.Scan(nil, func(key, value []byte) error {
			value[0] = 4
			return nil
		})
	})
	require.NoError(t, err)

	err = db.View(func(snap store.Snapshot) error {
		res, err := snap.Get([]byte("A"))
		require.NoError(t, err)
		require.Equal(t, []byte{1}, res)

		return nil
	})
	require.NoError(t, err)
}

func TestSnapshot_Scan(t *testing.T) {
	db := NewStore()

	err := db.Update(func(snap store.Snapshot) error {
		require.NoError(t, snap.Set([]byte("ab"), []byte{2}))
		require.NoError(t, snap.Set([]byte("aa"), []byte{1}))
		require.NoError(t, snap.Set([]byte("b"), []byte{3}))

		keys := []string{}
		err := snap.Scan([]byte("a"), func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"aa", "ab"}, keys)

		count := 0
		err = snap.Scan(nil, func(k, v []byte) error {
			count++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, count)

		err = snap.Scan(nil, func(k, v []byte) error {
			return xerrors.New("oops")
		})
		require.EqualError(t, err, "callback failed: oops")

		return nil
	})
	require.NoError(t, err)
}
