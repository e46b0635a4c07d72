package prefixed

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/mem"
)

func TestSnapshot_GetSetDelete(t *testing.T) {
	db := mem.NewStore()

	err := db.Update(func(snap store.Snapshot) error {
		a := NewSnapshot("a", snap)
		b := NewSnapshot("b", snap)

		require.NoError(t, a.Set([]byte("key"), []byte("A")))
		require.NoError(t, b.Set([]byte("key"), []byte("B")))

		value, err := a.Get([]byte("key"))
		require.NoError(t, err)
		require.Equal(t, []byte("A"), value)

		value, err = b.Get([]byte("key"))
		require.NoError(t, err)
		require.Equal(t, []byte("B"), value)

		require.NoError(t, a.Delete([]byte("key")))

		value, err = a.Get([]byte("key"))
		require.NoError(t, err)
		require.Nil(t, value)

		value, err = NewReadable("b", snap).Get([]byte("key"))
		require.NoError(t, err)
		require.Equal(t, []byte("B"), value)

		return nil
	})
	require.NoError(t, err)
}

func TestSnapshot_Scan(t *testing.T) {
	db := mem.NewStore()

	err := db.Update(func(snap store.Snapshot) error {
		products := NewSnapshot("products", snap)
		others := NewSnapshot("product", snap)

		require.NoError(t, products.Set([]byte("1"), []byte("one")))
		require.NoError(t, products.Set([]byte("2"), []byte("two")))
		require.NoError(t, others.Set([]byte("s1"), []byte("other")))

		keys := []string{}
		err := products.Scan(nil, func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"1", "2"}, keys)

		keys = keys[:0]
		err = products.Scan([]byte("2"), func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"2"}, keys)

		return nil
	})
	require.NoError(t, err)
}

func TestNewPrefixedKey(t *testing.T) {
	require.Equal(t, []byte{3, 0, 'a', 'b', 'c', 'k'}, NewPrefixedKey([]byte("abc"), []byte("k")))
	require.Equal(t, []byte{0, 0}, NewPrefixedKey(nil, nil))
}
