package node

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReflectInjector_Resolve(t *testing.T) {
	inj := NewInjector()

	inj.Inject("abc")

	var dep string
	err := inj.Resolve(&dep)
	require.NoError(t, err)
	require.Equal(t, "abc", dep)

	var dep2 uint64
	err = inj.Resolve(&dep2)
	require.EqualError(t, err, "couldn't find dependency for 'uint64'")

	err = inj.Resolve((*interface{})(nil))
	require.EqualError(t, err, "reflect value '<nil>' is invalid")

	err = inj.Resolve(dep2)
	require.EqualError(t, err, "expect a pointer")
}

func TestReflectInjector_Order_Resolve(t *testing.T) {
	inj := NewInjector()

	inj.Inject(fakeNamed("first"))
	inj.Inject(&fakeNamed2{name: "second"})

	var named fmt.Stringer
	require.NoError(t, inj.Resolve(&named))
	require.Equal(t, "first", named.String())

	inj.Inject(fakeNamed("replaced"))

	require.NoError(t, inj.Resolve(&named))
	require.Equal(t, "replaced", named.String())
	require.Len(t, inj.(*reflectInjector).deps, 2)
}

func TestReflectInjector_Concurrent(t *testing.T) {
	inj := NewInjector()

	wg := sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < 100; i++ {
			inj.Inject(i)
		}
	}()

	go func() {
		defer wg.Done()

		for i := 0; i < 100; i++ {
			var v int
			_ = inj.Resolve(&v)
		}
	}()

	wg.Wait()

	var v int
	require.NoError(t, inj.Resolve(&v))
	require.Equal(t, 99, v)
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeNamed string

func (n fakeNamed) String() string {
	return string(n)
}

type fakeNamed2 struct {
	name string
}

func (n *fakeNamed2) String() string {
	return n.name
}
