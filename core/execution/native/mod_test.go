package native

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/txn"
	"go.dedis.ch/dmarket/internal/testing/fake"
)

func TestService_Set(t *testing.T) {
	srvc := NewExecution()
	srvc.Set("bank", fakeContract{})

	require.PanicsWithError(t, "contract 'bank' already registered", func() {
		srvc.Set("bank", fakeContract{})
	})

	require.PanicsWithValue(t, "contract name is empty", func() {
		srvc.Set("", fakeContract{})
	})
}

func TestService_Names(t *testing.T) {
	srvc := NewExecution()
	require.Empty(t, srvc.Names())

	srvc.Set("market", fakeContract{})
	srvc.Set("bank", fakeContract{})
	require.Equal(t, []string{"bank", "market"}, srvc.Names())
}

func TestService_Execute(t *testing.T) {
	srvc := NewExecution()
	srvc.Set("good", fakeContract{})
	srvc.Set("bad", fakeContract{err: fake.GetError()})
	srvc.Set("panic", fakeContract{panics: true})

	res, err := srvc.Execute(nil, makeStep("good"))
	require.NoError(t, err)
	require.Equal(t, execution.Result{Accepted: true}, res)

	res, err = srvc.Execute(nil, makeStep("bad"))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, fake.GetError().Error(), res.Message)
	require.Equal(t, fake.GetError(), res.Err)

	res, err = srvc.Execute(nil, makeStep("panic"))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, "contract panicked: sold out", res.Message)

	_, err = srvc.Execute(nil, makeStep("none"))
	require.EqualError(t, err, "unknown contract 'none'")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeStep(contract string) execution.Step {
	return execution.Step{Current: fakeTx{contract: contract}}
}

type fakeContract struct {
	err    error
	panics bool
}

func (c fakeContract) Execute(store.Snapshot, execution.Step) error {
	if c.panics {
		panic("sold out")
	}

	return c.err
}

type fakeTx struct {
	txn.Transaction
	contract string
}

func (tx fakeTx) GetArg(key string) []byte {
	return []byte(tx.contract)
}
