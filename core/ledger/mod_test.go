package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/mem"
	"go.dedis.ch/dmarket/core/txn"
	"go.dedis.ch/dmarket/core/txn/signed"
	"go.dedis.ch/dmarket/crypto/ed25519"
	"go.dedis.ch/dmarket/internal/testing/fake"
)

func TestLedger_Execute(t *testing.T) {
	db := mem.NewStore()
	ledger := NewLedger(db, fakeExec{})

	alice := fake.NewIdentity("alice")

	res, err := ledger.Execute(fake.NewTransaction(alice, "key", "A"))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	tx := fake.NewTransaction(alice, "key", "B")
	tx.Nonce = 1

	res, err = ledger.Execute(tx)
	require.NoError(t, err)
	require.True(t, res.Accepted)

	require.Equal(t, "A", string(get(t, db, "A")))
	require.Equal(t, "B", string(get(t, db, "B")))

	nonce, err := ledger.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)

	nonce, err = ledger.GetNonce(fake.NewIdentity("bob"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

func TestLedger_ExecuteRefused(t *testing.T) {
	db := mem.NewStore()
	ledger := NewLedger(db, fakeExec{})

	alice := fake.NewIdentity("alice")

	res, err := ledger.Execute(fake.NewTransaction(alice, "key", "A", "refuse", "yes"))
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, "refused", res.Message)
	require.Equal(t, fake.GetError(), res.Err)

	// The write of the refused transaction is discarded but the nonce is
	// consumed.
	require.Nil(t, get(t, db, "A"))

	nonce, err := ledger.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	// The same transaction cannot be replayed.
	_, err = ledger.Execute(fake.NewTransaction(alice, "key", "A", "refuse", "yes"))
	require.EqualError(t, err, "nonce '0' is invalid, expecting '1'")
}

func TestLedger_ExecuteInvalid(t *testing.T) {
	ledger := NewLedger(mem.NewStore(), fakeExec{})

	_, err := ledger.Execute(unverifiableTx{})
	require.EqualError(t, err, "transaction 'ledger.unverifiableTx' is not verifiable")

	tx := fake.NewTransaction(fake.NewIdentity("alice"))
	tx.Err = fake.GetError()
	_, err = ledger.Execute(tx)
	require.EqualError(t, err, fake.Err("failed to verify"))

	_, err = ledger.Execute(fake.NewTransaction(fake.Identity{Err: fake.GetError()}))
	require.EqualError(t, err,
		fake.Err("bad identity: failed to marshal identity"))

	tx = fake.NewTransaction(fake.NewIdentity("alice"))
	tx.Nonce = 5
	_, err = ledger.Execute(tx)
	require.EqualError(t, err, "nonce '5' is invalid, expecting '0'")

	ledger.exec = fakeExec{err: fake.GetError()}
	_, err = ledger.Execute(fake.NewTransaction(fake.NewIdentity("alice")))
	require.EqualError(t, err, fake.Err("failed to execute tx"))

	ledger = NewLedger(fake.NewBadStore(), fakeExec{})
	_, err = ledger.Execute(fake.NewTransaction(fake.NewIdentity("alice")))
	require.EqualError(t, err, fake.GetError().Error())

	db := fake.NewStore()
	db.Snapshot.ErrRead = fake.GetError()
	ledger = NewLedger(db, fakeExec{})
	_, err = ledger.Execute(fake.NewTransaction(fake.NewIdentity("alice")))
	require.EqualError(t, err, fake.Err("failed to read nonce"))

	db = fake.NewStore()
	db.Snapshot.ErrWrite = fake.GetError()
	ledger = NewLedger(db, fakeExec{})
	_, err = ledger.Execute(fake.NewTransaction(fake.NewIdentity("alice")))
	require.EqualError(t, err, fake.Err("failed to write nonce"))
}

func TestLedger_GetNonce(t *testing.T) {
	ledger := NewLedger(fake.NewBadStore(), fakeExec{})

	_, err := ledger.GetNonce(fake.NewIdentity("alice"))
	require.EqualError(t, err, fake.Err("failed to read nonce"))

	_, err = ledger.GetNonce(nil)
	require.EqualError(t, err, "bad identity: missing identity")

	db := fake.NewStore()
	ledger = NewLedger(db, fakeExec{})

	err = db.Snapshot.Set(prefixedKey("alice"), []byte{1})
	require.NoError(t, err)

	_, err = ledger.GetNonce(fake.NewIdentity("alice"))
	require.EqualError(t, err, "failed to read nonce: invalid nonce value '01'")
}

func TestLedger_Query(t *testing.T) {
	db := mem.NewStore()
	ledger := NewLedger(db, fakeExec{})

	_, err := ledger.Execute(fake.NewTransaction(fake.NewIdentity("alice"), "key", "A"))
	require.NoError(t, err)

	err = ledger.Query(func(snap store.Snapshot) error {
		value, err := snap.Get([]byte("A"))
		require.Equal(t, []byte("A"), value)

		return err
	})
	require.NoError(t, err)
}

func TestLedger_SignedTransactions(t *testing.T) {
	exec := native.NewExecution()
	exec.Set("fake", fakeContract{})

	ledger := NewLedger(mem.NewStore(), exec)

	signer := ed25519.NewSigner()

	mgr := signed.NewManager(signer, ledger)
	require.NoError(t, mgr.Sync())

	for i := 0; i < 3; i++ {
		tx, err := mgr.Make(txn.Arg{Key: native.ContractArg, Value: []byte("fake")})
		require.NoError(t, err)

		res, err := ledger.Execute(tx)
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	// A manager out of sync creates transactions with a stale nonce.
	stale := signed.NewManager(signer, ledger)

	tx, err := stale.Make(txn.Arg{Key: native.ContractArg, Value: []byte("fake")})
	require.NoError(t, err)

	_, err = ledger.Execute(tx)
	require.EqualError(t, err, "nonce '0' is invalid, expecting '3'")

	require.NoError(t, stale.Sync())

	tx, err = stale.Make(txn.Arg{Key: native.ContractArg, Value: []byte("fake")})
	require.NoError(t, err)

	res, err := ledger.Execute(tx)
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestLedger_Submit(t *testing.T) {
	exec := native.NewExecution()
	exec.Set("fake", fakeContract{})
	exec.Set("refuse", refusingContract{})

	ledger := NewLedger(mem.NewStore(), exec)

	signer := ed25519.NewSigner()
	mgr := signed.NewManager(signer, ledger)

	for i := 0; i < 2; i++ {
		res, err := ledger.Submit(mgr, txn.Arg{Key: native.ContractArg, Value: []byte("fake")})
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}

	res, err := ledger.Submit(mgr, txn.Arg{Key: native.ContractArg, Value: []byte("refuse")})
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, fake.GetError().Error(), res.Message)

	nonce, err := ledger.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)

	_, err = ledger.Submit(badManager{errSync: fake.GetError()})
	require.EqualError(t, err, fake.Err("failed to sync manager"))

	_, err = ledger.Submit(badManager{errMake: fake.GetError()})
	require.EqualError(t, err, fake.Err("failed to make tx"))

	_, err = ledger.Submit(badManager{tx: unverifiableTx{}})
	require.EqualError(t, err,
		"failed to execute tx: transaction 'ledger.unverifiableTx' is not verifiable")
}

func TestLedger_Concurrent_Submit(t *testing.T) {
	exec := native.NewExecution()
	exec.Set("fake", fakeContract{})

	ledger := NewLedger(mem.NewStore(), exec)

	signer := ed25519.NewSigner()
	mgr := signed.NewManager(signer, ledger)

	n := 10

	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			res, err := ledger.Submit(mgr, txn.NewArg(native.ContractArg, "fake"))
			require.NoError(t, err)
			require.True(t, res.Accepted)
		}()
	}

	wg.Wait()

	nonce, err := ledger.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(n), nonce)
}

// -----------------------------------------------------------------------------
// Utility functions

type badManager struct {
	tx      txn.Transaction
	errSync error
	errMake error
}

func (m badManager) Make(...txn.Arg) (txn.Transaction, error) {
	return m.tx, m.errMake
}

func (m badManager) Sync() error {
	return m.errSync
}

func get(t *testing.T, db store.Store, key string) []byte {
	var value []byte

	err := db.View(func(snap store.Snapshot) error {
		var err error
		value, err = snap.Get([]byte(key))

		return err
	})
	require.NoError(t, err)

	return value
}

func prefixedKey(account string) []byte {
	return append([]byte{byte(len(Namespace)), 0}, append([]byte(Namespace), account...)...)
}

type fakeExec struct {
	err error
}

func (e fakeExec) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	if e.err != nil {
		return execution.Result{}, e.err
	}

	key := step.Current.GetArg("key")
	if key != nil {
		err := snap.Set(key, key)
		if err != nil {
			return execution.Result{}, err
		}
	}

	if step.Current.GetArg("refuse") != nil {
		return execution.Result{Message: "refused", Err: fake.GetError()}, nil
	}

	return execution.Result{Accepted: true}, nil
}

type fakeContract struct{}

func (fakeContract) Execute(store.Snapshot, execution.Step) error {
	return nil
}

type refusingContract struct{}

func (refusingContract) Execute(store.Snapshot, execution.Step) error {
	return fake.GetError()
}

type unverifiableTx struct {
	txn.Transaction
}
