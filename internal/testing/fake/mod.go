// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed by
// the unit test and it is also possible to record the call of functions of an
// object in some cases.
package fake

import (
	"math/big"
	"sync"

	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error.
func GetError() error {
	return fakeErr
}

// Err returns the expected message of an error wrapping the fake error.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// NewCall returns a new empty call tracker.
func NewCall() *Call {
	return &Call{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.Lock()
	defer c.Unlock()

	c.calls = append(c.calls, args)
}

// Identity is a fake implementation of an identity named after an account.
//
// - implements access.Identity
type Identity struct {
	Account string
	Err     error
}

// NewIdentity returns the identity of the account.
func NewIdentity(account string) Identity {
	return Identity{Account: account}
}

// MarshalText implements encoding.TextMarshaler.
func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.Account), i.Err
}

// Equal implements access.Identity.
func (i Identity) Equal(other interface{}) bool {
	o, ok := other.(Identity)
	return ok && o.Account == i.Account
}

// Transaction is a fake implementation of a transaction.
//
// - implements txn.Transaction
type Transaction struct {
	ID       []byte
	Nonce    uint64
	Identity access.Identity
	Args     map[string][]byte
	Err      error
}

// NewTransaction returns a transaction from the identity with the arguments
// given as pairs of key and value.
func NewTransaction(identity access.Identity, pairs ...string) Transaction {
	args := make(map[string][]byte)

	for i := 0; i+1 < len(pairs); i += 2 {
		args[pairs[i]] = []byte(pairs[i+1])
	}

	return Transaction{
		ID:       []byte{0xaa},
		Identity: identity,
		Args:     args,
	}
}

// GetID implements txn.Transaction.
func (tx Transaction) GetID() []byte {
	return tx.ID
}

// GetNonce implements txn.Transaction.
func (tx Transaction) GetNonce() uint64 {
	return tx.Nonce
}

// GetIdentity implements txn.Transaction.
func (tx Transaction) GetIdentity() access.Identity {
	return tx.Identity
}

// GetArg implements txn.Transaction.
func (tx Transaction) GetArg(key string) []byte {
	return tx.Args[key]
}

// Verify returns the error of the fake, nil by default.
func (tx Transaction) Verify() error {
	return tx.Err
}

// Transfer is a fake value transfer that records the transfers.
type Transfer struct {
	Calls *Call
	Err   error
}

// NewTransfer returns a new fake transfer.
func NewTransfer() Transfer {
	return Transfer{Calls: NewCall()}
}

// NewBadTransfer returns a fake transfer that always fails.
func NewBadTransfer() Transfer {
	return Transfer{Calls: NewCall(), Err: fakeErr}
}

// Transfer implements the value transfer. It records the transfer unless the
// fake is configured to fail.
func (t Transfer) Transfer(snap store.Snapshot, from, to string, value amount.Amount) error {
	if t.Err != nil {
		return t.Err
	}

	t.Calls.Add(from, to, value)

	return nil
}

// Total returns the amount received by the account.
func (t Transfer) Total(to string) *big.Int {
	total := new(big.Int)

	for i := 0; i < t.Calls.Len(); i++ {
		if t.Calls.Get(i, 1) == to {
			total.Add(total, t.Calls.Get(i, 2).(amount.Amount).Big())
		}
	}

	return total
}

// BadWriter is a writer that always fails.
type BadWriter struct{}

// Write implements io.Writer.
func (BadWriter) Write([]byte) (int, error) {
	return 0, fakeErr
}
