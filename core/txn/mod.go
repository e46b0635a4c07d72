// Package txn defines the transactions executed by the ledger.
//
// A transaction carries the arguments of a single contract call. Its author is
// the caller of the contract and its nonce orders the transactions of the
// author, so that each of them is executed at most once.
package txn

import (
	"go.dedis.ch/dmarket/core/access"
)

// Transaction is the input of a contract call.
type Transaction interface {
	// GetID returns the digest of the transaction.
	GetID() []byte

	GetNonce() uint64

	// GetIdentity returns the author of the transaction.
	GetIdentity() access.Identity

	// GetArg returns the value of the argument, or nil if it is not set.
	GetArg(key string) []byte
}

// Verifiable is a transaction that can prove it was created by its author.
type Verifiable interface {
	Transaction

	Verify() error
}

// Arg is a named argument of a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// NewArg returns an argument with a text value.
func NewArg(key, value string) Arg {
	return Arg{Key: key, Value: []byte(value)}
}

// Manager creates the transactions of one author with the next nonce.
type Manager interface {
	Make(args ...Arg) (Transaction, error)

	// Sync fetches the next nonce of the author.
	Sync() error
}
