// Package execution defines the service that applies a transaction to a
// snapshot of the store.
package execution

import (
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/txn"
)

// Step is the context of an execution.
type Step struct {
	Current txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message explains why the transaction is refused.
	Message string

	// Err is the error returned by the contract when the transaction is
	// refused, so that a caller can match it.
	Err error
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
