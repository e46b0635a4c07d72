// Package bank implements the value transfer between accounts.
//
// The balances are stored in the bank namespace of the store, one decimal
// amount per account. Currency enters the system only by minting which is
// restricted to a single account.
package bank

import (
	"fmt"

	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/prefixed"
	"golang.org/x/xerrors"
)

// Namespace is the store namespace of the balances.
const Namespace = "bank"

// InsufficientFundsError is returned when an account does not have enough
// currency for a transfer.
type InsufficientFundsError struct {
	Account string
	Balance amount.Amount
	Needed  amount.Amount
}

// Error implements error.
func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account '%s' has %s, needs %s",
		e.Account, e.Balance, e.Needed)
}

// Bank provides the primitives to read and move balances in a snapshot.
type Bank struct{}

// NewBank returns a new bank.
func NewBank() Bank {
	return Bank{}
}

// Balance returns the balance of the account. An unknown account has a zero
// balance.
func (Bank) Balance(snap store.Readable, account string) (amount.Amount, error) {
	value, err := prefixed.NewReadable(Namespace, snap).Get([]byte(account))
	if err != nil {
		return amount.Zero(), xerrors.Errorf("failed to read balance: %v", err)
	}

	if value == nil {
		return amount.Zero(), nil
	}

	balance, err := amount.Parse(string(value))
	if err != nil {
		return amount.Zero(), xerrors.Errorf("corrupted balance of '%s': %v", account, err)
	}

	return balance, nil
}

// Transfer moves the value from one account to the other. It fails without
// writing anything when the sender does not have enough currency.
func (b Bank) Transfer(snap store.Snapshot, from, to string, value amount.Amount) error {
	if from == "" || to == "" {
		return xerrors.New("missing account")
	}

	balance, err := b.Balance(snap, from)
	if err != nil {
		return err
	}

	if balance.Cmp(value) < 0 {
		return InsufficientFundsError{Account: from, Balance: balance, Needed: value}
	}

	if from == to || value.IsZero() {
		return nil
	}

	remaining, err := balance.Sub(value)
	if err != nil {
		return err
	}

	recipient, err := b.Balance(snap, to)
	if err != nil {
		return err
	}

	received, err := recipient.Add(value)
	if err != nil {
		return xerrors.Errorf("balance of '%s': %v", to, err)
	}

	err = b.write(snap, from, remaining)
	if err != nil {
		return err
	}

	return b.write(snap, to, received)
}

// Mint creates the value on the account.
func (b Bank) Mint(snap store.Snapshot, to string, value amount.Amount) error {
	if to == "" {
		return xerrors.New("missing account")
	}

	balance, err := b.Balance(snap, to)
	if err != nil {
		return err
	}

	balance, err = balance.Add(value)
	if err != nil {
		return xerrors.Errorf("balance of '%s': %v", to, err)
	}

	return b.write(snap, to, balance)
}

func (Bank) write(snap store.Snapshot, account string, balance amount.Amount) error {
	key := []byte(account)

	err := prefixed.NewSnapshot(Namespace, snap).Set(key, []byte(balance.String()))
	if err != nil {
		return xerrors.Errorf("failed to write balance: %v", err)
	}

	return nil
}
