// Package access defines the identity of the author of a transaction.
//
// The account of an identity is its text representation. It is the name under
// which the ledger records the balances and the ownership of the products.
package access

import (
	"encoding"

	"golang.org/x/xerrors"
)

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.TextMarshaler

	// Equal returns true when both identities are the same.
	Equal(other interface{}) bool
}

// AccountOf returns the account identifier of the identity.
func AccountOf(identity Identity) (string, error) {
	if identity == nil {
		return "", xerrors.New("missing identity")
	}

	text, err := identity.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal identity: %v", err)
	}

	if len(text) == 0 {
		return "", xerrors.New("empty identity")
	}

	return string(text), nil
}
