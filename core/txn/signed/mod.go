// Package signed implements the transactions signed by their author.
//
// The digest of a transaction covers the nonce, the arguments sorted by key and
// the public key of the author, every variable part prefixed with its length.
// The author signs the digest and the ledger verifies the signature before the
// transaction is executed.
package signed

import (
	"encoding/binary"
	"sort"
	"sync"

	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/txn"
	"go.dedis.ch/dmarket/crypto"
	"golang.org/x/xerrors"
)

// Transaction is a transaction signed by its author.
//
// - implements txn.Verifiable
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	author crypto.PublicKey
	sig    crypto.Signature
	digest []byte
}

// NewTransaction returns an unsigned transaction of the author. An argument
// replaces any previous one with the same key.
func NewTransaction(nonce uint64, author crypto.PublicKey, args ...txn.Arg) (*Transaction, error) {
	tx := &Transaction{
		nonce:  nonce,
		args:   make(map[string][]byte, len(args)),
		author: author,
	}

	for _, arg := range args {
		tx.args[arg.Key] = arg.Value
	}

	digest, err := tx.computeDigest()
	if err != nil {
		return nil, xerrors.Errorf("couldn't compute digest: %v", err)
	}

	tx.digest = digest

	return tx, nil
}

// GetID implements txn.Transaction. It returns the digest.
func (t *Transaction) GetID() []byte {
	return t.digest
}

// GetNonce implements txn.Transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. It returns the public key of the
// author.
func (t *Transaction) GetIdentity() access.Identity {
	return t.author
}

// GetArg implements txn.Transaction.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Keys returns the keys of the arguments in ascending order.
func (t *Transaction) Keys() []string {
	keys := make([]string, 0, len(t.args))
	for key := range t.args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Sign signs the digest with the signer, which must be the author.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if !signer.GetPublicKey().Equal(t.author) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.digest)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Verify implements txn.Verifiable. The digest is computed again so that a
// transaction altered after its signature is rejected.
func (t *Transaction) Verify() error {
	if t.sig == nil {
		return xerrors.New("missing signature")
	}

	digest, err := t.computeDigest()
	if err != nil {
		return xerrors.Errorf("couldn't compute digest: %v", err)
	}

	err = t.author.Verify(digest, t.sig)
	if err != nil {
		return xerrors.Errorf("invalid signature: %v", err)
	}

	return nil
}

func (t *Transaction) computeDigest() ([]byte, error) {
	author, err := t.author.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	data := binary.LittleEndian.AppendUint64(nil, t.nonce)

	for _, key := range t.Keys() {
		data = appendPart(data, []byte(key))
		data = appendPart(data, t.args[key])
	}

	data = appendPart(data, author)

	return crypto.Digest(data), nil
}

func appendPart(data, part []byte) []byte {
	data = binary.LittleEndian.AppendUint32(data, uint32(len(part)))
	return append(data, part...)
}

// Client returns the next nonce expected for an identity.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager creates the transactions of a signer. It counts the nonce
// locally, so it must be synchronized when a transaction of the signer has not
// reached the ledger.
//
// - implements txn.Manager
type TransactionManager struct {
	sync.Mutex

	client Client
	signer crypto.Signer
	nonce  uint64
}

// NewManager creates a new transaction manager.
func NewManager(signer crypto.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client: client,
		signer: signer,
	}
}

// Make implements txn.Manager. It returns a signed transaction with the
// arguments.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	mgr.Lock()
	defer mgr.Unlock()

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), args...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.Lock()
	mgr.nonce = nonce
	mgr.Unlock()

	dmarket.Logger.Debug().Uint64("nonce", nonce).Msg("manager synchronized")

	return nil
}
