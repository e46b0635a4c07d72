// Package ledger implements the host runtime of the contracts.
//
// The ledger applies one transaction at a time to the store. A transaction is
// verified and its nonce checked against the next expected nonce of the
// identity before the execution service runs it. Every mutation of an
// execution is committed in a single update, or discarded when the
// transaction is refused. The nonce of a refused transaction is consumed
// anyway so that it cannot be replayed.
package ledger

import (
	"encoding/binary"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/prefixed"
	"go.dedis.ch/dmarket/core/txn"
	"golang.org/x/xerrors"
)

// Namespace is the store namespace of the nonces.
const Namespace = "ledger"

var (
	promAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmarket_ledger_transactions_accepted_total",
		Help: "total number of accepted transactions",
	})

	promRefused = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmarket_ledger_transactions_refused_total",
		Help: "total number of refused transactions",
	})
)

func init() {
	dmarket.PromCollectors = append(dmarket.PromCollectors, promAccepted, promRefused)
}

// errRefused aborts the update of a refused transaction.
var errRefused = xerrors.New("transaction refused")

// Ledger is the runtime that executes transactions against the store.
//
// - implements signed.Client
type Ledger struct {
	sync.Mutex

	// submit makes a submission atomic from the sync of the manager to the
	// execution.
	submit sync.Mutex

	db     store.Store
	exec   execution.Service
	logger zerolog.Logger
}

// NewLedger creates a new ledger on top of the store. Every transaction is
// given to the execution service.
func NewLedger(db store.Store, exec execution.Service) *Ledger {
	return &Ledger{
		db:     db,
		exec:   exec,
		logger: dmarket.Logger.With().Str("ledger", Namespace).Logger(),
	}
}

// Execute applies the transaction. It returns the result of the execution when
// the transaction is well-formed, otherwise an error. A refused transaction
// leaves the store untouched except for the nonce of its identity.
func (l *Ledger) Execute(tx txn.Transaction) (execution.Result, error) {
	l.Lock()
	defer l.Unlock()

	verifiable, ok := tx.(txn.Verifiable)
	if !ok {
		return execution.Result{}, xerrors.Errorf("transaction '%T' is not verifiable", tx)
	}

	err := verifiable.Verify()
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to verify: %v", err)
	}

	account, err := access.AccountOf(tx.GetIdentity())
	if err != nil {
		return execution.Result{}, xerrors.Errorf("bad identity: %v", err)
	}

	var res execution.Result

	err = l.db.Update(func(snap store.Snapshot) error {
		err := checkAndIncrement(snap, account, tx.GetNonce())
		if err != nil {
			return err
		}

		res, err = l.exec.Execute(snap, execution.Step{Current: tx})
		if err != nil {
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		if !res.Accepted {
			return errRefused
		}

		return nil
	})

	if xerrors.Is(err, errRefused) {
		// The nonce is consumed in its own update.
		err = l.db.Update(func(snap store.Snapshot) error {
			return checkAndIncrement(snap, account, tx.GetNonce())
		})
		if err != nil {
			return execution.Result{}, xerrors.Errorf("failed to consume nonce: %v", err)
		}

		promRefused.Inc()

		l.logger.Warn().
			Hex("tx", tx.GetID()).
			Str("account", account).
			Str("reason", res.Message).
			Msg("transaction refused")

		return res, nil
	}

	if err != nil {
		return execution.Result{}, err
	}

	promAccepted.Inc()

	l.logger.Info().
		Hex("tx", tx.GetID()).
		Str("account", account).
		Uint64("nonce", tx.GetNonce()).
		Msg("transaction accepted")

	return res, nil
}

// Submit creates a transaction with the manager and executes it. The manager
// is synchronized first so that the nonce follows the last transaction of its
// identity.
func (l *Ledger) Submit(mgr txn.Manager, args ...txn.Arg) (execution.Result, error) {
	l.submit.Lock()
	defer l.submit.Unlock()

	err := mgr.Sync()
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := mgr.Make(args...)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	res, err := l.Execute(tx)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to execute tx: %v", err)
	}

	return res, nil
}

// Query runs the function with a read-only snapshot of the store.
func (l *Ledger) Query(fn func(store.Snapshot) error) error {
	return l.db.View(fn)
}

// GetNonce implements signed.Client. It returns the next nonce expected for
// the identity.
func (l *Ledger) GetNonce(identity access.Identity) (uint64, error) {
	account, err := access.AccountOf(identity)
	if err != nil {
		return 0, xerrors.Errorf("bad identity: %v", err)
	}

	var nonce uint64

	err = l.db.View(func(snap store.Snapshot) error {
		nonce, err = readNonce(snap, account)
		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

func checkAndIncrement(snap store.Snapshot, account string, nonce uint64) error {
	expected, err := readNonce(snap, account)
	if err != nil {
		return xerrors.Errorf("failed to read nonce: %v", err)
	}

	if nonce != expected {
		return xerrors.Errorf("nonce '%d' is invalid, expecting '%d'", nonce, expected)
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, expected+1)

	err = prefixed.NewSnapshot(Namespace, snap).Set([]byte(account), buffer)
	if err != nil {
		return xerrors.Errorf("failed to write nonce: %v", err)
	}

	return nil
}

func readNonce(snap store.Readable, account string) (uint64, error) {
	value, err := prefixed.NewReadable(Namespace, snap).Get([]byte(account))
	if err != nil {
		return 0, err
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("invalid nonce value '%x'", value)
	}

	return binary.LittleEndian.Uint64(value), nil
}
