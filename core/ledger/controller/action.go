package controller

import (
	"fmt"
	"io"

	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/config"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/ledger"
	"go.dedis.ch/dmarket/core/txn"
	"go.dedis.ch/dmarket/crypto"
	"golang.org/x/xerrors"
)

// keyAction prints the account of the key of the node. It runs on the CLI
// process so that the key can be created before the node starts.
type keyAction struct {
	create bool
	out    io.Writer
}

// Run loads the key, or creates it if allowed, and prints its account.
func (a keyAction) Run(flags cli.Flags) error {
	dir := flags.Path("config")

	cfg, err := config.Load(dir)
	if err != nil {
		return xerrors.Errorf("failed to load config: %v", err)
	}

	signer, err := loadSigner(cfg.KeyPath(dir), a.create)
	if err != nil {
		return xerrors.Errorf("failed to load signer: %v", err)
	}

	account, err := access.AccountOf(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("failed to read account: %v", err)
	}

	fmt.Fprintln(a.out, account)

	return nil
}

// nonceAction is an action to print the next nonce of the node's account.
//
// - implements node.ActionTemplate
type nonceAction struct{}

// Execute implements node.ActionTemplate. It reads the nonce from the ledger.
func (nonceAction) Execute(ctx node.Context) error {
	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var signer crypto.Signer
	err = ctx.Injector.Resolve(&signer)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	nonce, err := l.GetNonce(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("failed to get nonce: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%d", nonce)

	return nil
}

// Submit creates a transaction with the arguments, signed by the node, and
// executes it on the ledger. It returns an error when the transaction is
// refused.
func Submit(inj node.Injector, args ...txn.Arg) error {
	var l *ledger.Ledger
	err := inj.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var mgr txn.Manager
	err = inj.Resolve(&mgr)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	res, err := l.Submit(mgr, args...)
	if err != nil {
		return xerrors.Errorf("failed to submit: %v", err)
	}

	if !res.Accepted {
		return xerrors.Errorf("transaction refused: %w", res.Err)
	}

	return nil
}
