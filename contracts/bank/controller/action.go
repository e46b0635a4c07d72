package controller

import (
	"fmt"

	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/ledger"
	ledgerctrl "go.dedis.ch/dmarket/core/ledger/controller"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/txn"
	"golang.org/x/xerrors"
)

// mintAction is an action to mint currency.
//
// - implements node.ActionTemplate
type mintAction struct{}

// Execute implements node.ActionTemplate. It submits a MINT transaction.
func (mintAction) Execute(ctx node.Context) error {
	to := ctx.Flags.String("to")
	if to == "" {
		account, err := nodeAccount(ctx.Injector)
		if err != nil {
			return err
		}

		to = account
	}

	value, err := amount.Parse(ctx.Flags.String("amount"))
	if err != nil {
		return xerrors.Errorf("invalid amount: %v", err)
	}

	err = ledgerctrl.Submit(ctx.Injector, makeArgs(bank.CmdMint, to, value)...)
	if err != nil {
		return xerrors.Errorf("failed to mint: %w", err)
	}

	fmt.Fprintf(ctx.Out, "minted %s to %s", value, to)

	return nil
}

// transferAction is an action to transfer currency from the node's account.
//
// - implements node.ActionTemplate
type transferAction struct{}

// Execute implements node.ActionTemplate. It submits a TRANSFER transaction.
func (transferAction) Execute(ctx node.Context) error {
	to := ctx.Flags.String("to")

	value, err := amount.Parse(ctx.Flags.String("amount"))
	if err != nil {
		return xerrors.Errorf("invalid amount: %v", err)
	}

	err = ledgerctrl.Submit(ctx.Injector, makeArgs(bank.CmdTransfer, to, value)...)
	if err != nil {
		return xerrors.Errorf("failed to transfer: %w", err)
	}

	fmt.Fprintf(ctx.Out, "transferred %s to %s", value, to)

	return nil
}

// balanceAction is an action to print the balances of accounts.
//
// - implements node.ActionTemplate
type balanceAction struct{}

// Execute implements node.ActionTemplate. It reads the balances from the same
// snapshot of the ledger, without a transaction.
func (balanceAction) Execute(ctx node.Context) error {
	accounts := ctx.Flags.StringSlice("account")
	if len(accounts) == 0 {
		account, err := nodeAccount(ctx.Injector)
		if err != nil {
			return err
		}

		accounts = []string{account}
	}

	var l *ledger.Ledger
	err := ctx.Injector.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var b bank.Bank
	err = ctx.Injector.Resolve(&b)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	balances := make([]amount.Amount, len(accounts))

	err = l.Query(func(snap store.Snapshot) error {
		for i, account := range accounts {
			balances[i], err = b.Balance(snap, account)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	for i, account := range accounts {
		fmt.Fprintf(ctx.Out, "%s=%s\n", account, balances[i])
	}

	return nil
}

func makeArgs(cmd bank.Command, to string, value amount.Amount) []txn.Arg {
	return []txn.Arg{
		txn.NewArg(native.ContractArg, bank.ContractName),
		txn.NewArg(bank.CmdArg, string(cmd)),
		txn.NewArg(bank.ToArg, to),
		txn.NewArg(bank.AmountArg, value.String()),
	}
}
