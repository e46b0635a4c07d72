package bank

import (
	"fmt"
	"io"

	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the bank contract. This interface helps in
// testing the contract.
type commands interface {
	mint(snap store.Snapshot, step execution.Step) error
	transfer(snap store.Snapshot, step execution.Step) error
	balance(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/dmarket.Bank"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "bank:command"

	// ToArg is the argument's name in the transaction that contains the
	// account receiving the currency.
	ToArg = "bank:to"

	// AmountArg is the argument's name in the transaction that contains the
	// decimal amount to mint or transfer.
	AmountArg = "bank:amount"

	// AccountArg is the argument's name in the transaction that contains the
	// account to display. The caller is used when it is missing.
	AccountArg = "bank:account"
)

// Command defines a type of command for the bank contract.
type Command string

const (
	// CmdMint defines the command to create currency.
	CmdMint Command = "MINT"

	// CmdTransfer defines the command to move currency from the caller to
	// another account.
	CmdTransfer Command = "TRANSFER"

	// CmdBalance defines the command to display the balance of an account.
	CmdBalance Command = "BALANCE"
)

// RegisterContract registers the bank contract to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract of the bank.
//
// - implements native.Contract
type Contract struct {
	bank Bank

	// minter is the only account allowed to mint.
	minter string

	cmd commands

	// printer is the output used by the BALANCE command
	printer io.Writer
}

// NewContract creates a new bank contract where only the minter account is
// allowed to create currency.
func NewContract(minter string) Contract {
	contract := Contract{
		bank:    NewBank(),
		minter:  minter,
		printer: infoLog{},
	}

	contract.cmd = bankCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdMint:
		err := c.cmd.mint(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to MINT: %w", err)
		}
	case CmdTransfer:
		err := c.cmd.transfer(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to TRANSFER: %w", err)
		}
	case CmdBalance:
		err := c.cmd.balance(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to BALANCE: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// bankCommand implements the commands of the bank contract
//
// - implements commands
type bankCommand struct {
	*Contract
}

// mint implements commands. It performs the MINT command
func (c bankCommand) mint(snap store.Snapshot, step execution.Step) error {
	caller, err := access.AccountOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("caller: %v", err)
	}

	if c.minter == "" || caller != c.minter {
		return xerrors.Errorf("account '%s' is not allowed to mint", caller)
	}

	to, value, err := readTransfer(step)
	if err != nil {
		return err
	}

	err = c.bank.Mint(snap, to, value)
	if err != nil {
		return err
	}

	dmarket.Logger.Info().Str("contract", "bank").Msgf("minted %s to %s", value, to)

	return nil
}

// transfer implements commands. It performs the TRANSFER command
func (c bankCommand) transfer(snap store.Snapshot, step execution.Step) error {
	caller, err := access.AccountOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("caller: %v", err)
	}

	to, value, err := readTransfer(step)
	if err != nil {
		return err
	}

	err = c.bank.Transfer(snap, caller, to, value)
	if err != nil {
		return xerrors.Errorf("transfer: %w", err)
	}

	dmarket.Logger.Info().Str("contract", "bank").
		Msgf("transferred %s from %s to %s", value, caller, to)

	return nil
}

// balance implements commands. It performs the BALANCE command
func (c bankCommand) balance(snap store.Snapshot, step execution.Step) error {
	account := string(step.Current.GetArg(AccountArg))
	if account == "" {
		caller, err := access.AccountOf(step.Current.GetIdentity())
		if err != nil {
			return xerrors.Errorf("caller: %v", err)
		}

		account = caller
	}

	balance, err := c.bank.Balance(snap, account)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.printer, "%s=%s", account, balance)

	return nil
}

func readTransfer(step execution.Step) (string, amount.Amount, error) {
	to := step.Current.GetArg(ToArg)
	if len(to) == 0 {
		return "", amount.Zero(), xerrors.Errorf("'%s' not found in tx arg", ToArg)
	}

	value, err := amount.Parse(string(step.Current.GetArg(AmountArg)))
	if err != nil {
		return "", amount.Zero(), xerrors.Errorf("'%s': %v", AmountArg, err)
	}

	return string(to), value, nil
}

// infoLog defines an output using zerolog
//
// - implements io.writer
type infoLog struct{}

func (h infoLog) Write(p []byte) (int, error) {
	dmarket.Logger.Info().Msg(string(p))

	return len(p), nil
}
