// Package controller implements a controller for the bank contract.
package controller

import (
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/config"
	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/crypto"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer to register the bank contract and
// move currency between accounts.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the bank contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the command to control the
// bank.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("bank")
	cmd.SetDescription("Handles the bank contract")

	sub := cmd.SetSubCommand("mint")
	sub.SetDescription("create currency on an account, only allowed to the minter")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "to",
			Usage: "account to credit, defaults to the node's account",
		},
		cli.StringFlag{
			Name:     "amount",
			Usage:    "decimal amount to mint",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(mintAction{}))

	sub = cmd.SetSubCommand("transfer")
	sub.SetDescription("transfer currency from the node's account")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "to",
			Usage:    "account to credit",
			Required: true,
		},
		cli.StringFlag{
			Name:     "amount",
			Usage:    "decimal amount to transfer",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(transferAction{}))

	sub = cmd.SetSubCommand("balance")
	sub.SetDescription("print the balance of accounts")
	sub.SetFlags(cli.StringSliceFlag{
		Name:  "account",
		Usage: "accounts to read, defaults to the node's account",
	})
	sub.SetAction(builder.MakeAction(balanceAction{}))
}

// OnStart implements node.Initializer. It registers the bank contract. The
// minter is the account of the configuration, or the node's account.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var cfg config.Config
	err = inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("failed to resolve config: %v", err)
	}

	minter := cfg.Minter
	if minter == "" {
		minter, err = nodeAccount(inj)
		if err != nil {
			return err
		}
	}

	bank.RegisterContract(exec, bank.NewContract(minter))

	inj.Inject(bank.NewBank())

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}

func nodeAccount(inj node.Injector) (string, error) {
	var signer crypto.Signer
	err := inj.Resolve(&signer)
	if err != nil {
		return "", xerrors.Errorf("failed to resolve signer: %v", err)
	}

	account, err := access.AccountOf(signer.GetPublicKey())
	if err != nil {
		return "", xerrors.Errorf("failed to read account: %v", err)
	}

	return account, nil
}
