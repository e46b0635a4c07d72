// Package controller implements a controller for the market contract.
//
// The create and buy commands are transactions signed by the node, while get
// and list read the products from the ledger without a transaction.
package controller

import (
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/contracts/market"
	"go.dedis.ch/dmarket/core/execution/native"
	"golang.org/x/xerrors"
)

// miniController is a CLI initializer to register the market contract and
// manage the products.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new minimal controller for the market contract. It
// must come after the bank controller.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands to manage the
// products.
func (miniController) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("product")
	cmd.SetDescription("Handles the market contract")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("list a new product owned by the node's account")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "id",
			Usage: "identifier of the product, generated if empty",
		},
		cli.StringFlag{
			Name:     "name",
			Usage:    "name of the product",
			Required: true,
		},
		cli.StringFlag{
			Name:  "description",
			Usage: "description of the product",
		},
		cli.StringFlag{
			Name:  "image",
			Usage: "URL of the image of the product",
		},
		cli.StringFlag{
			Name:  "location",
			Usage: "location of the product",
		},
		cli.StringFlag{
			Name:     "price",
			Usage:    "decimal price of the product",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(createAction{}))

	sub = cmd.SetSubCommand("get")
	sub.SetDescription("print a product")
	sub.SetFlags(cli.StringFlag{
		Name:     "id",
		Usage:    "identifier of the product",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(getAction{}))

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("print the products ordered by identifier")
	sub.SetFlags(
		cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of products to print, all if zero",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "print the products as a JSON array",
		},
	)
	sub.SetAction(builder.MakeAction(listAction{}))

	sub = cmd.SetSubCommand("buy")
	sub.SetDescription("purchase a product with the node's account")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "id",
			Usage:    "identifier of the product",
			Required: true,
		},
		cli.StringFlag{
			Name:     "deposit",
			Usage:    "decimal value attached to the purchase, must be the price",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(buyAction{}))
}

// OnStart implements node.Initializer. It registers the market contract that
// pays the owners with the bank.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var b bank.Bank
	err = inj.Resolve(&b)
	if err != nil {
		return xerrors.Errorf("failed to resolve bank: %v", err)
	}

	market.RegisterContract(exec, market.NewContract(b))

	inj.Inject(market.NewMarketplace(b))

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}
