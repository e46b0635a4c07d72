package controller

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/contracts/market"
	"go.dedis.ch/dmarket/contracts/market/types"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/ledger"
	ledgerctrl "go.dedis.ch/dmarket/core/ledger/controller"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/txn"
	"go.dedis.ch/dmarket/serde/json"
	"golang.org/x/xerrors"
)

// newID is the generator of the product identifiers when none is given.
var newID = func() string {
	return uuid.New().String()
}

// createAction is an action to list a new product.
//
// - implements node.ActionTemplate
type createAction struct{}

// Execute implements node.ActionTemplate. It submits a CREATE transaction.
func (createAction) Execute(ctx node.Context) error {
	id := ctx.Flags.String("id")
	if id == "" {
		id = newID()
	}

	args := []txn.Arg{
		txn.NewArg(native.ContractArg, market.ContractName),
		txn.NewArg(market.CmdArg, string(market.CmdCreate)),
		txn.NewArg(market.IDArg, id),
		txn.NewArg(market.NameArg, ctx.Flags.String("name")),
		txn.NewArg(market.DescriptionArg, ctx.Flags.String("description")),
		txn.NewArg(market.ImageArg, ctx.Flags.String("image")),
		txn.NewArg(market.LocationArg, ctx.Flags.String("location")),
		txn.NewArg(market.PriceArg, ctx.Flags.String("price")),
	}

	err := ledgerctrl.Submit(ctx.Injector, args...)
	if err != nil {
		return xerrors.Errorf("failed to create: %w", err)
	}

	fmt.Fprintf(ctx.Out, "product %s created", id)

	return nil
}

// buyAction is an action to purchase a product.
//
// - implements node.ActionTemplate
type buyAction struct{}

// Execute implements node.ActionTemplate. It submits a PURCHASE transaction
// with the deposit attached.
func (buyAction) Execute(ctx node.Context) error {
	id := ctx.Flags.String("id")

	deposit, err := amount.Parse(ctx.Flags.String("deposit"))
	if err != nil {
		return xerrors.Errorf("invalid deposit: %v", err)
	}

	args := []txn.Arg{
		txn.NewArg(native.ContractArg, market.ContractName),
		txn.NewArg(market.CmdArg, string(market.CmdPurchase)),
		txn.NewArg(market.IDArg, id),
		txn.NewArg(market.DepositArg, deposit.String()),
	}

	err = ledgerctrl.Submit(ctx.Injector, args...)
	if err != nil {
		return xerrors.Errorf("failed to buy: %w", err)
	}

	fmt.Fprintf(ctx.Out, "product %s purchased for %s", id, deposit)

	return nil
}

// getAction is an action to print a product.
//
// - implements node.ActionTemplate
type getAction struct{}

// Execute implements node.ActionTemplate. It prints the product in JSON.
func (getAction) Execute(ctx node.Context) error {
	id := ctx.Flags.String("id")

	var product types.Product
	var found bool

	err := query(ctx.Injector, func(m market.Marketplace, snap store.Snapshot) error {
		var err error
		product, found, err = m.GetProduct(snap, id)
		return err
	})
	if err != nil {
		return err
	}

	if !found {
		fmt.Fprintf(ctx.Out, "product %s not found", id)
		return nil
	}

	data, err := product.Serialize(json.NewContext())
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%s", data)

	return nil
}

// listAction is an action to print the products.
//
// - implements node.ActionTemplate
type listAction struct{}

// Execute implements node.ActionTemplate. It prints one product per line, or
// a JSON array when the json flag is set.
func (listAction) Execute(ctx node.Context) error {
	var products []types.Product

	err := query(ctx.Injector, func(m market.Marketplace, snap store.Snapshot) error {
		var err error
		products, err = m.ListProducts(snap)
		return err
	})
	if err != nil {
		return err
	}

	limit := ctx.Flags.Int("limit")
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}

	if ctx.Flags.Bool("json") {
		return printJSON(ctx.Out, products)
	}

	for _, p := range products {
		fmt.Fprintf(ctx.Out, "%s\t%q\t%s\t%d sold\t%s\n",
			p.ID, p.Name, humanize.BigComma(p.Price.Big()), p.Sold, p.Owner)
	}

	return nil
}

func printJSON(out io.Writer, products []types.Product) error {
	ctx := json.NewContext()

	buffer := new(bytes.Buffer)
	buffer.WriteString("[")

	for i, product := range products {
		data, err := product.Serialize(ctx)
		if err != nil {
			return xerrors.Errorf("failed to serialize: %v", err)
		}

		if i > 0 {
			buffer.WriteString(",")
		}

		buffer.Write(data)
	}

	buffer.WriteString("]")

	_, err := buffer.WriteTo(out)

	return err
}

func query(inj node.Injector, fn func(market.Marketplace, store.Snapshot) error) error {
	var l *ledger.Ledger
	err := inj.Resolve(&l)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var m market.Marketplace
	err = inj.Resolve(&m)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = l.Query(func(snap store.Snapshot) error {
		return fn(m, snap)
	})
	if err != nil {
		return xerrors.Errorf("failed to query: %v", err)
	}

	return nil
}
