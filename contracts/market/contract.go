package market

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/contracts/market/types"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the market contract. This interface helps
// in testing the contract.
type commands interface {
	create(snap store.Snapshot, step execution.Step) error
	purchase(snap store.Snapshot, step execution.Step) error
	get(snap store.Snapshot, step execution.Step) error
	list(snap store.Snapshot) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/dmarket.Market"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "market:command"

	// IDArg is the argument's name in the transaction that contains the
	// identifier of the product.
	IDArg = "market:id"

	// NameArg is the argument's name of the product name.
	NameArg = "market:name"

	// DescriptionArg is the argument's name of the product description.
	DescriptionArg = "market:description"

	// ImageArg is the argument's name of the product image.
	ImageArg = "market:image"

	// LocationArg is the argument's name of the product location.
	LocationArg = "market:location"

	// PriceArg is the argument's name of the decimal price of the product.
	PriceArg = "market:price"

	// DepositArg is the argument's name of the decimal value attached to the
	// transaction. It defaults to zero.
	DepositArg = "market:deposit"
)

// Command defines a type of command for the market contract.
type Command string

const (
	// CmdCreate defines the command to list a new product.
	CmdCreate Command = "CREATE"

	// CmdPurchase defines the command to buy a product with the deposit.
	CmdPurchase Command = "PURCHASE"

	// CmdGet defines the command to display a product.
	CmdGet Command = "GET"

	// CmdList defines the command to display all the products.
	CmdList Command = "LIST"
)

var (
	promCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmarket_market_products_created_total",
		Help: "total number of listed products",
	})

	promPurchases = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmarket_market_purchases_total",
		Help: "total number of purchases",
	})

	promRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dmarket_market_commands_rejected_total",
		Help: "total number of rejected commands",
	}, []string{"command"})
)

func init() {
	dmarket.PromCollectors = append(dmarket.PromCollectors, promCreated,
		promPurchases, promRejected)
}

// RegisterContract registers the market contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the native contract of the marketplace.
//
// - implements native.Contract
type Contract struct {
	market Marketplace

	cmd commands

	// printer is the output used by the GET and LIST commands
	printer io.Writer
}

// NewContract creates a new market contract that pays the owners with the
// transfer.
func NewContract(transfer Transfer) Contract {
	contract := Contract{
		market:  NewMarketplace(transfer),
		printer: infoLog{},
	}

	contract.cmd = marketCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	err := c.execute(snap, step, Command(cmd))
	if err != nil {
		promRejected.WithLabelValues(string(cmd)).Inc()

		dmarket.Logger.Warn().Str("contract", "market").Err(err).Msg("command rejected")

		return err
	}

	return nil
}

func (c Contract) execute(snap store.Snapshot, step execution.Step, cmd Command) error {
	if cmd != CmdPurchase && len(step.Current.GetArg(DepositArg)) > 0 {
		return xerrors.Errorf("%s does not accept a deposit", cmd)
	}

	switch cmd {
	case CmdCreate:
		err := c.cmd.create(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to CREATE: %w", err)
		}
	case CmdPurchase:
		err := c.cmd.purchase(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to PURCHASE: %w", err)
		}
	case CmdGet:
		err := c.cmd.get(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to GET: %w", err)
		}
	case CmdList:
		err := c.cmd.list(snap)
		if err != nil {
			return xerrors.Errorf("failed to LIST: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// marketCommand implements the commands of the market contract
//
// - implements commands
type marketCommand struct {
	*Contract
}

// create implements commands. It performs the CREATE command
func (c marketCommand) create(snap store.Snapshot, step execution.Step) error {
	call, err := callOf(step)
	if err != nil {
		return err
	}

	candidate := types.ProductCandidate{
		ID:          string(step.Current.GetArg(IDArg)),
		Name:        string(step.Current.GetArg(NameArg)),
		Description: string(step.Current.GetArg(DescriptionArg)),
		Image:       string(step.Current.GetArg(ImageArg)),
		Location:    string(step.Current.GetArg(LocationArg)),
		Price:       string(step.Current.GetArg(PriceArg)),
	}

	product, err := c.market.CreateProduct(snap, call, candidate)
	if err != nil {
		return err
	}

	promCreated.Inc()

	dmarket.Logger.Info().Str("contract", "market").
		Msgf("product %s listed by %s for %s", product.ID, product.Owner, product.Price)

	return nil
}

// purchase implements commands. It performs the PURCHASE command
func (c marketCommand) purchase(snap store.Snapshot, step execution.Step) error {
	call, err := callOf(step)
	if err != nil {
		return err
	}

	product, err := c.market.PurchaseProduct(snap, call, string(step.Current.GetArg(IDArg)))
	if err != nil {
		return err
	}

	promPurchases.Inc()

	dmarket.Logger.Info().Str("contract", "market").
		Msgf("product %s purchased by %s (%d sold)", product.ID, call.Caller, product.Sold)

	return nil
}

// get implements commands. It performs the GET command
func (c marketCommand) get(snap store.Snapshot, step execution.Step) error {
	id := step.Current.GetArg(IDArg)
	if len(id) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", IDArg)
	}

	product, found, err := c.market.GetProduct(snap, string(id))
	if err != nil {
		return err
	}

	if !found {
		fmt.Fprintf(c.printer, "product %s not found", id)
		return nil
	}

	return c.print(product)
}

// list implements commands. It performs the LIST command
func (c marketCommand) list(snap store.Snapshot) error {
	products, err := c.market.ListProducts(snap)
	if err != nil {
		return err
	}

	for _, product := range products {
		err = c.print(product)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c marketCommand) print(product types.Product) error {
	data, err := product.Serialize(c.market.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize product: %v", err)
	}

	fmt.Fprintf(c.printer, "%s", data)

	return nil
}

// callOf returns the caller account and the deposit of the transaction.
func callOf(step execution.Step) (Call, error) {
	caller, err := access.AccountOf(step.Current.GetIdentity())
	if err != nil {
		return Call{}, xerrors.Errorf("caller: %v", err)
	}

	deposit := amount.Zero()

	arg := step.Current.GetArg(DepositArg)
	if len(arg) > 0 {
		deposit, err = amount.Parse(string(arg))
		if err != nil {
			return Call{}, xerrors.Errorf("'%s': %v", DepositArg, err)
		}
	}

	return Call{Caller: caller, Deposit: deposit}, nil
}

// infoLog defines an output using zerolog
//
// - implements io.writer
type infoLog struct{}

func (h infoLog) Write(p []byte) (int, error) {
	dmarket.Logger.Info().Msg(string(p))

	return len(p), nil
}
