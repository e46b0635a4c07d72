// Package controller implements the controller of the ledger. It opens the
// store, loads the key of the node and injects the ledger, the execution
// service and the transaction manager that the other controllers use.
package controller

import (
	"os"

	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/config"
	"go.dedis.ch/dmarket/core/access"
	"go.dedis.ch/dmarket/core/execution/native"
	"go.dedis.ch/dmarket/core/ledger"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/kv"
	"go.dedis.ch/dmarket/core/store/mem"
	"go.dedis.ch/dmarket/core/txn/signed"
	"go.dedis.ch/dmarket/crypto/ed25519"
	"go.dedis.ch/dmarket/crypto/loader"
	"golang.org/x/xerrors"
)

// newStore is the function used to open the store. It allows us to create a
// different store in the tests.
var newStore = func(cfg config.Config, dir string) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMem:
		return mem.NewStore(), nil
	default:
		s, err := kv.Open(cfg.DBPath(dir), cfg.Bucket)
		if err != nil {
			return nil, err
		}

		return s, nil
	}
}

// miniController is an initializer that creates the ledger of the node.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the ledger.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the flags of the start
// command and the commands to manage the key of the node.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.StringFlag{
			Name:  config.StoreFlag,
			Usage: "store backend of the ledger, kv or mem",
			Env:   "DMARKET_STORE",
		},
		cli.StringFlag{
			Name:  config.MinterFlag,
			Usage: "account allowed to mint, defaults to the node's account",
			Env:   "DMARKET_MINTER",
		},
		cli.StringFlag{
			Name:  config.LogLevelFlag,
			Usage: "level of the logs",
			Env:   "DMARKET_LOGLEVEL",
		},
	)

	cmd := builder.SetCommand("key")
	cmd.SetDescription("Manage the signing key of the node")

	sub := cmd.SetSubCommand("generate")
	sub.SetDescription("create the key if it does not exist and print its account")
	sub.SetAction(keyAction{create: true, out: os.Stdout}.Run)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the account of the key")
	sub.SetAction(keyAction{out: os.Stdout}.Run)

	cmd = builder.SetCommand("nonce")
	cmd.SetDescription("print the next nonce of the node's account")
	cmd.SetAction(builder.MakeAction(nonceAction{}))
}

// OnStart implements node.Initializer. It loads the configuration and the key,
// then creates and injects the ledger.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	dir := flags.Path("config")

	cfg, err := config.Load(dir)
	if err != nil {
		return xerrors.Errorf("failed to load config: %v", err)
	}

	cfg = cfg.Override(flags)

	err = cfg.Validate()
	if err != nil {
		return xerrors.Errorf("invalid config: %v", err)
	}

	lvl, _ := cfg.Level()
	if cfg.LogLevel != "" {
		dmarket.Logger = dmarket.Logger.Level(lvl)
	}

	signer, err := loadSigner(cfg.KeyPath(dir), true)
	if err != nil {
		return xerrors.Errorf("failed to load signer: %v", err)
	}

	db, err := newStore(cfg, dir)
	if err != nil {
		return xerrors.Errorf("failed to open store: %v", err)
	}

	exec := native.NewExecution()
	l := ledger.NewLedger(db, exec)

	inj.Inject(cfg)
	inj.Inject(signer)
	inj.Inject(db)
	inj.Inject(exec)
	inj.Inject(l)
	inj.Inject(signed.NewManager(signer, l))

	account, err := access.AccountOf(signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("failed to read account: %v", err)
	}

	dmarket.Logger.Info().
		Str("store", cfg.Store).
		Str("account", account).
		Msg("ledger ready")

	return nil
}

// OnStop implements node.Initializer. It closes the store.
func (miniController) OnStop(inj node.Injector) error {
	var db store.Store
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing store: %v", err)
	}

	return nil
}

func loadSigner(path string, create bool) (ed25519.Signer, error) {
	l := loader.NewFileLoader(path)

	var data []byte
	var err error

	if create {
		data, err = l.LoadOrCreate(ed25519.Generator{})
	} else {
		data, err = l.Load()
	}

	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("loader: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}
