package controller

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/config"
	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/core/execution/native"
	ledgerctrl "go.dedis.ch/dmarket/core/ledger/controller"
	"go.dedis.ch/dmarket/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestMiniController_SetCommands(t *testing.T) {
	ctrl := NewController()

	call := fake.NewCall()
	ctrl.SetCommands(fakeBuilder{call: call})

	require.Equal(t, 17, call.Len())
	require.Equal(t, "bank", call.Get(0, 0))
	require.Equal(t, "mint", call.Get(2, 0))
	require.Equal(t, "transfer", call.Get(7, 0))
	require.Equal(t, "balance", call.Get(12, 0))
}

func TestMiniController_OnStart(t *testing.T) {
	ctrl := NewController()

	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve native service: couldn't find dependency for '*native.Service'")

	exec := native.NewExecution()
	inj.Inject(exec)

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve config: couldn't find dependency for 'config.Config'")

	inj.Inject(config.Default())

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve signer: couldn't find dependency for 'crypto.Signer'")

	inj.Inject(fake.NewSigner())

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.NoError(t, err)
	require.Equal(t, []string{bank.ContractName}, exec.Names())

	var b bank.Bank
	require.NoError(t, inj.Resolve(&b))

	require.NoError(t, ctrl.OnStop(inj))
}

func TestActions(t *testing.T) {
	inj := startNode(t, "")

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"amount": "100"},
		Out:      out,
	}

	err := mintAction{}.Execute(ctx)
	require.NoError(t, err)

	account := strings.TrimPrefix(out.String(), "minted 100 to ")
	require.True(t, strings.HasPrefix(account, "schnorr:"))

	ctx.Flags = node.FlagSet{"to": "bob", "amount": "30"}

	err = transferAction{}.Execute(ctx)
	require.NoError(t, err)

	out.Reset()
	ctx.Flags = node.FlagSet{}

	err = balanceAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, account+"=70\n", out.String())

	out.Reset()
	ctx.Flags = node.FlagSet{"account": []interface{}{"bob", "carol"}}

	err = balanceAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Equal(t, "bob=30\ncarol=0\n", out.String())

	ctx.Flags = node.FlagSet{"to": "bob", "amount": "71"}

	err = transferAction{}.Execute(ctx)
	require.Error(t, err)

	var insufficient bank.InsufficientFundsError
	require.True(t, xerrors.As(err, &insufficient))
	require.Equal(t, "70", insufficient.Balance.String())
}

func TestMintAction_NotMinter_Execute(t *testing.T) {
	inj := startNode(t, "schnorr:abcd")

	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"amount": "100"},
		Out:      new(bytes.Buffer),
	}

	err := mintAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is not allowed to mint")
}

func TestActions_BadInput(t *testing.T) {
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{"to": "bob", "amount": "abc"},
		Out:      new(bytes.Buffer),
	}

	err := mintAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid amount: malformed amount 'abc'")

	err = transferAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid amount: malformed amount 'abc'")

	ctx.Flags = node.FlagSet{"amount": "1"}

	err = mintAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to resolve signer: couldn't find dependency for 'crypto.Signer'")

	ctx.Flags = node.FlagSet{"to": "bob", "amount": "1"}

	err = transferAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to transfer: injector: couldn't find dependency for '*ledger.Ledger'")

	ctx.Flags = node.FlagSet{"account": []interface{}{"bob"}}

	err = balanceAction{}.Execute(ctx)
	require.EqualError(t, err,
		"injector: couldn't find dependency for '*ledger.Ledger'")
}

// -----------------------------------------------------------------------------
// Utility functions

// startNode starts the ledger and the bank controllers on an in-memory store.
func startNode(t *testing.T, minter string) node.Injector {
	inj := node.NewInjector()

	flags := node.FlagSet{
		"config":          t.TempDir(),
		config.StoreFlag:  config.StoreMem,
		config.MinterFlag: minter,
	}

	err := ledgerctrl.NewController().OnStart(flags, inj)
	require.NoError(t, err)

	err = NewController().OnStart(flags, inj)
	require.NoError(t, err)

	return inj
}

type fakeCommandBuilder struct {
	call *fake.Call
}

func (b fakeCommandBuilder) SetSubCommand(name string) cli.CommandBuilder {
	b.call.Add(name)
	return b
}

func (b fakeCommandBuilder) SetDescription(value string) {
	b.call.Add(value)
}

func (b fakeCommandBuilder) SetFlags(flags ...cli.Flag) {
	b.call.Add(flags)
}

func (b fakeCommandBuilder) SetAction(a cli.Action) {
	b.call.Add(a)
}

type fakeBuilder struct {
	call *fake.Call
}

func (b fakeBuilder) SetCommand(name string) cli.CommandBuilder {
	b.call.Add(name)
	return fakeCommandBuilder(b)
}

func (b fakeBuilder) SetStartFlags(flags ...cli.Flag) {
	b.call.Add(flags)
}

func (b fakeBuilder) MakeAction(tmpl node.ActionTemplate) cli.Action {
	b.call.Add(tmpl)
	return nil
}
