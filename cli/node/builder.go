// This file contains the builder of the application of a node.

package node

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/ucli"
	"golang.org/x/xerrors"
)

const (
	appName = "dmarket"

	configFlag = "config"
	configEnv  = "DMARKET_CONFIG"
	configDir  = ".dmarket"
)

// CLIBuilder builds the application of a node from its initializers.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	cli.Builder

	daemonFactory DaemonFactory
	injector      Injector
	actions       *actionMap
	startFlags    []cli.Flag
	inits         []Initializer

	// The node stops when it receives on the channel. The signals are only
	// registered when the builder owns the channel, tests send on it instead.
	sigs   chan os.Signal
	notify bool
}

// NewBuilder returns the builder of a node with the initializers. The output of
// the commands goes to the standard output.
func NewBuilder(inits ...Initializer) *CLIBuilder {
	return NewBuilderWithCfg(nil, nil, inits...)
}

// NewBuilderWithCfg returns the builder of a node that stops when it receives
// on the channel and that prints the output of the commands to the writer.
func NewBuilderWithCfg(sigs chan os.Signal, out io.Writer, inits ...Initializer) *CLIBuilder {
	if out == nil {
		out = os.Stdout
	}

	notify := sigs == nil
	if notify {
		sigs = make(chan os.Signal, 1)
	}

	injector := NewInjector()
	actions := &actionMap{}

	app := ucli.NewBuilder(appName, "node of the dmarket marketplace", cli.StringFlag{
		Name:    configFlag,
		Aliases: []string{"c"},
		Usage:   "path to the folder of the node",
		Env:     configEnv,
		Value:   configDir,
	})

	return &CLIBuilder{
		Builder: app,
		daemonFactory: socketFactory{
			injector: injector,
			actions:  actions,
			out:      out,
		},
		injector: injector,
		actions:  actions,
		inits:    inits,
		sigs:     sigs,
		notify:   notify,
	}
}

// SetStartFlags implements node.Builder.
func (b *CLIBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

// MakeAction implements node.Builder. The action sends the values of the flags
// of the command and of its ancestors to the daemon.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	id := b.actions.Set(tmpl)

	return func(flags cli.Flags) error {
		client, err := b.daemonFactory.ClientFromContext(flags)
		if err != nil {
			return xerrors.Errorf("couldn't make client: %v", err)
		}

		ctx, ok := flags.(*urfave.Context)
		if !ok {
			return xerrors.Errorf("unsupported flags of type '%T'", flags)
		}

		err = client.Send(id, collectFlags(ctx))
		if err != nil {
			return xerrors.Errorf("couldn't send action: %v", err)
		}

		return nil
	}
}

// collectFlags returns the values of the flags of the command and of its
// ancestors, a flag of a command hiding a flag of an ancestor with the same
// name.
func collectFlags(ctx *urfave.Context) FlagSet {
	fset := make(FlagSet)

	add := func(flags []urfave.Flag, ctx *urfave.Context) {
		for _, flag := range flags {
			name := flag.Names()[0]

			_, found := fset[name]
			if found {
				continue
			}

			value := ctx.Value(name)

			// The slice of strings is a flag value that is not serializable.
			slice, ok := value.(urfave.StringSlice)
			if ok {
				value = slice.Value()
			}

			fset[name] = value
		}
	}

	for _, ancestor := range ctx.Lineage() {
		if ancestor.Command != nil {
			add(ancestor.Command.Flags, ancestor)
		}

		if ancestor.App != nil {
			add(ancestor.App.Flags, ancestor)
		}
	}

	return fset
}

// Build implements cli.Builder. It adds the commands of the initializers and
// the start command.
func (b *CLIBuilder) Build() cli.Application {
	for _, init := range b.inits {
		init.SetCommands(b)
	}

	cmd := b.SetCommand("start")
	cmd.SetDescription("start the node and its daemon")
	cmd.SetFlags(b.startFlags...)
	cmd.SetAction(b.start)

	return b.Builder.Build()
}

func (b *CLIBuilder) start(flags cli.Flags) error {
	if b.notify {
		signal.Notify(b.sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(b.sigs)
	}

	dir := flags.Path(configFlag)
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("couldn't make path: %v", err)
		}
	}

	daemon, err := b.daemonFactory.DaemonFromContext(flags)
	if err != nil {
		return xerrors.Errorf("couldn't make daemon: %v", err)
	}

	for i, init := range b.inits {
		err = init.OnStart(flags, b.injector)
		if err != nil {
			b.stop(i)
			return xerrors.Errorf("couldn't run the controller: %v", err)
		}
	}

	// The daemon accepts commands once every component is running.
	err = daemon.Listen()
	if err != nil {
		b.stop(len(b.inits))
		return xerrors.Errorf("couldn't start the daemon: %v", err)
	}

	defer daemon.Close()

	dmarket.Logger.Info().Str("config", dir).Msg("node started")

	<-b.sigs

	err = b.stop(len(b.inits))
	if err != nil {
		return xerrors.Errorf("couldn't stop controller: %v", err)
	}

	dmarket.Logger.Info().Msg("node stopped")

	return nil
}

// stop stops the first n initializers in reverse order, so that a component is
// stopped before the ones it depends on. Every initializer is stopped, and the
// first error is returned.
func (b *CLIBuilder) stop(n int) error {
	var first error

	for i := n - 1; i >= 0; i-- {
		err := b.inits[i].OnStop(b.injector)
		if err != nil {
			dmarket.Logger.Warn().Err(err).Msg("failed to stop controller")

			if first == nil {
				first = err
			}
		}
	}

	return first
}

// actionMap gives an index to each action template.
type actionMap struct {
	list []ActionTemplate
}

func (m *actionMap) Set(a ActionTemplate) uint16 {
	m.list = append(m.list, a)
	return uint16(len(m.list) - 1)
}

func (m *actionMap) Get(index uint16) ActionTemplate {
	if int(index) >= len(m.list) {
		return nil
	}

	return m.list[index]
}
