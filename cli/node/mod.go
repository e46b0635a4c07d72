// Package node builds the command line application of a dmarket node.
//
// The "start" command runs the node until it receives SIGINT or SIGTERM. The
// node owns the store, so every other command is forwarded to the running node
// through its daemon and executed there. A component of the node implements
// Initializer to declare its commands and to start its part of the node:
//
//	builder := node.NewBuilder(ledger.NewController(), market.NewController())
//	err := builder.Build().Run(os.Args)
package node

import (
	"io"

	"go.dedis.ch/dmarket/cli"
)

// Builder is given to the initializers to declare their commands.
type Builder interface {
	SetCommand(name string) cli.CommandBuilder

	// SetStartFlags adds flags to the start command.
	SetStartFlags(...cli.Flag)

	// MakeAction returns the action of a command that runs the template on the
	// running node.
	MakeAction(ActionTemplate) cli.Action
}

// ActionTemplate is the part of a command executed by the running node.
type ActionTemplate interface {
	Execute(Context) error
}

// Context is given to an action on the node. Everything written to Out is
// printed by the command line.
type Context struct {
	Injector Injector
	Flags    cli.Flags
	Out      io.Writer
}

// Injector shares the components started by the initializers with the
// actions.
type Injector interface {
	// Resolve populates the pointer with a compatible dependency.
	Resolve(interface{}) error

	Inject(interface{})
}

// Initializer is a component of the node.
type Initializer interface {
	// SetCommands declares the commands of the component.
	SetCommands(Builder)

	// OnStart starts the component and injects what the actions need.
	OnStart(cli.Flags, Injector) error

	// OnStop releases the resources of the component.
	OnStop(Injector) error
}

// Client sends a command to the daemon of a running node.
type Client interface {
	Send(action uint16, flags FlagSet) error
}

// Daemon receives the commands of the clients.
type Daemon interface {
	Listen() error
	Close() error
}

// DaemonFactory creates the daemon and the clients of the configuration
// folder given by the flags.
type DaemonFactory interface {
	ClientFromContext(cli.Flags) (Client, error)
	DaemonFromContext(cli.Flags) (Daemon, error)
}
