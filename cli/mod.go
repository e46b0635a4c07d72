// Package cli defines how the components of the node declare their commands,
// independently of the library parsing the command line.
//
// A component receives a Builder and adds its commands, their flags and the
// action to run:
//
//	cmd := builder.SetCommand("product")
//	sub := cmd.SetSubCommand("get")
//	sub.SetFlags(cli.StringFlag{Name: "id", Required: true})
//	sub.SetAction(func(flags cli.Flags) error {
//		fmt.Println("looking for", flags.String("id"))
//		return nil
//	})
//
// The package ucli builds the application with urfave/cli.
package cli

// Builder collects the commands of an application.
type Builder interface {
	// SetCommand adds a top-level command and returns its builder.
	SetCommand(name string) CommandBuilder

	Build() Application
}

// Application runs with the arguments of the command line, the first one
// being the name of the program.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder sets the properties of a command.
type CommandBuilder interface {
	SetDescription(value string)

	// SetFlags replaces the flags of the command.
	SetFlags(...Flag)

	SetAction(Action)

	// SetSubCommand adds a command under this one and returns its builder.
	SetSubCommand(name string) CommandBuilder
}

// Action is the function run when a command is invoked.
type Action func(Flags) error

// Flag is the definition of a flag. The value of the flag is read by its
// name from the Flags of the action.
type Flag interface {
	FlagName() string
}

// Flags gives access to the values of the flags of a command and of its
// ancestors.
type Flags interface {
	String(name string) string

	StringSlice(name string) []string

	// Path returns the value of the flag as a file system path.
	Path(name string) string

	Int(name string) int

	Bool(name string) bool
}
