// Package ucli builds the command line applications with urfave/cli.
package ucli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/dmarket/cli"
)

// Builder is the urfave/cli implementation of the builder. The global flags
// are given to the application and are readable by every command.
//
// - implements cli.Builder
type Builder struct {
	name     string
	usage    string
	flags    []cli.Flag
	commands []*cmdBuilder
}

// NewBuilder returns a builder of an application with the name and the global
// flags.
func NewBuilder(name, usage string, flags ...cli.Flag) *Builder {
	return &Builder{
		name:  name,
		usage: usage,
		flags: flags,
	}
}

// SetCommand implements cli.Builder.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{name: name}
	b.commands = append(b.commands, cmd)

	return cmd
}

// Build implements cli.Builder. It panics if two commands at the same level
// have the same name, or if a flag is of an unknown type.
func (b *Builder) Build() cli.Application {
	app := &urfave.App{
		Name:                 b.name,
		Usage:                b.usage,
		Flags:                toUrfaveFlags(b.flags),
		Commands:             buildCommands(b.commands),
		EnableBashCompletion: true,
	}

	app.Setup()

	return app
}

// cmdBuilder collects the properties of a command.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []cli.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = flags
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	sub := &cmdBuilder{name: name}
	b.subcommands = append(b.subcommands, sub)

	return sub
}

func (b *cmdBuilder) build() *urfave.Command {
	cmd := &urfave.Command{
		Name:        b.name,
		Usage:       b.description,
		Flags:       toUrfaveFlags(b.flags),
		Subcommands: buildCommands(b.subcommands),
	}

	if b.action != nil {
		action := b.action
		cmd.Action = func(ctx *urfave.Context) error {
			return action(ctx)
		}
	}

	return cmd
}

func buildCommands(builders []*cmdBuilder) []*urfave.Command {
	names := make(map[string]struct{}, len(builders))
	commands := make([]*urfave.Command, len(builders))

	for i, builder := range builders {
		_, found := names[builder.name]
		if found {
			panic(fmt.Sprintf("command '%s' is defined twice", builder.name))
		}

		names[builder.name] = struct{}{}
		commands[i] = builder.build()
	}

	return commands
}

func toUrfaveFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))
	for i, flag := range flags {
		res[i] = toUrfaveFlag(flag)
	}

	return res
}

func toUrfaveFlag(flag cli.Flag) urfave.Flag {
	switch f := flag.(type) {
	case cli.StringFlag:
		return &urfave.StringFlag{
			Name:     f.Name,
			Aliases:  f.Aliases,
			Usage:    f.Usage,
			EnvVars:  envVars(f.Env),
			Required: f.Required,
			Value:    f.Value,
		}
	case cli.StringSliceFlag:
		return &urfave.StringSliceFlag{
			Name:     f.Name,
			Usage:    f.Usage,
			Required: f.Required,
			Value:    urfave.NewStringSlice(f.Value...),
		}
	case cli.IntFlag:
		return &urfave.IntFlag{
			Name:     f.Name,
			Usage:    f.Usage,
			Required: f.Required,
			Value:    f.Value,
		}
	case cli.BoolFlag:
		return &urfave.BoolFlag{
			Name:    f.Name,
			Aliases: f.Aliases,
			Usage:   f.Usage,
			Value:   f.Value,
		}
	default:
		panic(fmt.Sprintf("flag type '%T' not supported", flag))
	}
}

func envVars(name string) []string {
	if name == "" {
		return nil
	}

	return []string{name}
}
