// Package controller implements the controller of the HTTP proxy. The proxy
// serves the read-only queries of the ledger and the Prometheus metrics.
package controller

import (
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/config"
	"go.dedis.ch/dmarket/proxy"
	"golang.org/x/xerrors"
)

const defaultAddr = "127.0.0.1:8080"

// NewController returns a new minimal initializer. It must come after the
// market controller.
func NewController() node.Initializer {
	return minimal{}
}

// minimal is an initializer that starts the proxy when the configuration has
// an address, or on demand with the proxy start command.
//
// - implements node.Initializer
type minimal struct{}

// SetCommands implements node.Initializer.
func (m minimal) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.StringFlag{
		Name:  config.HTTPFlag,
		Usage: "address of the http proxy, not started if empty",
		Env:   "DMARKET_HTTP",
	})

	cmd := builder.SetCommand("proxy")
	sub := cmd.SetSubCommand("start")

	sub.SetDescription("start the proxy http server")
	sub.SetFlags(cli.StringFlag{
		Name:     "clientaddr",
		Required: false,
		Usage:    "the address of the http client",
		Value:    defaultAddr,
	})
	sub.SetAction(builder.MakeAction(startAction{}))
}

// OnStart implements node.Initializer. It starts the proxy if the
// configuration has an address.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("failed to resolve config: %v", err)
	}

	if cfg.HTTP == "" {
		return nil
	}

	_, err = startProxy(inj, cfg.HTTP)
	if err != nil {
		return xerrors.Errorf("failed to start proxy: %v", err)
	}

	return nil
}

// OnStop implements node.Initializer. It stops the http server.
func (m minimal) OnStop(inj node.Injector) error {
	var p proxy.Proxy
	err := inj.Resolve(&p)
	if err != nil {
		// The node runs without a proxy.
		return nil
	}

	err = p.Stop()
	if err != nil {
		return xerrors.Errorf("failed to stop proxy: %v", err)
	}

	return nil
}
