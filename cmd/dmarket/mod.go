// Package main implements a marketplace node.
//
// Unix example:
//
//  # Start the node with the proxy
//  dmarket --config /tmp/node1 start --http 127.0.0.1:8080
//
//  # Credit the account of the node
//  dmarket --config /tmp/node1 bank mint --amount 60000000000000000000000000
//
//  # List a product and buy it
//  dmarket --config /tmp/node1 product create --id 5 --name Coffee\
//    --price 30000000000000000000000000
//  dmarket --config /tmp/node1 product buy --id 5\
//    --deposit 30000000000000000000000000
//
//  # Read the products
//  dmarket --config /tmp/node1 product list
//  curl http://127.0.0.1:8080/products/5
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/dmarket/cli/node"
	bank "go.dedis.ch/dmarket/contracts/bank/controller"
	market "go.dedis.ch/dmarket/contracts/market/controller"
	ledger "go.dedis.ch/dmarket/core/ledger/controller"
	proxy "go.dedis.ch/dmarket/proxy/http/controller"
)

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		ledger.NewController(),
		bank.NewController(),
		market.NewController(),
		proxy.NewController(),
	)

	app := builder.Build()

	return app.Run(args)
}
