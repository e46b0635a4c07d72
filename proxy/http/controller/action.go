package controller

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/cli/node"
	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/contracts/market"
	"go.dedis.ch/dmarket/core/ledger"
	"go.dedis.ch/dmarket/proxy"
	"go.dedis.ch/dmarket/proxy/http"
	"golang.org/x/xerrors"
)

var proxyFac func(string) proxy.Proxy = func(addr string) proxy.Proxy {
	return http.NewHTTP(addr)
}

// startAction is an action to start the proxy when the node runs without one.
//
// - implements node.ActionTemplate
type startAction struct{}

// Execute implements node.ActionTemplate. It starts and injects the proxy http
// server.
func (a startAction) Execute(ctx node.Context) error {
	var p proxy.Proxy
	err := ctx.Injector.Resolve(&p)
	if err == nil {
		return xerrors.Errorf("proxy already running on %s", p.GetAddr())
	}

	p, err = startProxy(ctx.Injector, ctx.Flags.String("clientaddr"))
	if err != nil {
		return xerrors.Errorf("failed to start proxy: %v", err)
	}

	fmt.Fprintf(ctx.Out, "started proxy server on %s", p.GetAddr().String())

	return nil
}

// startProxy registers the handlers on a new proxy listening on the address
// and injects it once it is listening.
func startProxy(inj node.Injector, addr string) (proxy.Proxy, error) {
	var l *ledger.Ledger
	err := inj.Resolve(&l)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	var m market.Marketplace
	err = inj.Resolve(&m)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	var b bank.Bank
	err = inj.Resolve(&b)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	h := handlers{
		ledger: l,
		market: m,
		bank:   b,
	}

	p := proxyFac(addr)

	p.RegisterHandler(productsPath, h.products)
	p.RegisterHandler(productPath, h.product)
	p.RegisterHandler(balancePath, h.balance)

	for _, c := range dmarket.PromCollectors {
		var registered prometheus.AlreadyRegisteredError

		err = prometheus.DefaultRegisterer.Register(c)
		if err != nil && !xerrors.As(err, &registered) {
			return nil, xerrors.Errorf("failed to register metrics: %v", err)
		}
	}

	p.RegisterHandler(metricsPath, promhttp.Handler().ServeHTTP)

	err = p.Listen()
	if err != nil {
		return nil, xerrors.Errorf("proxy: %v", err)
	}

	inj.Inject(p)

	return p, nil
}
