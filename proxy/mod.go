// Package proxy defines the server that exposes the node to the clients.
package proxy

import (
	"net"
	"net/http"
)

// Proxy serves the handlers of the node.
type Proxy interface {
	// Listen binds the address and serves the requests in the background until
	// the proxy is stopped.
	Listen() error

	// Stop waits for the requests in progress and stops the server.
	Stop() error

	// GetAddr returns the address of the server, or nil if it is not
	// listening.
	GetAddr() net.Addr

	// RegisterHandler serves the path with the handler. It must be called
	// before Listen.
	RegisterHandler(path string, handler http.HandlerFunc)
}
