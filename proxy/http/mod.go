// Package http implements the proxy with an HTTP server. Every request gets an
// identifier, taken from the X-Request-Id header when the client sets it, that
// is returned in the response and logged with the outcome of the request.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/dmarket"
	"golang.org/x/xerrors"
)

const (
	requestIDHeader = "X-Request-Id"

	// defaultAddr is a random port of the loopback interface.
	defaultAddr = "127.0.0.1:0"

	shutdownTimeout = 10 * time.Second
)

// HTTP is a proxy over an HTTP server.
//
// - implements proxy.Proxy
type HTTP struct {
	sync.Mutex

	addr   string
	mux    *http.ServeMux
	server *http.Server
	logger zerolog.Logger
	ln     net.Listener
	done   chan struct{}
}

// NewHTTP returns a proxy for the address. An empty address is a random port
// of the loopback interface.
func NewHTTP(addr string) *HTTP {
	if addr == "" {
		addr = defaultAddr
	}

	return &HTTP{
		addr:   addr,
		mux:    http.NewServeMux(),
		logger: dmarket.Logger.With().Str("role", "http proxy").Logger(),
	}
}

// Listen implements proxy.Proxy.
func (h *HTTP) Listen() error {
	h.Lock()
	defer h.Unlock()

	if h.ln != nil {
		return xerrors.Errorf("already listening on %s", h.ln.Addr())
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return xerrors.Errorf("failed to listen on '%s': %v", h.addr, err)
	}

	h.ln = ln
	h.done = make(chan struct{})
	h.server = &http.Server{
		Handler:           withRequestLog(h.logger, h.mux),
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func(server *http.Server, done chan struct{}) {
		defer close(done)

		err := server.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			h.logger.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}(h.server, h.done)

	h.logger.Info().Stringer("addr", ln.Addr()).Msg("proxy is serving")

	return nil
}

// Stop implements proxy.Proxy. The requests still running after the timeout
// are interrupted.
func (h *HTTP) Stop() error {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := h.server.Shutdown(ctx)

	<-h.done
	h.ln = nil

	if err != nil {
		return xerrors.Errorf("failed to shutdown: %v", err)
	}

	h.logger.Info().Msg("proxy stopped")

	return nil
}

// GetAddr implements proxy.Proxy.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy.
func (h *HTTP) RegisterHandler(path string, handler http.HandlerFunc) {
	h.mux.HandleFunc(path, handler)
}

// statusRecorder keeps the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLog(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = xid.New().String()
		}

		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		logger.Info().
			Str("requestID", id).
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Str("remoteAddr", r.RemoteAddr).
			Msg("request served")
	})
}
