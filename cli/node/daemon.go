// This file contains the client and the daemon exchanging the commands over a
// UNIX socket in the configuration folder, so that a folder is used by one
// running node at most.
//
// The client writes one JSON request with the action and its flags. The daemon
// answers with a stream of JSON events, each carrying a piece of the output or
// the error that ended the command.

package node

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/dmarket"
	"go.dedis.ch/dmarket/cli"
	"golang.org/x/xerrors"
)

const (
	socketName = "daemon.sock"
	socketPerm = 0600

	ioTimeout = 30 * time.Second

	// staleTimeout is how long a previous daemon has to answer before its
	// socket is considered stale.
	staleTimeout = time.Second
)

type dialFunc func(network, addr string, timeout time.Duration) (net.Conn, error)

type listenFunc func(network, addr string) (net.Listener, error)

// request is the command sent by the client.
type request struct {
	Action uint16  `json:"action"`
	Flags  FlagSet `json:"flags"`
}

// event is a message of the daemon. An event with an error is the last one.
type event struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// socketClient sends the commands to the daemon of a configuration folder.
//
// - implements node.Client
type socketClient struct {
	socketpath string
	out        io.Writer
	timeout    time.Duration
	dial       dialFunc
}

// Send implements node.Client. It prints the output of the command as it comes
// and returns the error of the command if any.
func (c socketClient) Send(action uint16, flags FlagSet) error {
	conn, err := c.dial("unix", c.socketpath, c.timeout)
	if err != nil {
		return xerrors.Errorf("couldn't open connection: %v", err)
	}

	defer conn.Close()

	err = json.NewEncoder(conn).Encode(request{Action: action, Flags: flags})
	if err != nil {
		return xerrors.Errorf("couldn't write to daemon: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var evt event

		err = dec.Decode(&evt)
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return xerrors.Errorf("fail to decode event: %v", err)
		}

		if evt.Error != "" {
			return xerrors.New(evt.Error)
		}

		_, err = io.WriteString(c.out, evt.Output)
		if err != nil {
			return xerrors.Errorf("couldn't print output: %v", err)
		}
	}
}

// socketDaemon runs the actions requested through the socket. The socket file
// is only accessible to its owner.
//
// - implements node.Daemon
type socketDaemon struct {
	wg sync.WaitGroup

	logger      zerolog.Logger
	socketpath  string
	injector    Injector
	actions     *actionMap
	closing     chan struct{}
	readTimeout time.Duration
	listen      listenFunc
	dial        dialFunc
}

// Listen implements node.Daemon. A socket left by a daemon that crashed is
// replaced, but it fails if a daemon answers on it.
func (d *socketDaemon) Listen() error {
	err := d.clearStale()
	if err != nil {
		return xerrors.Errorf("couldn't clear socket: %v", err)
	}

	socket, err := d.listen("unix", d.socketpath)
	if err != nil {
		return xerrors.Errorf("couldn't bind socket: %v", err)
	}

	err = os.Chmod(d.socketpath, socketPerm)
	if err != nil {
		socket.Close()
		return xerrors.Errorf("couldn't restrict socket: %v", err)
	}

	d.wg.Add(2)

	go func() {
		defer d.wg.Done()

		<-d.closing
		socket.Close()
	}()

	go func() {
		defer d.wg.Done()
		d.acceptLoop(socket)
	}()

	return nil
}

// Close implements node.Daemon. It waits for the socket to be closed.
func (d *socketDaemon) Close() error {
	close(d.closing)
	d.wg.Wait()

	return nil
}

func (d *socketDaemon) acceptLoop(socket net.Listener) {
	for {
		conn, err := socket.Accept()
		if err != nil {
			select {
			case <-d.closing:
			default:
				d.logger.Err(err).Msg("daemon closed unexpectedly")
			}

			return
		}

		go d.handleConn(conn)
	}
}

func (d *socketDaemon) clearStale() error {
	_, err := os.Stat(d.socketpath)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return err
	}

	conn, err := d.dial("unix", d.socketpath, staleTimeout)
	if err == nil {
		conn.Close()
		return xerrors.Errorf("daemon already running on '%s'", d.socketpath)
	}

	d.logger.Warn().Msg("removing stale socket of a previous daemon")

	return os.Remove(d.socketpath)
}

func (d *socketDaemon) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := d.logger.With().Str("cmd", xid.New().String()).Logger()

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))

	var req request

	err := json.NewDecoder(conn).Decode(&req)
	if err == io.EOF {
		// A starting daemon connects without a request to find out whether the
		// socket is stale.
		return
	}

	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("malformed request: %v", err))
		return
	}

	action := d.actions.Get(req.Action)
	if action == nil {
		d.sendError(logger, conn, xerrors.Errorf("unknown command '%d'", req.Action))
		return
	}

	logger = logger.With().Str("action", fmt.Sprintf("%T", action)).Logger()
	logger.Debug().Interface("flags", req.Flags).Msg("received command on the daemon")

	ctx := Context{
		Injector: d.injector,
		Flags:    req.Flags,
		Out:      eventWriter{enc: json.NewEncoder(conn)},
	}

	start := time.Now()

	err = action.Execute(ctx)
	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("command error: %v", err))
		return
	}

	logger.Debug().Dur("took", time.Since(start)).Msg("command done")
}

func (d *socketDaemon) sendError(logger zerolog.Logger, conn net.Conn, err error) {
	logger.Debug().Err(err).Msg("sending error to client")

	err = json.NewEncoder(conn).Encode(event{Error: err.Error()})
	if err != nil {
		logger.Warn().Err(err).Msg("connection to daemon has error")
	}
}

// eventWriter sends every write as an output event.
//
// - implements io.Writer
type eventWriter struct {
	enc *json.Encoder
}

// Write implements io.Writer.
func (w eventWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(event{Output: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("while packing data: %v", err)
	}

	return len(data), nil
}

// socketFactory creates the daemon and the clients of the configuration
// folder given by the flags.
//
// - implements node.DaemonFactory
type socketFactory struct {
	injector Injector
	actions  *actionMap
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory.
func (f socketFactory) ClientFromContext(flags cli.Flags) (Client, error) {
	client := socketClient{
		socketpath: socketPath(flags),
		out:        f.out,
		timeout:    ioTimeout,
		dial:       net.DialTimeout,
	}

	return client, nil
}

// DaemonFromContext implements node.DaemonFactory.
func (f socketFactory) DaemonFromContext(flags cli.Flags) (Daemon, error) {
	path := socketPath(flags)

	daemon := &socketDaemon{
		logger:      dmarket.Logger.With().Str("daemon", path).Logger(),
		socketpath:  path,
		injector:    f.injector,
		actions:     f.actions,
		closing:     make(chan struct{}),
		readTimeout: ioTimeout,
		listen:      net.Listen,
		dial:        net.DialTimeout,
	}

	return daemon, nil
}

func socketPath(flags cli.Flags) string {
	return filepath.Join(flags.Path(configFlag), socketName)
}
