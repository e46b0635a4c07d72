package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/cli"
	"go.dedis.ch/dmarket/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestSocketClient_Send(t *testing.T) {
	out := new(bytes.Buffer)

	client := socketClient{
		socketpath: filepath.Join(t.TempDir(), socketName),
		out:        out,
		timeout:    time.Second,
		dial:       net.DialTimeout,
	}

	listen(t, client.socketpath, event{Output: "first\n"}, event{Output: "second\n"})

	err := client.Send(3, FlagSet{"id": "p5"})
	require.NoError(t, err)
	require.Equal(t, "3 p5\nfirst\nsecond\n", out.String())
}

func TestSocketClient_ErrorEvent_Send(t *testing.T) {
	out := new(bytes.Buffer)

	client := socketClient{
		socketpath: filepath.Join(t.TempDir(), socketName),
		out:        out,
		timeout:    time.Second,
		dial:       net.DialTimeout,
	}

	listen(t, client.socketpath, event{Error: "oops"}, event{Output: "ignored\n"})

	err := client.Send(0, FlagSet{"id": "p5"})
	require.EqualError(t, err, "oops")
	require.Equal(t, "0 p5\n", out.String())
}

func TestSocketClient_FailDial_Send(t *testing.T) {
	client := socketClient{
		dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return nil, fake.GetError()
		},
	}

	err := client.Send(0, nil)
	require.EqualError(t, err, fake.Err("couldn't open connection"))
}

func TestSocketClient_BadOutConn_Send(t *testing.T) {
	client := socketClient{
		dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return badConn{}, nil
		},
	}

	err := client.Send(0, FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't write to daemon"))
}

func TestSocketClient_BadInConn_Send(t *testing.T) {
	client := socketClient{
		dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return badConn{counter: fake.NewCounter(1)}, nil
		},
	}

	err := client.Send(0, FlagSet{})
	require.EqualError(t, err, fake.Err("fail to decode event"))
}

func TestSocketClient_BadWriter_Send(t *testing.T) {
	client := socketClient{
		socketpath: filepath.Join(t.TempDir(), socketName),
		out:        fake.BadWriter{},
		timeout:    time.Second,
		dial:       net.DialTimeout,
	}

	listen(t, client.socketpath)

	err := client.Send(0, FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't print output"))
}

func TestSocketDaemon_Listen(t *testing.T) {
	actions := &actionMap{}
	actions.Set(fakeAction{intFlags: map[string]int{"count": 1}}) // id 0
	actions.Set(fakeAction{err: fake.GetError()})                 // id 1

	daemon := &socketDaemon{
		socketpath:  filepath.Join(t.TempDir(), socketName),
		actions:     actions,
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
		listen:      net.Listen,
		dial:        net.DialTimeout,
	}

	err := daemon.Listen()
	require.NoError(t, err)

	defer daemon.Close()

	out := new(bytes.Buffer)
	client := socketClient{
		socketpath: daemon.socketpath,
		out:        out,
		timeout:    time.Second,
		dial:       net.DialTimeout,
	}

	err = client.Send(0, FlagSet{"count": 1})
	require.NoError(t, err)
	require.Equal(t, "deadbeef", out.String())

	err = client.Send(0, FlagSet{"count": 2})
	require.EqualError(t, err, "command error: missing flag count")

	err = client.Send(1, FlagSet{})
	require.EqualError(t, err, fake.Err("command error"))

	err = client.Send(2, FlagSet{})
	require.EqualError(t, err, "unknown command '2'")

	conn, err := net.DialTimeout("unix", daemon.socketpath, time.Second)
	require.NoError(t, err)

	defer conn.Close()

	_, err = conn.Write([]byte("{\"action\":\"zero\"}\n"))
	require.NoError(t, err)

	var evt event
	require.NoError(t, json.NewDecoder(conn).Decode(&evt))
	require.Contains(t, evt.Error, "malformed request: ")
}

func TestSocketDaemon_SilentConn_Listen(t *testing.T) {
	daemon := &socketDaemon{
		socketpath:  filepath.Join(t.TempDir(), socketName),
		actions:     &actionMap{},
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
		listen:      net.Listen,
		dial:        net.DialTimeout,
	}

	err := daemon.Listen()
	require.NoError(t, err)

	defer daemon.Close()

	conn, err := net.DialTimeout("unix", daemon.socketpath, time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestSocketDaemon_StaleSocket_Listen(t *testing.T) {
	path := filepath.Join(t.TempDir(), socketName)

	require.NoError(t, os.WriteFile(path, nil, 0600))

	daemon := &socketDaemon{
		logger:      zerolog.Nop(),
		socketpath:  path,
		actions:     &actionMap{},
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
		listen:      net.Listen,
		dial:        net.DialTimeout,
	}

	err := daemon.Listen()
	require.NoError(t, err)

	defer daemon.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(socketPerm), info.Mode().Perm())

	other := &socketDaemon{
		socketpath: path,
		listen:     net.Listen,
		dial:       net.DialTimeout,
	}

	err = other.Listen()
	require.EqualError(t, err,
		"couldn't clear socket: daemon already running on '"+path+"'")
}

func TestSocketDaemon_FailBindSocket_Listen(t *testing.T) {
	daemon := &socketDaemon{
		socketpath: filepath.Join(t.TempDir(), socketName),
		listen: func(network, addr string) (net.Listener, error) {
			return nil, fake.GetError()
		},
	}

	err := daemon.Listen()
	require.EqualError(t, err, fake.Err("couldn't bind socket"))
}

func TestSocketDaemon_ConnClosedFromClient_HandleConn(t *testing.T) {
	logger, check := fake.CheckLog("connection to daemon has error")

	daemon := &socketDaemon{
		logger:      logger,
		actions:     &actionMap{},
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
	}

	daemon.handleConn(badConn{})

	check(t)
}

func TestEventWriter_Write(t *testing.T) {
	buffer := new(bytes.Buffer)

	w := eventWriter{enc: json.NewEncoder(buffer)}

	n, err := w.Write([]byte("deadbeef"))
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, "{\"output\":\"deadbeef\"}\n", buffer.String())

	w = eventWriter{enc: json.NewEncoder(fake.BadWriter{})}

	n, err = w.Write([]byte("deadbeef"))
	require.Equal(t, 0, n)
	require.EqualError(t, err, fake.Err("while packing data"))
}

func TestSocketFactory_ClientFromContext(t *testing.T) {
	factory := socketFactory{}

	client, err := factory.ClientFromContext(fakeContext{path: "cfgdir"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join("cfgdir", socketName),
		client.(socketClient).socketpath)
}

func TestSocketFactory_DaemonFromContext(t *testing.T) {
	factory := socketFactory{actions: &actionMap{}}

	daemon, err := factory.DaemonFromContext(fakeContext{path: "cfgdir"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join("cfgdir", socketName),
		daemon.(*socketDaemon).socketpath)
	require.Equal(t, factory.actions, daemon.(*socketDaemon).actions)
}

// -----------------------------------------------------------------------------
// Utility functions

// listen accepts one connection on the path and answers with the action and
// the "id" flag of the request, followed by the events.
func listen(t *testing.T, path string, events ...event) {
	socket, err := net.Listen("unix", path)
	require.NoError(t, err)

	go func() {
		defer socket.Close()

		conn, err := socket.Accept()
		if err != nil {
			return
		}

		defer conn.Close()

		var req request
		err = json.NewDecoder(conn).Decode(&req)
		if err != nil {
			return
		}

		enc := json.NewEncoder(conn)
		enc.Encode(event{Output: fmt.Sprintf("%d %s\n", req.Action, req.Flags.String("id"))})

		for _, evt := range events {
			enc.Encode(evt)
		}
	}()
}

type fakeInitializer struct {
	err     error
	errStop error
}

func (c fakeInitializer) SetCommands(Builder) {}

func (c fakeInitializer) OnStart(cli.Flags, Injector) error {
	return c.err
}

func (c fakeInitializer) OnStop(Injector) error {
	return c.errStop
}

type fakeClient struct {
	err   error
	calls *fake.Call
}

func (c fakeClient) Send(action uint16, flags FlagSet) error {
	c.calls.Add(action, flags)
	return c.err
}

type fakeDaemon struct {
	Daemon
	err error
}

func (d fakeDaemon) Listen() error {
	return d.err
}

func (d fakeDaemon) Close() error {
	return nil
}

type fakeFactory struct {
	DaemonFactory
	err       error
	errClient error
	errDaemon error
	calls     *fake.Call
}

func (f fakeFactory) ClientFromContext(cli.Flags) (Client, error) {
	return fakeClient{err: f.errClient, calls: f.calls}, f.err
}

func (f fakeFactory) DaemonFromContext(cli.Flags) (Daemon, error) {
	return fakeDaemon{err: f.errDaemon}, f.err
}

type fakeAction struct {
	err      error
	intFlags map[string]int
}

func (a fakeAction) Execute(req Context) error {
	if a.err != nil {
		return a.err
	}

	for k, v := range a.intFlags {
		if req.Flags.Int(k) != v {
			return xerrors.Errorf("missing flag %s", k)
		}
	}

	req.Out.Write([]byte("deadbeef"))
	return nil
}

type fakeContext struct {
	cli.Flags
	path string
}

func (ctx fakeContext) Path(name string) string {
	return ctx.path
}

type badConn struct {
	net.Conn

	counter *fake.Counter
}

func (conn badConn) Read(data []byte) (int, error) {
	if !conn.counter.Done() {
		conn.counter.Decrease()
		return len(data), nil
	}

	return 0, fake.GetError()
}

func (conn badConn) Write(data []byte) (int, error) {
	if !conn.counter.Done() {
		conn.counter.Decrease()
		return len(data), nil
	}

	return 0, fake.GetError()
}

func (badConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (badConn) Close() error {
	return nil
}
