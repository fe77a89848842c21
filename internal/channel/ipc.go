package channel

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/dqcsim/dqcsim/dqerr"
)

// ipcChannel is the inter-process Channel flavour (spec.md §4.A): CBOR
// framing over a net.Conn, grounded on client/cborplugin/incoming_conn.go's
// cbor.NewEncoder(conn)/cbor.NewDecoder(conn) pattern.
type ipcChannel struct {
	conn net.Conn
	enc  *cbor.Encoder
	dec  *cbor.Decoder
	newT func() interface{}

	sendMu sync.Mutex
}

// NewIPCChannel wraps conn as a Channel. newTarget must return a fresh
// pointer to the concrete message type expected on Recv (the two directions
// of a gatestream or plugin-RPC edge carry different message types, so the
// type is supplied by the caller rather than inferred). encMode/decMode
// select the CBOR tag set the wire messages are encoded with (typically
// proto.NewEncMode/proto.NewDecMode); passing nil falls back to
// cbor.Marshal's untagged defaults, which only suffices for tests that never
// cross a tagged-interface boundary.
func NewIPCChannel(conn net.Conn, newTarget func() interface{}, encMode cbor.EncMode, decMode cbor.DecMode) Channel {
	var enc *cbor.Encoder
	var dec *cbor.Decoder
	if encMode != nil {
		enc = encMode.NewEncoder(conn)
	} else {
		enc = cbor.NewEncoder(conn)
	}
	if decMode != nil {
		dec = decMode.NewDecoder(conn)
	} else {
		dec = cbor.NewDecoder(conn)
	}
	return &ipcChannel{
		conn: conn,
		enc:  enc,
		dec:  dec,
		newT: newTarget,
	}
}

func (c *ipcChannel) Send(msg interface{}) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.enc.Encode(msg); err != nil {
		return dqerr.Wrap(dqerr.Channel, err, "send failed")
	}
	return nil
}

func (c *ipcChannel) Recv() (interface{}, error) {
	target := c.newT()
	if err := c.dec.Decode(target); err != nil {
		return nil, dqerr.Wrap(dqerr.Channel, err, "recv failed")
	}
	return target, nil
}

func (c *ipcChannel) Close() error {
	return c.conn.Close()
}

// Listen creates a one-shot rendezvous endpoint (a Unix domain socket under
// dir named with a random UUID, per client2/thin.go's
// net.ResolveUnixAddr("unixpacket", ...) pattern generalized to a
// reusable-path streaming socket) and returns its URI alongside the
// listener the caller Accepts on.
func Listen(dir string) (net.Listener, string, error) {
	path := filepath.Join(dir, "dqcsim-"+uuid.NewString()+".sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, "", dqerr.Wrap(dqerr.IO, err, "listen on %s", path)
	}
	return l, "unix://" + path, nil
}

// Dial connects to a URI previously returned by Listen.
func Dial(uri string) (net.Conn, error) {
	const prefix = "unix://"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return nil, dqerr.New(dqerr.InvalidArgument, "unsupported channel URI %q", uri)
	}
	conn, err := net.Dial("unix", uri[len(prefix):])
	if err != nil {
		return nil, dqerr.Wrap(dqerr.Channel, err, "dial %s", uri)
	}
	return conn, nil
}

// AcceptWithTimeout blocks on l.Accept but gives up after timeout, used by
// the plugin handle's spawn() to bound how long it waits for a spawned
// process to publish its endpoint and connect (accept_timeout, spec.md §4.C).
func AcceptWithTimeout(l net.Listener, timeout time.Duration) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.Accept()
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, dqerr.Wrap(dqerr.Channel, r.err, "accept failed")
		}
		return r.conn, nil
	case <-time.After(timeout):
		return nil, dqerr.Timeoutf("timed out waiting for plugin to connect")
	}
}

// ReadAnnouncedRendezvous reads a single newline-terminated URI from a
// spawned process's stdout, the bootstrap mechanism server/cborplugin/client.go
// uses to learn a plugin subprocess's socket path (there: a bare path; here:
// a full dqcsim channel URI so the scheme can evolve independently of the
// transport).
func ReadAnnouncedRendezvous(stdout io.Reader, timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			ch <- result{scanner.Text(), nil}
			return
		}
		ch <- result{"", fmt.Errorf("%w", scanner.Err())}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return "", dqerr.Wrap(dqerr.IO, r.err, "reading plugin rendezvous announcement")
		}
		return r.line, nil
	case <-time.After(timeout):
		return "", dqerr.Timeoutf("timed out waiting for plugin rendezvous announcement")
	}
}
