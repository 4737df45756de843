// Package session implements the asynchronous TCP client session.
//
// A [Client] connects to a remote endpoint directly or through a [netio.ProxyConnector],
// optionally wraps the connection in TLS or a negotiate-authenticated stream, and then
// runs one goroutine that reads from the connection and delivers events to a [Handler].
//
// Outbound data is queued without copying by [Client.TrySend] and [Client.Send] from
// any number of goroutines. At most one goroutine drains the queue at a time: the
// producer that flips the send gate starts it, and it keeps writing batches until the
// queue is momentarily empty.
//
// Events for one session are ordered: OnConnected precedes every OnDataReceived,
// OnDataReceived calls never overlap, OnClosed is called exactly once and last,
// and OnError, when called, precedes the OnClosed it caused.
package session

import (
	"errors"
	"net"

	"github.com/database64128/asynctcp-go/conn"
)

var (
	// ErrInvalidEndpoint is returned by Connect for an invalid remote address.
	ErrInvalidEndpoint = errors.New("invalid remote endpoint")

	// ErrAlreadyConnecting is returned when a connect attempt is already in progress.
	ErrAlreadyConnecting = errors.New("session is already connecting")

	// ErrAlreadyConnected is returned when the session already has a connection.
	ErrAlreadyConnected = errors.New("session is already connected")

	// ErrClosed is returned when the session has been closed.
	// A closed session cannot be reused.
	ErrClosed = errors.New("session is closed")

	// ErrNotConnected is returned by send methods before the session is connected.
	ErrNotConnected = errors.New("session is not connected")

	// ErrEmptyPayload is returned by send methods when given no data.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrReceiveBufferInUse is returned when resizing the receive buffer after it was allocated.
	ErrReceiveBufferInUse = errors.New("receive buffer is already allocated")

	// ErrMissingSecurityOptions is returned by NewClient when an authenticated
	// transport is configured without security options.
	ErrMissingSecurityOptions = errors.New("authenticated transport requires security options")
)

// ConnectError is reported through OnError when the connection could not be established,
// either directly or through the proxy.
type ConnectError struct {
	// Remote is the requested remote endpoint.
	Remote conn.Addr

	// Result classifies the failure by its errno.
	Result conn.DialResult
}

// Error implements [error.Error].
func (e *ConnectError) Error() string {
	return "failed to connect to " + e.Remote.String() + ": " + e.Result.String()
}

// Unwrap returns the dial or hand-off error.
func (e *ConnectError) Unwrap() error {
	return e.Result.Err
}

// Handler receives session events.
type Handler interface {
	// OnConnected is called once the connection is established and authenticated,
	// before any data is delivered.
	OnConnected(c *Client)

	// OnDataReceived is called with the bytes of one read.
	// b is only valid until OnDataReceived returns, unless the client copies on receive.
	OnDataReceived(c *Client, b []byte)

	// OnError is called with a failure that ends the session.
	// Teardown races and orderly shutdowns are not reported.
	OnError(c *Client, err error)

	// OnClosed is called exactly once, after the session is closed.
	OnClosed(c *Client)
}

// HandlerFuncs implements [Handler] with optional functions.
type HandlerFuncs struct {
	Connected    func(c *Client)
	DataReceived func(c *Client, b []byte)
	Error        func(c *Client, err error)
	Closed       func(c *Client)
}

var _ Handler = HandlerFuncs{}

// OnConnected implements [Handler.OnConnected].
func (h HandlerFuncs) OnConnected(c *Client) {
	if h.Connected != nil {
		h.Connected(c)
	}
}

// OnDataReceived implements [Handler.OnDataReceived].
func (h HandlerFuncs) OnDataReceived(c *Client, b []byte) {
	if h.DataReceived != nil {
		h.DataReceived(c, b)
	}
}

// OnError implements [Handler.OnError].
func (h HandlerFuncs) OnError(c *Client, err error) {
	if h.Error != nil {
		h.Error(c, err)
	}
}

// OnClosed implements [Handler.OnClosed].
func (h HandlerFuncs) OnClosed(c *Client) {
	if h.Closed != nil {
		h.Closed(c)
	}
}

// TransportKind selects how the session secures its connection.
type TransportKind uint8

const (
	// TransportPlain sends and receives on the raw connection.
	TransportPlain TransportKind = iota

	// TransportTLS wraps the connection in a TLS client.
	TransportTLS

	// TransportNegotiate authenticates the connection with the negotiate handshake.
	TransportNegotiate
)

// String implements [fmt.Stringer.String].
func (k TransportKind) String() string {
	switch k {
	case TransportPlain:
		return "plain"
	case TransportTLS:
		return "tls"
	case TransportNegotiate:
		return "negotiate"
	default:
		return "unknown"
	}
}

// ParseTransportKind parses the name of a transport kind.
func ParseTransportKind(s string) (TransportKind, error) {
	switch s {
	case "plain", "":
		return TransportPlain, nil
	case "tls":
		return TransportTLS, nil
	case "negotiate":
		return TransportNegotiate, nil
	default:
		return 0, errors.New("unknown transport: " + s)
	}
}

// MarshalText implements [encoding.TextMarshaler.MarshalText].
func (k TransportKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler.UnmarshalText].
func (k *TransportKind) UnmarshalText(text []byte) error {
	kind, err := ParseTransportKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// noDelaySetter is implemented by [*net.TCPConn].
type noDelaySetter interface {
	SetNoDelay(noDelay bool) error
}

func setNoDelay(nc net.Conn, noDelay bool) error {
	if c, ok := nc.(noDelaySetter); ok {
		return c.SetNoDelay(noDelay)
	}
	return nil
}
