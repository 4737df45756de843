package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/netio"
	"github.com/database64128/asynctcp-go/queue"
	"github.com/database64128/asynctcp-go/stats"
	"go.uber.org/zap"
)

// DefaultReceiveBufferSize is the receive buffer size used when none is configured.
const DefaultReceiveBufferSize = 4096

// ClientConfig is the configuration for a [Client].
type ClientConfig struct {
	// Name identifies the client in logs and statistics.
	Name string

	// Dialer establishes direct connections. If nil, [conn.DefaultDialer] is used.
	Dialer *conn.Dialer

	// LocalAddr is the local address to bind direct connections to.
	LocalAddr netip.AddrPort

	// DisableNoDelay enables Nagle's algorithm on the connection.
	// By default TCP_NODELAY is set.
	DisableNoDelay bool

	// ReceiveBufferSize is the size of the buffer reads are delivered from.
	// If zero, [DefaultReceiveBufferSize] is used.
	ReceiveBufferSize int

	// SendingQueueSize is the capacity of each half of the outbound batch queue.
	// If zero, [queue.DefaultBatchCapacity] is used.
	SendingQueueSize int

	// CopyOnReceive hands OnDataReceived a fresh copy of each read
	// instead of a view into the reused receive buffer.
	CopyOnReceive bool

	// Proxy, if not nil, establishes the connection instead of the dialer.
	Proxy netio.ProxyConnector

	// Transport selects the transport.
	Transport TransportKind

	// Security configures the TLS and negotiate transports.
	Security *SecurityOptions

	// Handler receives session events. If nil, events are discarded.
	Handler Handler

	// Logger is the logger. If nil, logging is disabled.
	Logger *zap.Logger

	// Stats collects traffic statistics. If nil, nothing is collected.
	Stats stats.Collector
}

// NewClient returns a new idle client.
func (c *ClientConfig) NewClient() (*Client, error) {
	var t transport
	switch c.Transport {
	case TransportPlain:
		t = plainTransport{}
	case TransportTLS:
		if c.Security == nil {
			return nil, ErrMissingSecurityOptions
		}
		if err := c.Security.validateProtocols(); err != nil {
			return nil, err
		}
		t = &tlsTransport{opts: c.Security}
	case TransportNegotiate:
		if c.Security == nil {
			return nil, ErrMissingSecurityOptions
		}
		t = &negotiateTransport{opts: c.Security}
	default:
		return nil, fmt.Errorf("unknown transport kind: %d", c.Transport)
	}

	client := Client{
		name:           c.Name,
		dialer:         c.Dialer,
		proxy:          c.Proxy,
		transport:      t,
		handler:        c.Handler,
		logger:         c.Logger,
		stats:          c.Stats,
		copyOnReceive:  c.CopyOnReceive,
		localAddr:      c.LocalAddr,
		noDelay:        !c.DisableNoDelay,
		receiveBufSize: c.ReceiveBufferSize,
		queue:          queue.NewBatch[[]byte](c.SendingQueueSize),
		done:           make(chan struct{}),
	}
	if client.dialer == nil {
		client.dialer = conn.DefaultDialer
	}
	if client.handler == nil {
		client.handler = HandlerFuncs{}
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	if client.stats == nil {
		client.stats = stats.NoopCollector{}
	}
	if client.receiveBufSize <= 0 {
		client.receiveBufSize = DefaultReceiveBufferSize
	}
	return &client, nil
}

type clientState uint8

const (
	stateIdle clientState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Client is an asynchronous TCP client session.
//
// A Client connects at most once. After it is closed, create a new one to reconnect.
type Client struct {
	name          string
	dialer        *conn.Dialer
	proxy         netio.ProxyConnector
	transport     transport
	handler       Handler
	logger        *zap.Logger
	stats         stats.Collector
	copyOnReceive bool

	mu             sync.Mutex
	state          clientState
	reading        bool
	nc             net.Conn
	stream         net.Conn
	cancel         context.CancelFunc
	closeCause     error
	localAddr      netip.AddrPort
	boundAddr      net.Addr
	remoteAddr     conn.Addr
	targetHost     string
	noDelay        bool
	receiveBufSize int
	receiveBuf     []byte

	// connected is set once the stream is ready for writes.
	connected atomic.Bool

	queue    *queue.Batch[[]byte]
	sendGate atomic.Bool

	// sending and sender are only touched by the send gate holder.
	sending queue.PositionList[[]byte]
	sender  streamSender

	done chan struct{}
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// LocalAddr returns the local address of the connection once connected,
// or the configured local address before that.
func (c *Client) LocalAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.boundAddr != nil {
		return c.boundAddr
	}
	if c.localAddr.IsValid() {
		return net.TCPAddrFromAddrPort(c.localAddr)
	}
	return nil
}

// SetLocalAddr sets the local address to bind the connection to.
// It fails once Connect has been called.
func (c *Client) SetLocalAddr(addr netip.AddrPort) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIdleLocked(); err != nil {
		return err
	}
	c.localAddr = addr
	return nil
}

// RemoteAddr returns the remote endpoint passed to Connect.
func (c *Client) RemoteAddr() conn.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteAddr
}

// TargetHost returns the host name used for certificate validation and authentication.
// A proxy may replace the host of the remote endpoint with the name it resolved.
func (c *Client) TargetHost() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetHost
}

// NoDelay returns whether TCP_NODELAY is requested.
func (c *Client) NoDelay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noDelay
}

// SetNoDelay controls TCP_NODELAY. It applies immediately to a live connection.
func (c *Client) SetNoDelay(noDelay bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noDelay = noDelay
	if c.nc != nil {
		return setNoDelay(c.nc, noDelay)
	}
	return nil
}

// ReceiveBufferSize returns the receive buffer size.
func (c *Client) ReceiveBufferSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiveBufSize
}

// SetReceiveBufferSize sets the receive buffer size.
// It fails once the buffer has been allocated on first connect.
func (c *Client) SetReceiveBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("invalid receive buffer size: %d", size)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receiveBuf != nil {
		return ErrReceiveBufferInUse
	}
	c.receiveBufSize = size
	return nil
}

// SendingQueueSize returns the capacity of each half of the outbound batch queue.
func (c *Client) SendingQueueSize() int {
	return c.queue.Cap()
}

// IsConnected returns whether the session is connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Done returns a channel that is closed after OnClosed returns.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) checkIdleLocked() error {
	switch c.state {
	case stateConnecting:
		return ErrAlreadyConnecting
	case stateConnected:
		return ErrAlreadyConnected
	case stateClosed:
		return ErrClosed
	}
	return nil
}

// Connect starts connecting to remote and returns immediately.
//
// The outcome is reported through the handler: OnConnected on success,
// or OnError and OnClosed on failure. ctx bounds connection establishment,
// including the proxy hand-off and the transport handshake. It has no effect
// once the session is connected.
func (c *Client) Connect(ctx context.Context, remote conn.Addr) error {
	if !remote.IsValid() {
		return ErrInvalidEndpoint
	}

	c.mu.Lock()
	if err := c.checkIdleLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.state = stateConnecting
	c.remoteAddr = remote
	c.targetHost = remote.Host()
	laddr := c.localAddr
	c.mu.Unlock()

	go c.run(ctx, remote, laddr)
	return nil
}

// run establishes the connection and then becomes the read loop.
func (c *Client) run(ctx context.Context, remote conn.Addr, laddr netip.AddrPort) {
	var (
		nc         net.Conn
		targetHost string
		err        error
	)

	if c.proxy != nil {
		var res netio.ProxyResult
		res, err = c.proxy.ConnectProxy(ctx, remote)
		nc, targetHost = res.Conn, res.TargetHost
	} else {
		dialer := c.dialer
		if laddr.IsValid() {
			dialer = dialer.WithLocalAddr(laddr)
		}
		nc, err = dialer.DialContext(ctx, remote)
	}

	stream, ok := c.processConnect(ctx, nc, targetHost, err)
	if !ok {
		return
	}
	c.readLoop(stream)
}

// processConnect takes over the connection produced by a dial or a proxy hand-off,
// runs the transport handshake, and prepares the session for reading.
// It returns false if the session ended instead.
func (c *Client) processConnect(ctx context.Context, nc net.Conn, targetHost string, err error) (net.Conn, bool) {
	if err == nil && nc == nil {
		err = conn.ErrHostUnreachable
	}
	if err != nil {
		cerr := &ConnectError{
			Remote: c.remoteAddr,
			Result: conn.DialResultFromError(err),
		}
		if ctx.Err() == nil {
			c.logger.Warn("Failed to connect",
				zap.String("client", c.name),
				zap.Stringer("remoteAddr", c.remoteAddr),
				zap.Stringer("dialResult", cerr.Result),
			)
		}
		c.shutdown(cerr)
		return nil, false
	}

	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		_ = nc.Close()
		return nil, false
	}
	c.nc = nc
	c.boundAddr = nc.LocalAddr()
	if targetHost != "" {
		c.targetHost = targetHost
	}
	targetHost = c.targetHost
	if err = setNoDelay(nc, c.noDelay); err != nil {
		c.logger.Debug("Failed to set TCP_NODELAY", zap.String("client", c.name), zap.Error(err))
	}
	c.mu.Unlock()

	stream, err := c.transport.handshake(ctx, nc, targetHost)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("Failed to authenticate connection",
				zap.String("client", c.name),
				zap.Stringer("remoteAddr", c.remoteAddr),
				zap.String("targetHost", targetHost),
				zap.Stringer("transport", c.transport.kind()),
				zap.Error(err),
			)
		}
		c.shutdown(err)
		return nil, false
	}

	if !c.beginReading(stream) {
		return nil, false
	}
	return stream, true
}

// beginReading marks the session connected and makes the caller the reader,
// which from now on owns firing OnClosed. It returns false if the session was closed.
func (c *Client) beginReading(stream net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	if c.receiveBuf == nil {
		c.receiveBuf = make([]byte, c.receiveBufSize)
	}
	c.state = stateConnected
	c.reading = true
	c.stream = stream
	c.sender = c.transport.newSender(stream)
	c.connected.Store(true)
	return true
}

// ensureConnClosed closes nc, and the stream wrapping it, if nc is still the
// session's connection. It returns whether this call closed it.
func (c *Client) ensureConnClosed(nc net.Conn) bool {
	c.mu.Lock()
	if nc == nil || c.nc != nc {
		c.mu.Unlock()
		return false
	}
	stream := c.stream
	c.nc = nil
	c.stream = nil
	c.mu.Unlock()

	if stream != nil && stream != nc {
		_ = stream.Close()
	}
	if err := nc.Close(); err != nil && !conn.IsIgnorable(err) {
		c.logger.Debug("Failed to close connection", zap.String("client", c.name), zap.Error(err))
	}
	return true
}

// shutdown moves the session to the closed state and closes its connection.
// cause, if not nil, is reported before OnClosed unless it is ignorable.
//
// It returns false if the session was already closed. OnClosed is fired here
// unless a reader is running, in which case the reader fires it on exit.
func (c *Client) shutdown(cause error) bool {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return false
	}
	c.state = stateClosed
	c.connected.Store(false)
	c.closeCause = cause
	if c.cancel != nil {
		c.cancel()
	}
	nc := c.nc
	reading := c.reading
	c.mu.Unlock()

	c.ensureConnClosed(nc)

	if !reading {
		c.finish()
	}
	return true
}

// finish reports the close cause and fires OnClosed. It is called exactly once.
func (c *Client) finish() {
	c.mu.Lock()
	cause := c.closeCause
	c.mu.Unlock()

	if cause != nil {
		if conn.IsIgnorable(cause) {
			c.logger.Debug("Session ended by teardown race",
				zap.String("client", c.name),
				zap.Stringer("remoteAddr", c.remoteAddr),
				zap.Error(cause),
			)
		} else {
			c.stats.CollectError(c.name)
			c.handler.OnError(c, cause)
		}
	}

	c.logger.Info("Closed session",
		zap.String("client", c.name),
		zap.Stringer("remoteAddr", c.remoteAddr),
	)
	c.stats.CollectClose(c.name)
	c.handler.OnClosed(c)
	close(c.done)
}

// Close closes the session. It unblocks every pending operation.
// Close may be called at any time and any number of times.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

// readLoop delivers reads from stream until it fails or the session is closed.
// It is the only caller of OnConnected and OnDataReceived, and fires OnClosed on exit.
func (c *Client) readLoop(stream net.Conn) {
	c.logger.Info("Connected",
		zap.String("client", c.name),
		zap.Stringer("remoteAddr", c.remoteAddr),
		zap.Stringer("localAddr", stream.LocalAddr()),
		zap.Stringer("transport", c.transport.kind()),
	)
	c.stats.CollectConnect(c.name)
	c.handler.OnConnected(c)

	var (
		buf   = c.receiveBuf
		cause error
	)

	for {
		n, err := stream.Read(buf)
		if n > 0 {
			c.stats.CollectReceive(c.name, uint64(n))
			b := buf[:n]
			if c.copyOnReceive {
				b = bytes.Clone(b)
			}
			c.handler.OnDataReceived(c, b)
		}
		if err != nil {
			// io.EOF is an orderly shutdown by the peer.
			if !errors.Is(err, io.EOF) {
				cause = fmt.Errorf("failed to read from %s: %w", c.remoteAddr, err)
			}
			break
		}
	}

	c.shutdown(cause)
	c.finish()
}
