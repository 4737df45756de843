package netio

import (
	"context"
	"errors"
	"net"

	"github.com/database64128/asynctcp-go/conn"
)

// StreamDialer establishes stream connections to servers.
//
// [*conn.Dialer] implements StreamDialer.
type StreamDialer interface {
	// DialContext establishes a stream connection to the given address.
	DialContext(ctx context.Context, addr conn.Addr) (net.Conn, error)
}

// ProxyResult is the outcome of a successful proxy hand-off.
type ProxyResult struct {
	// Conn is the connected stream. Bytes written to it reach the target.
	Conn net.Conn

	// TargetHost is the host name renegotiated by the proxy, if any.
	// When empty, the session keeps using the host of the requested target.
	TargetHost string
}

// ProxyConnector establishes a connection to a target through an intermediary.
//
// ConnectProxy is called once per connect attempt, on the session's own goroutine.
// It must honor ctx: the session cancels it when closed during the hand-off.
type ProxyConnector interface {
	ConnectProxy(ctx context.Context, target conn.Addr) (ProxyResult, error)
}

// ErrNilConn is returned when a connector reports success without a connection.
var ErrNilConn = errors.New("proxy connector returned a nil connection")

// ConnectorDialer adapts a [ProxyConnector] into a [StreamDialer],
// so that one proxy can be reached through another.
type ConnectorDialer struct {
	Connector ProxyConnector
}

// DialContext implements [StreamDialer.DialContext].
func (d ConnectorDialer) DialContext(ctx context.Context, addr conn.Addr) (net.Conn, error) {
	res, err := d.Connector.ConnectProxy(ctx, addr)
	if err != nil {
		return nil, err
	}
	if res.Conn == nil {
		return nil, ErrNilConn
	}
	return res.Conn, nil
}

// ConnContextFunc calls f on c to execute an arbitrary read or write operation.
// If ctx can be canceled, an interruptor goroutine is spun up to cancel the operation
// by expiring the deadlines of c when ctx is done.
func ConnContextFunc(ctx context.Context, c net.Conn, f func(net.Conn) error) (err error) {
	if ctxDone := ctx.Done(); ctxDone != nil {
		done := make(chan struct{})
		interruptRes := make(chan error)

		defer func() {
			close(done)
			if ctxErr := <-interruptRes; ctxErr != nil && (err == nil || conn.IsDeadlineExceeded(err)) {
				err = ctxErr
			}
		}()

		go func() {
			select {
			case <-ctxDone:
				_ = c.SetDeadline(conn.ALongTimeAgo)
				interruptRes <- ctx.Err()
			case <-done:
				interruptRes <- nil
			}
		}()
	}

	return f(c)
}

// ConnWriteContext is a convenience wrapper around [ConnContextFunc] that writes b to c.
func ConnWriteContext(ctx context.Context, c net.Conn, b []byte) (n int, err error) {
	return n, ConnContextFunc(ctx, c, func(c net.Conn) (err error) {
		n, err = c.Write(b)
		return err
	})
}
