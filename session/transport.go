package session

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"

	"github.com/database64128/asynctcp-go/negotiate"
	"github.com/database64128/asynctcp-go/netio"
	"github.com/database64128/asynctcp-go/queue"
)

// transport secures a connection and writes batches to it.
type transport interface {
	kind() TransportKind

	// handshake returns the stream the session reads from and writes to.
	// It runs on the connect goroutine and must honor ctx.
	handshake(ctx context.Context, nc net.Conn, targetHost string) (net.Conn, error)

	// newSender returns the writer used by the send gate holder.
	newSender(stream net.Conn) streamSender
}

// streamSender writes a batch starting at its cursor.
// It advances the cursor past every segment fully written.
type streamSender interface {
	send(batch *queue.PositionList[[]byte]) error
}

// plainTransport uses the raw connection.
type plainTransport struct{}

func (plainTransport) kind() TransportKind {
	return TransportPlain
}

func (plainTransport) handshake(_ context.Context, nc net.Conn, _ string) (net.Conn, error) {
	return nc, nil
}

func (plainTransport) newSender(stream net.Conn) streamSender {
	return plainSender{stream}
}

// plainSender writes a batch with a single write, gathering multiple segments.
type plainSender struct {
	nc net.Conn
}

func (s plainSender) send(batch *queue.PositionList[[]byte]) error {
	items := batch.Remaining()
	switch len(items) {
	case 0:
		return nil
	case 1:
		if _, err := s.nc.Write(items[0]); err != nil {
			return err
		}
	default:
		// WriteTo consumes the slice headers, not the bytes they point to.
		bufs := net.Buffers(items)
		if _, err := bufs.WriteTo(s.nc); err != nil {
			return err
		}
	}
	batch.Advance(len(items))
	return nil
}

// bufferedSender writes the segments of a batch through a buffer and flushes once.
// It is shared by the authenticated stream transports.
type bufferedSender struct {
	bw *bufio.Writer
}

func newBufferedSender(stream net.Conn) streamSender {
	return bufferedSender{bufio.NewWriter(stream)}
}

func (s bufferedSender) send(batch *queue.PositionList[[]byte]) error {
	for {
		b, ok := batch.Current()
		if !ok {
			break
		}
		if _, err := s.bw.Write(b); err != nil {
			return err
		}
		batch.Advance(1)
	}
	return s.bw.Flush()
}

// tlsTransport wraps the connection in a TLS client.
type tlsTransport struct {
	opts *SecurityOptions
}

func (t *tlsTransport) kind() TransportKind {
	return TransportTLS
}

func (t *tlsTransport) handshake(ctx context.Context, nc net.Conn, targetHost string) (net.Conn, error) {
	tc := tls.Client(nc, t.opts.tlsConfig(targetHost))
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

func (t *tlsTransport) newSender(stream net.Conn) streamSender {
	return newBufferedSender(stream)
}

// negotiateTransport authenticates the connection with the negotiate handshake,
// using the target host as the service name.
type negotiateTransport struct {
	opts *SecurityOptions
}

func (t *negotiateTransport) kind() TransportKind {
	return TransportNegotiate
}

func (t *negotiateTransport) handshake(ctx context.Context, nc net.Conn, targetHost string) (net.Conn, error) {
	cred := t.opts.Credential
	if cred == nil {
		var err error
		if cred, err = negotiate.DefaultCredential(); err != nil {
			return nil, err
		}
	}

	if err := netio.ConnContextFunc(ctx, nc, func(nc net.Conn) error {
		return negotiate.Client(nc, cred, targetHost)
	}); err != nil {
		return nil, err
	}
	return nc, nil
}

func (t *negotiateTransport) newSender(stream net.Conn) streamSender {
	return newBufferedSender(stream)
}
