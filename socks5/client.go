package socks5

import (
	"context"
	"io"
	"net"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/netio"
)

// clientNegotiateAuthMethod offers method to the server and checks that it is selected.
func clientNegotiateAuthMethod(rw io.ReadWriter, b []byte, method byte) error {
	// VER, NMETHODS, METHODS.
	b = append(b[:0], Version, 1, method)
	if _, err := rw.Write(b); err != nil {
		return err
	}

	// VER, METHOD.
	if _, err := io.ReadFull(rw, b[:2]); err != nil {
		return err
	}
	if b[0] != Version {
		return UnsupportedVersionError(b[0])
	}
	if b[1] != method {
		return UnsupportedAuthMethodError(b[1])
	}
	return nil
}

// clientDoUsernamePasswordAuth sends authMsg and checks the server's verdict.
func clientDoUsernamePasswordAuth(rw io.ReadWriter, b, authMsg []byte) error {
	if _, err := rw.Write(authMsg); err != nil {
		return err
	}

	// VER, STATUS.
	if _, err := io.ReadFull(rw, b[:2]); err != nil {
		return err
	}
	if b[0] != UsernamePasswordAuthVersion {
		return UnsupportedVersionError(b[0])
	}
	if b[1] != 0 {
		return ErrIncorrectUsernamePassword
	}
	return nil
}

// clientDoConnect sends a CONNECT request for target and returns the bound address in the reply.
func clientDoConnect(rw io.ReadWriter, b []byte, target conn.Addr) (conn.Addr, error) {
	// VER, CMD, RSV, DST.ADDR, DST.PORT.
	b = AppendAddr(append(b[:0], Version, CmdConnect, 0), target)
	if _, err := rw.Write(b); err != nil {
		return conn.Addr{}, err
	}

	// VER, REP, RSV.
	if _, err := io.ReadFull(rw, b[:3]); err != nil {
		return conn.Addr{}, err
	}
	if b[0] != Version {
		return conn.Addr{}, UnsupportedVersionError(b[0])
	}
	rep := b[1]

	// BND.ADDR, BND.PORT. Consume it even on failure to leave the stream in a sane state.
	bound, err := ReadAddr(rw, b[:cap(b)])
	if err != nil {
		return conn.Addr{}, err
	}

	if rep != ReplySucceeded {
		return conn.Addr{}, ReplyError(rep)
	}
	return bound, nil
}

// ClientConnect performs the handshake on rw and requests a connection to target.
// If authMsg is not empty, username/password authentication is used.
// It returns the bound address in the server's reply.
func ClientConnect(rw io.ReadWriter, authMsg []byte, target conn.Addr) (conn.Addr, error) {
	b := make([]byte, 0, 3+MaxAddrLen)

	method := byte(MethodNoAuthenticationRequired)
	if len(authMsg) > 0 {
		method = MethodUsernamePassword
	}

	if err := clientNegotiateAuthMethod(rw, b, method); err != nil {
		return conn.Addr{}, err
	}
	if len(authMsg) > 0 {
		if err := clientDoUsernamePasswordAuth(rw, b[:2], authMsg); err != nil {
			return conn.Addr{}, err
		}
	}
	return clientDoConnect(rw, b, target)
}

// ConnectorConfig is the configuration for a SOCKS5 connector.
type ConnectorConfig struct {
	// Dialer reaches the SOCKS5 server. If nil, [conn.DefaultDialer] is used.
	Dialer netio.StreamDialer

	// ServerAddr is the address of the SOCKS5 server.
	ServerAddr conn.Addr

	// User enables username/password authentication when non-empty.
	User UserInfo
}

// NewConnector returns a new SOCKS5 connector.
func (c ConnectorConfig) NewConnector() (*Connector, error) {
	if !c.ServerAddr.IsValid() {
		return nil, conn.ErrInvalidAddr
	}

	var authMsg []byte
	if c.User != (UserInfo{}) {
		if err := c.User.Validate(); err != nil {
			return nil, err
		}
		authMsg = c.User.AppendAuthMsg(nil)
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = conn.DefaultDialer
	}

	return &Connector{
		dialer:     dialer,
		serverAddr: c.ServerAddr,
		authMsg:    authMsg,
	}, nil
}

// Connector establishes connections through a SOCKS5 server.
//
// Connector implements [netio.ProxyConnector].
type Connector struct {
	dialer     netio.StreamDialer
	serverAddr conn.Addr
	authMsg    []byte
}

var _ netio.ProxyConnector = (*Connector)(nil)

// ConnectProxy implements [netio.ProxyConnector.ConnectProxy].
//
// The result never carries a TargetHost. The bound address in the server's reply
// belongs to the server's outbound socket and says nothing about the target's name.
func (c *Connector) ConnectProxy(ctx context.Context, target conn.Addr) (netio.ProxyResult, error) {
	nc, err := c.dialer.DialContext(ctx, c.serverAddr)
	if err != nil {
		return netio.ProxyResult{}, err
	}

	if err = netio.ConnContextFunc(ctx, nc, func(nc net.Conn) error {
		_, err := ClientConnect(nc, c.authMsg, target)
		return err
	}); err != nil {
		_ = nc.Close()
		return netio.ProxyResult{}, err
	}

	return netio.ProxyResult{Conn: nc}, nil
}
