// Package sshtunnel reaches targets through an SSH server's direct-tcpip channels,
// as with "ssh -W host:port".
package sshtunnel

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/netio"
	"golang.org/x/crypto/ssh"
)

var (
	errEmptyUser          = errors.New("ssh user is empty")
	errNoHostKeyCallback  = errors.New("ssh host key callback is nil")
	errNoAuthMethodsGiven = errors.New("no ssh auth methods given")
)

// ConnectorConfig contains configuration options for an SSH tunnel connector.
type ConnectorConfig struct {
	// Dialer reaches the SSH server. If nil, [conn.DefaultDialer] is used.
	Dialer netio.StreamDialer

	// ServerAddr is the address of the SSH server.
	ServerAddr conn.Addr

	// User is the SSH user name.
	User string

	// Auth lists the authentication methods to try, in order.
	Auth []ssh.AuthMethod

	// HostKeyCallback verifies the server's host key. It must not be nil.
	// Use [ssh.FixedHostKey] or a known_hosts callback.
	HostKeyCallback ssh.HostKeyCallback

	// ClientVersion overrides the identification string sent to the server.
	ClientVersion string
}

// NewConnector creates a new SSH tunnel connector.
func (c ConnectorConfig) NewConnector() (*Connector, error) {
	switch {
	case !c.ServerAddr.IsValid():
		return nil, conn.ErrInvalidAddr
	case c.User == "":
		return nil, errEmptyUser
	case len(c.Auth) == 0:
		return nil, errNoAuthMethodsGiven
	case c.HostKeyCallback == nil:
		return nil, errNoHostKeyCallback
	}

	connector := Connector{
		dialer:     c.Dialer,
		serverAddr: c.ServerAddr,
		config: ssh.ClientConfig{
			User:            c.User,
			Auth:            c.Auth,
			HostKeyCallback: c.HostKeyCallback,
			ClientVersion:   c.ClientVersion,
		},
	}
	if connector.dialer == nil {
		connector.dialer = conn.DefaultDialer
	}
	return &connector, nil
}

// Connector opens one SSH connection per target and forwards it over a direct-tcpip channel.
// The target name is resolved by the SSH server.
//
// Connector implements [netio.ProxyConnector].
type Connector struct {
	dialer     netio.StreamDialer
	serverAddr conn.Addr
	config     ssh.ClientConfig
}

var _ netio.ProxyConnector = (*Connector)(nil)

// ConnectProxy implements [netio.ProxyConnector.ConnectProxy].
func (c *Connector) ConnectProxy(ctx context.Context, target conn.Addr) (netio.ProxyResult, error) {
	innerConn, err := c.dialer.DialContext(ctx, c.serverAddr)
	if err != nil {
		return netio.ProxyResult{}, err
	}

	var client *ssh.Client
	if err = netio.ConnContextFunc(ctx, innerConn, func(innerConn net.Conn) error {
		sshConn, chans, reqs, err := ssh.NewClientConn(innerConn, c.serverAddr.String(), &c.config)
		if err != nil {
			return err
		}
		client = ssh.NewClient(sshConn, chans, reqs)
		return nil
	}); err != nil {
		if client != nil {
			_ = client.Close()
		}
		_ = innerConn.Close()
		return netio.ProxyResult{}, err
	}

	tunnel, err := client.DialContext(ctx, "tcp", net.JoinHostPort(target.Host(), strconv.Itoa(int(target.Port()))))
	if err != nil {
		_ = client.Close()
		return netio.ProxyResult{}, err
	}

	return netio.ProxyResult{
		Conn: &tunnelConn{
			Conn:   tunnel,
			client: client,
			raddr:  innerConn.RemoteAddr(),
		},
	}, nil
}

// tunnelConn is a direct-tcpip channel that owns its SSH client.
type tunnelConn struct {
	net.Conn
	client *ssh.Client
	raddr  net.Addr
}

// RemoteAddr returns the address of the SSH server.
// The channel itself only carries a zero address.
func (c *tunnelConn) RemoteAddr() net.Addr {
	return c.raddr
}

// Close closes the channel and the SSH connection.
func (c *tunnelConn) Close() error {
	err := c.Conn.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}
