package httpproxy

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"net"
	"strings"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/netio"
)

var errUsernameContainsColon = errors.New("username contains colon")

// ConnectorConfig contains configuration options for an HTTP proxy connector.
type ConnectorConfig struct {
	// Dialer reaches the proxy server. If nil, [conn.DefaultDialer] is used.
	Dialer netio.StreamDialer

	// ServerAddr is the address of the HTTP proxy server.
	ServerAddr conn.Addr

	// Certificates is an optional list of client certificates for mutual TLS.
	// See [tls.Config.Certificates].
	Certificates []tls.Certificate

	// RootCAs is the set of root CAs used to verify server certificates.
	// If nil, the host's CA set is used.
	// See [tls.Config.RootCAs].
	RootCAs *x509.CertPool

	// ServerName is the server name used to verify the hostname on the returned certificates.
	// If empty, the host of ServerAddr is used.
	// See [tls.Config.ServerName].
	ServerName string

	// Username is the username used for authentication.
	Username string

	// Password is the password used for authentication.
	Password string

	// UseTLS controls whether to use TLS.
	UseTLS bool

	// UseBasicAuth controls whether to use HTTP Basic Authentication.
	UseBasicAuth bool
}

// NewConnector creates a new HTTP proxy connector.
func (c ConnectorConfig) NewConnector() (*Connector, error) {
	if !c.ServerAddr.IsValid() {
		return nil, conn.ErrInvalidAddr
	}

	connector := Connector{
		dialer:     c.Dialer,
		serverAddr: c.ServerAddr,
	}
	if connector.dialer == nil {
		connector.dialer = conn.DefaultDialer
	}

	if c.UseTLS {
		serverName := c.ServerName
		if serverName == "" {
			serverName = c.ServerAddr.Host()
		}
		connector.tlsConfig = &tls.Config{
			Certificates: c.Certificates,
			RootCAs:      c.RootCAs,
			ServerName:   serverName,
		}
	}

	if c.UseBasicAuth {
		if strings.IndexByte(c.Username, ':') >= 0 {
			return nil, errUsernameContainsColon
		}
		connector.proxyAuthHeader = "\r\nProxy-Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
	}

	return &connector, nil
}

// Connector establishes connections through an HTTP proxy with the CONNECT method.
//
// Connector implements [netio.ProxyConnector].
type Connector struct {
	dialer          netio.StreamDialer
	serverAddr      conn.Addr
	tlsConfig       *tls.Config
	proxyAuthHeader string
}

var _ netio.ProxyConnector = (*Connector)(nil)

// ConnectProxy implements [netio.ProxyConnector.ConnectProxy].
func (c *Connector) ConnectProxy(ctx context.Context, target conn.Addr) (netio.ProxyResult, error) {
	innerConn, err := c.dialer.DialContext(ctx, c.serverAddr)
	if err != nil {
		return netio.ProxyResult{}, err
	}

	if c.tlsConfig != nil {
		tlsConn := tls.Client(innerConn, c.tlsConfig)
		if err = tlsConn.HandshakeContext(ctx); err != nil {
			_ = innerConn.Close()
			return netio.ProxyResult{}, err
		}
		innerConn = tlsConn
	}

	var clientConn net.Conn
	if err = netio.ConnContextFunc(ctx, innerConn, func(innerConn net.Conn) (err error) {
		clientConn, err = ClientConnect(innerConn, target, c.proxyAuthHeader)
		return err
	}); err != nil {
		_ = innerConn.Close()
		return netio.ProxyResult{}, err
	}

	return netio.ProxyResult{Conn: clientConn}, nil
}
