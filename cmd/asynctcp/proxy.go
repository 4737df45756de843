package main

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"

	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/httpproxy"
	"github.com/database64128/asynctcp-go/netio"
	"github.com/database64128/asynctcp-go/prefixset"
	"github.com/database64128/asynctcp-go/socks5"
	"github.com/database64128/asynctcp-go/sshtunnel"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// proxyConfig selects how connections reach their target.
type proxyConfig struct {
	// URL is the proxy URL. The scheme is one of socks5, http, https, or ssh.
	// If empty, connections are made directly.
	URL string

	// BypassPath is the path to a rule set of targets connected to directly.
	BypassPath string

	// SSHKnownHosts is the known_hosts file used to verify SSH host keys.
	SSHKnownHosts string

	// SSHIdentity is the private key file used for SSH public key authentication.
	SSHIdentity string

	// SSHInsecureIgnoreHostKey disables SSH host key verification.
	SSHInsecureIgnoreHostKey bool
}

var errBypassWithoutProxy = errors.New("bypass list requires a proxy")

// newProxyConnector returns the connector described by the config, or nil for direct connections.
func (c *proxyConfig) newProxyConnector(dialer *conn.Dialer, logger *zap.Logger) (netio.ProxyConnector, error) {
	if c.URL == "" {
		if c.BypassPath != "" {
			return nil, errBypassWithoutProxy
		}
		return nil, nil
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
	}

	var proxy netio.ProxyConnector
	switch u.Scheme {
	case "socks5":
		proxy, err = newSOCKS5Connector(u, dialer)
	case "http", "https":
		proxy, err = newHTTPConnector(u, dialer)
	case "ssh":
		proxy, err = c.newSSHConnector(u, dialer)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if c.BypassPath == "" {
		return proxy, nil
	}

	bypass, err := prefixset.Config{Name: "bypass", Path: c.BypassPath}.Set()
	if err != nil {
		return nil, err
	}
	return netio.NewBypassConnector(proxy, netio.NewDirectConnector(dialer), bypass, logger), nil
}

// proxyServerAddr returns the address in the proxy URL, using defaultPort if the URL has none.
func proxyServerAddr(u *url.URL, defaultPort uint16) (conn.Addr, error) {
	port := defaultPort
	if s := u.Port(); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return conn.Addr{}, fmt.Errorf("failed to parse proxy port: %w", err)
		}
		port = uint16(n)
	}
	return conn.AddrFromHostPort(u.Hostname(), port)
}

func newSOCKS5Connector(u *url.URL, dialer *conn.Dialer) (netio.ProxyConnector, error) {
	serverAddr, err := proxyServerAddr(u, 1080)
	if err != nil {
		return nil, err
	}

	var user socks5.UserInfo
	if u.User != nil {
		user.Username = u.User.Username()
		user.Password, _ = u.User.Password()
	}

	return socks5.ConnectorConfig{
		Dialer:     dialer,
		ServerAddr: serverAddr,
		User:       user,
	}.NewConnector()
}

func newHTTPConnector(u *url.URL, dialer *conn.Dialer) (netio.ProxyConnector, error) {
	useTLS := u.Scheme == "https"
	defaultPort := uint16(80)
	if useTLS {
		defaultPort = 443
	}

	serverAddr, err := proxyServerAddr(u, defaultPort)
	if err != nil {
		return nil, err
	}

	config := httpproxy.ConnectorConfig{
		Dialer:     dialer,
		ServerAddr: serverAddr,
		UseTLS:     useTLS,
	}
	if u.User != nil {
		config.Username = u.User.Username()
		config.Password, _ = u.User.Password()
		config.UseBasicAuth = true
	}
	return config.NewConnector()
}

func (c *proxyConfig) newSSHConnector(u *url.URL, dialer *conn.Dialer) (netio.ProxyConnector, error) {
	serverAddr, err := proxyServerAddr(u, 22)
	if err != nil {
		return nil, err
	}
	if u.User == nil {
		return nil, errors.New("ssh proxy URL requires a user name")
	}

	var auth []ssh.AuthMethod
	if c.SSHIdentity != "" {
		key, err := os.ReadFile(c.SSHIdentity)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH identity: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH identity: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if password, ok := u.User.Password(); ok {
		auth = append(auth, ssh.Password(password))
	}

	var hostKeyCallback ssh.HostKeyCallback
	switch {
	case c.SSHInsecureIgnoreHostKey:
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	case c.SSHKnownHosts != "":
		hostKeyCallback, err = knownhosts.New(c.SSHKnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	default:
		return nil, errors.New("ssh proxy requires a known hosts file or insecure host key verification")
	}

	return sshtunnel.ConnectorConfig{
		Dialer:          dialer,
		ServerAddr:      serverAddr,
		User:            u.User.Username(),
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	}.NewConnector()
}

// parseDNSServers parses a list of DNS server addresses. Addresses without a port use port 53.
func parseDNSServers(servers []string) ([]netip.AddrPort, error) {
	addrPorts := make([]netip.AddrPort, 0, len(servers))
	for _, s := range servers {
		if ip, err := netip.ParseAddr(s); err == nil {
			addrPorts = append(addrPorts, netip.AddrPortFrom(ip, 53))
			continue
		}
		addrPort, err := netip.ParseAddrPort(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DNS server %q: %w", s, err)
		}
		addrPorts = append(addrPorts, addrPort)
	}
	return addrPorts, nil
}
