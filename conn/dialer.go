package conn

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/database64128/tfo-go/v2"
)

// ErrHostUnreachable is returned when a dial completes without producing a connected socket.
var ErrHostUnreachable = errors.New("host unreachable")

// DialerConfig is the configuration for a [Dialer].
type DialerConfig struct {
	// LocalAddr is the local address to bind to before connecting.
	// The zero value lets the system choose.
	LocalAddr netip.AddrPort

	// Timeout bounds the connect attempt, including name resolution.
	// Zero means no timeout besides the context passed to DialContext.
	Timeout time.Duration

	// KeepAlive is passed through to [net.Dialer.KeepAlive].
	KeepAlive time.Duration

	// Fwmark sets SO_MARK on Linux. Ignored on other platforms.
	Fwmark int

	// TCPFastOpen enables TCP Fast Open when an initial payload is supplied.
	TCPFastOpen bool

	// PreferIPv6 makes the dialer pick an IPv6 address when a domain resolves to both families.
	PreferIPv6 bool

	// Resolver resolves domain endpoints. If nil, domain endpoints are handed to the system resolver.
	Resolver Resolver
}

// NewDialer returns a new dialer with the configuration applied.
func (c DialerConfig) NewDialer() *Dialer {
	d := &Dialer{
		preferIPv6: c.PreferIPv6,
		resolver:   c.Resolver,
	}
	d.tfo.DisableTFO = !c.TCPFastOpen
	d.tfo.Timeout = c.Timeout
	d.tfo.KeepAlive = c.KeepAlive
	d.tfo.Control = dialerControlFunc(c.Fwmark)
	if c.LocalAddr.IsValid() {
		d.tfo.LocalAddr = net.TCPAddrFromAddrPort(c.LocalAddr)
	}
	return d
}

// DefaultDialer is the dialer used when none is configured.
var DefaultDialer = DialerConfig{}.NewDialer()

// Dialer establishes TCP connections to [Addr] endpoints.
//
// A Dialer is safe for concurrent use. Use [Dialer.WithLocalAddr] to derive a dialer
// bound to a different local address.
type Dialer struct {
	tfo        tfo.Dialer
	preferIPv6 bool
	resolver   Resolver
}

// WithLocalAddr returns a copy of the dialer bound to laddr.
// An invalid laddr clears the binding.
func (d *Dialer) WithLocalAddr(laddr netip.AddrPort) *Dialer {
	nd := *d
	if laddr.IsValid() {
		nd.tfo.LocalAddr = net.TCPAddrFromAddrPort(laddr)
	} else {
		nd.tfo.LocalAddr = nil
	}
	return &nd
}

// LocalAddr returns the local address the dialer binds to, if any.
func (d *Dialer) LocalAddr() netip.AddrPort {
	if laddr, ok := d.tfo.LocalAddr.(*net.TCPAddr); ok {
		return laddr.AddrPort()
	}
	return netip.AddrPort{}
}

// DialContext connects to addr.
func (d *Dialer) DialContext(ctx context.Context, addr Addr) (net.Conn, error) {
	return d.DialContextWithPayload(ctx, addr, nil)
}

// DialContextWithPayload connects to addr and sends payload as part of the handshake
// when TCP Fast Open is enabled. Otherwise payload is written after the connection is established.
func (d *Dialer) DialContextWithPayload(ctx context.Context, addr Addr, payload []byte) (net.Conn, error) {
	if !addr.IsValid() {
		return nil, ErrInvalidAddr
	}

	address, err := d.resolveAddress(ctx, addr)
	if err != nil {
		return nil, err
	}

	c, err := d.tfo.DialContext(ctx, "tcp", address, payload)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrHostUnreachable
	}
	return c, nil
}

func (d *Dialer) resolveAddress(ctx context.Context, addr Addr) (string, error) {
	if addr.IsIP() || d.resolver == nil {
		return addr.String(), nil
	}

	ips, err := d.resolver.LookupNetIP(ctx, addr.Domain())
	if err != nil {
		return "", err
	}

	ip, err := selectAddr(ips, d.preferIPv6)
	if err != nil {
		return "", &net.DNSError{Err: err.Error(), Name: addr.Domain(), IsNotFound: true}
	}
	return net.JoinHostPort(ip.String(), strconv.FormatUint(uint64(addr.Port()), 10)), nil
}

// selectAddr picks a random address of the preferred family,
// falling back to the other family when none is available.
func selectAddr(ips []netip.Addr, preferIPv6 bool) (netip.Addr, error) {
	var primaries, fallbacks []netip.Addr

	for _, ip := range ips {
		ip = ip.Unmap()
		switch {
		case !ip.IsValid():
		case ip.Is6() == preferIPv6:
			primaries = append(primaries, ip)
		default:
			fallbacks = append(fallbacks, ip)
		}
	}

	switch {
	case len(primaries) > 0:
		return primaries[rand.IntN(len(primaries))], nil
	case len(fallbacks) > 0:
		return fallbacks[rand.IntN(len(fallbacks))], nil
	default:
		return netip.Addr{}, errors.New("lookup returned no addresses and no error")
	}
}
