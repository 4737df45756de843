package conn

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

var (
	// ErrInvalidAddr is returned when an operation is given the zero [Addr].
	ErrInvalidAddr = errors.New("invalid address")

	errEmptyDomain = errors.New("empty domain name")
)

// Addr is the base address type used throughout the module.
//
// An Addr is a port number combined with either an IP address or a domain name.
// The zero value is not a valid address.
type Addr struct {
	ip     netip.Addr
	port   uint16
	domain string
}

// IsValid returns whether the address is an IP address or a non-empty domain name.
func (a Addr) IsValid() bool {
	return a.ip.IsValid() || a.domain != ""
}

// IsIP returns whether the address is an IP address.
// If false, the address is a domain name.
func (a Addr) IsIP() bool {
	return a.ip.IsValid()
}

// IP returns the IP address.
// If the address is a domain name, the returned netip.Addr is a zero value.
func (a Addr) IP() netip.Addr {
	return a.ip
}

// Domain returns the domain name.
// If the address is an IP address, the returned domain name is an empty string.
func (a Addr) Domain() string {
	return a.domain
}

// Port returns the port number.
func (a Addr) Port() uint16 {
	return a.port
}

// IPPort returns a netip.AddrPort.
// If the address is a domain name, the returned netip.AddrPort contains a zero-value netip.Addr
// and the port number.
func (a Addr) IPPort() netip.AddrPort {
	return netip.AddrPortFrom(a.ip, a.port)
}

// Host returns the string representation of the IP address or the domain name.
func (a Addr) Host() string {
	if a.ip.IsValid() {
		return a.ip.String()
	}
	return a.domain
}

// String returns the string representation of the address.
func (a Addr) String() string {
	if a.ip.IsValid() {
		return a.IPPort().String()
	}
	return net.JoinHostPort(a.domain, strconv.FormatUint(uint64(a.port), 10))
}

// MarshalText implements [encoding.TextMarshaler].
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (a *Addr) UnmarshalText(text []byte) error {
	addr, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// AddrFromIPPort returns an Addr from the provided netip.AddrPort.
func AddrFromIPPort(addrPort netip.AddrPort) Addr {
	return Addr{ip: addrPort.Addr(), port: addrPort.Port()}
}

// AddrFromDomainPort returns an Addr from the provided domain name and port number.
func AddrFromDomainPort(domain string, port uint16) (Addr, error) {
	if domain == "" {
		return Addr{}, errEmptyDomain
	}
	if len(domain) > 255 {
		return Addr{}, fmt.Errorf("length of domain %s exceeds 255", domain)
	}
	return Addr{domain: domain, port: port}, nil
}

// MustAddrFromDomainPort calls [AddrFromDomainPort] and panics on error.
func MustAddrFromDomainPort(domain string, port uint16) Addr {
	addr, err := AddrFromDomainPort(domain, port)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddrFromHostPort returns an Addr from the provided host string and port number.
// The host string may be a string representation of an IP address or a domain name.
func AddrFromHostPort(host string, port uint16) (Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return Addr{ip: ip, port: port}, nil
	}
	return AddrFromDomainPort(host, port)
}

// AddrFromNetAddr converts a [*net.TCPAddr] or [*net.UDPAddr] into an Addr.
// Other address types are parsed from their string representation.
func AddrFromNetAddr(na net.Addr) (Addr, error) {
	switch na := na.(type) {
	case *net.TCPAddr:
		return addrFromUnmappedIPPort(na.AddrPort()), nil
	case *net.UDPAddr:
		return addrFromUnmappedIPPort(na.AddrPort()), nil
	case nil:
		return Addr{}, errors.New("nil net.Addr")
	default:
		return ParseAddr(na.String())
	}
}

func addrFromUnmappedIPPort(addrPort netip.AddrPort) Addr {
	return Addr{ip: addrPort.Addr().Unmap(), port: addrPort.Port()}
}

// ParseAddr parses the provided string representation of an address
// and returns the parsed address or an error.
func ParseAddr(s string) (Addr, error) {
	host, portString, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, err
	}

	portNumber, err := strconv.ParseUint(portString, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("failed to parse port string: %w", err)
	}

	return AddrFromHostPort(host, uint16(portNumber))
}

// MustParseAddr calls [ParseAddr] and panics on error.
func MustParseAddr(s string) Addr {
	addr, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return addr
}
