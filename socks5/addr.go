package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	"github.com/database64128/asynctcp-go/conn"
)

// SOCKS address types as defined in RFC 1928 section 5.
const (
	AtypIPv4       = 1
	AtypDomainName = 3
	AtypIPv6       = 4
)

// MaxAddrLen is the maximum size of a SOCKS address in bytes.
const MaxAddrLen = 1 + 1 + 255 + 2

// AppendAddr appends addr in SOCKS address encoding to b.
//
// IPv4-mapped IPv6 addresses are encoded as IPv4 addresses.
func AppendAddr(b []byte, addr conn.Addr) []byte {
	if addr.IsIP() {
		ip := addr.IP().Unmap()
		if ip.Is4() {
			b = append(b, AtypIPv4)
		} else {
			b = append(b, AtypIPv6)
		}
		b = append(b, ip.AsSlice()...)
	} else {
		domain := addr.Domain()
		b = append(b, AtypDomainName, byte(len(domain)))
		b = append(b, domain...)
	}
	return binary.BigEndian.AppendUint16(b, addr.Port())
}

// ReadAddr reads a SOCKS address from r.
//
// buf is scratch space and must be at least [MaxAddrLen] bytes long.
func ReadAddr(r io.Reader, buf []byte) (conn.Addr, error) {
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return conn.Addr{}, err
	}

	switch buf[0] {
	case AtypIPv4:
		b := buf[1 : 1+4+2]
		if _, err := io.ReadFull(r, b); err != nil {
			return conn.Addr{}, err
		}
		ip := netip.AddrFrom4([4]byte(b[:4]))
		return conn.AddrFromIPPort(netip.AddrPortFrom(ip, binary.BigEndian.Uint16(b[4:]))), nil

	case AtypIPv6:
		b := buf[1 : 1+16+2]
		if _, err := io.ReadFull(r, b); err != nil {
			return conn.Addr{}, err
		}
		ip := netip.AddrFrom16([16]byte(b[:16]))
		return conn.AddrFromIPPort(netip.AddrPortFrom(ip, binary.BigEndian.Uint16(b[16:]))), nil

	case AtypDomainName:
		if _, err := io.ReadFull(r, buf[1:2]); err != nil {
			return conn.Addr{}, err
		}
		domainLen := int(buf[1])
		b := buf[2 : 2+domainLen+2]
		if _, err := io.ReadFull(r, b); err != nil {
			return conn.Addr{}, err
		}
		return conn.AddrFromDomainPort(string(b[:domainLen]), binary.BigEndian.Uint16(b[domainLen:]))

	default:
		return conn.Addr{}, fmt.Errorf("unknown atyp %v", buf[0])
	}
}
