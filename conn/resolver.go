package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/miekg/dns"
)

// Resolver looks up the IP addresses of a domain name.
type Resolver interface {
	LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error)
}

// SystemResolver resolves names with [net.DefaultResolver].
type SystemResolver struct{}

// LookupNetIP implements [Resolver].
func (SystemResolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// DNSResolverConfig is the configuration for a [DNSResolver].
type DNSResolverConfig struct {
	// Servers is the list of upstream servers, tried in order.
	Servers []netip.AddrPort

	// UseTCP makes the resolver query over TCP instead of UDP.
	UseTCP bool
}

// NewDNSResolver returns a new DNS resolver.
func (c DNSResolverConfig) NewDNSResolver() (*DNSResolver, error) {
	if len(c.Servers) == 0 {
		return nil, errors.New("no DNS servers configured")
	}

	client := &dns.Client{Net: "udp"}
	if c.UseTCP {
		client.Net = "tcp"
	}

	servers := make([]string, len(c.Servers))
	for i, server := range c.Servers {
		servers[i] = server.String()
	}

	return &DNSResolver{
		client:  client,
		servers: servers,
	}, nil
}

// DNSResolver sends A and AAAA queries to a fixed list of upstream servers.
type DNSResolver struct {
	client  *dns.Client
	servers []string
}

// LookupNetIP implements [Resolver].
//
// Each server is queried for both record types. The first server to return at least
// one address wins. If every server fails, the last error is returned.
func (r *DNSResolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}

	var lastErr error
	for _, server := range r.servers {
		v4, err4 := r.exchange(ctx, server, host, dns.TypeA)
		v6, err6 := r.exchange(ctx, server, host, dns.TypeAAAA)
		if ips := append(v4, v6...); len(ips) > 0 {
			return ips, nil
		}
		if err := errors.Join(err4, err6); err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no such host")
	}
	return nil, &net.DNSError{Err: lastErr.Error(), Name: host, IsNotFound: true}
}

func (r *DNSResolver) exchange(ctx context.Context, server, host string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", server, dns.TypeToString[qtype], err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s %s: %s", server, dns.TypeToString[qtype], dns.RcodeToString[in.Rcode])
	}

	var ips []netip.Addr
	for _, ans := range in.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			if ip, ok := netip.AddrFromSlice(rr.A.To4()); ok {
				ips = append(ips, ip)
			}
		case *dns.AAAA:
			if ip, ok := netip.AddrFromSlice(rr.AAAA.To16()); ok {
				ips = append(ips, ip)
			}
		}
	}
	return ips, nil
}
