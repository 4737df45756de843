// Package prefixset loads bypass rule sets made of IP prefixes and domain rules.
package prefixset

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/database64128/asynctcp-go/bytestrings"
	"github.com/database64128/asynctcp-go/conn"
	"go4.org/netipx"
)

// Config is the configuration for a rule set.
type Config struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Set loads the rule set from the configured file.
func (c Config) Set() (*Set, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set %s: %w", c.Name, err)
	}

	s, err := SetFromText(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule set %s: %w", c.Name, err)
	}
	return s, nil
}

// Set matches target addresses against IP prefixes, exact domains, and domain suffixes.
//
// Set implements [github.com/database64128/asynctcp-go/netio.AddrMatcher].
type Set struct {
	ips      *netipx.IPSet
	domains  map[string]struct{}
	suffixes DomainSuffixTrie
}

// SetFromText parses a rule set.
//
// Each non-empty line is one rule. Lines starting with '#' are comments.
// A rule is an IP prefix, a bare IP address, "domain:" followed by an exact domain name,
// or "suffix:" followed by a domain suffix that also matches all of its subdomains.
func SetFromText(text string) (*Set, error) {
	var (
		line string
		sb   netipx.IPSetBuilder
		s    = Set{domains: make(map[string]struct{})}
	)

	for {
		line, text = bytestrings.NextNonEmptyLine(text)
		if len(line) == 0 {
			break
		}

		if line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "domain:"):
			domain := normalizeDomain(line[len("domain:"):])
			if domain == "" {
				return nil, fmt.Errorf("bad rule %q: empty domain", line)
			}
			s.domains[domain] = struct{}{}
		case strings.HasPrefix(line, "suffix:"):
			suffix := normalizeDomain(line[len("suffix:"):])
			if suffix == "" {
				return nil, fmt.Errorf("bad rule %q: empty suffix", line)
			}
			s.suffixes.Insert(suffix)
		case strings.IndexByte(line, '/') != -1:
			prefix, err := netip.ParsePrefix(line)
			if err != nil {
				return nil, err
			}
			sb.AddPrefix(prefix.Masked())
		default:
			ip, err := netip.ParseAddr(line)
			if err != nil {
				return nil, fmt.Errorf("bad rule %q: %w", line, err)
			}
			sb.Add(ip.Unmap())
		}
	}

	ips, err := sb.IPSet()
	if err != nil {
		return nil, err
	}
	s.ips = ips
	return &s, nil
}

// IPSetFromText parses prefixes from the text and builds a prefix set.
// Domain rules in the text are ignored.
func IPSetFromText(text string) (*netipx.IPSet, error) {
	s, err := SetFromText(text)
	if err != nil {
		return nil, err
	}
	return s.ips, nil
}

// IPSet returns the IP part of the rule set.
func (s *Set) IPSet() *netipx.IPSet {
	return s.ips
}

// MatchDomain reports whether domain matches an exact or suffix rule.
func (s *Set) MatchDomain(domain string) bool {
	domain = normalizeDomain(domain)
	if _, ok := s.domains[domain]; ok {
		return true
	}
	return s.suffixes.Match(domain)
}

// MatchAddr reports whether addr matches the rule set.
func (s *Set) MatchAddr(addr conn.Addr) bool {
	if addr.IsIP() {
		return s.ips.Contains(addr.IP().Unmap())
	}
	return s.MatchDomain(addr.Domain())
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
}
