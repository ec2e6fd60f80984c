// Package trust decides which network hops of a request are trusted reverse
// proxies and resolves the true client address from the forwarded chain.
package trust

import (
	"fmt"
	"net/netip"
)

// TrustSet holds the configured trusted proxy ranges. It is built once at
// startup and read-only afterwards, so it is safe to share across all
// concurrent request handlers without locking.
//
// Prefixes are kept in per-family slices: an IPv4 address is only ever
// compared against IPv4 ranges and an IPv6 address against IPv6 ranges.
// A cross-family comparison can never match.
type TrustSet struct {
	v4 []netip.Prefix
	v6 []netip.Prefix
}

// NewTrustSet parses a list of CIDR strings into a TrustSet.
//
// Any malformed entry is an error: it is better to refuse to start than to
// silently trust nothing or everything. netip.ParsePrefix already rejects
// prefix lengths outside the family's bit width (0-32 for IPv4, 0-128 for
// IPv6), so out-of-range values fail here instead of being clamped.
func NewTrustSet(cidrs []string) (*TrustSet, error) {
	ts := &TrustSet{}

	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err)
		}

		// Normalize a v4-mapped-v6 base to its IPv4 form so that
		// ::ffff:10.0.0.0/104 style entries behave as IPv4 ranges.
		addr := prefix.Addr()
		if addr.Is4In6() {
			bits := prefix.Bits() - 96
			if bits < 0 {
				return nil, fmt.Errorf("invalid trusted proxy CIDR %q: v4-mapped prefix shorter than /96", cidr)
			}
			prefix = netip.PrefixFrom(addr.Unmap(), bits)
			addr = prefix.Addr()
		}

		prefix = prefix.Masked()

		if addr.Is4() {
			ts.v4 = append(ts.v4, prefix)
		} else {
			ts.v6 = append(ts.v6, prefix)
		}
	}

	return ts, nil
}

// IsTrusted reports whether addr falls inside any configured range of the
// same address family. The match is a plain prefix-containment test; the
// trust set is a boolean gate, not a routing table, so any match suffices.
//
// Invalid addresses are never trusted.
func (ts *TrustSet) IsTrusted(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}

	addr = addr.Unmap()

	prefixes := ts.v6
	if addr.Is4() {
		prefixes = ts.v4
	}

	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// Len returns the number of configured ranges.
func (ts *TrustSet) Len() int {
	return len(ts.v4) + len(ts.v6)
}
