package trust

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ResolveClient returns the true client address of a request.
//
// The full chain is the forwarded addresses in header order with the
// transport peer as the final, always-present hop. The walk starts at the
// peer, the only address the server has verified itself, and moves toward
// the client end, skipping every hop that is a trusted proxy. The first
// untrusted address wins.
//
// Forwarding headers are attacker-controlled. Skipping only contiguously
// from the verified server end means an attacker cannot get their real
// address skipped by prepending fabricated trusted-looking entries: the walk
// stops at the first hop that is not a configured proxy.
//
// If every hop including the peer is trusted, the left-most (client-end)
// address of the forwarded chain is returned as the best available guess;
// a classification must always be produced. With an empty chain the peer is
// returned unchanged.
func (ts *TrustSet) ResolveClient(peer netip.Addr, forwarded []netip.Addr) netip.Addr {
	if !ts.IsTrusted(peer) {
		return peer
	}

	for i := len(forwarded) - 1; i >= 0; i-- {
		if !ts.IsTrusted(forwarded[i]) {
			return forwarded[i]
		}
	}

	if len(forwarded) > 0 {
		return forwarded[0]
	}

	return peer
}

// ParseForwardedChain splits an X-Forwarded-For value into the ordered list
// of candidate addresses, lowest-trust first. Tokens that do not parse as an
// address are dropped: an unparseable token cannot match a trusted range, so
// keeping it would make attacker-controlled garbage the resolved client.
// Dropping it instead lets the walk fall through to the peer address.
//
// An empty or missing header yields an empty chain.
func ParseForwardedChain(header string) []netip.Addr {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	tokens := strings.Split(header, ",")
	chain := make([]netip.Addr, 0, len(tokens))

	for _, token := range tokens {
		addr, err := parseChainAddr(token)
		if err != nil {
			continue
		}
		chain = append(chain, addr)
	}

	return chain
}

// ParsePeerAddr parses the transport peer address as reported by the
// connection layer, either host:port (net/http's RemoteAddr form) or a bare
// address.
func ParsePeerAddr(remoteAddr string) (netip.Addr, error) {
	addr, err := parseChainAddr(remoteAddr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unparseable peer address %q: %w", remoteAddr, err)
	}
	return addr, nil
}

// parseChainAddr normalizes the formats proxies put in forwarding headers:
// surrounding whitespace and quotes, an optional port suffix and IPv6
// brackets. v4-mapped-v6 addresses are unmapped so both representations of
// the same address compare equal everywhere downstream.
func parseChainAddr(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}

	return addr.Unmap(), nil
}
