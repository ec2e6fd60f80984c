package trust

import (
	"net/netip"
	"testing"
)

func mustTrustSet(t *testing.T, cidrs ...string) *TrustSet {
	t.Helper()
	ts, err := NewTrustSet(cidrs)
	if err != nil {
		t.Fatalf("failed to build trust set: %v", err)
	}
	return ts
}

func addrs(values ...string) []netip.Addr {
	out := make([]netip.Addr, len(values))
	for i, v := range values {
		out[i] = netip.MustParseAddr(v)
	}
	return out
}

// TestResolveClient_EmptyChain tests that the peer is returned unchanged
// when no forwarded addresses exist, regardless of trust set contents
func TestResolveClient_EmptyChain(t *testing.T) {
	tests := []struct {
		name  string
		cidrs []string
		peer  string
	}{
		{"empty trust set", nil, "203.0.113.5"},
		{"peer untrusted", []string{"192.0.2.0/24"}, "203.0.113.5"},
		{"peer trusted", []string{"192.0.2.0/24"}, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := mustTrustSet(t, tt.cidrs...)
			peer := netip.MustParseAddr(tt.peer)

			got := ts.ResolveClient(peer, nil)
			if got != peer {
				t.Errorf("expected peer %s, got %s", peer, got)
			}
		})
	}
}

// TestResolveClient_UntrustedPeer tests that resolution starts at the server
// end: an untrusted peer wins even when forwarded entries are present
func TestResolveClient_UntrustedPeer(t *testing.T) {
	ts := mustTrustSet(t, "192.0.2.0/24")
	peer := netip.MustParseAddr("203.0.113.5")

	got := ts.ResolveClient(peer, addrs("198.51.100.9"))
	if got != peer {
		t.Errorf("expected peer %s (untrusted peers end the walk), got %s", peer, got)
	}
}

// TestResolveClient_TrustedPeer tests the common deployment shape:
// trusted peer, single forwarded address
func TestResolveClient_TrustedPeer(t *testing.T) {
	ts := mustTrustSet(t, "192.0.2.0/24")
	peer := netip.MustParseAddr("192.0.2.1")
	want := netip.MustParseAddr("203.0.113.5")

	got := ts.ResolveClient(peer, addrs("203.0.113.5"))
	if got != want {
		t.Errorf("expected forwarded client %s, got %s", want, got)
	}
}

// TestResolveClient_WalksThroughTrustedHops tests the multi-hop walk:
// chain [client, proxy1, proxy2] behind trusted peer proxy3, where proxy2 is
// trusted but proxy1 is not, resolves to proxy1
func TestResolveClient_WalksThroughTrustedHops(t *testing.T) {
	// proxy2 = 10.0.0.2, proxy3 (peer) = 10.0.0.3 trusted; proxy1 = 198.51.100.7 not
	ts := mustTrustSet(t, "10.0.0.0/8")
	peer := netip.MustParseAddr("10.0.0.3")
	chain := addrs("203.0.113.5", "198.51.100.7", "10.0.0.2")

	got := ts.ResolveClient(peer, chain)
	want := netip.MustParseAddr("198.51.100.7")
	if got != want {
		t.Errorf("expected first untrusted hop %s, got %s", want, got)
	}
}

// TestResolveClient_AllTrusted tests the fallback: when the entire chain
// including the peer is trusted, the left-most (client-end) address is
// returned rather than an error
func TestResolveClient_AllTrusted(t *testing.T) {
	ts := mustTrustSet(t, "10.0.0.0/8")
	peer := netip.MustParseAddr("10.0.0.3")
	chain := addrs("10.0.0.1", "10.0.0.2")

	got := ts.ResolveClient(peer, chain)
	want := netip.MustParseAddr("10.0.0.1")
	if got != want {
		t.Errorf("expected left-most chain address %s, got %s", want, got)
	}
}

// TestResolveClient_SpoofedTrustedPrefix tests that fabricated trusted-looking
// entries ahead of the attacker's address are not skipped: skipping happens
// only contiguously from the verified server end
func TestResolveClient_SpoofedTrustedPrefix(t *testing.T) {
	ts := mustTrustSet(t, "10.0.0.0/8")
	peer := netip.MustParseAddr("10.0.0.3")
	// Attacker injected "10.0.0.9, 203.0.113.66" hoping the fake trusted hop
	// hides their address. The walk stops at 203.0.113.66.
	chain := addrs("10.0.0.9", "203.0.113.66")

	got := ts.ResolveClient(peer, chain)
	want := netip.MustParseAddr("203.0.113.66")
	if got != want {
		t.Errorf("expected attacker address %s, got %s", want, got)
	}
}

// TestResolveClient_MixedFamilies tests v4 proxies in front of a v6 client
func TestResolveClient_MixedFamilies(t *testing.T) {
	ts := mustTrustSet(t, "10.0.0.0/8", "fd00::/8")
	peer := netip.MustParseAddr("10.0.0.1")
	chain := addrs("2001:db8::42", "fd00::1")

	got := ts.ResolveClient(peer, chain)
	want := netip.MustParseAddr("2001:db8::42")
	if got != want {
		t.Errorf("expected v6 client %s, got %s", want, got)
	}
}

// TestParseForwardedChain tests header splitting and token normalization
func TestParseForwardedChain(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"empty header", "", nil},
		{"whitespace only", "   ", nil},
		{"single address", "203.0.113.5", []string{"203.0.113.5"}},
		{"multiple addresses", "203.0.113.5, 198.51.100.9,10.0.0.1", []string{"203.0.113.5", "198.51.100.9", "10.0.0.1"}},
		{"address with port", "203.0.113.5:8080", []string{"203.0.113.5"}},
		{"bracketed v6", "[2001:db8::1]", []string{"2001:db8::1"}},
		{"bracketed v6 with port", "[2001:db8::1]:443", []string{"2001:db8::1"}},
		{"bare v6", "2001:db8::1", []string{"2001:db8::1"}},
		{"quoted address", `"203.0.113.5"`, []string{"203.0.113.5"}},
		{"garbage tokens dropped", "unknown, 203.0.113.5, _hidden", []string{"203.0.113.5"}},
		{"all garbage", "unknown, , nope", nil},
		{"v4-mapped unmapped", "::ffff:203.0.113.5", []string{"203.0.113.5"}},
		{"surrounding whitespace", "  203.0.113.5 ,  198.51.100.9  ", []string{"203.0.113.5", "198.51.100.9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseForwardedChain(tt.header)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d addresses, got %d (%v)", len(tt.want), len(got), got)
			}
			for i, want := range tt.want {
				if got[i] != netip.MustParseAddr(want) {
					t.Errorf("position %d: expected %s, got %s", i, want, got[i])
				}
			}
		})
	}
}

// TestParseForwardedChain_GarbageFallsThroughToPeer tests the end-to-end edge
// case from the resolver contract: a header of only unparseable tokens leaves
// the peer as the resolved client
func TestParseForwardedChain_GarbageFallsThroughToPeer(t *testing.T) {
	ts := mustTrustSet(t, "192.0.2.0/24")
	peer := netip.MustParseAddr("192.0.2.1")

	chain := ParseForwardedChain("not-an-ip, also-not-an-ip")
	got := ts.ResolveClient(peer, chain)
	if got != peer {
		t.Errorf("expected fallback to peer %s, got %s", peer, got)
	}
}

// TestParsePeerAddr tests transport peer parsing
func TestParsePeerAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"host:port", "203.0.113.5:41234", "203.0.113.5", false},
		{"bare host", "203.0.113.5", "203.0.113.5", false},
		{"v6 host:port", "[2001:db8::1]:41234", "2001:db8::1", false},
		{"bare v6", "2001:db8::1", "2001:db8::1", false},
		{"garbage", "@", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeerAddr(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != netip.MustParseAddr(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
