// Package netguard validates outbound URLs before the bot fetches them. It is
// the SSRF gate in front of the ingestion pipeline: requests must never reach
// loopback, private, link-local, or multicast addresses, nor the well-known
// cloud metadata endpoints, no matter what hostname the operator pastes in.
//
// The hostname is resolved and classified *before* any request is issued
// against the target. A denial here is a security rejection, not a transient
// failure, and callers log the rejected host.
package netguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrUnsafeURL marks a URL that failed SSRF validation. Callers surface it to
// the outside world only as a generic denial.
var ErrUnsafeURL = errors.New("unsafe url")

// metadataHosts are denied by name or literal address regardless of what the
// resolver says about them.
var metadataHosts = map[string]struct{}{
	"metadata.google.internal": {},
	"metadata":                 {},
	"169.254.169.254":          {},
}

// Guard validates URLs against SSRF targets. The zero value is usable and
// resolves hostnames with the default resolver; tests inject LookupIP.
type Guard struct {
	// LookupIP resolves a hostname to addresses. Defaults to
	// net.DefaultResolver.LookupIP over ip (v4 and v6).
	LookupIP func(ctx context.Context, host string) ([]net.IP, error)
}

// ValidateURL checks that raw is a well-formed http(s) URL whose host
// resolves to a publicly routable address. It returns nil when the URL is
// safe to fetch, ErrUnsafeURL (wrapped with the reason) when it is not, and
// a resolution error when the hostname does not resolve at all.
func (g *Guard) ValidateURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: unparseable url", ErrUnsafeURL)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: only http and https are allowed", ErrUnsafeURL)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrUnsafeURL)
	}

	if _, denied := metadataHosts[host]; denied {
		return fmt.Errorf("%w: metadata endpoint %q", ErrUnsafeURL, host)
	}

	ips, err := g.lookup(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolve %q: no addresses", host)
	}

	// Every resolved address must be publicly routable; a single internal
	// A record poisons the whole hostname.
	for _, ip := range ips {
		if reason := classify(ip); reason != "" {
			return fmt.Errorf("%w: %s address %s for host %q", ErrUnsafeURL, reason, ip, host)
		}
	}
	return nil
}

func (g *Guard) lookup(ctx context.Context, host string) ([]net.IP, error) {
	if g.LookupIP != nil {
		return g.LookupIP(ctx, host)
	}
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// classify returns a non-empty reason when ip belongs to a forbidden range.
func classify(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback"
	case ip.IsPrivate():
		return "private"
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return "link-local"
	case ip.IsMulticast():
		return "multicast"
	case ip.IsUnspecified():
		return "unspecified"
	}
	return ""
}
