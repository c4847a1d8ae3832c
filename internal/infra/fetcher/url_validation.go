// Package fetcher provides article content extraction for news
// enrichment.
package fetcher

import (
	"fmt"
	"net"
	"net/url"
)

// validateURL checks a URL before any request is made for it. Only http
// and https schemes pass. With denyPrivateIPs set, the hostname is
// resolved and every address checked against the private, loopback, and
// link-local ranges, which blocks SSRF through attacker-controlled feed
// links. Redirect targets go through the same check.
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed (only http/https)", ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrInvalidURL, hostname, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: hostname %q resolves to %s", ErrPrivateIP, hostname, ip.String())
		}
	}
	return nil
}

// isPrivateIP reports whether ip belongs to a loopback, private, or
// link-local range, IPv4 or IPv6. 169.254.0.0/16 falls under link-local,
// which also covers the cloud metadata endpoint.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
