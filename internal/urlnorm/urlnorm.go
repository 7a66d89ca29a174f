// Package urlnorm validates and canonicalizes scan-request URLs (spec
// §4.1). No ecosystem URL-normalization library appears anywhere in
// the retrieval pack, so this is built directly on net/url + net — see
// DESIGN.md for the justification.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Validate parses, rejects, and canonicalizes a raw scan request URL,
// producing an immutable scanmodel.URLComponents. It never returns a
// non-nil result alongside a non-nil error.
func Validate(raw string) (*scanmodel.URLComponents, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, scanerr.Validation("empty url")
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, scanerr.Validation(fmt.Sprintf("unparseable url: %v", err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, scanerr.Validation(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	host := u.Hostname()
	if host == "" {
		return nil, scanerr.Validation("missing host")
	}
	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" {
		return nil, scanerr.Validation("localhost is a private network")
	}
	if ip := net.ParseIP(host); ip != nil && isPrivate(ip) {
		return nil, scanerr.Validation(fmt.Sprintf("private network address %s", host))
	}

	canonical := canonicalize(u)
	sum := sha256.Sum256([]byte(canonical))

	domain, sub, tld := splitHost(lowerHost)

	cu, err := url.Parse(canonical)
	if err != nil {
		return nil, scanerr.Validation(fmt.Sprintf("unparseable canonical url: %v", err))
	}

	return &scanmodel.URLComponents{
		Original:  raw,
		Canonical: canonical,
		Protocol:  scheme,
		Hostname:  lowerHost,
		Domain:    domain,
		Subdomain: sub,
		TLD:       tld,
		Port:      cu.Port(),
		Path:      cu.Path,
		Query:     cu.RawQuery,
		Fragment:  "", // dropped during canonicalization
		Hash:      hex.EncodeToString(sum[:]),
	}, nil
}

// canonicalize applies spec §4.1's normalization rules. It is
// idempotent: re-running it on its own output is a no-op, because each
// step only removes or reorders information it has already normalized.
func canonicalize(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	path := u.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}

	query := sortedQuery(u.RawQuery)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String()
}

func sortedQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// isPrivate reports whether ip falls in an RFC1918, loopback,
// link-local, or unspecified range.
func isPrivate(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// splitHost derives (domain, subdomain, tld) from a lowercased
// hostname using a small suffix table for common multi-label TLDs. It
// is not a full public-suffix-list implementation; see DESIGN.md.
func splitHost(host string) (domain, sub, tld string) {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host, "", ""
	}

	tldLen := 1
	last2 := strings.Join(labels[len(labels)-2:], ".")
	if multiLabelTLDs[last2] && len(labels) > 2 {
		tldLen = 2
	}

	tld = strings.Join(labels[len(labels)-tldLen:], ".")
	domainLabels := labels[:len(labels)-tldLen]
	if len(domainLabels) == 0 {
		return host, "", tld
	}
	domain = domainLabels[len(domainLabels)-1] + "." + tld
	if len(domainLabels) > 1 {
		sub = strings.Join(domainLabels[:len(domainLabels)-1], ".")
	}
	return domain, sub, tld
}

var multiLabelTLDs = map[string]bool{
	"co.uk": true, "org.uk": true, "ac.uk": true, "gov.uk": true,
	"com.au": true, "net.au": true, "org.au": true, "edu.au": true,
	"co.jp": true, "co.kr": true, "com.br": true, "com.mx": true,
}
