// Package gather implements the Context Gatherer (spec §4.7): a
// concurrent collection of DNS records, WHOIS (nullable), and the TLS
// peer certificate for HTTPS+ONLINE targets, assembled into a read-only
// scanmodel.ScanContext handed to every category analyzer. The HTTP
// response collected during reachability probing is reused verbatim —
// this package never re-fetches the page.
package gather

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// WHOISFunc looks up WHOIS data for a domain. A nil result with a nil
// error means "no record found"; an error means the lookup itself
// failed — both are folded into ScanContext.WHOIS == nil by Gatherer.
type WHOISFunc func(ctx context.Context, domain string) (*scanmodel.WHOISRecord, error)

// Gatherer collects context for the Category Executor.
type Gatherer struct {
	whois       WHOISFunc
	tlsTimeout  time.Duration
	dnsTimeout  time.Duration
}

// New builds a Gatherer. whois may be nil, in which case every scan
// context carries WHOIS == nil ("unknown").
func New(whois WHOISFunc, dnsTimeout, tlsTimeout time.Duration) *Gatherer {
	return &Gatherer{whois: whois, tlsTimeout: tlsTimeout, dnsTimeout: dnsTimeout}
}

// Gather builds a ScanContext for url/reach, reusing reach.HTTP instead
// of fetching the page again.
func (g *Gatherer) Gather(ctx context.Context, url scanmodel.URLComponents, reach scanmodel.ReachabilityRecord, pipeline scanmodel.PipelineType) scanmodel.ScanContext {
	start := time.Now()

	var (
		dns    scanmodel.DNSRecords
		whois  *scanmodel.WHOISRecord
		cert   *scanmodel.TLSCertificate
	)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		dns = g.resolveDNS(gctx, url.Domain)
		return nil
	})

	if g.whois != nil {
		group.Go(func() error {
			record, err := g.whois(gctx, url.Domain)
			if err == nil {
				whois = record
			}
			return nil
		})
	}

	if url.Protocol == "https" && reach.State == scanmodel.StateOnline {
		group.Go(func() error {
			cert = g.fetchCertificate(gctx, url.Hostname)
			return nil
		})
	}

	group.Wait()

	return scanmodel.ScanContext{
		URL:            url,
		Reachability:   reach,
		Pipeline:       pipeline,
		DNS:            dns,
		WHOIS:          whois,
		TLS:            cert,
		GatherDuration: time.Since(start),
	}
}

func (g *Gatherer) resolveDNS(ctx context.Context, domain string) scanmodel.DNSRecords {
	ctx, cancel := context.WithTimeout(ctx, g.dnsTimeout)
	defer cancel()

	var rec scanmodel.DNSRecords

	if ips, err := net.DefaultResolver.LookupIPAddr(ctx, domain); err == nil {
		for _, ip := range ips {
			if ip.IP.To4() != nil {
				rec.A = append(rec.A, ip.IP.String())
			} else {
				rec.AAAA = append(rec.AAAA, ip.IP.String())
			}
		}
	} else {
		rec.Error = err.Error()
	}

	if mxs, err := net.DefaultResolver.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxs {
			rec.MX = append(rec.MX, mx.Host)
		}
	}

	if txts, err := net.DefaultResolver.LookupTXT(ctx, domain); err == nil {
		rec.TXT = txts
	}

	if nss, err := net.DefaultResolver.LookupNS(ctx, domain); err == nil {
		for _, ns := range nss {
			rec.NS = append(rec.NS, ns.Host)
		}
	}

	return rec
}

func (g *Gatherer) fetchCertificate(ctx context.Context, hostname string) *scanmodel.TLSCertificate {
	ctx, cancel := context.WithTimeout(ctx, g.tlsTimeout)
	defer cancel()

	var d net.Dialer
	rawConn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(hostname, "443"))
	if err != nil {
		return nil
	}
	defer rawConn.Close()

	conn := tls.Client(rawConn, &tls.Config{ServerName: hostname, InsecureSkipVerify: true})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	leaf := state.PeerCertificates[0]

	keySize := 0
	switch pub := leaf.PublicKey.(type) {
	case interface{ Size() int }:
		keySize = pub.Size() * 8
	}

	return &scanmodel.TLSCertificate{
		Subject:            leaf.Subject.String(),
		Issuer:             leaf.Issuer.String(),
		ValidFrom:          leaf.NotBefore,
		ValidTo:            leaf.NotAfter,
		KeySize:            keySize,
		SignatureAlgorithm: leaf.SignatureAlgorithm.String(),
		SANs:               leaf.DNSNames,
		SelfSigned:         leaf.Subject.String() == leaf.Issuer.String(),
	}
}
