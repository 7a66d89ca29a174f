// Package reachability runs the Stage 0 DNS -> TCP -> HTTP probe state
// machine (spec §4.1) and classifies the terminal state as ONLINE,
// OFFLINE, PARKED, WAF_CHALLENGE, or SINKHOLE. Each step has its own
// budget from config.ProbeBudgets and a failure at any step short-
// circuits the remaining steps.
package reachability

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Budgets bounds each probe step, mirroring config.ProbeBudgets without
// importing the config package directly (keeps this package usable in
// isolation and in tests).
type Budgets struct {
	DNS, TCP, HTTP time.Duration
}

// Prober runs the reachability state machine for a domain.
type Prober struct {
	budgets         Budgets
	parkingPhrases  []string
	sinkholePhrases []string
	wafMarkers      []string
	httpClient      *http.Client
}

// New builds a Prober. httpClient may be nil, in which case a client
// with a permissive TLS config (scanning adversarial hosts routinely
// hits self-signed/expired certs, which is itself a signal collected
// elsewhere, not a reason to abort the probe) and no automatic
// redirect-following is used.
func New(budgets Budgets, parkingPhrases, sinkholePhrases, wafMarkers []string, httpClient *http.Client) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Prober{
		budgets:         budgets,
		parkingPhrases:  lower(parkingPhrases),
		sinkholePhrases: lower(sinkholePhrases),
		wafMarkers:      lower(wafMarkers),
		httpClient:      httpClient,
	}
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Probe runs the full DNS -> TCP -> HTTP sequence for targetURL/domain.
func (p *Prober) Probe(ctx context.Context, targetURL, domain string, port int, useTLS bool) scanmodel.ReachabilityRecord {
	start := time.Now()
	rec := scanmodel.ReachabilityRecord{Domain: domain}

	dns := p.probeDNS(ctx, domain)
	rec.DNS = dns
	if !dns.Resolved {
		rec.State = scanmodel.StateOffline
		rec.Duration = time.Since(start)
		return rec
	}

	tcp := p.probeTCP(ctx, domain, port)
	rec.TCP = tcp
	if !tcp.Connected {
		rec.State = scanmodel.StateOffline
		rec.Duration = time.Since(start)
		return rec
	}

	httpProbe, matched := p.probeHTTP(ctx, targetURL)
	rec.HTTP = httpProbe
	rec.MatchedMarks = matched
	rec.State = p.classify(httpProbe, matched)
	rec.Duration = time.Since(start)
	return rec
}

func (p *Prober) probeDNS(ctx context.Context, domain string) scanmodel.DNSProbe {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.budgets.DNS)
	defer cancel()

	ips, err := net.DefaultResolver.LookupHost(ctx, domain)
	if err != nil {
		return scanmodel.DNSProbe{Resolved: false, Error: err.Error(), Duration: time.Since(start)}
	}
	return scanmodel.DNSProbe{Resolved: true, IPs: ips, Duration: time.Since(start)}
}

func (p *Prober) probeTCP(ctx context.Context, domain string, port int) scanmodel.TCPProbe {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.budgets.TCP)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(domain, strconv.Itoa(port)))
	if err != nil {
		return scanmodel.TCPProbe{Connected: false, Port: port, Error: err.Error(), Duration: time.Since(start)}
	}
	conn.Close()
	return scanmodel.TCPProbe{Connected: true, Port: port, Duration: time.Since(start)}
}

func (p *Prober) probeHTTP(ctx context.Context, targetURL string) (scanmodel.HTTPProbe, []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.budgets.HTTP)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return scanmodel.HTTPProbe{OK: false, Error: err.Error(), Duration: time.Since(start)}, nil
	}
	req.Header.Set("User-Agent", "urlscan-engine/1.0 (+reachability-probe)")

	var redirectChain []string
	current := req
	resp, err := p.httpClient.Do(current)
	hops := 0
	for err == nil && isRedirect(resp.StatusCode) && hops < scanmodel.MaxRedirects {
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		if loc == "" {
			break
		}
		redirectChain = append(redirectChain, loc)
		next, nerr := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
		if nerr != nil {
			err = nerr
			break
		}
		next.Header.Set("User-Agent", "urlscan-engine/1.0 (+reachability-probe)")
		current = next
		resp, err = p.httpClient.Do(current)
		hops++
	}
	if err != nil {
		return scanmodel.HTTPProbe{OK: false, Error: err.Error(), RedirectChain: redirectChain, Duration: time.Since(start)}, nil
	}
	if hops == scanmodel.MaxRedirects && isRedirect(resp.StatusCode) {
		resp.Body.Close()
		return scanmodel.HTTPProbe{OK: false, Error: "too many redirects", RedirectChain: redirectChain, Duration: time.Since(start)}, nil
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, scanmodel.MaxBodyPrefix))
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	bodyLower := strings.ToLower(string(bodyBytes))
	headerLower := headerBlob(headers)
	var matched []string
	for _, phrase := range p.parkingPhrases {
		if strings.Contains(bodyLower, phrase) {
			matched = append(matched, phrase)
		}
	}
	for _, phrase := range p.sinkholePhrases {
		if strings.Contains(bodyLower, phrase) {
			matched = append(matched, phrase)
		}
	}
	for _, marker := range p.wafMarkers {
		if strings.Contains(bodyLower, marker) || strings.Contains(headerLower, marker) {
			matched = append(matched, marker)
		}
	}

	return scanmodel.HTTPProbe{
		OK:            true,
		StatusCode:    resp.StatusCode,
		Headers:       headers,
		BodyPrefix:    bodyBytes,
		RedirectChain: redirectChain,
		Duration:      time.Since(start),
	}, matched
}

// headerBlob joins lowercased "key: value" pairs so a WAF marker like
// "cf-ray" matches on the header's presence even when it never appears
// in the rendered body (Cloudflare's challenge response carries it as
// a response header, not body text).
func headerBlob(headers map[string]string) string {
	var b strings.Builder
	for k, v := range headers {
		b.WriteString(strings.ToLower(k))
		b.WriteByte(':')
		b.WriteString(strings.ToLower(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func isRedirect(status int) bool {
	return status == http.StatusMovedPermanently || status == http.StatusFound ||
		status == http.StatusSeeOther || status == http.StatusTemporaryRedirect ||
		status == http.StatusPermanentRedirect
}

// classify applies the sinkhole > WAF-challenge > parked > online
// precedence order: a sinkhole phrase always wins even if a WAF marker
// is also present (sinkholed domains often front a generic holding
// page served through the same CDN that would otherwise read as WAF).
func (p *Prober) classify(probe scanmodel.HTTPProbe, matched []string) scanmodel.ReachabilityState {
	if !probe.OK {
		return scanmodel.StateOffline
	}
	bodyLower := strings.ToLower(string(probe.BodyPrefix))
	headerLower := headerBlob(probe.Headers)
	for _, phrase := range p.sinkholePhrases {
		if strings.Contains(bodyLower, phrase) {
			return scanmodel.StateSinkhole
		}
	}
	for _, marker := range p.wafMarkers {
		if strings.Contains(bodyLower, marker) || strings.Contains(headerLower, marker) {
			return scanmodel.StateWAFChallenge
		}
	}
	for _, phrase := range p.parkingPhrases {
		if strings.Contains(bodyLower, phrase) {
			return scanmodel.StateParked
		}
	}
	return scanmodel.StateOnline
}
