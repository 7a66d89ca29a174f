package categories

import (
	"context"
	"net/url"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// RedirectChain scores the hop count, shortener usage, and cross-domain
// hops observed during reachability probing.
type RedirectChain struct {
	maxWeight        float64
	shortenerDomains []string
}

// NewRedirectChain builds the analyzer. shortenerDomains is a lowercase
// list of known URL-shortener hostnames.
func NewRedirectChain(maxWeight float64, shortenerDomains []string) *RedirectChain {
	return &RedirectChain{maxWeight: maxWeight, shortenerDomains: shortenerDomains}
}

func (r *RedirectChain) ID() string         { return "redirectChain" }
func (r *RedirectChain) Name() string       { return "Redirect Chain" }
func (r *RedirectChain) MaxWeight() float64 { return r.maxWeight }

func (r *RedirectChain) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(r.ID(), pipeline) && state == scanmodel.StateOnline
}

func (r *RedirectChain) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	chain := sc.Reachability.HTTP.RedirectChain

	if len(chain) == 0 {
		return findings
	}
	if len(chain) >= scanmodel.MaxRedirects {
		findings = append(findings, newFinding("redirect.max-hops", "Redirect chain hit the configured hop cap", scanmodel.SeverityMedium, 8,
			"Redirect chain reached the maximum allowed hop count", len(chain)))
	} else if len(chain) >= 2 {
		findings = append(findings, newFinding("redirect.multi-hop", "Multiple redirects observed", scanmodel.SeverityLow, 4,
			"Redirect chain has multiple hops before settling", len(chain)))
	}

	hosts := make([]string, 0, len(chain)+1)
	hosts = append(hosts, sc.URL.Hostname)
	for _, hop := range chain {
		if u, err := url.Parse(hop); err == nil && u.Hostname() != "" {
			hosts = append(hosts, strings.ToLower(u.Hostname()))
		}
	}
	crossDomainHops := 0
	for i := 1; i < len(hosts); i++ {
		if hosts[i] != hosts[i-1] {
			crossDomainHops++
		}
	}
	if crossDomainHops >= 2 {
		findings = append(findings, newFinding("redirect.cross-domain", "Multiple cross-domain redirect hops", scanmodel.SeverityMedium, 10,
			"Redirect chain crosses domains more than once", crossDomainHops))
	}

	for _, host := range hosts {
		if _, ok := containsAny(host, r.shortenerDomains); ok {
			findings = append(findings, newFinding("redirect.shortener", "URL-shortener hop in redirect chain", scanmodel.SeverityLow, 5,
				"Redirect chain passes through a known URL shortener", host))
			break
		}
	}

	return findings
}
