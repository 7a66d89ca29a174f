package categories

import (
	"context"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// TrustGraph scores historical/structural reputation signals derivable
// from DNS and WHOIS alone: name-server diversity, MX presence (a
// domain with real mail infrastructure skews legitimate), and
// jurisdiction risk carried forward from domain analysis's TLD signal.
type TrustGraph struct {
	maxWeight  float64
	riskyTLDs  []string
}

func NewTrustGraph(maxWeight float64, riskyTLDs []string) *TrustGraph {
	return &TrustGraph{maxWeight: maxWeight, riskyTLDs: riskyTLDs}
}

func (t *TrustGraph) ID() string         { return "trustGraph" }
func (t *TrustGraph) Name() string       { return "Trust Graph" }
func (t *TrustGraph) MaxWeight() float64 { return t.maxWeight }

func (t *TrustGraph) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(t.ID(), pipeline)
}

func (t *TrustGraph) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding

	if len(sc.DNS.NS) == 0 && sc.DNS.Error == "" {
		findings = append(findings, newFinding("trust.no-nameservers", "No authoritative name servers observed", scanmodel.SeverityMedium, 8,
			"Domain resolves with no NS records returned", nil))
	}

	if len(sc.DNS.MX) == 0 {
		findings = append(findings, newFinding("trust.no-mx", "No mail infrastructure", scanmodel.SeverityLow, 4,
			"Domain has no MX records, uncommon for an established organization", nil))
	}

	if _, ok := containsAny(sc.URL.TLD, t.riskyTLDs); ok {
		findings = append(findings, newFinding("trust.jurisdiction-risk", "Jurisdiction risk from TLD", scanmodel.SeverityLow, 5,
			"TLD ."+sc.URL.TLD+" carries elevated jurisdictional risk", sc.URL.TLD))
	}

	return findings
}
