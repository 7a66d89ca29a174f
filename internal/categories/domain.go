package categories

import (
	"context"
	"strings"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// DomainAnalysis scores registration-age, WHOIS-privacy, registrar
// reputation, bulk-registration, and TLD risk signals.
type DomainAnalysis struct {
	maxWeight      float64
	riskyRegistrars []string
	riskyTLDs      []string
}

// NewDomainAnalysis builds the analyzer. riskyRegistrars and riskyTLDs
// are lowercased substrings/suffixes treated as elevated risk.
func NewDomainAnalysis(maxWeight float64, riskyRegistrars, riskyTLDs []string) *DomainAnalysis {
	return &DomainAnalysis{maxWeight: maxWeight, riskyRegistrars: riskyRegistrars, riskyTLDs: riskyTLDs}
}

func (d *DomainAnalysis) ID() string         { return "domainAnalysis" }
func (d *DomainAnalysis) Name() string       { return "Domain Analysis" }
func (d *DomainAnalysis) MaxWeight() float64 { return d.maxWeight }

func (d *DomainAnalysis) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(d.ID(), pipeline)
}

func (d *DomainAnalysis) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding

	tld := strings.ToLower(sc.URL.TLD)
	if _, ok := containsAny(tld, d.riskyTLDs); ok {
		findings = append(findings, newFinding("domain.tld.risky", "TLD on elevated-risk list", scanmodel.SeverityLow, 5,
			"TLD ."+tld+" has an elevated abuse rate", tld))
	}

	if sc.WHOIS == nil {
		return findings
	}
	w := sc.WHOIS

	if !w.CreatedDate.IsZero() {
		age := time.Since(w.CreatedDate)
		switch {
		case age <= 7*24*time.Hour:
			findings = append(findings, newFinding("domain.age.7d", "Domain registered within 7 days", scanmodel.SeverityHigh, 15,
				"Domain age is under 7 days, a strong signal for disposable phishing infrastructure", w.CreatedDate))
		case age <= 30*24*time.Hour:
			findings = append(findings, newFinding("domain.age.30d", "Domain registered within 30 days", scanmodel.SeverityMedium, 8,
				"Domain age is under 30 days", w.CreatedDate))
		}
	}

	if w.PrivacyGuard {
		findings = append(findings, newFinding("domain.whois.privacy", "WHOIS privacy guard enabled", scanmodel.SeverityLow, 3,
			"Registrant identity is masked behind a privacy proxy", nil))
	}

	if w.BulkRegistered {
		findings = append(findings, newFinding("domain.bulk", "Bulk-registration pattern detected", scanmodel.SeverityMedium, 10,
			"Domain shares registration characteristics with a bulk-registered batch", nil))
	}

	if w.Registrar != "" {
		registrar := strings.ToLower(w.Registrar)
		if _, ok := containsAny(registrar, d.riskyRegistrars); ok {
			findings = append(findings, newFinding("domain.registrar.risky", "Registrar on elevated-risk list", scanmodel.SeverityMedium, 7,
				"Registrar "+w.Registrar+" has an elevated abuse rate", w.Registrar))
		}
	}

	return findings
}
