package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// LegalCompliance scores the presence of the baseline legal disclosure
// surface a legitimate commercial site carries: terms-of-service link,
// privacy-policy link, and a physical/contact address.
type LegalCompliance struct {
	maxWeight float64
}

func NewLegalCompliance(maxWeight float64) *LegalCompliance {
	return &LegalCompliance{maxWeight: maxWeight}
}

func (l *LegalCompliance) ID() string         { return "legalCompliance" }
func (l *LegalCompliance) Name() string       { return "Legal Compliance" }
func (l *LegalCompliance) MaxWeight() float64 { return l.maxWeight }

func (l *LegalCompliance) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(l.ID(), pipeline)
}

func (l *LegalCompliance) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if !strings.Contains(body, "terms of service") && !strings.Contains(body, "terms and conditions") {
		findings = append(findings, newFinding("legal.no-tos", "No terms-of-service link", scanmodel.SeverityLow, 8,
			"Page content has no visible terms-of-service link", nil))
	}
	if !strings.Contains(body, "privacy policy") && !strings.Contains(body, "privacy-policy") {
		findings = append(findings, newFinding("legal.no-privacy-policy", "No privacy-policy link", scanmodel.SeverityLow, 8,
			"Page content has no visible privacy-policy link", nil))
	}
	if !strings.Contains(body, "contact us") && !strings.Contains(body, "registered office") && !strings.Contains(body, "company number") {
		findings = append(findings, newFinding("legal.no-contact-info", "No contact or registered-entity information", scanmodel.SeverityLow, 6,
			"Page content has no visible contact or legal-entity disclosure", nil))
	}

	return findings
}
