package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// DataProtection scores a site's handling of user data: forms that
// collect PII without any privacy-policy link nearby, plaintext
// password submission over HTTP, and absent cookie-consent disclosure.
type DataProtection struct {
	maxWeight float64
}

func NewDataProtection(maxWeight float64) *DataProtection {
	return &DataProtection{maxWeight: maxWeight}
}

func (d *DataProtection) ID() string         { return "dataProtection" }
func (d *DataProtection) Name() string       { return "Data Protection" }
func (d *DataProtection) MaxWeight() float64 { return d.maxWeight }

func (d *DataProtection) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(d.ID(), pipeline) && state == scanmodel.StateOnline
}

func (d *DataProtection) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	hasForm := strings.Contains(body, "<form")
	hasPrivacyLink := strings.Contains(body, "privacy-policy") || strings.Contains(body, "privacy policy")

	if hasForm && !hasPrivacyLink {
		findings = append(findings, newFinding("data.no-privacy-policy", "Data-collecting form with no privacy policy link", scanmodel.SeverityMedium, 12,
			"Page collects form data but no privacy policy link was found", nil))
	}

	if sc.URL.Protocol != "https" && strings.Contains(body, "type=\"password\"") {
		findings = append(findings, newFinding("data.plaintext-credentials", "Credentials submitted over plain HTTP", scanmodel.SeverityCritical, 25,
			"Password field present on a non-HTTPS page, exposing credentials in transit", nil))
	}

	if strings.Contains(body, "document.cookie") && !strings.Contains(body, "cookie-consent") && !strings.Contains(body, "cookie consent") {
		findings = append(findings, newFinding("data.no-cookie-consent", "Cookies set without a consent mechanism", scanmodel.SeverityLow, 6,
			"Page sets cookies client-side with no visible consent banner", nil))
	}

	return findings
}
