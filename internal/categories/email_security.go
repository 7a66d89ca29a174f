package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// EmailSecurity scores the domain's DNS-derived SPF and DMARC posture
// from its TXT records. DKIM records are not looked up or scored.
// A domain actively impersonated for phishing campaigns often has no
// outbound-mail authentication at all.
type EmailSecurity struct {
	maxWeight float64
}

func NewEmailSecurity(maxWeight float64) *EmailSecurity {
	return &EmailSecurity{maxWeight: maxWeight}
}

func (e *EmailSecurity) ID() string         { return "emailSecurity" }
func (e *EmailSecurity) Name() string       { return "Email Security" }
func (e *EmailSecurity) MaxWeight() float64 { return e.maxWeight }

func (e *EmailSecurity) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(e.ID(), pipeline)
}

func (e *EmailSecurity) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding

	spf, hasSPF := findTXTPrefix(sc.DNS.TXT, "v=spf1")
	if !hasSPF {
		findings = append(findings, newFinding("email.no-spf", "No SPF record", scanmodel.SeverityMedium, 10,
			"Domain publishes no SPF record", nil))
	} else if strings.Contains(spf, "~all") {
		findings = append(findings, newFinding("email.spf-softfail", "SPF policy is soft-fail, not enforced", scanmodel.SeverityLow, 4,
			"SPF record uses ~all (softfail) rather than -all (hardfail)", spf))
	}

	_, hasDMARC := findTXTPrefix(sc.DNS.TXT, "v=dmarc1")
	if !hasDMARC {
		findings = append(findings, newFinding("email.no-dmarc", "No DMARC record", scanmodel.SeverityMedium, 10,
			"Domain publishes no DMARC policy", nil))
	}

	if (hasSPF || hasDMARC) && len(sc.DNS.MX) == 0 {
		findings = append(findings, newFinding("email.no-mx-with-spf", "SPF/DMARC present but no mail servers", scanmodel.SeverityLow, 3,
			"Domain has mail-authentication records but no MX records, suggesting a spoof-only setup", nil))
	}

	return findings
}

func findTXTPrefix(txts []string, prefix string) (string, bool) {
	for _, t := range txts {
		if strings.HasPrefix(strings.ToLower(t), prefix) {
			return t, true
		}
	}
	return "", false
}
