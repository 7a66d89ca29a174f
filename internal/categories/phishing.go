package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// PhishingPatterns scores lexical and structural phishing tells: urgent
// call-to-action language, login-form-plus-brand-mismatch, and URL-path
// tricks (look-alike subdomains, excessive hyphens).
type PhishingPatterns struct {
	maxWeight     float64
	brandKeywords []string
}

func NewPhishingPatterns(maxWeight float64, brandKeywords []string) *PhishingPatterns {
	return &PhishingPatterns{maxWeight: maxWeight, brandKeywords: brandKeywords}
}

func (p *PhishingPatterns) ID() string         { return "phishingPatterns" }
func (p *PhishingPatterns) Name() string       { return "Phishing Patterns" }
func (p *PhishingPatterns) MaxWeight() float64 { return p.maxWeight }

func (p *PhishingPatterns) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(p.ID(), pipeline) && state != scanmodel.StateOffline
}

var urgencyPhrases = []string{
	"your account will be suspended", "verify your account immediately",
	"unusual activity detected", "confirm your identity", "action required within 24 hours",
	"your account has been limited",
}

func (p *PhishingPatterns) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, urgencyPhrases); ok {
		findings = append(findings, newFinding("phishing.urgency", "Urgency/scare language detected", scanmodel.SeverityHigh, 15,
			"Page content uses urgency language typical of phishing: "+match, match))
	}

	hasPasswordField := strings.Contains(body, "type=\"password\"")
	if hasPasswordField {
		for _, brand := range p.brandKeywords {
			if strings.Contains(body, brand) && !strings.Contains(strings.ToLower(sc.URL.Domain), brand) {
				findings = append(findings, newFinding("phishing.brand-login-mismatch", "Login form mentions a brand not matching the domain",
					scanmodel.SeverityCritical, 25,
					"Page requests credentials while mentioning brand "+brand+" on domain "+sc.URL.Domain, brand))
				break
			}
		}
	}

	subdomainParts := strings.Split(sc.URL.Subdomain, ".")
	for _, part := range subdomainParts {
		for _, brand := range p.brandKeywords {
			if part != "" && part == brand && !strings.Contains(sc.URL.Domain, brand) {
				findings = append(findings, newFinding("phishing.subdomain-brand", "Brand name used as subdomain on unrelated domain",
					scanmodel.SeverityHigh, 15,
					"Subdomain component "+part+" matches brand keyword but domain is "+sc.URL.Domain, part))
			}
		}
	}

	if strings.Count(sc.URL.Domain, "-") >= 3 {
		findings = append(findings, newFinding("phishing.excessive-hyphens", "Excessive hyphens in domain", scanmodel.SeverityLow, 5,
			"Domain name contains an unusually high number of hyphens", sc.URL.Domain))
	}

	return findings
}
