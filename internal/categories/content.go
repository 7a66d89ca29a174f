package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// ContentAnalysis scores the captured body prefix for credential/PII/
// payment form fields and suspicious inline script patterns.
type ContentAnalysis struct {
	maxWeight float64
}

func NewContentAnalysis(maxWeight float64) *ContentAnalysis {
	return &ContentAnalysis{maxWeight: maxWeight}
}

func (c *ContentAnalysis) ID() string         { return "contentAnalysis" }
func (c *ContentAnalysis) Name() string       { return "Content Analysis" }
func (c *ContentAnalysis) MaxWeight() float64 { return c.maxWeight }

func (c *ContentAnalysis) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(c.ID(), pipeline) && state != scanmodel.StateOffline
}

var credentialFields = []string{"type=\"password\"", "name=\"password\"", "id=\"password\""}
var paymentFields = []string{"name=\"cardnumber\"", "name=\"cvv\"", "autocomplete=\"cc-number\""}
var piiFields = []string{"name=\"ssn\"", "name=\"social_security\"", "name=\"dob\""}

func (c *ContentAnalysis) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, credentialFields); ok {
		findings = append(findings, newFinding("content.form.credentials", "Password field present", scanmodel.SeverityMedium, 8,
			"Page requests a password via form field "+match, match))
	}
	if match, ok := containsAny(body, paymentFields); ok {
		findings = append(findings, newFinding("content.form.payment", "Payment form field present", scanmodel.SeverityMedium, 10,
			"Page requests payment details via form field "+match, match))
	}
	if match, ok := containsAny(body, piiFields); ok {
		findings = append(findings, newFinding("content.form.pii", "PII form field present", scanmodel.SeverityMedium, 8,
			"Page requests PII via form field "+match, match))
	}

	iframeCount := strings.Count(body, "<iframe")
	if iframeCount >= 3 {
		findings = append(findings, newFinding("content.iframe.count", "High iframe count", scanmodel.SeverityLow, 5,
			"Page embeds an unusually high number of iframes", iframeCount))
	}

	scriptCount := strings.Count(body, "<script")
	if scriptCount >= 10 {
		findings = append(findings, newFinding("content.script.count", "High inline script count", scanmodel.SeverityLow, 5,
			"Page embeds an unusually high number of script tags", scriptCount))
	}

	if strings.Contains(body, "eval(") || strings.Contains(body, "unescape(") || strings.Contains(body, "document.write(unescape") {
		findings = append(findings, newFinding("content.obfuscation", "Obfuscated script pattern", scanmodel.SeverityHigh, 12,
			"Page content contains eval/unescape-based obfuscation", nil))
	}

	return findings
}
