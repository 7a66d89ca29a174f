package categories

import (
	"context"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// SecurityHeaders scores the absence of the standard hardening response
// headers: HSTS, CSP, X-Frame-Options, X-Content-Type-Options, and
// Referrer-Policy.
type SecurityHeaders struct {
	maxWeight float64
}

func NewSecurityHeaders(maxWeight float64) *SecurityHeaders {
	return &SecurityHeaders{maxWeight: maxWeight}
}

func (s *SecurityHeaders) ID() string         { return "securityHeaders" }
func (s *SecurityHeaders) Name() string       { return "Security Headers" }
func (s *SecurityHeaders) MaxWeight() float64 { return s.maxWeight }

func (s *SecurityHeaders) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(s.ID(), pipeline) && state != scanmodel.StateOffline
}

var checkedHeaders = []struct {
	name, checkID, message string
	score                  float64
}{
	{"Strict-Transport-Security", "headers.no-hsts", "No HSTS header", 6},
	{"Content-Security-Policy", "headers.no-csp", "No Content-Security-Policy header", 6},
	{"X-Frame-Options", "headers.no-xfo", "No X-Frame-Options header", 4},
	{"X-Content-Type-Options", "headers.no-xcto", "No X-Content-Type-Options header", 4},
	{"Referrer-Policy", "headers.no-referrer-policy", "No Referrer-Policy header", 3},
}

func (s *SecurityHeaders) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	headers := sc.Reachability.HTTP.Headers

	for _, h := range checkedHeaders {
		if _, present := headerLookup(headers, h.name); !present {
			findings = append(findings, newFinding(h.checkID, h.message, scanmodel.SeverityLow, h.score, h.message, nil))
		}
	}
	return findings
}

func headerLookup(headers map[string]string, name string) (string, bool) {
	v, ok := headers[name]
	return v, ok
}
