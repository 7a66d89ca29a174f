package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// TechnicalExploits scores raw exploit-attempt fingerprints in the
// captured content and redirect chain: SQL-injection markers reflected
// back in the page, path-traversal sequences in the observed redirect
// targets, and unrendered server-side script tags in the page. No
// CVE-specific payload signatures are matched.
type TechnicalExploits struct {
	maxWeight float64
}

func NewTechnicalExploits(maxWeight float64) *TechnicalExploits {
	return &TechnicalExploits{maxWeight: maxWeight}
}

func (t *TechnicalExploits) ID() string         { return "technicalExploits" }
func (t *TechnicalExploits) Name() string       { return "Technical Exploits" }
func (t *TechnicalExploits) MaxWeight() float64 { return t.maxWeight }

func (t *TechnicalExploits) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(t.ID(), pipeline) && state == scanmodel.StateOnline
}

var sqlInjectionMarkers = []string{"union select", "' or '1'='1", "drop table", "xp_cmdshell"}

func (t *TechnicalExploits) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, sqlInjectionMarkers); ok {
		findings = append(findings, newFinding("exploit.sql-reflected", "SQL-injection marker reflected in response", scanmodel.SeverityHigh, 15,
			"Response body reflects an injection marker: "+match, match))
	}

	for _, hop := range sc.Reachability.HTTP.RedirectChain {
		if strings.Contains(hop, "../") || strings.Contains(hop, "..%2f") {
			findings = append(findings, newFinding("exploit.path-traversal", "Path-traversal sequence in redirect target", scanmodel.SeverityMedium, 10,
				"Redirect chain includes a traversal sequence: "+hop, hop))
			break
		}
	}

	if strings.Contains(body, "<?php") || strings.Contains(body, "<%eval") {
		findings = append(findings, newFinding("exploit.unrendered-server-code", "Unrendered server-side code leaked in response", scanmodel.SeverityMedium, 10,
			"Response body contains unrendered server-side script tags, indicating a misconfigured or compromised backend", nil))
	}

	return findings
}
