package categories

import (
	"context"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// IdentityTheft scores forms that harvest government-ID-grade PII
// beyond what legitimate commerce or account-recovery flows need.
type IdentityTheft struct {
	maxWeight float64
}

func NewIdentityTheft(maxWeight float64) *IdentityTheft {
	return &IdentityTheft{maxWeight: maxWeight}
}

func (i *IdentityTheft) ID() string         { return "identityTheft" }
func (i *IdentityTheft) Name() string       { return "Identity Theft" }
func (i *IdentityTheft) MaxWeight() float64 { return i.maxWeight }

func (i *IdentityTheft) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(i.ID(), pipeline) && state == scanmodel.StateOnline
}

var idFields = []string{"name=\"ssn\"", "name=\"passport_number\"", "name=\"drivers_license\"", "name=\"national_id\""}

func (i *IdentityTheft) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	hasPassword := containsSubstr(body, "type=\"password\"")
	for _, field := range idFields {
		if containsSubstr(body, field) {
			severity := scanmodel.SeverityMedium
			score := 12.0
			if hasPassword {
				severity = scanmodel.SeverityCritical
				score = 20
			}
			findings = append(findings, newFinding("identity.gov-id-harvest", "Government-ID field requested", severity, score,
				"Page requests a government-issued ID field "+field, field))
		}
	}

	return findings
}

func containsSubstr(haystack, needle string) bool {
	_, ok := containsAny(haystack, []string{needle})
	return ok
}
