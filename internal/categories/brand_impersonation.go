package categories

import (
	"context"
	"strconv"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// BrandImpersonation scores typosquatting against a configured brand
// list, brand mentions in content on a domain that doesn't own the
// brand, and favicons hot-linked from the real brand's domain.
type BrandImpersonation struct {
	maxWeight     float64
	brandKeywords []string
}

func NewBrandImpersonation(maxWeight float64, brandKeywords []string) *BrandImpersonation {
	return &BrandImpersonation{maxWeight: maxWeight, brandKeywords: brandKeywords}
}

func (b *BrandImpersonation) ID() string         { return "brandImpersonation" }
func (b *BrandImpersonation) Name() string       { return "Brand Impersonation" }
func (b *BrandImpersonation) MaxWeight() float64 { return b.maxWeight }

func (b *BrandImpersonation) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(b.ID(), pipeline)
}

// typosquatMaxDistance is the edit-distance threshold below which a
// domain is considered a plausible typosquat of a brand name.
const typosquatMaxDistance = 2

func (b *BrandImpersonation) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	domain := strings.ToLower(sc.URL.Domain)
	registrableLabel := strings.SplitN(domain, ".", 2)[0]

	for _, brand := range b.brandKeywords {
		if registrableLabel == brand {
			continue // legitimate brand domain
		}
		dist := levenshtein(registrableLabel, brand)
		if dist > 0 && dist <= typosquatMaxDistance {
			findings = append(findings, newFinding("brand.typosquat", "Domain is a likely typosquat of a known brand", scanmodel.SeverityCritical, 20,
				"Domain label \""+registrableLabel+"\" is within edit distance "+strconv.Itoa(dist)+" of brand \""+brand+"\"", brand))
		}
	}

	body := bodyText(sc)
	for _, brand := range b.brandKeywords {
		if strings.Contains(body, brand) && !strings.Contains(domain, brand) {
			findings = append(findings, newFinding("brand.content-mention-mismatch", "Content mentions a brand the domain doesn't own", scanmodel.SeverityMedium, 8,
				"Content mentions brand \""+brand+"\" but domain is "+sc.URL.Domain, brand))
			break
		}
	}

	if strings.Contains(body, "favicon") {
		for _, brand := range b.brandKeywords {
			if strings.Contains(body, "href=\"https://"+brand+".") && !strings.Contains(domain, brand) {
				findings = append(findings, newFinding("brand.favicon-hotlink", "Favicon hot-linked from brand domain", scanmodel.SeverityMedium, 10,
					"Favicon is served directly from brand domain "+brand, brand))
				break
			}
		}
	}

	if strings.Contains(body, "©") {
		for _, brand := range b.brandKeywords {
			if strings.Contains(body, brand) && !strings.Contains(domain, brand) {
				findings = append(findings, newFinding("brand.copyright-mismatch", "Copyright notice mentions unowned brand", scanmodel.SeverityLow, 5,
					"Page copyright notice references brand \""+brand+"\" without owning the domain", brand))
				break
			}
		}
	}

	return findings
}
