package categories

import (
	"context"
	"testing"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func TestDomainAnalysisRunsTLDCheckWithoutWHOIS(t *testing.T) {
	d := NewDomainAnalysis(40, nil, []string{"xyz", "zip"})
	sc := scanmodel.ScanContext{
		URL:   scanmodel.URLComponents{TLD: "xyz"},
		WHOIS: nil,
	}

	findings := d.Run(context.Background(), sc)
	if len(findings) != 1 || findings[0].CheckID != "domain.tld.risky" {
		t.Fatalf("findings = %+v, want a single domain.tld.risky finding even with WHOIS nil", findings)
	}
}

func TestDomainAnalysisSkipsWHOISFindingsWithoutWHOIS(t *testing.T) {
	d := NewDomainAnalysis(40, nil, nil)
	sc := scanmodel.ScanContext{
		URL:   scanmodel.URLComponents{TLD: "com"},
		WHOIS: nil,
	}

	findings := d.Run(context.Background(), sc)
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none when TLD isn't risky and WHOIS is nil", findings)
	}
}

func TestDomainAnalysisRunsWHOISChecksWhenPresent(t *testing.T) {
	d := NewDomainAnalysis(40, nil, nil)
	sc := scanmodel.ScanContext{
		URL:   scanmodel.URLComponents{TLD: "com"},
		WHOIS: &scanmodel.WHOISRecord{PrivacyGuard: true},
	}

	findings := d.Run(context.Background(), sc)
	if len(findings) != 1 || findings[0].CheckID != "domain.whois.privacy" {
		t.Fatalf("findings = %+v, want a single domain.whois.privacy finding", findings)
	}
}
