package fprebalance

import (
	"context"
	"testing"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func testRebalancer() *Rebalancer {
	return New(
		[]string{"104.16.0.0/13"},
		[]string{"192.35.168.0/24"},
		[]string{"gov", "edu"},
	)
}

func TestEvaluateCDNMatch(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{DNS: scanmodel.DNSRecords{A: []string{"104.16.1.1"}}}
	result := r.Evaluate(context.Background(), sc, false)
	if !result.CDNMatch {
		t.Error("expected CDNMatch=true for an IP inside the configured CDN range")
	}
	if result.AdjustmentMultiplier >= 1.0 {
		t.Errorf("AdjustmentMultiplier = %v, want < 1.0 when legitimacy signal present", result.AdjustmentMultiplier)
	}
}

func TestEvaluateNoMatchLeavesScoreUnchanged(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{DNS: scanmodel.DNSRecords{A: []string{"8.8.8.8"}}}
	result := r.Evaluate(context.Background(), sc, false)
	if result.LegitimacyScore != 0 {
		t.Errorf("LegitimacyScore = %v, want 0", result.LegitimacyScore)
	}
	if result.AdjustmentMultiplier != 1.0 {
		t.Errorf("AdjustmentMultiplier = %v, want 1.0 (no reduction without a legitimacy signal)", result.AdjustmentMultiplier)
	}
}

func TestEvaluateGovEduMatchByTLD(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{URL: scanmodel.URLComponents{TLD: "gov", Domain: "agency.gov"}}
	result := r.Evaluate(context.Background(), sc, false)
	if !result.GovEduMatch {
		t.Error("expected GovEduMatch=true for .gov TLD")
	}
}

func TestEvaluateResearchMatchByNameserver(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{DNS: scanmodel.DNSRecords{NS: []string{"ns1.censys.io"}}}
	result := r.Evaluate(context.Background(), sc, false)
	if !result.ResearchMatch {
		t.Error("expected ResearchMatch=true for a censys-operated nameserver")
	}
}

func TestEvaluateHardStopOverrideSuppressesReduction(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{DNS: scanmodel.DNSRecords{A: []string{"104.16.1.1"}}}
	result := r.Evaluate(context.Background(), sc, true)
	if !result.Suppressed {
		t.Error("expected Suppressed=true when a hard-stop already fired")
	}
	if result.AdjustmentMultiplier != 1.0 {
		t.Errorf("AdjustmentMultiplier = %v, want 1.0 when suppressed, even with legitimacy signals present", result.AdjustmentMultiplier)
	}
}

func TestEvaluateCombinedSignalsClampAtFullScore(t *testing.T) {
	r := testRebalancer()
	sc := scanmodel.ScanContext{
		DNS: scanmodel.DNSRecords{A: []string{"104.16.1.1"}, NS: []string{"ns.censys.io"}},
		URL: scanmodel.URLComponents{TLD: "gov"},
	}
	result := r.Evaluate(context.Background(), sc, false)
	if result.LegitimacyScore != 100 {
		t.Errorf("LegitimacyScore = %v, want 100 (cdn 40 + research 30 + gov-edu 30)", result.LegitimacyScore)
	}
	if result.AdjustmentMultiplier != 0.5 {
		t.Errorf("AdjustmentMultiplier = %v, want 0.5 floor at full legitimacy", result.AdjustmentMultiplier)
	}
}

func TestMalformedCIDRIsSkippedNotFatal(t *testing.T) {
	r := New([]string{"not-a-cidr"}, nil, nil)
	sc := scanmodel.ScanContext{DNS: scanmodel.DNSRecords{A: []string{"1.2.3.4"}}}
	result := r.Evaluate(context.Background(), sc, false)
	if result.CDNMatch {
		t.Error("malformed CIDR entries should be silently skipped, never matched against")
	}
}
