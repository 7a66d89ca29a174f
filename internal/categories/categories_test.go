package categories

import (
	"context"
	"testing"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

type stubAnalyzer struct {
	id        string
	maxWeight float64
	run       func(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding
	shouldRun bool
	panics    bool
}

func (s *stubAnalyzer) ID() string         { return s.id }
func (s *stubAnalyzer) Name() string       { return s.id }
func (s *stubAnalyzer) MaxWeight() float64 { return s.maxWeight }
func (s *stubAnalyzer) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return s.shouldRun
}
func (s *stubAnalyzer) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	if s.panics {
		panic("boom")
	}
	return s.run(ctx, sc)
}

func TestExecutorSkipsAnalyzerWhenShouldRunFalse(t *testing.T) {
	a := &stubAnalyzer{id: "x", maxWeight: 10, shouldRun: false}
	exec := New([]Analyzer{a})
	results, base, active := exec.Run(context.Background(), scanmodel.ScanContext{})
	if !results[0].Metadata.Skipped {
		t.Error("expected skipped result")
	}
	if base != 0 || active != 0 {
		t.Errorf("base=%v active=%v, want 0,0 for a fully skipped analyzer", base, active)
	}
}

func TestExecutorClampsScoreToMaxWeight(t *testing.T) {
	a := &stubAnalyzer{id: "x", maxWeight: 5, shouldRun: true, run: func(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
		return []scanmodel.Finding{
			{CheckID: "a", Score: 10},
		}
	}}
	exec := New([]Analyzer{a})
	results, base, active := exec.Run(context.Background(), scanmodel.ScanContext{})
	if results[0].Score != 5 {
		t.Errorf("Score = %v, want clamped to 5", results[0].Score)
	}
	if base != 5 || active != 5 {
		t.Errorf("base=%v active=%v, want 5,5", base, active)
	}
}

func TestExecutorIsolatesPanickingAnalyzer(t *testing.T) {
	broken := &stubAnalyzer{id: "broken", maxWeight: 10, shouldRun: true, panics: true}
	ok := &stubAnalyzer{id: "ok", maxWeight: 10, shouldRun: true, run: func(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
		return []scanmodel.Finding{{CheckID: "ok.check", Score: 3}}
	}}
	exec := New([]Analyzer{broken, ok})
	results, base, active := exec.Run(context.Background(), scanmodel.ScanContext{})

	var brokenResult, okResult scanmodel.CategoryResult
	for _, r := range results {
		if r.CategoryID == "broken" {
			brokenResult = r
		}
		if r.CategoryID == "ok" {
			okResult = r
		}
	}
	if !brokenResult.Metadata.Skipped {
		t.Error("panicking analyzer should be reported as skipped, not crash the executor")
	}
	if okResult.Score != 3 {
		t.Errorf("healthy analyzer's score = %v, want 3 (unaffected by sibling panic)", okResult.Score)
	}
	if base != 3 {
		t.Errorf("base = %v, want 3 (only the healthy analyzer contributes)", base)
	}
	if active != 10 {
		t.Errorf("active = %v, want 10 (only the non-skipped analyzer's maxWeight)", active)
	}
}

func sslContext(cert *scanmodel.TLSCertificate, protocol string) scanmodel.ScanContext {
	return scanmodel.ScanContext{
		URL: scanmodel.URLComponents{Protocol: protocol, Hostname: "example.com", Domain: "example.com"},
		TLS: cert,
	}
}

func TestSSLSecurityFlagsExpiredCertificate(t *testing.T) {
	cert := &scanmodel.TLSCertificate{
		Subject: "CN=example.com", Issuer: "CN=Example CA",
		ValidFrom: time.Now().Add(-365 * 24 * time.Hour), ValidTo: time.Now().Add(-24 * time.Hour),
		KeySize: 2048, SANs: []string{"example.com"},
	}
	a := NewSSLSecurity(45, []string{"example ca"})
	findings := a.Run(context.Background(), sslContext(cert, "https"))
	if !hasCheck(findings, "ssl.expired") {
		t.Error("expected ssl.expired finding")
	}
}

func TestSSLSecuritySelfSigned(t *testing.T) {
	cert := &scanmodel.TLSCertificate{
		Subject: "CN=example.com", Issuer: "CN=example.com",
		ValidFrom: time.Now().Add(-48 * time.Hour), ValidTo: time.Now().Add(365 * 24 * time.Hour),
		KeySize: 2048, SANs: []string{"example.com"},
	}
	a := NewSSLSecurity(45, nil)
	findings := a.Run(context.Background(), sslContext(cert, "https"))
	if !hasCheck(findings, "ssl.self-signed") {
		t.Error("expected ssl.self-signed finding")
	}
}

func TestSSLSecurityHostnameMismatch(t *testing.T) {
	cert := &scanmodel.TLSCertificate{
		Subject: "CN=other.com", Issuer: "CN=Example CA",
		ValidFrom: time.Now().Add(-48 * time.Hour), ValidTo: time.Now().Add(365 * 24 * time.Hour),
		KeySize: 2048, SANs: []string{"other.com"},
	}
	a := NewSSLSecurity(45, []string{"example ca"})
	findings := a.Run(context.Background(), sslContext(cert, "https"))
	if !hasCheck(findings, "ssl.hostname-mismatch") {
		t.Error("expected ssl.hostname-mismatch finding")
	}
}

func TestDomainAnalysisFlagsYoungDomain(t *testing.T) {
	a := NewDomainAnalysis(40, []string{"shadyregistrar"}, []string{"tk", "ml"})
	sc := scanmodel.ScanContext{
		URL:   scanmodel.URLComponents{TLD: "tk"},
		WHOIS: &scanmodel.WHOISRecord{CreatedDate: time.Now().Add(-2 * 24 * time.Hour)},
	}
	findings := a.Run(context.Background(), sc)
	if !hasCheck(findings, "domain.age.7d") {
		t.Error("expected domain.age.7d finding")
	}
	if !hasCheck(findings, "domain.tld.risky") {
		t.Error("expected domain.tld.risky finding")
	}
}

func TestDomainAnalysisNilWHOISIsUnknownNotEvidence(t *testing.T) {
	a := NewDomainAnalysis(40, nil, nil)
	findings := a.Run(context.Background(), scanmodel.ScanContext{})
	if len(findings) != 0 {
		t.Errorf("expected no findings with nil WHOIS, got %d", len(findings))
	}
}

func TestBrandImpersonationDetectsTyposquat(t *testing.T) {
	a := NewBrandImpersonation(20, []string{"paypal"})
	sc := scanmodel.ScanContext{URL: scanmodel.URLComponents{Domain: "paypa1.com"}}
	findings := a.Run(context.Background(), sc)
	if !hasCheck(findings, "brand.typosquat") {
		t.Error("expected brand.typosquat finding for paypa1.com vs paypal")
	}
}

func TestBrandImpersonationIgnoresLegitimateBrandDomain(t *testing.T) {
	a := NewBrandImpersonation(20, []string{"paypal"})
	sc := scanmodel.ScanContext{URL: scanmodel.URLComponents{Domain: "paypal.com"}}
	findings := a.Run(context.Background(), sc)
	if hasCheck(findings, "brand.typosquat") {
		t.Error("legitimate brand domain should not be flagged as its own typosquat")
	}
}

func TestRedirectChainFlagsShortenerAndCrossDomain(t *testing.T) {
	a := NewRedirectChain(15, []string{"bit.ly"})
	sc := scanmodel.ScanContext{
		URL: scanmodel.URLComponents{Hostname: "start.com"},
		Reachability: scanmodel.ReachabilityRecord{
			HTTP: scanmodel.HTTPProbe{RedirectChain: []string{"https://bit.ly/abc", "https://finalsite.com/landing"}},
		},
	}
	findings := a.Run(context.Background(), sc)
	if !hasCheck(findings, "redirect.shortener") {
		t.Error("expected redirect.shortener finding")
	}
}

func TestSecurityHeadersFlagsMissingHeaders(t *testing.T) {
	a := NewSecurityHeaders(25)
	sc := scanmodel.ScanContext{Reachability: scanmodel.ReachabilityRecord{HTTP: scanmodel.HTTPProbe{Headers: map[string]string{}}}}
	findings := a.Run(context.Background(), sc)
	if !hasCheck(findings, "headers.no-hsts") {
		t.Error("expected headers.no-hsts finding when HSTS header is absent")
	}
}

func TestSecurityHeadersNoFindingWhenAllPresent(t *testing.T) {
	a := NewSecurityHeaders(25)
	sc := scanmodel.ScanContext{Reachability: scanmodel.ReachabilityRecord{HTTP: scanmodel.HTTPProbe{Headers: map[string]string{
		"Strict-Transport-Security": "max-age=31536000",
		"Content-Security-Policy":   "default-src 'self'",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Referrer-Policy":           "no-referrer",
	}}}}
	findings := a.Run(context.Background(), sc)
	if len(findings) != 0 {
		t.Errorf("expected no findings when every hardening header is present, got %d", len(findings))
	}
}

func TestEmailSecurityFlagsMissingSPFAndDMARC(t *testing.T) {
	a := NewEmailSecurity(25)
	findings := a.Run(context.Background(), scanmodel.ScanContext{})
	if !hasCheck(findings, "email.no-spf") || !hasCheck(findings, "email.no-dmarc") {
		t.Error("expected both email.no-spf and email.no-dmarc findings")
	}
}

func hasCheck(findings []scanmodel.Finding, checkID string) bool {
	for _, f := range findings {
		if f.CheckID == checkID {
			return true
		}
	}
	return false
}
