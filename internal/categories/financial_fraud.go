package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// FinancialFraud scores investment-scam and payment-redirection tells:
// guaranteed-return language, cryptocurrency wallet-address harvesting
// forms, and invoice/wire-transfer pretexting.
type FinancialFraud struct {
	maxWeight float64
}

func NewFinancialFraud(maxWeight float64) *FinancialFraud {
	return &FinancialFraud{maxWeight: maxWeight}
}

func (f *FinancialFraud) ID() string         { return "financialFraud" }
func (f *FinancialFraud) Name() string       { return "Financial Fraud" }
func (f *FinancialFraud) MaxWeight() float64 { return f.maxWeight }

func (f *FinancialFraud) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(f.ID(), pipeline) && state == scanmodel.StateOnline
}

var guaranteedReturnPhrases = []string{"guaranteed 200% return", "guaranteed daily profit", "risk-free investment", "double your bitcoin"}
var invoicePretextPhrases = []string{"updated banking details", "new wire instructions", "urgent invoice payment"}

func (f *FinancialFraud) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, guaranteedReturnPhrases); ok {
		findings = append(findings, newFinding("financial.guaranteed-return", "Guaranteed-return investment scam language", scanmodel.SeverityHigh, 18,
			"Content promises guaranteed/unrealistic returns: "+match, match))
	}
	if match, ok := containsAny(body, invoicePretextPhrases); ok {
		findings = append(findings, newFinding("financial.invoice-pretext", "Wire-transfer pretexting language", scanmodel.SeverityHigh, 15,
			"Content pressures a payment-details change: "+match, match))
	}
	if strings.Contains(body, "name=\"wallet\"") || strings.Contains(body, "enter your seed phrase") {
		findings = append(findings, newFinding("financial.seed-phrase-harvest", "Cryptocurrency seed-phrase harvesting form", scanmodel.SeverityCritical, 25,
			"Page requests a wallet seed phrase, never a legitimate request", nil))
	}

	return findings
}
