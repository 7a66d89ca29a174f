package aiconsensus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// maxTopFindings caps the findings included in the prompt, per spec
// §4.10's "≤10 top findings (sorted by points)".
const maxTopFindings = 10

// Prompt is the structured input every provider renders into its own
// request shape.
type Prompt struct {
	URL              scanmodel.URLComponents
	ReachabilityState scanmodel.ReachabilityState
	Pipeline         scanmodel.PipelineType
	BaseScore        float64
	ActiveMaxScore   float64
	TopFindings      []scanmodel.Finding
	TISummary        TISummary
	CategorySummary  []CategorySummaryLine
}

// TISummary condenses the TI layer result to what a model needs:
// counts per verdict and the names of sources that voted malicious.
type TISummary struct {
	VerdictCounts   map[scanmodel.TIVerdict]int
	MaliciousSources []string
}

// CategorySummaryLine is one row of the category summary table handed
// to the model: name, score, max, and percent of budget consumed.
type CategorySummaryLine struct {
	Name    string
	Score   float64
	Max     float64
	Percent float64
}

// BuildPrompt assembles the consensus prompt from the pipeline's
// intermediate state, grounded on spec §4.10's prompt contents list.
func BuildPrompt(sc scanmodel.ScanContext, baseScore, activeMaxScore float64, categories []scanmodel.CategoryResult, ti scanmodel.TILayerResult) Prompt {
	var findings []scanmodel.Finding
	for _, c := range categories {
		findings = append(findings, c.Findings...)
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Score > findings[j].Score })
	if len(findings) > maxTopFindings {
		findings = findings[:maxTopFindings]
	}

	counts := map[scanmodel.TIVerdict]int{}
	var malicious []string
	for _, r := range ti.Sources {
		counts[r.Verdict]++
		if r.Verdict == scanmodel.TIVerdictMalicious {
			malicious = append(malicious, r.Source)
		}
	}

	var summary []CategorySummaryLine
	for _, c := range categories {
		if c.Metadata.Skipped {
			continue
		}
		percent := 0.0
		if c.MaxWeight > 0 {
			percent = c.Score / c.MaxWeight * 100
		}
		summary = append(summary, CategorySummaryLine{Name: c.Name, Score: c.Score, Max: c.MaxWeight, Percent: percent})
	}

	return Prompt{
		URL: sc.URL, ReachabilityState: sc.Reachability.State, Pipeline: sc.Pipeline,
		BaseScore: baseScore, ActiveMaxScore: activeMaxScore,
		TopFindings: findings,
		TISummary:   TISummary{VerdictCounts: counts, MaliciousSources: malicious},
		CategorySummary: summary,
	}
}

// Render turns the structured prompt into the single text block every
// provider sends as its user message. Kept as plain text rather than a
// provider-specific schema since all three providers here are plain
// chat-completion style.
func (p Prompt) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s (domain=%s, tld=%s)\n", p.URL.Hostname, p.URL.Domain, p.URL.TLD)
	fmt.Fprintf(&b, "Reachability: %s, pipeline: %s\n", p.ReachabilityState, p.Pipeline)
	fmt.Fprintf(&b, "Base score: %.1f / %.1f\n\n", p.BaseScore, p.ActiveMaxScore)

	fmt.Fprintf(&b, "Top findings:\n")
	for _, f := range p.TopFindings {
		fmt.Fprintf(&b, "- [%s] %s: %s (%.1f pts)\n", f.Severity, f.CheckName, f.Message, f.Score)
	}

	fmt.Fprintf(&b, "\nThreat intel: ")
	for v, n := range p.TISummary.VerdictCounts {
		fmt.Fprintf(&b, "%s=%d ", v, n)
	}
	if len(p.TISummary.MaliciousSources) > 0 {
		fmt.Fprintf(&b, "\nMalicious sources: %s", strings.Join(p.TISummary.MaliciousSources, ", "))
	}

	fmt.Fprintf(&b, "\n\nCategory summary:\n")
	for _, c := range p.CategorySummary {
		fmt.Fprintf(&b, "- %s: %.1f/%.1f (%.0f%%)\n", c.Name, c.Score, c.Max, c.Percent)
	}

	fmt.Fprintf(&b, "\nRespond with a verdict (SAFE, SUSPICIOUS, PHISHING, MALWARE, or CRITICAL), a confidence 0-100, a suggested score multiplier, and a short reasoning.")
	return b.String()
}
