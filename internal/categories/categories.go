// Package categories implements the Category Executor and the 17
// category analyzers (spec §4.8). Each analyzer is a pure function over
// a shared, read-only scanmodel.ScanContext — the same "many small
// scorers over one shared value" shape as the teacher's
// internal/heuristics package, generalized from transaction heuristics
// to URL/content heuristics.
package categories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Analyzer is one of the 17 category checks.
type Analyzer interface {
	ID() string
	Name() string
	MaxWeight() float64
	ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool
	Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding
}

// Executor runs a pipeline's category set in parallel and aggregates
// their sealed results.
type Executor struct {
	analyzers []Analyzer
}

// New builds an Executor over the given analyzer set (typically all 17,
// filtered per-run by ShouldRun).
func New(analyzers []Analyzer) *Executor {
	return &Executor{analyzers: analyzers}
}

// Run executes every analyzer, isolating panics and errors so one
// broken check never aborts the scan, and returns the sealed
// CategoryResults alongside the summed base score and active max.
func (e *Executor) Run(ctx context.Context, sc scanmodel.ScanContext) ([]scanmodel.CategoryResult, float64, float64) {
	type out struct {
		idx    int
		result scanmodel.CategoryResult
	}
	results := make([]scanmodel.CategoryResult, len(e.analyzers))
	done := make(chan out, len(e.analyzers))

	for i, a := range e.analyzers {
		i, a := i, a
		go func() {
			done <- out{idx: i, result: e.runOne(ctx, a, sc)}
		}()
	}
	for range e.analyzers {
		o := <-done
		results[o.idx] = o.result
	}

	var baseScore, activeMax float64
	for _, r := range results {
		baseScore += r.Score
		if !r.Metadata.Skipped {
			activeMax += r.MaxWeight
		}
	}
	return results, baseScore, activeMax
}

// runOne invokes a single analyzer, recovering from panics and
// converting them into a skipped result the same way the spec's
// "analyzer's exception is isolated" contract requires.
func (e *Executor) runOne(ctx context.Context, a Analyzer, sc scanmodel.ScanContext) (result scanmodel.CategoryResult) {
	start := time.Now()
	result = scanmodel.CategoryResult{CategoryID: a.ID(), Name: a.Name(), MaxWeight: a.MaxWeight()}

	defer func() {
		if r := recover(); r != nil {
			result = scanmodel.CategoryResult{
				CategoryID: a.ID(), Name: a.Name(), MaxWeight: a.MaxWeight(),
				Metadata: scanmodel.CategoryMetadata{Skipped: true, SkipReason: fmt.Sprintf("Error: %v", r), Duration: time.Since(start)},
			}
		}
	}()

	if !a.ShouldRun(sc.Reachability.State, sc.Pipeline) {
		result.Metadata = scanmodel.CategoryMetadata{Skipped: true, SkipReason: "not applicable to this pipeline", Duration: time.Since(start)}
		return result
	}

	findings := a.Run(ctx, sc)
	var score float64
	for _, f := range findings {
		score += f.Score
	}
	if score > a.MaxWeight() {
		score = a.MaxWeight()
	}

	result.Score = score
	result.Findings = findings
	result.Metadata = scanmodel.CategoryMetadata{ChecksRun: len(findings), Duration: time.Since(start)}
	return result
}

// newFinding is the shared constructor every analyzer uses so finding
// shape stays consistent.
func newFinding(checkID, checkName string, severity scanmodel.Severity, score float64, message string, evidence any) scanmodel.Finding {
	return scanmodel.Finding{
		CheckID: checkID, CheckName: checkName, Severity: severity,
		Score: score, Message: message, Evidence: evidence, CheckVersion: 1,
	}
}

// bodyText lowercases the captured HTTP body prefix for keyword scoring.
func bodyText(sc scanmodel.ScanContext) string {
	return strings.ToLower(string(sc.Reachability.HTTP.BodyPrefix))
}

// containsAny reports whether text contains any of the given
// lowercased needles, returning the first match.
func containsAny(text string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return n, true
		}
	}
	return "", false
}

// levenshtein computes edit distance, used by brand-impersonation
// typosquat detection.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// pipelineSets implements the category membership table from spec
// §4.6: FULL runs every category, the degraded pipelines run a fixed
// subset driven only by DNS/WHOIS/TLD/content signals that don't need a
// live, fully-reachable target.
var pipelineSets = map[scanmodel.PipelineType]map[string]bool{
	scanmodel.PipelinePassive: {"domainAnalysis": true, "emailSecurity": true, "trustGraph": true, "legalCompliance": true},
	scanmodel.PipelineParked:  {"domainAnalysis": true, "contentAnalysis": true, "brandImpersonation": true, "trustGraph": true},
	scanmodel.PipelineWAF:     {"domainAnalysis": true, "sslSecurity": true, "securityHeaders": true, "contentAnalysis": true, "trustGraph": true},
}

// pipelineAllows reports whether categoryID runs under pipeline. FULL
// always allows every category.
func pipelineAllows(categoryID string, pipeline scanmodel.PipelineType) bool {
	if pipeline == scanmodel.PipelineFull || pipeline == "" {
		return true
	}
	set, ok := pipelineSets[pipeline]
	if !ok {
		return true
	}
	return set[categoryID]
}
