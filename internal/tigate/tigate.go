// Package tigate runs the Stage 0 threat-intelligence pre-gate: a
// small, latency-optimized subset of TI sources queried concurrently
// with a tight total budget, so a URL already flagged malicious by a
// fast, high-confidence source can short-circuit the rest of the
// pipeline. Concurrency follows the teacher's errgroup fan-out idiom
// (internal/scanner's parallel heuristics dispatch), and each source is
// rate-limited the way Hyper-ZiLLA's threat_analyzer rate-limits its
// per-task-type external calls.
package tigate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fathomsec/urlscan-engine/internal/breaker"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// QueryFunc performs a single source lookup.
type QueryFunc func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error)

// Source is one pre-gate-eligible TI source.
type Source struct {
	Name    string
	Timeout time.Duration
	Query   QueryFunc
}

// Gate runs the pre-gate over a fixed set of sources.
type Gate struct {
	sources       []Source
	breakers      *breaker.Manager
	limiters      map[string]*rate.Limiter
	totalBudget   time.Duration
	winConfidence float64
}

// New builds a Gate. winConfidence is the minimum per-source confidence
// (0-100) for a single malicious verdict to stop the pipeline.
func New(sources []Source, breakers *breaker.Manager, totalBudget time.Duration, winConfidence float64) *Gate {
	limiters := make(map[string]*rate.Limiter, len(sources))
	for _, s := range sources {
		limiters[s.Name] = rate.NewLimiter(rate.Every(50*time.Millisecond), 4)
	}
	return &Gate{sources: sources, breakers: breakers, limiters: limiters, totalBudget: totalBudget, winConfidence: winConfidence}
}

// Run queries every pre-gate source concurrently, bounded by
// totalBudget, and stops early once a winning malicious verdict is
// observed.
func (g *Gate) Run(ctx context.Context, targetURL string) scanmodel.PreGateResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.totalBudget)
	defer cancel()

	winCtx, winCancel := context.WithCancel(ctx)
	defer winCancel()

	var (
		mu       sync.Mutex
		results  []scanmodel.TISourceResult
		won      bool
		winName  string
		winConf  float64
	)

	group, gctx := errgroup.WithContext(winCtx)
	for _, src := range g.sources {
		src := src
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					results = append(results, scanmodel.TISourceResult{Source: src.Name, Verdict: scanmodel.TIVerdictError, Details: fmt.Sprintf("panic: %v", r)})
					mu.Unlock()
				}
			}()
			if limiter, ok := g.limiters[src.Name]; ok {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
			}

			sctx, scancel := context.WithTimeout(gctx, src.Timeout)
			defer scancel()

			raw, err := g.breakers.Execute(sctx, src.Name, func(ctx context.Context) (any, error) {
				return src.Query(ctx, targetURL)
			})

			var result scanmodel.TISourceResult
			if err != nil {
				result = scanmodel.TISourceResult{Source: src.Name, Verdict: scanmodel.TIVerdictError, Details: err.Error()}
			} else {
				result = raw.(scanmodel.TISourceResult)
			}

			mu.Lock()
			results = append(results, result)
			if result.Verdict == scanmodel.TIVerdictMalicious && result.Confidence >= g.winConfidence && !won {
				won = true
				winName = result.Source
				winConf = result.Confidence
				winCancel()
			}
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	mu.Lock()
	defer mu.Unlock()
	return scanmodel.PreGateResult{
		ShouldStop:    won,
		WinningSource: winName,
		Confidence:    winConf,
		Sources:       results,
		Duration:      time.Since(start),
	}
}
