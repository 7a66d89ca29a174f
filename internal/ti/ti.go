// Package ti runs the full threat-intelligence layer: all 11
// configured sources queried concurrently during category execution,
// independent of whatever the Stage 0 pre-gate already observed (spec
// §9 Open Question 1 — sources are not deduplicated across stages).
// Each source contributes a weighted score, and two or more tier-1
// sources agreeing on "malicious" raises the dual-tier-1 flag, reported
// with those sources' names on the TILayerResult.
package ti

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fathomsec/urlscan-engine/internal/breaker"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// QueryFunc performs a single TI source lookup.
type QueryFunc func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error)

// Source is one configured TI source.
type Source struct {
	Name    string
	Tier    scanmodel.TISourceTier
	Weight  float64
	Timeout time.Duration
	Query   QueryFunc
}

// Layer runs the full TI source set.
type Layer struct {
	sources   []Source
	breakers  *breaker.Manager
	maxWeight float64
}

// New builds a Layer. maxWeight is the configured ti-max-weight used to
// populate TILayerResult.MaxWeight (spec's activeMaxScore accounting).
func New(sources []Source, breakers *breaker.Manager, maxWeight float64) *Layer {
	return &Layer{sources: sources, breakers: breakers, maxWeight: maxWeight}
}

// Run queries every source concurrently and aggregates the layer score.
func (l *Layer) Run(ctx context.Context, targetURL string) scanmodel.TILayerResult {
	start := time.Now()

	var (
		mu      sync.Mutex
		results = make([]scanmodel.TISourceResult, 0, len(l.sources))
	)

	group, gctx := errgroup.WithContext(ctx)
	for _, src := range l.sources {
		src := src
		group.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					results = append(results, scanmodel.TISourceResult{
						Source: src.Name, Tier: src.Tier,
						Verdict: scanmodel.TIVerdictError, Details: fmt.Sprintf("panic: %v", r),
					})
					mu.Unlock()
				}
			}()
			sctx, cancel := context.WithTimeout(gctx, src.Timeout)
			defer cancel()

			queryStart := time.Now()
			raw, err := l.breakers.Execute(sctx, src.Name, func(ctx context.Context) (any, error) {
				return src.Query(ctx, targetURL)
			})

			var result scanmodel.TISourceResult
			if err != nil {
				result = scanmodel.TISourceResult{
					Source: src.Name, Tier: src.Tier,
					Verdict: scanmodel.TIVerdictError, Details: err.Error(),
					Duration: time.Since(queryStart),
				}
			} else {
				result = raw.(scanmodel.TISourceResult)
				result.Tier = src.Tier
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	return aggregate(results, l.maxWeight, l.sources, time.Since(start))
}

// aggregate computes the layer's weighted score, verdict histogram, and
// dual-tier-1 flag from the collected source results.
func aggregate(results []scanmodel.TISourceResult, maxWeight float64, sources []Source, duration time.Duration) scanmodel.TILayerResult {
	weightByName := make(map[string]float64, len(sources))
	for _, s := range sources {
		weightByName[s.Name] = s.Weight
	}

	counts := make(map[scanmodel.TIVerdict]int)
	var score float64
	var tier1Malicious []string

	for _, r := range results {
		counts[r.Verdict]++
		weight := weightByName[r.Source]

		switch r.Verdict {
		case scanmodel.TIVerdictMalicious:
			score += weight * (r.Confidence / 100)
			if r.Tier == scanmodel.TierTrusted {
				tier1Malicious = append(tier1Malicious, r.Source)
			}
		case scanmodel.TIVerdictSuspicious:
			score += weight * 0.5 * (r.Confidence / 100)
		}
	}

	if score > maxWeight {
		score = maxWeight
	}

	return scanmodel.TILayerResult{
		Sources:        results,
		VerdictCounts:  counts,
		Score:          score,
		MaxWeight:      maxWeight,
		Duration:       duration,
		DualTier1Flag:  len(tier1Malicious) >= 2,
		DualTier1Names: tier1Malicious,
	}
}
