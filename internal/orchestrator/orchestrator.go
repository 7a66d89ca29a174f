// Package orchestrator sequences the full scan pipeline end to end:
// Stage 0 pre-flight (validate, cache, tombstone, TI pre-gate,
// reachability), context gathering, the parallel category/TI fan-out,
// AI consensus, false-positive rebalancing, risk banding, and finally
// persistence and event emission. It plays the role of the teacher's
// cmd/engine wiring plus internal/scanner.BlockScanner's per-unit
// pipeline loop, generalized from "one block's transactions" to "one
// URL's scan stages".
package orchestrator

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fathomsec/urlscan-engine/internal/aiconsensus"
	"github.com/fathomsec/urlscan-engine/internal/cache"
	"github.com/fathomsec/urlscan-engine/internal/categories"
	"github.com/fathomsec/urlscan-engine/internal/config"
	"github.com/fathomsec/urlscan-engine/internal/events"
	"github.com/fathomsec/urlscan-engine/internal/fprebalance"
	"github.com/fathomsec/urlscan-engine/internal/gather"
	"github.com/fathomsec/urlscan-engine/internal/logging"
	"github.com/fathomsec/urlscan-engine/internal/reachability"
	"github.com/fathomsec/urlscan-engine/internal/resultstore"
	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/internal/scoring"
	"github.com/fathomsec/urlscan-engine/internal/ti"
	"github.com/fathomsec/urlscan-engine/internal/tigate"
	"github.com/fathomsec/urlscan-engine/internal/tombstone"
	"github.com/fathomsec/urlscan-engine/internal/urlnorm"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Orchestrator owns every stage's dependency and exposes the single
// Scan entry point. All fields are optional except cfg, whose risk
// thresholds the scoring stage reads — a nil cache/tombstones/store/hub/
// preGate simply skips that stage's shortcut or side effect, and a nil
// categories executor yields no category results, so a minimal
// Orchestrator can still run the core pipeline in tests.
type Orchestrator struct {
	cfg *config.Config

	cache      *cache.Manager
	tombstones *tombstone.Store
	preGate    *tigate.Gate
	prober     *reachability.Prober
	gatherer   *gather.Gatherer
	categories *categories.Executor
	tiLayer    *ti.Layer
	consensus  *aiconsensus.Engine
	rebalancer *fprebalance.Rebalancer
	store      *resultstore.Store
	hub        *events.Hub
}

// New builds an Orchestrator. Any dependency left nil disables the
// stage it backs (see field docs); cfg must be non-nil.
func New(
	cfg *config.Config,
	cacheManager *cache.Manager,
	tombstones *tombstone.Store,
	preGate *tigate.Gate,
	prober *reachability.Prober,
	gatherer *gather.Gatherer,
	categoryExecutor *categories.Executor,
	tiLayer *ti.Layer,
	consensus *aiconsensus.Engine,
	rebalancer *fprebalance.Rebalancer,
	store *resultstore.Store,
	hub *events.Hub,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		cache:      cacheManager,
		tombstones: tombstones,
		preGate:    preGate,
		prober:     prober,
		gatherer:   gatherer,
		categories: categoryExecutor,
		tiLayer:    tiLayer,
		consensus:  consensus,
		rebalancer: rebalancer,
		store:      store,
		hub:        hub,
	}
}

// Scan runs one URL through the full pipeline, returning the sealed
// FinalScanResult. Only URL validation failures are returned as errors;
// every other stage degrades gracefully (component errors are recorded
// on the result instead of aborting the scan).
func (o *Orchestrator) Scan(ctx context.Context, rawURL string) (scanmodel.FinalScanResult, error) {
	scanStart := time.Now()
	scanID := uuid.New().String()
	ctx, log := logging.WithScanID(ctx, scanID)

	url, err := urlnorm.Validate(rawURL)
	if err != nil {
		return scanmodel.FinalScanResult{}, err
	}

	o.emit(scanmodel.Event{Type: scanmodel.EventScanStart, ScanID: scanID, Data: url.Canonical})

	var durations scanmodel.StageDurations

	if o.cache != nil {
		if payload, hit := o.cache.GetScan(ctx, url.Hash); hit {
			result := payload.Value
			result.Cached = true
			result.CacheAgeSeconds = payload.AgeSeconds
			result.ScanDuration = time.Since(scanStart)
			o.emit(scanmodel.Event{Type: scanmodel.EventScanComplete, ScanID: scanID, Data: result.RiskLevel})
			return result, nil
		}
	}

	stage0Start := time.Now()

	if o.tombstones != nil {
		if ts, tErr := o.tombstones.Check(ctx, url.Hash); tErr != nil {
			log.Warn().Err(tErr).Msg("tombstone lookup failed, continuing scan")
		} else if ts != nil {
			durations.Stage0 = time.Since(stage0Start)
			result := o.fastPathResult(scanID, *url, "tombstone", ts.Verdict, durations, scanStart)
			o.persist(ctx, result)
			o.emit(scanmodel.Event{Type: scanmodel.EventScanComplete, ScanID: scanID, Data: result.RiskLevel})
			return result, nil
		}
	}

	var preGateSources []scanmodel.TISourceResult
	if o.preGate != nil {
		pre := o.preGate.Run(ctx, url.Canonical)
		preGateSources = pre.Sources
		if pre.ShouldStop {
			if o.tombstones != nil {
				if _, cErr := o.tombstones.CheckTIConsensus(ctx, url.Hash, url.Canonical, pre.Sources, 1, pre.Confidence); cErr != nil {
					log.Warn().Err(cErr).Msg("failed to persist pre-gate tombstone")
				}
			}
			durations.Stage0 = time.Since(stage0Start)
			result := o.fastPathResult(scanID, *url, "ti_pre_gate", scanmodel.RiskCritical, durations, scanStart)
			result.ComponentErrors = componentErrors("ti-pre-gate", pre.Sources)
			o.persist(ctx, result)
			o.emit(scanmodel.Event{Type: scanmodel.EventScanComplete, ScanID: scanID, Data: result.RiskLevel})
			return result, nil
		}
	}

	reach := o.probeReachability(ctx, *url)
	pipeline := selectPipeline(reach.State)
	durations.Stage0 = time.Since(stage0Start)

	if reach.State == scanmodel.StateSinkhole {
		if o.tombstones != nil {
			if cErr := o.tombstones.Create(ctx, url.Hash, url.Canonical, scanmodel.TombstoneSourceSinkhole, 100); cErr != nil {
				log.Warn().Err(cErr).Msg("failed to persist sinkhole tombstone")
			}
		}
		result := o.fastPathResult(scanID, *url, "sinkhole", scanmodel.RiskCritical, durations, scanStart)
		result.Reachability = &reach
		result.PipelineType = scanmodel.PipelineNone
		o.persist(ctx, result)
		o.emit(scanmodel.Event{Type: scanmodel.EventScanComplete, ScanID: scanID, Data: result.RiskLevel})
		return result, nil
	}

	gatherStart := time.Now()
	sc := o.gatherContext(ctx, *url, reach, pipeline)
	durations.ContextGather = time.Since(gatherStart)

	var (
		catResults            []scanmodel.CategoryResult
		catScore, catActiveMax float64
		catDuration           time.Duration
		tiResult              scanmodel.TILayerResult
	)
	o.fanOutCategoriesAndTI(ctx, sc, &catResults, &catScore, &catActiveMax, &catDuration, &tiResult)
	durations.Categories = catDuration
	durations.TILayer = tiResult.Duration

	activeMax := scoring.ActiveMaxScore(catResults, tiResult.MaxWeight)

	aiStart := time.Now()
	var aiResult scanmodel.AIConsensusResult
	if o.consensus != nil {
		prompt := aiconsensus.BuildPrompt(sc, catScore+tiResult.Score, activeMax, catResults, tiResult)
		aiResult = o.consensus.Run(ctx, prompt)
	} else {
		aiResult = scanmodel.AIConsensusResult{Consensus: scanmodel.AIVerdictUnknown, Multiplier: 1.0, UsedFallback: true}
	}
	durations.AIConsensus = time.Since(aiStart)

	fpStart := time.Now()
	var fpResult scanmodel.FPResult
	if o.rebalancer != nil {
		fpResult = o.rebalancer.Evaluate(ctx, sc, false)
	} else {
		fpResult = scanmodel.FPResult{AdjustmentMultiplier: 1.0}
	}
	durations.FPRebalance = time.Since(fpStart)

	finalScore := scoring.FinalScore(catScore, tiResult.Score, aiResult.Multiplier, fpResult.AdjustmentMultiplier, activeMax)
	riskPct := scoring.RiskPercentage(finalScore, activeMax)
	riskLevel := scoring.Band(riskPct, o.cfg.RiskThresholds)

	durations.Total = time.Since(scanStart)

	result := scanmodel.FinalScanResult{
		ScanID:         scanID,
		URL:            *url,
		Timestamp:      scanStart,
		Reachability:   &reach,
		PipelineType:   pipeline,
		Categories:     catResults,
		TI:             &tiResult,
		AI:             &aiResult,
		FP:             &fpResult,
		BaseScore:      catScore + tiResult.Score,
		AIMultiplier:   aiResult.Multiplier,
		FinalScore:     finalScore,
		ActiveMaxScore: activeMax,
		RiskLevel:      riskLevel,
		RiskPercentage: riskPct,
		ComponentErrors: append(componentErrors("ti-pre-gate", preGateSources), componentErrors("ti-layer", tiResult.Sources)...),
		Durations:       durations,
		ScanDuration:    time.Since(scanStart),
	}

	if riskLevel == scanmodel.RiskCritical || riskLevel == scanmodel.RiskHigh {
		if o.tombstones != nil && o.cfg != nil {
			if _, cErr := o.tombstones.CheckTIConsensus(ctx, url.Hash, url.Canonical, tiResult.Sources,
				o.cfg.TombstoneConsensusMinSources, o.cfg.TombstoneConsensusMinConf); cErr != nil {
				log.Warn().Err(cErr).Msg("failed to evaluate tombstone consensus")
			}
		}
	}

	o.persist(ctx, result)
	o.emit(scanmodel.Event{Type: scanmodel.EventScanComplete, ScanID: scanID, Data: result.RiskLevel})
	return result, nil
}

// fastPathResult builds the sealed result for a tombstone, pre-gate, or
// sinkhole short-circuit: no categories ran, so Score/ActiveMaxScore
// are both zero and RiskPercentage is the banding ceiling.
func (o *Orchestrator) fastPathResult(scanID string, url scanmodel.URLComponents, fastPath string, risk scanmodel.RiskLevel, durations scanmodel.StageDurations, scanStart time.Time) scanmodel.FinalScanResult {
	durations.Total = time.Since(scanStart)
	return scanmodel.FinalScanResult{
		ScanID:         scanID,
		URL:            url,
		Timestamp:      scanStart,
		PipelineType:   scanmodel.PipelineNone,
		RiskLevel:      risk,
		RiskPercentage: 100,
		FastPath:       fastPath,
		Durations:      durations,
		ScanDuration:   time.Since(scanStart),
	}
}

// probeReachability derives the probe's port/TLS inputs from the
// validated URL and runs the Stage 0 reachability state machine. A nil
// prober (e.g. in a unit test wiring only the scoring stages) reports
// OFFLINE so downstream pipeline selection still degrades safely.
func (o *Orchestrator) probeReachability(ctx context.Context, url scanmodel.URLComponents) scanmodel.ReachabilityRecord {
	if o.prober == nil {
		return scanmodel.ReachabilityRecord{Domain: url.Hostname, State: scanmodel.StateOffline}
	}
	useTLS := url.Protocol == "https"
	port := 80
	if useTLS {
		port = 443
	}
	if url.Port != "" {
		if p, err := strconv.Atoi(url.Port); err == nil {
			port = p
		}
	}
	return o.prober.Probe(ctx, url.Canonical, url.Hostname, port, useTLS)
}

// gatherContext runs the context gatherer, or returns a bare context
// carrying only the URL/reachability/pipeline when no gatherer is
// wired (keeps category unit wiring usable without full DNS/WHOIS/TLS
// plumbing).
func (o *Orchestrator) gatherContext(ctx context.Context, url scanmodel.URLComponents, reach scanmodel.ReachabilityRecord, pipeline scanmodel.PipelineType) scanmodel.ScanContext {
	if o.gatherer == nil {
		return scanmodel.ScanContext{URL: url, Reachability: reach, Pipeline: pipeline}
	}
	return o.gatherer.Gather(ctx, url, reach, pipeline)
}

// fanOutCategoriesAndTI runs the category executor and the full TI
// layer concurrently, since neither reads the other's output (spec
// §5's "categories and TI run in parallel" contract). Each side already
// isolates its own unit-level panics; the wrapper here only needs to
// join the two goroutines.
func (o *Orchestrator) fanOutCategoriesAndTI(
	ctx context.Context,
	sc scanmodel.ScanContext,
	catResults *[]scanmodel.CategoryResult,
	catScore, catActiveMax *float64,
	catDuration *time.Duration,
	tiResult *scanmodel.TILayerResult,
) {
	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		if o.categories == nil {
			return
		}
		start := time.Now()
		*catResults, *catScore, *catActiveMax = o.categories.Run(ctx, sc)
		*catDuration = time.Since(start)
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		if o.tiLayer == nil {
			return
		}
		*tiResult = o.tiLayer.Run(ctx, sc.URL.Canonical)
	}()

	<-done
	<-done
}

// persist writes result to the result store and the scan cache. Either
// failing is logged and otherwise ignored: a scan result is still
// useful to its caller even if it can't be durably saved.
func (o *Orchestrator) persist(ctx context.Context, result scanmodel.FinalScanResult) {
	log := logging.FromContext(ctx)
	if o.store != nil {
		if err := o.store.Save(ctx, result); err != nil {
			log.Warn().Err(scanerr.Persistence("failed to persist scan result", err)).Msg("result store save failed")
		}
	}
	if o.cache != nil {
		if err := o.cache.PutScan(ctx, result.URL.Hash, result); err != nil {
			log.Warn().Err(err).Msg("cache put failed")
		}
	}
}

func (o *Orchestrator) emit(evt scanmodel.Event) {
	if o.hub != nil {
		o.hub.Emit(evt)
	}
}

// selectPipeline maps a sealed reachability state to its category
// subset (spec §4.6). SINKHOLE never reaches here: Scan short-circuits
// it before pipeline selection.
func selectPipeline(state scanmodel.ReachabilityState) scanmodel.PipelineType {
	switch state {
	case scanmodel.StateOnline:
		return scanmodel.PipelineFull
	case scanmodel.StateParked:
		return scanmodel.PipelineParked
	case scanmodel.StateWAFChallenge:
		return scanmodel.PipelineWAF
	default:
		return scanmodel.PipelinePassive
	}
}

// componentErrors converts a TI source batch's per-source error
// verdicts into ComponentErrors for the result's diagnostic trail.
func componentErrors(component string, sources []scanmodel.TISourceResult) []scanmodel.ComponentError {
	var out []scanmodel.ComponentError
	for _, s := range sources {
		if s.Verdict == scanmodel.TIVerdictError {
			out = append(out, scanmodel.ComponentError{Component: component, Name: s.Source, Error: s.Details})
		}
	}
	return out
}

// defaultHTTPClient is used only by wiring code outside this package
// (cmd/scanner); kept here so callers share one sane timeout default
// instead of each constructing their own http.Client.
var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

// DefaultHTTPClient returns the shared default client.
func DefaultHTTPClient() *http.Client { return defaultHTTPClient }
