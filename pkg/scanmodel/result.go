package scanmodel

import "time"

// RiskLevel is the banded output of the scoring stage.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskSafe     RiskLevel = "safe"
)

// PipelineType is the category subset selected by Stage 0 from the
// reachability state.
type PipelineType string

const (
	PipelineFull    PipelineType = "FULL"
	PipelinePassive PipelineType = "PASSIVE"
	PipelineParked  PipelineType = "PARKED"
	PipelineWAF     PipelineType = "WAF"
	PipelineNone    PipelineType = "NONE" // sinkhole / fast-path, no categories run
)

// ComponentError records a non-fatal failure from any isolated unit
// (a category, a TI source, an AI model) so degraded scans remain
// diagnosable without re-running.
type ComponentError struct {
	Component string `json:"component"`
	Name      string `json:"name"`
	Error     string `json:"error"`
}

// StageDurations records the wall-clock time spent in each pipeline
// stage, for diagnostics and the scanDuration breakdown.
type StageDurations struct {
	Stage0        time.Duration `json:"stage0"`
	ContextGather time.Duration `json:"contextGather"`
	Categories    time.Duration `json:"categories"`
	TILayer       time.Duration `json:"tiLayer"`
	AIConsensus   time.Duration `json:"aiConsensus"`
	FPRebalance   time.Duration `json:"fpRebalance"`
	Total         time.Duration `json:"total"`
}

// FinalScanResult is the complete, immutable output of one scan.
type FinalScanResult struct {
	ScanID          string                 `json:"scanId"`
	URL             URLComponents          `json:"url"`
	Timestamp       time.Time              `json:"timestamp"`
	Reachability    *ReachabilityRecord    `json:"reachability,omitempty"`
	PipelineType    PipelineType           `json:"pipelineType"`
	Categories      []CategoryResult       `json:"categories,omitempty"`
	TI              *TILayerResult         `json:"ti,omitempty"`
	AI              *AIConsensusResult     `json:"ai,omitempty"`
	FP              *FPResult              `json:"fp,omitempty"`
	BaseScore       float64                `json:"baseScore"`
	AIMultiplier    float64                `json:"aiMultiplier"`
	FinalScore      float64                `json:"finalScore"`
	ActiveMaxScore  float64                `json:"activeMaxScore"`
	RiskLevel       RiskLevel              `json:"riskLevel"`
	RiskPercentage  float64                `json:"riskPercentage"`
	Cached          bool                   `json:"cached"`
	CacheAgeSeconds int64                  `json:"cacheAgeSeconds,omitempty"`
	FastPath        string                 `json:"fastPath,omitempty"` // "tombstone" | "ti_pre_gate" | ""
	ComponentErrors []ComponentError       `json:"componentErrors,omitempty"`
	Durations       StageDurations         `json:"durations"`
	ScanDuration    time.Duration          `json:"scanDuration"`
}

// FPResult is the output of the false-positive legitimacy rebalancer.
type FPResult struct {
	LegitimacyScore      float64  `json:"legitimacyScore"` // 0-100
	AdjustmentMultiplier float64  `json:"adjustmentMultiplier"`
	CDNMatch             bool     `json:"cdnMatch"`
	ResearchMatch        bool     `json:"researchMatch"`
	GovEduMatch          bool     `json:"govEduMatch"`
	Checks               []string `json:"checks,omitempty"`
	Suppressed           bool     `json:"suppressed"` // true when overridden by a hard-stop
}
