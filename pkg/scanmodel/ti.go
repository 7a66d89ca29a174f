package scanmodel

import "time"

// TIVerdict is the per-source threat-intelligence verdict.
type TIVerdict string

const (
	TIVerdictSafe       TIVerdict = "safe"
	TIVerdictMalicious  TIVerdict = "malicious"
	TIVerdictSuspicious TIVerdict = "suspicious"
	TIVerdictError      TIVerdict = "error"
)

// TISourceTier ranks a source's trustworthiness.
type TISourceTier int

const (
	TierCommunity TISourceTier = 3
	TierStandard  TISourceTier = 2
	TierTrusted   TISourceTier = 1
)

// TISourceResult is the outcome of querying a single TI source.
type TISourceResult struct {
	Source     string        `json:"source"`
	Tier       TISourceTier  `json:"tier"`
	Verdict    TIVerdict     `json:"verdict"`
	Score      float64       `json:"score"`
	Confidence float64       `json:"confidence"` // 0-100
	Details    string        `json:"details,omitempty"`
	Duration   time.Duration `json:"duration"`
	Cached     bool          `json:"cached"`
}

// TILayerResult aggregates every source queried during category
// execution (the full 11-source layer, distinct from the pre-gate).
type TILayerResult struct {
	Sources        []TISourceResult `json:"sources"`
	VerdictCounts  map[TIVerdict]int `json:"verdictCounts"`
	Score          float64          `json:"score"`
	MaxWeight      float64          `json:"maxWeight"`
	Duration       time.Duration    `json:"duration"`
	DualTier1Flag  bool             `json:"dualTier1Flag"`
	DualTier1Names []string         `json:"dualTier1Names,omitempty"`
}

// PreGateResult is the outcome of the Stage 0 TI pre-gate.
type PreGateResult struct {
	ShouldStop   bool             `json:"shouldStop"`
	WinningSource string          `json:"winningSource,omitempty"`
	Confidence   float64          `json:"confidence,omitempty"`
	Sources      []TISourceResult `json:"sources"`
	Duration     time.Duration    `json:"duration"`
}
