package scanmodel

import "time"

// TombstoneSource records which mechanism confirmed a URL as
// known-malicious.
type TombstoneSource string

const (
	TombstoneSourceSinkhole   TombstoneSource = "sinkhole"
	TombstoneSourceManual     TombstoneSource = "manual"
	TombstoneSourceTIConsens  TombstoneSource = "ti_consensus"
	TombstoneSourceAdmin      TombstoneSource = "admin"
)

// Tombstone is a persistent "known-malicious" record, append-only
// outside of administrative removal.
type Tombstone struct {
	URLHash       string          `json:"urlHash"`
	URL           string          `json:"url"`
	Verdict       RiskLevel       `json:"verdict"` // always RiskCritical
	Source        TombstoneSource `json:"source"`
	Confidence    float64         `json:"confidence"`
	ConfirmedDate time.Time       `json:"confirmedDate"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

// TombstoneStats summarizes the store's contents for admin/diagnostic use.
type TombstoneStats struct {
	Total       int                       `json:"total"`
	BySource    map[TombstoneSource]int   `json:"bySource"`
	OldestEntry time.Time                 `json:"oldestEntry"`
	NewestEntry time.Time                 `json:"newestEntry"`
}
