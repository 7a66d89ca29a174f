package scanmodel

import "time"

// AIVerdict is the per-model consensus verdict space.
type AIVerdict string

const (
	AIVerdictSafe       AIVerdict = "SAFE"
	AIVerdictSuspicious AIVerdict = "SUSPICIOUS"
	AIVerdictPhishing   AIVerdict = "PHISHING"
	AIVerdictMalware    AIVerdict = "MALWARE"
	AIVerdictCritical   AIVerdict = "CRITICAL"
	AIVerdictUnknown    AIVerdict = "unknown"
)

// AIModelVote is one model's response to the consensus prompt.
type AIModelVote struct {
	Model      string        `json:"model"`
	Verdict    AIVerdict     `json:"verdict"`
	Confidence float64       `json:"confidence"` // 0-100
	Multiplier float64       `json:"suggestedMultiplier"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
}

// AIConsensusResult is the aggregated outcome of the AI consensus stage.
type AIConsensusResult struct {
	Votes         []AIModelVote `json:"votes"`
	Consensus     AIVerdict     `json:"consensus"`
	Multiplier    float64       `json:"multiplier"`
	AgreementRate float64       `json:"agreementRate"`
	UsedFallback  bool          `json:"usedFallback"`
	Duration      time.Duration `json:"duration"`
}
