package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// SocialEngineering scores manipulation tactics beyond raw phishing
// lexicon: fake scarcity/prize framing, tech-support-scam language, and
// impersonated-authority framing (law enforcement, tax agencies).
type SocialEngineering struct {
	maxWeight float64
}

func NewSocialEngineering(maxWeight float64) *SocialEngineering {
	return &SocialEngineering{maxWeight: maxWeight}
}

func (s *SocialEngineering) ID() string         { return "socialEngineering" }
func (s *SocialEngineering) Name() string       { return "Social Engineering" }
func (s *SocialEngineering) MaxWeight() float64 { return s.maxWeight }

func (s *SocialEngineering) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(s.ID(), pipeline) && state == scanmodel.StateOnline
}

var prizePhrases = []string{"you have won", "claim your prize", "congratulations you are selected", "free gift card"}
var techSupportPhrases = []string{"call this number immediately", "your computer is infected", "microsoft support alert", "windows defender alert"}
var authorityPhrases = []string{"irs notice", "federal bureau of investigation", "your arrest warrant", "tax refund pending"}

func (s *SocialEngineering) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, prizePhrases); ok {
		findings = append(findings, newFinding("social.prize-scam", "Fake prize/reward framing", scanmodel.SeverityMedium, 10,
			"Content uses prize-scam framing: "+match, match))
	}
	if match, ok := containsAny(body, techSupportPhrases); ok {
		findings = append(findings, newFinding("social.tech-support-scam", "Tech-support-scam language", scanmodel.SeverityHigh, 18,
			"Content uses tech-support-scam framing: "+match, match))
	}
	if match, ok := containsAny(body, authorityPhrases); ok {
		findings = append(findings, newFinding("social.authority-impersonation", "Impersonated-authority framing", scanmodel.SeverityHigh, 18,
			"Content impersonates a government/law-enforcement authority: "+match, match))
	}
	if strings.Contains(body, "this offer expires in") && strings.Contains(body, "countdown") {
		findings = append(findings, newFinding("social.fake-urgency-timer", "Fake countdown/urgency timer", scanmodel.SeverityLow, 5,
			"Page renders a manufactured urgency countdown", nil))
	}

	return findings
}
