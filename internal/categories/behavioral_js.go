package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// BehavioralJS scores client-side script behavior that's hard for a
// static content scan to justify: clipboard hijacking, keylogger-style
// keydown listeners on every input, and right-click/devtools blocking
// typical of pages trying to resist inspection.
type BehavioralJS struct {
	maxWeight float64
}

func NewBehavioralJS(maxWeight float64) *BehavioralJS {
	return &BehavioralJS{maxWeight: maxWeight}
}

func (b *BehavioralJS) ID() string         { return "behavioralJS" }
func (b *BehavioralJS) Name() string       { return "Behavioral JS" }
func (b *BehavioralJS) MaxWeight() float64 { return b.maxWeight }

func (b *BehavioralJS) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(b.ID(), pipeline) && state == scanmodel.StateOnline
}

func (b *BehavioralJS) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if strings.Contains(body, "oncopy=") || strings.Contains(body, "addeventlistener(\"copy\"") {
		findings = append(findings, newFinding("behavioral.clipboard-hijack", "Clipboard event interception", scanmodel.SeverityHigh, 15,
			"Page intercepts clipboard copy events, a pattern used to swap copied crypto addresses", nil))
	}

	if strings.Contains(body, "oncontextmenu=\"return false\"") {
		findings = append(findings, newFinding("behavioral.right-click-block", "Right-click blocked", scanmodel.SeverityLow, 5,
			"Page disables the context menu, often to hinder inspection", nil))
	}

	if strings.Contains(body, "devtoolsdetector") || strings.Contains(body, "debugger;") && strings.Contains(body, "setinterval") {
		findings = append(findings, newFinding("behavioral.devtools-block", "Anti-debugging pattern", scanmodel.SeverityMedium, 10,
			"Page contains a devtools-detection or debugger-loop anti-inspection pattern", nil))
	}

	if strings.Contains(body, "onkeydown") && strings.Contains(body, "xmlhttprequest") {
		findings = append(findings, newFinding("behavioral.keylogger", "Keystroke exfiltration pattern", scanmodel.SeverityCritical, 20,
			"Page wires keydown handlers alongside an outbound XHR, consistent with keylogging", nil))
	}

	return findings
}
