package categories

import (
	"context"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// MalwareDetection scores drive-by-download and exploit-kit tells in
// the captured body: auto-download triggers, known exploit-kit
// fingerprints, and suspicious executable links.
type MalwareDetection struct {
	maxWeight float64
}

func NewMalwareDetection(maxWeight float64) *MalwareDetection {
	return &MalwareDetection{maxWeight: maxWeight}
}

func (m *MalwareDetection) ID() string         { return "malwareDetection" }
func (m *MalwareDetection) Name() string       { return "Malware Detection" }
func (m *MalwareDetection) MaxWeight() float64 { return m.maxWeight }

func (m *MalwareDetection) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(m.ID(), pipeline) && state == scanmodel.StateOnline
}

var executableExtensions = []string{".exe", ".scr", ".bat", ".msi", ".apk", ".jar", ".dmg"}
var exploitKitMarkers = []string{"nuclear exploit kit", "angler exploit kit", "rig exploit kit", "blackhole exploit kit"}

func (m *MalwareDetection) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding
	body := bodyText(sc)

	if match, ok := containsAny(body, exploitKitMarkers); ok {
		findings = append(findings, newFinding("malware.exploit-kit", "Known exploit-kit fingerprint", scanmodel.SeverityCritical, 30,
			"Content fingerprint matches a known exploit kit: "+match, match))
	}

	if strings.Contains(body, "window.location") && strings.Contains(body, ".exe") {
		findings = append(findings, newFinding("malware.auto-download", "Automatic redirect to executable download", scanmodel.SeverityCritical, 25,
			"Page contains a script-driven redirect toward an executable file", nil))
	}

	for _, ext := range executableExtensions {
		if strings.Contains(body, ext+"\"") {
			findings = append(findings, newFinding("malware.executable-link", "Direct link to an executable file type", scanmodel.SeverityMedium, 10,
				"Page links directly to a file with extension "+ext, ext))
			break
		}
	}

	if strings.Contains(body, "drive-by") || strings.Contains(body, "payload.php") {
		findings = append(findings, newFinding("malware.drive-by-marker", "Drive-by-download marker string", scanmodel.SeverityHigh, 15,
			"Content contains a string commonly associated with drive-by payload delivery", nil))
	}

	return findings
}
