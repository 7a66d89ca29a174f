package aiconsensus

import (
	"strconv"
	"strings"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

var verdictOrder = []scanmodel.AIVerdict{
	scanmodel.AIVerdictCritical, scanmodel.AIVerdictMalware,
	scanmodel.AIVerdictPhishing, scanmodel.AIVerdictSuspicious, scanmodel.AIVerdictSafe,
}

// extractVerdict scans reply for the first recognized verdict keyword,
// checked in severity order so a reply mentioning multiple ("this is
// not CRITICAL, it's SAFE") resolves consistently to its strongest
// mention rather than whichever word appears first.
func extractVerdict(reply string) scanmodel.AIVerdict {
	upper := strings.ToUpper(reply)
	for _, v := range verdictOrder {
		if strings.Contains(upper, string(v)) {
			return v
		}
	}
	return scanmodel.AIVerdictUnknown
}

// extractNumber finds "<label>: <number>" (or "<label> is <number>")
// for any of labels and returns the first match, 0 if none found.
func extractNumber(reply string, labels []string) float64 {
	lower := strings.ToLower(reply)
	for _, label := range labels {
		idx := strings.Index(lower, label)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(label):]
		if n, ok := firstNumber(rest); ok {
			return n
		}
	}
	return 0
}

func firstNumber(s string) (float64, bool) {
	start := -1
	for i, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && (isDigitOrDot(s[end])) {
		end++
	}
	n, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigitOrDot(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == '-'
}
