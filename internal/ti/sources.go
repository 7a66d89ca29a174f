package ti

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// Bit-exact wire protocols for the four pre-gate sources (spec §6).
// Every other TI source follows its own published ingest/query format
// and is wired separately; these four are the ones the specification
// pins down to a literal request/response shape.

const (
	safeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	virusTotalEndpoint   = "https://www.virustotal.com/api/v3/urls/"
	phishTankEndpoint    = "https://checkurl.phishtank.com/checkurl/"
	urlhausEndpoint      = "https://urlhaus-api.abuse.ch/v1/url/"
)

// HTTPClient is the subset of *http.Client the wire queries need, so
// callers can inject a timeout/transport without pulling in net/http
// directly.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type safeBrowsingRequest struct {
	Client     safeBrowsingClient `json:"client"`
	ThreatInfo safeBrowsingThreat `json:"threatInfo"`
}

type safeBrowsingClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type safeBrowsingThreat struct {
	ThreatTypes      []string            `json:"threatTypes"`
	PlatformTypes    []string            `json:"platformTypes"`
	ThreatEntryTypes []string            `json:"threatEntryTypes"`
	ThreatEntries    []safeBrowsingEntry `json:"threatEntries"`
}

type safeBrowsingEntry struct {
	URL string `json:"url"`
}

type safeBrowsingResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// SafeBrowsingQuery queries Google Safe Browsing v4's threatMatches:find.
func SafeBrowsingQuery(client HTTPClient, apiKey string) QueryFunc {
	return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
		start := time.Now()
		body, err := json.Marshal(safeBrowsingRequest{
			Client: safeBrowsingClient{ClientID: "urlscan-engine", ClientVersion: "1.0.0"},
			ThreatInfo: safeBrowsingThreat{
				ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"},
				PlatformTypes:    []string{"ANY_PLATFORM"},
				ThreatEntryTypes: []string{"URL"},
				ThreatEntries:    []safeBrowsingEntry{{URL: targetURL}},
			},
		})
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("safe browsing: encode request", err)
		}

		endpoint := safeBrowsingEndpoint + "?key=" + url.QueryEscape(apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("safe browsing: build request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("safe browsing: request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource(fmt.Sprintf("safe browsing: status %d", resp.StatusCode), nil)
		}

		var parsed safeBrowsingResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("safe browsing: decode response", err)
		}

		verdict := scanmodel.TIVerdictSafe
		details := ""
		confidence := 0.0
		if len(parsed.Matches) > 0 {
			verdict = scanmodel.TIVerdictMalicious
			confidence = 97
			details = fmt.Sprintf("%d threat match(es)", len(parsed.Matches))
		}
		return scanmodel.TISourceResult{
			Source: "google_safe_browsing", Verdict: verdict, Details: details, Confidence: confidence,
			Duration: time.Since(start),
		}, nil
	}
}

type virusTotalResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious int `json:"malicious"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// VirusTotalQuery queries VirusTotal v3's /urls/<id> endpoint, where
// <id> is the raw URL base64 URL-safe encoded with padding stripped.
func VirusTotalQuery(client HTTPClient, apiKey string) QueryFunc {
	return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
		start := time.Now()
		urlID := strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(targetURL)), "=")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, virusTotalEndpoint+urlID, nil)
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("virustotal: build request", err)
		}
		req.Header.Set("x-apikey", apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("virustotal: request failed", err)
		}
		defer resp.Body.Close()

		// VT returns 404 for URLs it has never analyzed — that is a
		// "no opinion" answer, not a transport error.
		if resp.StatusCode == http.StatusNotFound {
			return scanmodel.TISourceResult{
				Source: "virustotal", Verdict: scanmodel.TIVerdictSafe, Details: "not yet analyzed",
				Duration: time.Since(start),
			}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource(fmt.Sprintf("virustotal: status %d", resp.StatusCode), nil)
		}

		var parsed virusTotalResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("virustotal: decode response", err)
		}

		verdict := scanmodel.TIVerdictSafe
		details := ""
		confidence := 0.0
		if parsed.Data.Attributes.LastAnalysisStats.Malicious > 0 {
			verdict = scanmodel.TIVerdictMalicious
			confidence = 95
			details = fmt.Sprintf("%d engine(s) flagged malicious", parsed.Data.Attributes.LastAnalysisStats.Malicious)
		}
		return scanmodel.TISourceResult{
			Source: "virustotal", Verdict: verdict, Details: details, Confidence: confidence,
			Duration: time.Since(start),
		}, nil
	}
}

type phishTankResponse struct {
	Results struct {
		InDatabase bool `json:"in_database"`
		Valid      bool `json:"valid"`
	} `json:"results"`
}

// PhishTankQuery posts to PhishTank's checkurl endpoint.
func PhishTankQuery(client HTTPClient, apiKey string) QueryFunc {
	return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
		start := time.Now()
		form := url.Values{"url": {targetURL}, "format": {"json"}}
		if apiKey != "" {
			form.Set("app_key", apiKey)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, phishTankEndpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("phishtank: build request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("phishtank: request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource(fmt.Sprintf("phishtank: status %d", resp.StatusCode), nil)
		}

		var parsed phishTankResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("phishtank: decode response", err)
		}

		verdict := scanmodel.TIVerdictSafe
		details := ""
		confidence := 0.0
		if parsed.Results.InDatabase && parsed.Results.Valid {
			verdict = scanmodel.TIVerdictMalicious
			confidence = 95
			details = "confirmed phish"
		}
		return scanmodel.TISourceResult{
			Source: "phishtank", Verdict: verdict, Details: details, Confidence: confidence,
			Duration: time.Since(start),
		}, nil
	}
}

type urlhausResponse struct {
	QueryStatus string `json:"query_status"`
	Threat      string `json:"threat"`
}

// URLhausQuery posts to URLhaus's /v1/url/ endpoint.
func URLhausQuery(client HTTPClient) QueryFunc {
	return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
		start := time.Now()
		form := url.Values{"url": {targetURL}}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlhausEndpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("urlhaus: build request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
		if err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("urlhaus: request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource(fmt.Sprintf("urlhaus: status %d", resp.StatusCode), nil)
		}

		var parsed urlhausResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource("urlhaus: decode response", err)
		}

		verdict := scanmodel.TIVerdictSafe
		details := ""
		confidence := 0.0
		if parsed.QueryStatus == "ok" {
			verdict = scanmodel.TIVerdictMalicious
			confidence = 95
			details = parsed.Threat
		}
		return scanmodel.TISourceResult{
			Source: "urlhaus", Verdict: verdict, Details: details, Confidence: confidence,
			Duration: time.Since(start),
		}, nil
	}
}
