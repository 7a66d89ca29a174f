package categories

import (
	"context"
	"strings"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

// SSLSecurity inspects the gathered TLS peer certificate for expiry,
// self-signature, untrusted issuance, weak keys, and hostname mismatch.
type SSLSecurity struct {
	maxWeight  float64
	trustedCAs []string
}

// NewSSLSecurity builds the analyzer. trustedCAs is a lowercased
// substring allowlist checked against the certificate issuer.
func NewSSLSecurity(maxWeight float64, trustedCAs []string) *SSLSecurity {
	return &SSLSecurity{maxWeight: maxWeight, trustedCAs: trustedCAs}
}

func (s *SSLSecurity) ID() string         { return "sslSecurity" }
func (s *SSLSecurity) Name() string       { return "SSL Security" }
func (s *SSLSecurity) MaxWeight() float64 { return s.maxWeight }

func (s *SSLSecurity) ShouldRun(state scanmodel.ReachabilityState, pipeline scanmodel.PipelineType) bool {
	return pipelineAllows(s.ID(), pipeline)
}

func (s *SSLSecurity) Run(ctx context.Context, sc scanmodel.ScanContext) []scanmodel.Finding {
	var findings []scanmodel.Finding

	if sc.URL.Protocol != "https" {
		return findings
	}
	if sc.TLS == nil {
		findings = append(findings, newFinding("ssl.missing", "No TLS certificate observed on an HTTPS target", scanmodel.SeverityHigh, 20,
			"HTTPS target but certificate could not be retrieved", nil))
		return findings
	}
	cert := sc.TLS
	now := time.Now()

	if cert.ValidTo.Before(now) {
		findings = append(findings, newFinding("ssl.expired", "Certificate expired", scanmodel.SeverityCritical, 25,
			"Certificate expired on "+cert.ValidTo.Format(time.RFC3339), cert.ValidTo))
	} else if cert.ValidTo.Sub(now) <= 7*24*time.Hour {
		findings = append(findings, newFinding("ssl.expiring", "Certificate expires within 7 days", scanmodel.SeverityMedium, 10,
			"Certificate expires on "+cert.ValidTo.Format(time.RFC3339), cert.ValidTo))
	}

	if cert.ValidFrom.After(now) {
		findings = append(findings, newFinding("ssl.not-yet-valid", "Certificate not yet valid", scanmodel.SeverityHigh, 15,
			"Certificate validFrom is in the future", cert.ValidFrom))
	}
	if now.Sub(cert.ValidFrom) <= 7*24*time.Hour && cert.ValidFrom.Before(now) {
		findings = append(findings, newFinding("ssl.very-new", "Certificate issued within 7 days", scanmodel.SeverityLow, 5,
			"Certificate is very recently issued", cert.ValidFrom))
	}

	if cert.SelfSigned || cert.Subject == cert.Issuer {
		findings = append(findings, newFinding("ssl.self-signed", "Self-signed certificate", scanmodel.SeverityHigh, 20,
			"Certificate subject equals issuer", cert.Subject))
	} else if len(s.trustedCAs) > 0 {
		issuer := strings.ToLower(cert.Issuer)
		if _, ok := containsAny(issuer, s.trustedCAs); !ok {
			findings = append(findings, newFinding("ssl.untrusted-ca", "Issuer not in trusted CA set", scanmodel.SeverityMedium, 10,
				"Issuer "+cert.Issuer+" is not on the configured trusted list", cert.Issuer))
		}
	}

	if !hostnameMatches(sc.URL.Hostname, cert.SANs) {
		findings = append(findings, newFinding("ssl.hostname-mismatch", "Hostname does not match certificate", scanmodel.SeverityHigh, 20,
			"Hostname "+sc.URL.Hostname+" not found in certificate SAN list", cert.SANs))
	}

	if cert.KeySize > 0 && cert.KeySize < 2048 {
		findings = append(findings, newFinding("ssl.weak-key", "Key size below 2048 bits", scanmodel.SeverityMedium, 10,
			"Key size is too small for current standards", cert.KeySize))
	}

	if strings.Contains(strings.ToLower(cert.SignatureAlgorithm), "sha1") {
		findings = append(findings, newFinding("ssl.sha1-signature", "SHA-1 signature algorithm", scanmodel.SeverityMedium, 10,
			"SHA-1 is deprecated for certificate signatures", cert.SignatureAlgorithm))
	}

	return findings
}

// hostnameMatches supports simple wildcard SANs (*.example.com).
func hostnameMatches(hostname string, sans []string) bool {
	hostname = strings.ToLower(hostname)
	for _, san := range sans {
		san = strings.ToLower(san)
		if san == hostname {
			return true
		}
		if strings.HasPrefix(san, "*.") {
			suffix := san[1:] // ".example.com"
			if strings.HasSuffix(hostname, suffix) && strings.Count(hostname, ".") == strings.Count(san, ".") {
				return true
			}
		}
	}
	return len(sans) == 0 // no SANs captured: treat as "cannot evaluate", not a mismatch
}
