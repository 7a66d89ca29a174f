package config

import "github.com/spf13/viper"

// defaultCategoryWeights mirrors the representative weight table from
// the spec (sum of non-TI weights = 535, plus a 55-point TI layer for a
// 590-point total).
var defaultCategoryWeights = []CategoryWeight{
	{ID: "domainAnalysis", MaxWeight: 40},
	{ID: "sslSecurity", MaxWeight: 45},
	{ID: "contentAnalysis", MaxWeight: 40},
	{ID: "phishingPatterns", MaxWeight: 50},
	{ID: "malwareDetection", MaxWeight: 45},
	{ID: "behavioralJS", MaxWeight: 25},
	{ID: "socialEngineering", MaxWeight: 30},
	{ID: "financialFraud", MaxWeight: 25},
	{ID: "identityTheft", MaxWeight: 20},
	{ID: "technicalExploits", MaxWeight: 15},
	{ID: "brandImpersonation", MaxWeight: 20},
	{ID: "trustGraph", MaxWeight: 30},
	{ID: "dataProtection", MaxWeight: 50},
	{ID: "emailSecurity", MaxWeight: 25},
	{ID: "legalCompliance", MaxWeight: 35},
	{ID: "securityHeaders", MaxWeight: 25},
	{ID: "redirectChain", MaxWeight: 15},
}

var defaultTISources = []TISourceRecord{
	{Name: "google_safe_browsing", Tier: 1, Weight: 8, Timeout: durPreGateDefault, InPreGate: true, EnvKeyFallback: "GSB_API_KEY"},
	{Name: "virustotal", Tier: 1, Weight: 8, Timeout: durPreGateDefault, InPreGate: true, EnvKeyFallback: "VIRUSTOTAL_API_KEY"},
	{Name: "phishtank", Tier: 1, Weight: 6, Timeout: durPreGateDefault, InPreGate: true, EnvKeyFallback: "PHISHTANK_API_KEY"},
	{Name: "urlhaus", Tier: 1, Weight: 6, Timeout: durPreGateDefault, InPreGate: true, EnvKeyFallback: "URLHAUS_API_KEY"},
	{Name: "abuseipdb", Tier: 2, Weight: 5, Timeout: durTISourceDefault, EnvKeyFallback: "ABUSEIPDB_API_KEY"},
	{Name: "alienvault_otx", Tier: 2, Weight: 5, Timeout: durTISourceDefault, EnvKeyFallback: "OTX_API_KEY"},
	{Name: "ibm_xforce", Tier: 2, Weight: 5, Timeout: durTISourceDefault, EnvKeyFallback: "XFORCE_API_KEY"},
	{Name: "spamhaus_dbl", Tier: 2, Weight: 4, Timeout: durTISourceDefault},
	{Name: "openphish", Tier: 3, Weight: 3, Timeout: durTISourceDefault},
	{Name: "quad9_categorization", Tier: 3, Weight: 3, Timeout: durTISourceDefault},
	{Name: "local_reputation", Tier: 3, Weight: 2, Timeout: durTISourceDefault},
}

var defaultAIModels = []AIModelRecord{
	{Provider: "anthropic", ModelID: "claude-3-5-sonnet-latest", Weight: 0.4, Timeout: durAIModelDefault, EnvKeyFallback: "ANTHROPIC_API_KEY", Enabled: true},
	{Provider: "bedrock", ModelID: "anthropic.claude-3-haiku-20240307-v1:0", Weight: 0.35, Timeout: durAIModelDefault, Enabled: true},
	{Provider: "local", ModelID: "llama-guard", Weight: 0.25, Timeout: durAIModelDefault, Endpoint: "http://localhost:8080/v1", Enabled: false},
}

var defaultBrandKeywords = []string{
	"paypal", "amazon", "apple", "microsoft", "google", "netflix",
	"bankofamerica", "wellsfargo", "chase", "americanexpress",
	"facebook", "instagram", "coinbase", "binance",
}

var defaultParkingPhrases = []string{
	"this domain is parked", "buy this domain", "domain for sale",
	"this web page is parked", "related searches", "is parked free",
}

var defaultSinkholePhrases = []string{
	"seized", "taken down", "suspended by", "this domain has been seized",
	"has been suspended", "taken down by law enforcement",
}

var defaultWAFMarkers = []string{
	"checking your browser", "cf-ray", "attention required",
	"ddos protection by", "please verify you are a human",
	"just a moment", "captcha",
}

var defaultGovEduTLDs = []string{
	".gov", ".mil", ".edu", ".int", ".gov.uk", ".gouv.fr", ".gob.mx",
	".ac.uk", ".edu.au",
}

// setDefaults registers every default value on v, in the order the
// CrlsMrls-dummybox config.New pattern registers them: simple scalars
// first, structured defaults via viper.Set for nested maps/slices.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("cache-lru-size", 1000)
	v.SetDefault("redis-addr", "")
	v.SetDefault("postgres-dsn", "")

	v.SetDefault("category-weights", defaultCategoryWeights)
	v.SetDefault("ti-max-weight", 55.0)

	v.SetDefault("risk-thresholds", RiskThresholds{Critical: 80, High: 60, Medium: 30, Low: 15})

	v.SetDefault("cache-ttls", CacheTTLs{
		Critical: 5 * minute,
		High:     30 * minute,
		Medium:   1 * hour,
		Low:      4 * hour,
		Safe:     24 * hour,
	})

	v.SetDefault("probe-budgets", ProbeBudgets{
		DNS: 2 * second, TCP: 2 * second, HTTP: 3 * second,
		PreGatePer: durPreGateDefault, PreGateTotal: 2 * second,
		Stage0Soft: 10 * second, TLSHandshake: 3 * second,
	})

	v.SetDefault("ai-models", defaultAIModels)
	v.SetDefault("ai-multiplier-bounds", AIMultiplierBounds{Min: 0.7, Max: 1.3, Fallback: 1.0})

	v.SetDefault("ti-sources", defaultTISources)
	v.SetDefault("circuit-breaker", CircuitBreakerSettings{
		FailureThreshold: 5, SuccessThreshold: 2, OpenCooldown: 30 * second,
	})

	v.SetDefault("tombstone-consensus-min-sources", 5)
	v.SetDefault("tombstone-consensus-min-confidence", 80.0)

	v.SetDefault("brand-keywords", defaultBrandKeywords)
	v.SetDefault("parking-phrases", defaultParkingPhrases)
	v.SetDefault("sinkhole-phrases", defaultSinkholePhrases)
	v.SetDefault("waf-markers", defaultWAFMarkers)

	v.SetDefault("cdn-ranges", []string{})
	v.SetDefault("research-ranges", []string{})
	v.SetDefault("gov-edu-tlds", defaultGovEduTLDs)
}
