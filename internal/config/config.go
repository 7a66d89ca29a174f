// Package config loads and validates the engine's runtime configuration:
// category/check weights, risk-band thresholds, AI model records, TI
// source tiers/endpoints, cache TTLs, probe budgets, and circuit-breaker
// settings. Loading follows CrlsMrls-dummybox/config's shape: viper
// defaults, pflag overrides, env-prefix binding, optional config file,
// then Unmarshal + Validate.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CategoryWeight is the configured max-weight budget for one of the 17
// category analyzers.
type CategoryWeight struct {
	ID        string  `mapstructure:"id"`
	MaxWeight float64 `mapstructure:"max-weight"`
}

// AIModelRecord describes one enabled AI consensus model.
type AIModelRecord struct {
	Provider      string        `mapstructure:"provider"` // "anthropic" | "bedrock" | "local"
	ModelID       string        `mapstructure:"model-id"`
	Weight        float64       `mapstructure:"weight"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Endpoint      string        `mapstructure:"endpoint,omitempty"`
	EncryptedKey  string        `mapstructure:"encrypted-key,omitempty"`
	EnvKeyFallback string       `mapstructure:"env-key-fallback,omitempty"`
	Enabled       bool          `mapstructure:"enabled"`
}

// TISourceRecord describes one of the 11 threat-intelligence sources.
type TISourceRecord struct {
	Name           string        `mapstructure:"name"`
	Tier           int           `mapstructure:"tier"` // 1, 2, or 3
	Endpoint       string        `mapstructure:"endpoint"`
	EncryptedKey   string        `mapstructure:"encrypted-key,omitempty"`
	EnvKeyFallback string        `mapstructure:"env-key-fallback,omitempty"`
	Weight         float64       `mapstructure:"weight"`
	Timeout        time.Duration `mapstructure:"timeout"`
	InPreGate      bool          `mapstructure:"in-pre-gate"`
}

// RiskThresholds bands finalScore/activeMaxScore into a RiskLevel.
// Values are percentages in [0, 100], strictly decreasing.
type RiskThresholds struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
	Low      float64 `mapstructure:"low"`
}

// CacheTTLs maps risk level to cache entry lifetime.
type CacheTTLs struct {
	Critical time.Duration `mapstructure:"critical"`
	High     time.Duration `mapstructure:"high"`
	Medium   time.Duration `mapstructure:"medium"`
	Low      time.Duration `mapstructure:"low"`
	Safe     time.Duration `mapstructure:"safe"`
}

// ProbeBudgets bounds each reachability probe step and the pre-gate.
type ProbeBudgets struct {
	DNS           time.Duration `mapstructure:"dns"`
	TCP           time.Duration `mapstructure:"tcp"`
	HTTP          time.Duration `mapstructure:"http"`
	PreGatePer    time.Duration `mapstructure:"pre-gate-per-source"`
	PreGateTotal  time.Duration `mapstructure:"pre-gate-total"`
	Stage0Soft    time.Duration `mapstructure:"stage0-soft"`
	TLSHandshake  time.Duration `mapstructure:"tls-handshake"`
}

// CircuitBreakerSettings configures every per-source/per-model breaker.
type CircuitBreakerSettings struct {
	FailureThreshold uint32        `mapstructure:"failure-threshold"`
	SuccessThreshold uint32        `mapstructure:"success-threshold"`
	OpenCooldown     time.Duration `mapstructure:"open-cooldown"`
}

// AIMultiplierBounds bounds the AI consensus's scaling factor.
type AIMultiplierBounds struct {
	Min      float64 `mapstructure:"min"`
	Max      float64 `mapstructure:"max"`
	Fallback float64 `mapstructure:"fallback"`
}

// Config is the fully loaded, validated engine configuration.
type Config struct {
	LogLevel   string `mapstructure:"log-level"`
	CacheLRUSize int  `mapstructure:"cache-lru-size"`
	RedisAddr  string `mapstructure:"redis-addr"`
	PostgresDSN string `mapstructure:"postgres-dsn"`

	CategoryWeights []CategoryWeight `mapstructure:"category-weights"`
	TIMaxWeight     float64          `mapstructure:"ti-max-weight"`

	RiskThresholds RiskThresholds `mapstructure:"risk-thresholds"`
	CacheTTLs      CacheTTLs      `mapstructure:"cache-ttls"`
	ProbeBudgets   ProbeBudgets   `mapstructure:"probe-budgets"`

	AIModels           []AIModelRecord        `mapstructure:"ai-models"`
	AIMultiplierBounds AIMultiplierBounds     `mapstructure:"ai-multiplier-bounds"`

	TISources       []TISourceRecord       `mapstructure:"ti-sources"`
	CircuitBreaker  CircuitBreakerSettings `mapstructure:"circuit-breaker"`

	TombstoneConsensusMinSources int     `mapstructure:"tombstone-consensus-min-sources"`
	TombstoneConsensusMinConf    float64 `mapstructure:"tombstone-consensus-min-confidence"`

	BrandKeywords    []string `mapstructure:"brand-keywords"`
	ParkingPhrases   []string `mapstructure:"parking-phrases"`
	SinkholePhrases  []string `mapstructure:"sinkhole-phrases"`
	WAFMarkers       []string `mapstructure:"waf-markers"`

	CDNRanges       []string `mapstructure:"cdn-ranges"`
	ResearchRanges  []string `mapstructure:"research-ranges"`
	GovEduTLDs      []string `mapstructure:"gov-edu-tlds"`
}

// Load builds a Config the way CrlsMrls-dummybox/config.New does:
// defaults registered on a fresh viper instance, flags bound over them,
// env vars bound with the URLSCAN_ prefix, then an optional config file
// merged in, then unmarshal and validate.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("urlscan-engine", pflag.ContinueOnError)
	fs.String("log-level", "info", "logging level (debug, info, warn, error)")
	fs.String("config-file", "", "path to a YAML/JSON config file; can also be set via URLSCAN_CONFIG_FILE")
	fs.String("redis-addr", "", "shared KV cache address (empty disables the shared tier)")
	fs.String("postgres-dsn", "", "result/tombstone store DSN")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	v.SetEnvPrefix("URLSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config-file"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the structural invariants the rest of the engine
// relies on (monotone risk bands, non-negative weights and timeouts).
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	ok := false
	for _, l := range validLevels {
		if c.LogLevel == l {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log-level: %s, must be one of %v", c.LogLevel, validLevels)
	}

	rt := c.RiskThresholds
	if !(rt.Critical > rt.High && rt.High > rt.Medium && rt.Medium > rt.Low && rt.Low > 0) {
		return fmt.Errorf("risk-thresholds must be strictly decreasing: critical=%v high=%v medium=%v low=%v",
			rt.Critical, rt.High, rt.Medium, rt.Low)
	}

	if c.AIMultiplierBounds.Min > c.AIMultiplierBounds.Max {
		return fmt.Errorf("ai-multiplier-bounds: min (%v) > max (%v)", c.AIMultiplierBounds.Min, c.AIMultiplierBounds.Max)
	}
	if c.AIMultiplierBounds.Fallback < c.AIMultiplierBounds.Min || c.AIMultiplierBounds.Fallback > c.AIMultiplierBounds.Max {
		return fmt.Errorf("ai-multiplier-bounds: fallback (%v) outside [min, max]", c.AIMultiplierBounds.Fallback)
	}

	for _, w := range c.CategoryWeights {
		if w.MaxWeight < 0 {
			return fmt.Errorf("category %s: negative max-weight %v", w.ID, w.MaxWeight)
		}
	}
	if c.TIMaxWeight < 0 {
		return fmt.Errorf("ti-max-weight must be >= 0")
	}
	return nil
}

// CategoryMaxWeight looks up the configured max weight for a category id.
func (c *Config) CategoryMaxWeight(id string) (float64, bool) {
	for _, w := range c.CategoryWeights {
		if w.ID == id {
			return w.MaxWeight, true
		}
	}
	return 0, false
}
