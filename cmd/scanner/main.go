package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/fathomsec/urlscan-engine/internal/aiconsensus"
	"github.com/fathomsec/urlscan-engine/internal/api"
	"github.com/fathomsec/urlscan-engine/internal/breaker"
	"github.com/fathomsec/urlscan-engine/internal/cache"
	"github.com/fathomsec/urlscan-engine/internal/categories"
	"github.com/fathomsec/urlscan-engine/internal/config"
	"github.com/fathomsec/urlscan-engine/internal/events"
	"github.com/fathomsec/urlscan-engine/internal/fprebalance"
	"github.com/fathomsec/urlscan-engine/internal/gather"
	"github.com/fathomsec/urlscan-engine/internal/logging"
	"github.com/fathomsec/urlscan-engine/internal/orchestrator"
	"github.com/fathomsec/urlscan-engine/internal/reachability"
	"github.com/fathomsec/urlscan-engine/internal/resultstore"
	"github.com/fathomsec/urlscan-engine/internal/scanerr"
	"github.com/fathomsec/urlscan-engine/internal/secrets"
	"github.com/fathomsec/urlscan-engine/internal/ti"
	"github.com/fathomsec/urlscan-engine/internal/tigate"
	"github.com/fathomsec/urlscan-engine/internal/tombstone"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		panic("FATAL: invalid configuration: " + err.Error())
	}

	logging.Init(cfg.LogLevel, os.Stdout)
	log := logging.FromContext(context.Background())
	log.Info().Msg("starting urlscan-engine")

	secretsProvider := secrets.NewProvider(masterKeyFromEnv())

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	} else {
		log.Warn().Msg("URLSCAN_REDIS_ADDR unset, running with in-process cache tier only")
	}
	cacheManager := cache.New(cfg.CacheLRUSize, redisClient, cache.TTLTable{
		Critical: cfg.CacheTTLs.Critical, High: cfg.CacheTTLs.High,
		Medium: cfg.CacheTTLs.Medium, Low: cfg.CacheTTLs.Low, Safe: cfg.CacheTTLs.Safe,
	})

	var tombstoneStore *tombstone.Store
	var resultStore *resultstore.Store
	if cfg.PostgresDSN != "" {
		ctx := context.Background()
		if ts, tErr := tombstone.Connect(ctx, cfg.PostgresDSN); tErr != nil {
			log.Warn().Err(tErr).Msg("failed to connect tombstone store, continuing without a persistent tombstone fast path")
		} else {
			tombstoneStore = ts
			if sErr := ts.InitSchema(ctx); sErr != nil {
				log.Warn().Err(sErr).Msg("tombstone schema init failed")
			}
		}
		if rs, rErr := resultstore.Connect(ctx, cfg.PostgresDSN); rErr != nil {
			log.Warn().Err(rErr).Msg("failed to connect result store, scans will not be persisted")
		} else {
			resultStore = rs
			if sErr := rs.InitSchema(ctx); sErr != nil {
				log.Warn().Err(sErr).Msg("result store schema init failed")
			}
		}
	} else {
		log.Warn().Msg("URLSCAN_POSTGRES_DSN unset, running without tombstone/result persistence")
	}

	breakers := breaker.NewManager(gobreaker.Settings{
		Name:        "default",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     cfg.CircuitBreaker.OpenCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CircuitBreaker.FailureThreshold
		},
	})

	preGate := buildPreGate(cfg, secretsProvider, breakers)
	tiLayer := buildTILayer(cfg, secretsProvider, breakers)
	exec := buildCategoryExecutor(cfg)
	consensus := buildAIConsensus(cfg, secretsProvider)
	rebalancer := fprebalance.New(cfg.CDNRanges, cfg.ResearchRanges, cfg.GovEduTLDs)

	prober := reachability.New(reachability.Budgets{
		DNS: cfg.ProbeBudgets.DNS, TCP: cfg.ProbeBudgets.TCP, HTTP: cfg.ProbeBudgets.HTTP,
	}, cfg.ParkingPhrases, cfg.SinkholePhrases, cfg.WAFMarkers, nil)

	gatherer := gather.New(noWHOIS, cfg.ProbeBudgets.DNS, cfg.ProbeBudgets.TLSHandshake)

	hub := events.NewHub()
	go hub.Run()

	orch := orchestrator.New(cfg, cacheManager, tombstoneStore, preGate, prober, gatherer, exec, tiLayer, consensus, rebalancer, resultStore, hub)

	router := setupRouter(orch, hub)

	port := getEnvOrDefault("PORT", "8080")
	log.Info().Str("port", port).Msg("urlscan-engine listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// noWHOIS is a placeholder WHOIS provider: no WHOIS registry client
// exists in the dependency pack, so domain-age/registrar analyzers run
// in "unknown, not evidence" mode until one is wired in.
func noWHOIS(ctx context.Context, domain string) (*scanmodel.WHOISRecord, error) {
	return nil, nil
}

func setupRouter(orch *orchestrator.Orchestrator, hub *events.Hub) *gin.Engine {
	r := gin.Default()

	limiter := api.NewRateLimiter(60, 10)

	r.POST("/scan", api.AuthMiddleware(), limiter.Middleware(), func(c *gin.Context) {
		var req struct {
			URL string `json:"url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := orch.Scan(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/ws", func(c *gin.Context) {
		events.Subscribe(hub, c)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func buildPreGate(cfg *config.Config, secretsProvider *secrets.Provider, breakers *breaker.Manager) *tigate.Gate {
	var sources []tigate.Source
	for _, rec := range cfg.TISources {
		if !rec.InPreGate {
			continue
		}
		rec := rec
		sources = append(sources, tigate.Source{
			Name:    rec.Name,
			Timeout: rec.Timeout,
			Query:   tiQueryFunc(rec, secretsProvider),
		})
	}
	return tigate.New(sources, breakers, cfg.ProbeBudgets.PreGateTotal, 90)
}

func buildTILayer(cfg *config.Config, secretsProvider *secrets.Provider, breakers *breaker.Manager) *ti.Layer {
	var sources []ti.Source
	for _, rec := range cfg.TISources {
		rec := rec
		sources = append(sources, ti.Source{
			Name:    rec.Name,
			Tier:    scanmodel.TISourceTier(rec.Tier),
			Weight:  rec.Weight,
			Timeout: rec.Timeout,
			Query:   tiQueryFunc(rec, secretsProvider),
		})
	}
	return ti.New(sources, breakers, cfg.TIMaxWeight)
}

// tiHTTPClient is the shared client every wire-protocol TI query uses.
var tiHTTPClient = &http.Client{Timeout: 10 * time.Second}

// tiQueryFunc builds a TI source's QueryFunc. The four pre-gate sources
// (google_safe_browsing, virustotal, phishtank, urlhaus) have a bit-exact
// published protocol and get a real net/http implementation in
// internal/ti; any other configured source name has no published
// protocol in this pack and falls back to a neutral "safe" verdict
// after resolving its credential, so a misconfigured/unknown source
// name fails open rather than silently never running.
func tiQueryFunc(rec config.TISourceRecord, secretsProvider *secrets.Provider) func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
	// urlhaus's protocol takes no API key; the other three do.
	if rec.Name == "urlhaus" {
		wired := ti.URLhausQuery(tiHTTPClient)
		return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
			return wired(ctx, targetURL)
		}
	}

	var wireUp func(key string) func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error)
	switch rec.Name {
	case "google_safe_browsing":
		wireUp = func(key string) func(context.Context, string) (scanmodel.TISourceResult, error) {
			return ti.SafeBrowsingQuery(tiHTTPClient, key)
		}
	case "virustotal":
		wireUp = func(key string) func(context.Context, string) (scanmodel.TISourceResult, error) {
			return ti.VirusTotalQuery(tiHTTPClient, key)
		}
	case "phishtank":
		wireUp = func(key string) func(context.Context, string) (scanmodel.TISourceResult, error) {
			return ti.PhishTankQuery(tiHTTPClient, key)
		}
	}

	if wireUp != nil {
		return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
			key, err := secretsProvider.Decrypt(rec.EncryptedKey, rec.EnvKeyFallback)
			if err != nil {
				return scanmodel.TISourceResult{}, scanerr.ExternalSource(rec.Name+": credential unavailable", err)
			}
			return wireUp(key)(ctx, targetURL)
		}
	}

	return func(ctx context.Context, targetURL string) (scanmodel.TISourceResult, error) {
		start := time.Now()
		if _, err := secretsProvider.Decrypt(rec.EncryptedKey, rec.EnvKeyFallback); err != nil {
			return scanmodel.TISourceResult{}, scanerr.ExternalSource(rec.Name+": credential unavailable", err)
		}
		return scanmodel.TISourceResult{
			Source:   rec.Name,
			Tier:     scanmodel.TISourceTier(rec.Tier),
			Verdict:  scanmodel.TIVerdictSafe,
			Duration: time.Since(start),
		}, nil
	}
}

func buildCategoryExecutor(cfg *config.Config) *categories.Executor {
	weight := func(id string, fallback float64) float64 {
		if w, ok := cfg.CategoryMaxWeight(id); ok {
			return w
		}
		return fallback
	}

	analyzers := []categories.Analyzer{
		categories.NewSSLSecurity(weight("sslSecurity", 10), nil),
		categories.NewDomainAnalysis(weight("domainAnalysis", 10), nil, nil),
		categories.NewBrandImpersonation(weight("brandImpersonation", 10), cfg.BrandKeywords),
		categories.NewPhishingPatterns(weight("phishingPatterns", 10), cfg.BrandKeywords),
		categories.NewMalwareDetection(weight("malwareDetection", 10)),
		categories.NewRedirectChain(weight("redirectChain", 5), nil),
		categories.NewSecurityHeaders(weight("securityHeaders", 5)),
		categories.NewEmailSecurity(weight("emailSecurity", 5)),
		categories.NewContentAnalysis(weight("contentAnalysis", 5)),
		categories.NewBehavioralJS(weight("behavioralJS", 5)),
		categories.NewTechnicalExploits(weight("technicalExploits", 5)),
		categories.NewDataProtection(weight("dataProtection", 5)),
		categories.NewIdentityTheft(weight("identityTheft", 5)),
		categories.NewFinancialFraud(weight("financialFraud", 5)),
		categories.NewSocialEngineering(weight("socialEngineering", 5)),
		categories.NewLegalCompliance(weight("legalCompliance", 5)),
		categories.NewTrustGraph(weight("trustGraph", 5), nil),
	}
	return categories.New(analyzers)
}

func buildAIConsensus(cfg *config.Config, secretsProvider *secrets.Provider) *aiconsensus.Engine {
	var models []aiconsensus.Model
	for _, rec := range cfg.AIModels {
		if !rec.Enabled {
			continue
		}
		key, err := secretsProvider.Decrypt(rec.EncryptedKey, rec.EnvKeyFallback)
		if err != nil {
			continue
		}
		switch rec.Provider {
		case "anthropic":
			models = append(models, aiconsensus.NewAnthropicModel(rec.Provider+":"+rec.ModelID, rec.Weight, rec.ModelID, key))
		case "local":
			if m, lErr := aiconsensus.NewLocalModel(rec.Provider+":"+rec.ModelID, rec.Weight, rec.Endpoint, rec.ModelID, key); lErr == nil {
				models = append(models, m)
			}
		// "bedrock" requires an aws-sdk-go-v2 config.LoadDefaultConfig-
		// built client, which in turn needs AWS credentials resolution
		// outside this engine's own secrets model; left for an
		// operator-specific wiring point rather than guessed here.
		default:
		}
	}
	return aiconsensus.New(models, aiconsensus.Bounds{
		Min: cfg.AIMultiplierBounds.Min, Max: cfg.AIMultiplierBounds.Max, Fallback: cfg.AIMultiplierBounds.Fallback,
	})
}

func masterKeyFromEnv() []byte {
	return []byte(getEnvOrDefault("URLSCAN_SECRETS_MASTER_KEY", ""))
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
