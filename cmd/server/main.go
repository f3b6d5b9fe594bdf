package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	"custos/internal/audit"
	consentmetrics "custos/internal/consent/metrics"
	"custos/internal/consent/orchestrator"
	"custos/internal/consent/receipt"
	"custos/internal/consent/reconsent"
	"custos/internal/consent/store"
	"custos/internal/consent/version"
	"custos/internal/geo"
	geometrics "custos/internal/geo/metrics"
	"custos/internal/platform/config"
	"custos/internal/platform/health"
	"custos/internal/platform/httpserver"
	"custos/internal/platform/logger"
	httptransport "custos/internal/transport/http"
)

// consentTTL bounds durable consent entries; expired entries force reconsent
// anyway, so there is no reason to retain them longer.
const consentTTL = 365 * 24 * time.Hour

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	site, err := config.LoadSite(cfg.SitePath)
	if err != nil {
		log.Warn("site config unavailable, running with necessary-only defaults",
			"path", cfg.SitePath, "error", err)
		site = &config.Site{}
	}

	log.Info("initializing custos",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"services", len(site.Services),
		"preview", site.Preview,
	)

	consentMetrics := consentmetrics.New()
	geoMetrics := geometrics.New()

	healthHandler := health.New(cfg.Environment)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		})
	}

	geoCfg := geo.Config{
		PrimaryEndpoint:   site.Geo.PrimaryEndpoint,
		SecondaryEndpoint: site.Geo.SecondaryEndpoint,
		CacheTTL:          site.Geo.CacheTTL.Std(),
		RateLimit:         site.Geo.RateLimit,
		RateWindow:        site.Geo.RateWindow.Std(),
		Fallback:          geo.FallbackStrategy(site.Geo.Fallback),
		DefaultCountry:    site.Geo.DefaultCountry,
		DefaultRegion:     site.Geo.DefaultRegion,
	}
	if site.Geo.ManualCountry != "" {
		geoCfg.Manual = &geo.Manual{Country: site.Geo.ManualCountry, Region: site.Geo.ManualRegion}
	}

	orchCfg := orchestrator.Config{
		Categories: site.CategoryList(),
		Services:   site.Services,
		Versioning: version.Config{
			Mode:    version.Mode(site.Versioning.Mode),
			Version: site.Versioning.Version,
		},
		Preview:    site.Preview,
		RespectDNT: site.Signals.RespectDNT,
		RespectGPC: site.Signals.RespectGPC,
	}
	if site.Reconsent != nil {
		orchCfg.ReconsentOverrides = &reconsent.Policy{
			MaxAgeDays:     site.Reconsent.MaxAgeDays,
			OnPolicyChange: site.Reconsent.OnPolicyChange,
			OnNewCategory:  site.Reconsent.OnNewCategory,
		}
	}

	memoryBackend := store.NewMemoryBackend("memory")

	selected := site.Storage.Backends
	if len(selected) == 0 {
		selected = []string{"memory"}
		if redisClient != nil {
			selected = append(selected, "redis")
		}
	}
	storageKey := site.Storage.Key
	if storageKey == "" {
		storageKey = store.DefaultKey
	}

	factory := func(visitorID string) (*orchestrator.Orchestrator, *audit.Logger, error) {
		// Each visitor session gets its own KV so the resolver's lookup cache
		// and rate-limit window live exactly as long as the session does.
		sessionKV := store.NewMemoryBackend("session")
		resolver := geo.NewResolver(geoCfg, sessionKV, log, geo.WithMetrics(geoMetrics))

		var st *store.Store
		if !site.Preview {
			var backends []store.Backend
			for _, name := range selected {
				switch name {
				case "memory":
					backends = append(backends, memoryBackend)
				case "redis":
					if redisClient == nil {
						log.Warn("redis backend selected but no redis address configured")
						continue
					}
					backends = append(backends, store.NewRedisBackend(redisClient, consentTTL))
				}
			}
			st = store.New(store.Config{
				Key: storageKey + ":" + visitorID,
			}, backends, visitorID, log)
		}

		trail := audit.NewLogger()
		orch, err := orchestrator.New(orchCfg, resolver, st, log,
			orchestrator.WithAudit(trail),
			orchestrator.WithMetrics(consentMetrics),
		)
		return orch, trail, err
	}

	manager := httptransport.NewManager(factory, cfg.SessionTTL, log,
		httptransport.WithManagerMetrics(consentMetrics))

	issuer, err := receipt.NewIssuer([]byte(cfg.ReceiptSecret), "custos", cfg.ReceiptTTL)
	if err != nil {
		log.Error("receipt issuer init failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(manager, issuer, site.Services, log)
	router := httptransport.NewRouter(handler, healthHandler, log)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go manager.Run(sweepCtx, 5*time.Minute)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
