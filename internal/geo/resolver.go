package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"custos/internal/geo/metrics"
	"custos/internal/geo/tracer"
	"custos/internal/sentinel"
)

//go:generate mockgen -source=resolver.go -destination=mocks/mocks.go -package=mocks Doer

// Doer issues HTTP requests. *http.Client satisfies it; tests substitute a
// mock to assert that no network I/O happens on short-circuit paths.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultCacheTTL    = time.Hour
	defaultRateLimit   = 5
	defaultRateWindow  = 60 * time.Second
	defaultHTTPTimeout = 5 * time.Second

	cacheKey = "custos_geo_cache"

	maxLookupBody = 64 * 1024
)

// Config carries resolver parameters. All fields are explicit so behavior is
// deterministic and testable in isolation; there is no package-level state.
type Config struct {
	// PrimaryEndpoint and SecondaryEndpoint are HTTPS lookup services tried
	// in order; the first well-formed response wins.
	PrimaryEndpoint   string
	SecondaryEndpoint string

	CacheTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration

	Fallback FallbackStrategy
	// DefaultCountry/DefaultRegion feed the "region" fallback strategy.
	DefaultCountry string
	DefaultRegion  string

	// Manual, when set, wins unconditionally and suppresses all lookups.
	Manual *Manual
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = defaultRateWindow
	}
	if c.Fallback == "" {
		c.Fallback = FallbackNone
	}
	return c
}

// Resolver determines a visitor's region. Safe for concurrent use.
type Resolver struct {
	cfg     Config
	client  Doer
	limiter *slidingWindowLimiter
	cache   SessionKV
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
	sf      singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient substitutes the HTTP client used for remote lookups.
func WithClient(client Doer) Option {
	return func(r *Resolver) { r.client = client }
}

// WithTracer sets the tracer for remote lookup spans.
func WithTracer(t tracer.Tracer) Option {
	return func(r *Resolver) { r.tracer = t }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver constructs a Resolver. kv is the session-scoped surface shared
// by the lookup cache and the rate limiter window; it may be nil, which
// disables persistence of both (they stay in-memory only).
func NewResolver(cfg Config, kv SessionKV, logger *slog.Logger, opts ...Option) *Resolver {
	cfg = cfg.withDefaults()
	r := &Resolver{
		cfg:     cfg,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		limiter: newSlidingWindowLimiter(cfg.RateLimit, cfg.RateWindow, kv),
		cache:   kv,
		tracer:  tracer.NewNoop(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve determines the visitor's location from, in priority order: the
// manual override, edge network header hints, a cached prior result, and the
// remote lookup services. Returns nil when every signal fails; the caller
// decides whether to apply a fallback (see ResolveWithFallback).
func (r *Resolver) Resolve(ctx context.Context, headers http.Header) *Result {
	ctx, span := r.tracer.Start(ctx, tracer.SpanResolve)
	var result *Result
	defer func() {
		if result != nil {
			span.SetAttributes(
				tracer.String(tracer.AttrSource, string(result.Source)),
				tracer.String(tracer.AttrCountry, result.Country),
			)
		}
		span.End(nil)
	}()

	if m := r.cfg.Manual; m != nil {
		result = &Result{
			Country: strings.ToUpper(m.Country),
			Region:  strings.ToUpper(m.Region),
			Source:  SourceManual,
		}
		r.countResolution(result)
		return result
	}

	if result = fromHeaders(headers); result != nil {
		r.cacheResult(ctx, result)
		r.countResolution(result)
		return result
	}

	if result = r.fromCache(ctx); result != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		r.countResolution(result)
		return result
	}

	if !r.limiter.Allow(ctx) {
		span.SetAttributes(tracer.Bool(tracer.AttrRateLimited, true))
		if r.metrics != nil {
			r.metrics.RateLimitHits.Inc()
		}
		r.logger.Info("geo lookup rate limited, skipping remote resolution")
		return nil
	}

	result = r.remoteLookup(ctx)
	if result != nil {
		r.cacheResult(ctx, result)
		r.countResolution(result)
	}
	return result
}

// ResolveWithFallback resolves and, on total failure, applies the configured
// fallback strategy. The second return value is false only when resolution
// failed and the strategy is FallbackNone.
func (r *Resolver) ResolveWithFallback(ctx context.Context, headers http.Header) (*Result, bool) {
	if result := r.Resolve(ctx, headers); result != nil {
		return result, true
	}
	result := r.applyFallback(ReasonAllSignalsFailed)
	if result == nil {
		return nil, false
	}
	if r.metrics != nil {
		r.metrics.IncrementFallback(string(r.cfg.Fallback))
	}
	return result, true
}

// applyFallback builds the deterministic substitute result for the configured
// strategy, or nil for FallbackNone.
func (r *Resolver) applyFallback(reason string) *Result {
	switch r.cfg.Fallback {
	case FallbackStrictest:
		// Reserved marker resolved to the most protective regime downstream.
		return &Result{Country: "EU", Source: SourceFallback, FallbackUsed: true, FallbackReason: reason}
	case FallbackPermissive:
		return &Result{Source: SourceFallback, FallbackUsed: true, FallbackReason: reason}
	case FallbackRegion:
		return &Result{
			Country:        strings.ToUpper(r.cfg.DefaultCountry),
			Region:         strings.ToUpper(r.cfg.DefaultRegion),
			Source:         SourceFallback,
			FallbackUsed:   true,
			FallbackReason: reason,
		}
	case FallbackShowWarning:
		return &Result{Source: SourceFallback, FallbackUsed: true, FallbackReason: reason, ShowWarning: true}
	default:
		return nil
	}
}

func (r *Resolver) countResolution(result *Result) {
	if r.metrics != nil {
		r.metrics.IncrementResolution(string(result.Source))
	}
}

// cachedResult is the persisted cache envelope.
type cachedResult struct {
	Result   Result    `json:"result"`
	StoredAt time.Time `json:"storedAt"`
}

func (r *Resolver) fromCache(ctx context.Context) *Result {
	if r.cache == nil {
		return nil
	}
	raw, err := r.cache.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.Warn("geo cache read failed", "error", err)
		}
		return nil
	}
	var cached cachedResult
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil
	}
	if time.Since(cached.StoredAt) > r.cfg.CacheTTL {
		return nil
	}
	if !countryCodePattern.MatchString(cached.Result.Country) {
		return nil
	}
	result := cached.Result
	result.Source = SourceCache
	return &result
}

func (r *Resolver) cacheResult(ctx context.Context, result *Result) {
	if r.cache == nil || result.Country == "" {
		return
	}
	raw, err := json.Marshal(cachedResult{Result: *result, StoredAt: time.Now()})
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey, string(raw)); err != nil {
		r.logger.Warn("geo cache write failed", "error", err)
	}
}

// remoteLookup tries the primary then the secondary endpoint; the first
// well-formed response wins. Concurrent callers share one in-flight lookup.
func (r *Resolver) remoteLookup(ctx context.Context) *Result {
	v, err, _ := r.sf.Do("lookup", func() (any, error) {
		endpoints := []struct{ role, url string }{
			{"primary", r.cfg.PrimaryEndpoint},
			{"secondary", r.cfg.SecondaryEndpoint},
		}
		for _, ep := range endpoints {
			if ep.url == "" {
				continue
			}
			result, err := r.lookupEndpoint(ctx, ep.role, ep.url)
			if err != nil {
				r.logger.Warn("geo lookup attempt failed", "endpoint", ep.role, "error", err)
				continue
			}
			return result, nil
		}
		return nil, fmt.Errorf("all lookup endpoints failed")
	})
	if err != nil {
		return nil
	}
	return v.(*Result)
}

func (r *Resolver) lookupEndpoint(ctx context.Context, role, url string) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanRemoteLookup, tracer.String(tracer.AttrEndpoint, role))
	var err error
	defer func() { span.End(err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.countLookup(role, "network_error")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.countLookup(role, "bad_status")
		err = fmt.Errorf("lookup returned status %d", resp.StatusCode)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		r.countLookup(role, "read_error")
		return nil, err
	}

	result, err := parseLookupBody(body)
	if err != nil {
		r.countLookup(role, "malformed")
		return nil, err
	}
	r.countLookup(role, "ok")
	return result, nil
}

func (r *Resolver) countLookup(endpoint, outcome string) {
	if r.metrics != nil {
		r.metrics.IncrementRemoteLookup(endpoint, outcome)
	}
}

// lookupBody covers the two accepted response shapes: a country-code field
// with an optional human-readable region name, or a simpler country-only
// field. Anything else is a failed attempt.
type lookupBody struct {
	CountryCode string `json:"country_code"`
	Country     string `json:"country"`
	RegionCode  string `json:"region_code"`
	RegionName  string `json:"region_name"`
}

func parseLookupBody(body []byte) (*Result, error) {
	var parsed lookupBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unparseable lookup body: %w", err)
	}

	country := strings.ToUpper(strings.TrimSpace(parsed.CountryCode))
	if country == "" {
		country = strings.ToUpper(strings.TrimSpace(parsed.Country))
	}
	if !countryCodePattern.MatchString(country) {
		return nil, fmt.Errorf("lookup body carries no usable country code")
	}

	result := &Result{Country: country, Source: SourceAPI}
	region := strings.ToUpper(strings.TrimSpace(parsed.RegionCode))
	if regionCodePattern.MatchString(region) {
		result.Region = region
	} else if code, ok := regionNameToCode[strings.ToLower(strings.TrimSpace(parsed.RegionName))]; ok {
		result.Region = code
	}
	return result, nil
}

// regionNameToCode maps the human-readable region names returned by lookup
// services to subdivision codes, for the subdivisions that carry their own
// privacy law.
var regionNameToCode = map[string]string{
	"california":    "CA",
	"virginia":      "VA",
	"colorado":      "CO",
	"connecticut":   "CT",
	"utah":          "UT",
	"texas":         "TX",
	"oregon":        "OR",
	"montana":       "MT",
	"delaware":      "DE",
	"iowa":          "IA",
	"nebraska":      "NE",
	"new hampshire": "NH",
	"new jersey":    "NJ",
	"minnesota":     "MN",
	"tennessee":     "TN",
	"indiana":       "IN",
	"kentucky":      "KY",
	"maryland":      "MD",
	"rhode island":  "RI",
	"florida":       "FL",
	"quebec":        "QC",
	"québec":        "QC",
}
