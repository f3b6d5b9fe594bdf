// Package config loads server configuration from the environment and the
// site's consent configuration from a YAML file, so main stays lean.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"custos/internal/consent/models"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string

	// RedisAddr enables the durable consent backend when non-empty.
	RedisAddr string

	// ReceiptSecret signs consent receipts. The development default must be
	// overridden in production.
	ReceiptSecret string
	ReceiptTTL    time.Duration

	// SessionTTL bounds how long an idle visitor session is kept in memory.
	SessionTTL time.Duration

	SitePath string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:        getEnv("CUSTOS_ADDR", ":8080"),
		Environment: getEnv("CUSTOS_ENV", "development"),
		RedisAddr:   os.Getenv("CUSTOS_REDIS_ADDR"),
		ReceiptTTL:  getDuration("CUSTOS_RECEIPT_TTL", 90*24*time.Hour),
		SessionTTL:  getDuration("CUSTOS_SESSION_TTL", 30*time.Minute),
		SitePath:    getEnv("CUSTOS_SITE_CONFIG", "site.yaml"),
	}
	cfg.ReceiptSecret = os.Getenv("CUSTOS_RECEIPT_SECRET")
	if cfg.ReceiptSecret == "" {
		// Development fallback, never for production.
		cfg.ReceiptSecret = "dev-secret-change-in-production"
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// Duration parses human-readable durations ("60s", "1h") from YAML scalars.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Site is the operator-authored consent configuration.
type Site struct {
	// Categories lists the non-necessary purpose buckets shown to visitors.
	Categories []string         `yaml:"categories"`
	Services   []models.Service `yaml:"services"`

	Versioning struct {
		// Mode is "auto" (fingerprint the service set) or "manual".
		Mode    string `yaml:"mode"`
		Version string `yaml:"version"`
	} `yaml:"versioning"`

	Geo struct {
		PrimaryEndpoint   string `yaml:"primaryEndpoint"`
		SecondaryEndpoint string `yaml:"secondaryEndpoint"`
		Fallback          string `yaml:"fallback"`
		DefaultCountry    string `yaml:"defaultCountry"`
		DefaultRegion     string `yaml:"defaultRegion"`
		RateLimit         int      `yaml:"rateLimit"`
		RateWindow        Duration `yaml:"rateWindow"`
		CacheTTL          Duration `yaml:"cacheTTL"`
		ManualCountry     string   `yaml:"manualCountry"`
		ManualRegion      string   `yaml:"manualRegion"`
	} `yaml:"geo"`

	// Reconsent, when present, replaces the jurisdiction defaults wholesale.
	Reconsent *struct {
		MaxAgeDays     int  `yaml:"maxAgeDays"`
		OnPolicyChange bool `yaml:"onPolicyChange"`
		OnNewCategory  bool `yaml:"onNewCategory"`
	} `yaml:"reconsent"`

	Storage struct {
		// Backends selects the storage surfaces in write order. Valid values
		// are "memory" and "redis"; empty defaults to memory, plus redis when
		// a redis address is configured.
		Backends []string `yaml:"backends"`
		// Key overrides the entry name used on every backend.
		Key string `yaml:"key"`
	} `yaml:"storage"`

	Signals struct {
		RespectDNT bool `yaml:"respectDnt"`
		RespectGPC bool `yaml:"respectGpc"`
	} `yaml:"signals"`

	Preview bool `yaml:"preview"`
}

// LoadSite reads and validates the site configuration file.
func LoadSite(path string) (*Site, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site config: %w", err)
	}
	return ParseSite(raw)
}

// ParseSite decodes and validates site configuration bytes.
func ParseSite(raw []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("parsing site config: %w", err)
	}
	if err := site.validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Site) validate() error {
	known := make(map[models.Category]bool, len(s.Categories))
	for _, c := range s.Categories {
		category := models.Category(c)
		if !category.IsValid() {
			return fmt.Errorf("unknown category %q in site config", c)
		}
		known[category] = true
	}
	known[models.CategoryNecessary] = true
	for _, svc := range s.Services {
		if svc.ID == "" {
			return fmt.Errorf("service with empty id in site config")
		}
		if !known[svc.Category] {
			return fmt.Errorf("service %q references unlisted category %q", svc.ID, svc.Category)
		}
	}
	for _, b := range s.Storage.Backends {
		if b != "memory" && b != "redis" {
			return fmt.Errorf("unknown storage backend %q", b)
		}
	}
	if mode := s.Versioning.Mode; mode != "" && mode != "auto" && mode != "manual" {
		return fmt.Errorf("unknown versioning mode %q", mode)
	}
	if s.Versioning.Mode == "manual" && s.Versioning.Version == "" {
		return fmt.Errorf("manual versioning requires an explicit version")
	}
	return nil
}

// CategoryList converts the configured category names to domain values.
func (s *Site) CategoryList() []models.Category {
	out := make([]models.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		out = append(out, models.Category(c))
	}
	return out
}
