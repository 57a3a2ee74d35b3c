// Package config loads and validates the scrape orchestration service's
// runtime configuration from environment variables via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "SCRAPEHUB"

	defaultMissingAPIKey = "your-secret-api-key-here"
)

// Config enumerates every recognized runtime setting (spec.md §6).
type Config struct {
	Host   string
	Port   int
	Domain string
	Debug  bool

	LogLevel string

	PrimaryAPIKey   string
	AdditionalKeys  []string
	EnableJWT       bool
	JWTSecret       string
	AllowedOrigins  []string
	AutoOriginFromDomain bool

	RateLimitPerMinuteKey int
	RateLimitPerMinuteIP  int

	MaxContentLengthMB int

	HeadlessMode   bool
	ScrapeTimeout  time.Duration
	MaxRetries     int
	MaxConcurrency int
	ProxyURLs      []string

	CacheTTL      time.Duration
	CacheMaxItems int

	ReadyCheckProductID string
	ReadyCheckCountry   string
	ReadyCheckInterval  time.Duration

	StrictEnvValidate bool
}

// Finding describes one non-fatal configuration concern surfaced at startup
// (spec.md §6 "A validation pass at startup reports: ...").
type Finding string

const (
	FindingDefaultAPIKey   Finding = "primary API key left at its default value with no fallback keys configured"
	FindingJWTEmptySecret  Finding = "JWT is enabled but JWT_SECRET is empty"
	FindingLowConcurrency  Finding = "MAX_CONCURRENCY must be at least 1"
)

// Load reads configuration from the environment (and any previously bound
// pflags) and returns the decoded Config plus any validation findings.
// In strict mode, a non-empty finding list is returned as an error instead.
func Load(v *viper.Viper) (Config, []Finding, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := Config{
		Host:   v.GetString("host"),
		Port:   v.GetInt("port"),
		Domain: v.GetString("domain"),
		Debug:  v.GetBool("debug"),

		LogLevel: v.GetString("log_level"),

		PrimaryAPIKey:        v.GetString("api_key"),
		AdditionalKeys:       splitNonEmpty(v.GetString("api_keys")),
		EnableJWT:            v.GetBool("enable_jwt"),
		JWTSecret:            v.GetString("jwt_secret"),
		AllowedOrigins:       splitNonEmpty(v.GetString("allowed_origins")),
		AutoOriginFromDomain: v.GetBool("auto_origin_from_domain"),

		RateLimitPerMinuteKey: v.GetInt("rate_limit_per_minute_key"),
		RateLimitPerMinuteIP:  v.GetInt("rate_limit_per_minute_ip"),

		MaxContentLengthMB: v.GetInt("max_content_length_mb"),

		HeadlessMode:   v.GetBool("headless_mode"),
		ScrapeTimeout:  time.Duration(v.GetInt("scrape_timeout_seconds")) * time.Second,
		MaxRetries:     v.GetInt("scrape_max_retries"),
		MaxConcurrency: v.GetInt("max_concurrency"),
		ProxyURLs:      splitNonEmpty(v.GetString("proxy_urls")),

		CacheTTL:      time.Duration(v.GetInt("cache_ttl_seconds")) * time.Second,
		CacheMaxItems: v.GetInt("cache_max_items"),

		ReadyCheckProductID: v.GetString("ready_check_id"),
		ReadyCheckCountry:   v.GetString("ready_check_country"),
		ReadyCheckInterval:  time.Duration(v.GetInt("ready_check_interval_seconds")) * time.Second,

		StrictEnvValidate: v.GetBool("strict_env_validate"),
	}

	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.AutoOriginFromDomain && cfg.Domain != "" && isWildcardOnly(cfg.AllowedOrigins) {
		cfg.AllowedOrigins = originsFromDomain(cfg.Domain)
	}

	findings := validate(cfg)
	if len(findings) > 0 && cfg.StrictEnvValidate {
		messages := make([]string, len(findings))
		for i, f := range findings {
			messages[i] = string(f)
		}
		return cfg, findings, fmt.Errorf("strict config validation failed: %s", strings.Join(messages, "; "))
	}
	return cfg, findings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("domain", "")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")

	v.SetDefault("api_key", defaultMissingAPIKey)
	v.SetDefault("api_keys", "")
	v.SetDefault("enable_jwt", false)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("auto_origin_from_domain", true)

	v.SetDefault("rate_limit_per_minute_key", 60)
	v.SetDefault("rate_limit_per_minute_ip", 120)

	v.SetDefault("max_content_length_mb", 1)

	v.SetDefault("headless_mode", true)
	v.SetDefault("scrape_timeout_seconds", 30)
	v.SetDefault("scrape_max_retries", 2)
	v.SetDefault("max_concurrency", 3)
	v.SetDefault("proxy_urls", "")

	v.SetDefault("cache_ttl_seconds", 300)
	v.SetDefault("cache_max_items", 1000)

	v.SetDefault("ready_check_id", "")
	v.SetDefault("ready_check_country", "US")
	v.SetDefault("ready_check_interval_seconds", 900)

	v.SetDefault("strict_env_validate", false)
}

func validate(cfg Config) []Finding {
	var findings []Finding
	if cfg.PrimaryAPIKey == defaultMissingAPIKey && len(cfg.AdditionalKeys) == 0 {
		findings = append(findings, FindingDefaultAPIKey)
	}
	if cfg.EnableJWT && strings.TrimSpace(cfg.JWTSecret) == "" {
		findings = append(findings, FindingJWTEmptySecret)
	}
	if cfg.MaxConcurrency < 1 {
		findings = append(findings, FindingLowConcurrency)
	}
	return findings
}

// ValidAPIKeys returns the set of credentials accepted by the authenticator:
// the primary key plus every additional key, honoring both simultaneously
// (spec.md Open Question ii, resolved in SPEC_FULL.md).
func (c Config) ValidAPIKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(c.AdditionalKeys)+1)
	keys[c.PrimaryAPIKey] = struct{}{}
	for _, k := range c.AdditionalKeys {
		keys[k] = struct{}{}
	}
	return keys
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isWildcardOnly(origins []string) bool {
	return len(origins) == 1 && origins[0] == "*"
}

func originsFromDomain(domain string) []string {
	root := strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	root = strings.TrimPrefix(root, "api.")
	return []string{domain, "https://" + root, "http://" + root}
}
