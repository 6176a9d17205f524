package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Site      SiteConfig      `toml:"site"`
	Browser   BrowserConfig   `toml:"browser"`
	Scraper   ScraperConfig   `toml:"scraper"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Cache     CacheConfig     `toml:"cache"`
	Webhook   WebhookConfig   `toml:"webhook"`
	Log       LogConfig       `toml:"log"`
}

// SiteConfig describes the gazette listing being walked.
type SiteConfig struct {
	// ListingURL is the section III listing page.
	ListingURL string `toml:"listing_url"` // default: "https://dodf.df.gov.br/dodf/jornal/diario?tpSecao=III"

	// Origin qualifies root-relative document links.
	Origin string `toml:"origin"` // default: "https://dodf.df.gov.br"

	// CategorySelector is the <select> holding the publication type.
	CategorySelector string `toml:"category_selector"` // default: "#tpMateria"

	// Category is the visible option text to pick.
	Category string `toml:"category"` // default: "Extrato"

	// NextPageSelector is the pagination control.
	NextPageSelector string `toml:"next_page_selector"` // default: ".page-link.proxima-pagina"

	// ContentSelector optionally scopes document HTML before text
	// extraction. Empty means the whole <body>.
	ContentSelector string `toml:"content_selector"`
}

// BrowserConfig controls the Rod browser instances.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `toml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `toml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `toml:"bin"`

	// Proxy is the proxy URL for all browser and HTTP traffic.
	Proxy string `toml:"proxy"`

	// Stealth injects anti-bot-detection evasions into every page.
	Stealth bool `toml:"stealth"` // default: false

	// WindowWidth and WindowHeight size the viewport.
	WindowWidth  int `toml:"window_width"`  // default: 1920
	WindowHeight int `toml:"window_height"` // default: 1080
}

// ScraperConfig controls waits and fetch behavior.
type ScraperConfig struct {
	// NavigationTimeout is the max time for page.Navigate plus load.
	NavigationTimeout Duration `toml:"navigation_timeout"` // default: 30s

	// ListingReadyTimeout bounds the wait for the category selector.
	ListingReadyTimeout Duration `toml:"listing_ready_timeout"` // default: 15s

	// NextPageTimeout bounds the wait for an interactable next-page control.
	NextPageTimeout Duration `toml:"next_page_timeout"` // default: 10s

	// DocumentTimeout is the per-document deadline.
	DocumentTimeout Duration `toml:"document_timeout"` // default: 45s

	// FetchMode selects how document text is fetched:
	// "browser" (default), "http", or "auto" (http first, then browser).
	FetchMode string `toml:"fetch_mode"`

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `toml:"blocked_resource_types"`
}

// PipelineConfig controls the run orchestration.
type PipelineConfig struct {
	// OutputDir is where spreadsheets are written.
	OutputDir string `toml:"output_dir"` // default: "."

	// DocumentsPerSecond spaces document fetches. Zero disables the limiter.
	DocumentsPerSecond float64 `toml:"documents_per_second"` // default: 0

	// DuplicateThreshold is the SimHash distance at or below which a document
	// is treated as a republication of an earlier one. Negative disables it.
	DuplicateThreshold int `toml:"duplicate_threshold"` // default: -1
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `toml:"host"` // default: "0.0.0.0"
	Port int    `toml:"port"` // default: 8080
	Mode string `toml:"mode"` // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `toml:"enabled"` // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string `toml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"` // default: 5
	Burst             int     `toml:"burst"`               // default: 10
}

// CacheConfig controls the finished-run cache.
type CacheConfig struct {
	MaxEntries int      `toml:"max_entries"` // default: 100
	TTL        Duration `toml:"ttl"`         // default: 1h
}

// WebhookConfig controls run-completion notifications.
type WebhookConfig struct {
	URL    string `toml:"url"`
	Secret string `toml:"secret"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `toml:"level"`  // default: "info"
	Format string `toml:"format"` // "json" or "text"; default: "text"
}

// Duration is a time.Duration that reads and writes "30s"-style strings in TOML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Site: SiteConfig{
			ListingURL:       "https://dodf.df.gov.br/dodf/jornal/diario?tpSecao=III",
			Origin:           "https://dodf.df.gov.br",
			CategorySelector: "#tpMateria",
			Category:         "Extrato",
			NextPageSelector: ".page-link.proxima-pagina",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Scraper: ScraperConfig{
			NavigationTimeout:    Duration(30 * time.Second),
			ListingReadyTimeout:  Duration(15 * time.Second),
			NextPageTimeout:      Duration(10 * time.Second),
			DocumentTimeout:      Duration(45 * time.Second),
			FetchMode:            "browser",
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
		},
		Pipeline: PipelineConfig{
			OutputDir:          ".",
			DuplicateThreshold: -1,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
		Cache: CacheConfig{
			MaxEntries: 100,
			TTL:        Duration(time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// DODF_CONFIG (if any), then DODF_* environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("DODF_CONFIG"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// MergeFile overlays the values present in a TOML file onto cfg.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	slog.Debug("config file loaded", "path", path)
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Scraper.FetchMode {
	case "browser", "http", "auto":
	default:
		return fmt.Errorf("config: unknown fetch mode %q (want browser, http or auto)", c.Scraper.FetchMode)
	}
	if c.Site.ListingURL == "" || c.Site.Origin == "" {
		return fmt.Errorf("config: listing URL and origin are required")
	}
	if c.Pipeline.DocumentsPerSecond < 0 {
		return fmt.Errorf("config: documents per second must not be negative")
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Site.ListingURL = envOr("DODF_LISTING_URL", c.Site.ListingURL)
	c.Site.Origin = strings.TrimRight(envOr("DODF_ORIGIN", c.Site.Origin), "/")
	c.Site.CategorySelector = envOr("DODF_CATEGORY_SELECTOR", c.Site.CategorySelector)
	c.Site.Category = envOr("DODF_CATEGORY", c.Site.Category)
	c.Site.NextPageSelector = envOr("DODF_NEXT_PAGE_SELECTOR", c.Site.NextPageSelector)
	c.Site.ContentSelector = envOr("DODF_CONTENT_SELECTOR", c.Site.ContentSelector)

	c.Browser.Headless = envBoolOr("DODF_HEADLESS", c.Browser.Headless)
	c.Browser.NoSandbox = envBoolOr("DODF_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("DODF_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Proxy = envOr("DODF_PROXY", c.Browser.Proxy)
	c.Browser.Stealth = envBoolOr("DODF_STEALTH", c.Browser.Stealth)
	c.Browser.WindowWidth = envIntOr("DODF_WINDOW_WIDTH", c.Browser.WindowWidth)
	c.Browser.WindowHeight = envIntOr("DODF_WINDOW_HEIGHT", c.Browser.WindowHeight)

	c.Scraper.NavigationTimeout = envDurOr("DODF_NAV_TIMEOUT", c.Scraper.NavigationTimeout)
	c.Scraper.ListingReadyTimeout = envDurOr("DODF_LISTING_TIMEOUT", c.Scraper.ListingReadyTimeout)
	c.Scraper.NextPageTimeout = envDurOr("DODF_NEXT_PAGE_TIMEOUT", c.Scraper.NextPageTimeout)
	c.Scraper.DocumentTimeout = envDurOr("DODF_DOCUMENT_TIMEOUT", c.Scraper.DocumentTimeout)
	c.Scraper.FetchMode = envOr("DODF_FETCH_MODE", c.Scraper.FetchMode)
	c.Scraper.BlockedResourceTypes = envSliceOr("DODF_BLOCKED_RESOURCES", c.Scraper.BlockedResourceTypes)

	c.Pipeline.OutputDir = envOr("DODF_OUTPUT_DIR", c.Pipeline.OutputDir)
	c.Pipeline.DocumentsPerSecond = envFloatOr("DODF_DOCS_PER_SECOND", c.Pipeline.DocumentsPerSecond)
	c.Pipeline.DuplicateThreshold = envIntOr("DODF_DUPLICATE_THRESHOLD", c.Pipeline.DuplicateThreshold)

	c.Server.Host = envOr("DODF_HOST", c.Server.Host)
	c.Server.Port = envIntOr("DODF_PORT", c.Server.Port)
	c.Server.Mode = envOr("DODF_MODE", c.Server.Mode)

	c.Auth.Enabled = envBoolOr("DODF_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("DODF_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("DODF_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("DODF_RATE_BURST", c.RateLimit.Burst)

	c.Cache.MaxEntries = envIntOr("DODF_CACHE_MAX_ENTRIES", c.Cache.MaxEntries)
	c.Cache.TTL = envDurOr("DODF_CACHE_TTL", c.Cache.TTL)

	c.Webhook.URL = envOr("DODF_WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = envOr("DODF_WEBHOOK_SECRET", c.Webhook.Secret)

	c.Log.Level = envOr("DODF_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("DODF_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurOr(key string, fallback Duration) Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return Duration(d)
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
