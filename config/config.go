package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pricelens/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig              `mapstructure:"server"`
	Log            LogConfig                 `mapstructure:"log"`
	RateLimit      RateLimitConfig           `mapstructure:"ratelimit"`
	Search         SearchConfig              `mapstructure:"search"`
	CandidateCache CandidateCacheConfig      `mapstructure:"candidate_cache"`
	Compare        CompareConfig             `mapstructure:"compare"`
	Retailers      map[string]RetailerConfig `mapstructure:"retailers"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP         int     `mapstructure:"per_ip"` // requests per minute
	UpstreamRPS   float64 `mapstructure:"upstream_rps"`
	UpstreamBurst int     `mapstructure:"upstream_burst"`
}

// SearchConfig holds search orchestration configuration
type SearchConfig struct {
	DefaultLimit         int           `mapstructure:"default_limit"`
	MergeCap             int           `mapstructure:"merge_cap"`
	MaxTerms             int           `mapstructure:"max_terms"`
	TermCacheSize        int           `mapstructure:"term_cache_size"`
	TermCacheTTL         time.Duration `mapstructure:"term_cache_ttl"`
	TermCacheNegativeTTL time.Duration `mapstructure:"term_cache_negative_ttl"`
}

// CandidateCacheConfig holds the per-retailer candidate cache configuration
type CandidateCacheConfig struct {
	MaxEntries  int           `mapstructure:"max_entries"`
	TTL         time.Duration `mapstructure:"ttl"`
	NegativeTTL time.Duration `mapstructure:"negative_ttl"`
}

// CompareConfig holds comparison fan-out configuration
type CompareConfig struct {
	ItemConcurrency int `mapstructure:"item_concurrency"`
	MaxItems        int `mapstructure:"max_items"`
	MaxCost         int `mapstructure:"max_cost"`
}

// RetailerConfig holds one storefront's settings
type RetailerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	Concurrency int    `mapstructure:"concurrency"`
	SHA256Hash  string `mapstructure:"sha256_hash"`
	BindingID   string `mapstructure:"binding_id"`
}

// retailerDefaults are the per-retailer upstream concurrency caps
var retailerDefaults = map[domain.RetailerID]int{
	domain.RetailerCarrefour: 2,
	domain.RetailerDia:       1,
	domain.RetailerJumbo:     2,
	domain.RetailerVea:       2,
}

// LoadEnvFile loads a .env file from the working directory when one exists.
// Variables already present in the environment win.
func LoadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream_rps", 5)
	v.SetDefault("ratelimit.upstream_burst", 10)

	// Search defaults
	v.SetDefault("search.default_limit", 15)
	v.SetDefault("search.merge_cap", 120)
	v.SetDefault("search.max_terms", 3)
	v.SetDefault("search.term_cache_size", 500)
	v.SetDefault("search.term_cache_ttl", "60s")
	v.SetDefault("search.term_cache_negative_ttl", "15s")

	// Candidate cache defaults
	v.SetDefault("candidate_cache.max_entries", 2000)
	v.SetDefault("candidate_cache.ttl", "10m")
	v.SetDefault("candidate_cache.negative_ttl", "90s")

	// Compare defaults
	v.SetDefault("compare.item_concurrency", 3)
	v.SetDefault("compare.max_items", 60)
	v.SetDefault("compare.max_cost", 340)

	// Retailer defaults
	for id, concurrency := range retailerDefaults {
		prefix := "retailers." + string(id)
		v.SetDefault(prefix+".enabled", true)
		v.SetDefault(prefix+".base_url", "")
		v.SetDefault(prefix+".concurrency", concurrency)
		v.SetDefault(prefix+".sha256_hash", "")
		v.SetDefault(prefix+".binding_id", "")
	}
}

// bindLegacyEnv accepts the storefront hash variables used by existing deployments
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("retailers.carrefour.sha256_hash", "PRICELENS_RETAILERS_CARREFOUR_SHA256_HASH", "VTEX_SHA256_HASH")
	_ = v.BindEnv("retailers.vea.sha256_hash", "PRICELENS_RETAILERS_VEA_SHA256_HASH", "VEA_VTEX_SHA256_HASH")
	_ = v.BindEnv("retailers.vea.binding_id", "PRICELENS_RETAILERS_VEA_BINDING_ID", "VTEX_VEA_BINDING_ID")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit.per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	positive := map[string]int{
		"search.default_limit":        config.Search.DefaultLimit,
		"search.merge_cap":            config.Search.MergeCap,
		"search.max_terms":            config.Search.MaxTerms,
		"search.term_cache_size":      config.Search.TermCacheSize,
		"candidate_cache.max_entries": config.CandidateCache.MaxEntries,
		"compare.item_concurrency":    config.Compare.ItemConcurrency,
		"compare.max_items":           config.Compare.MaxItems,
		"compare.max_cost":            config.Compare.MaxCost,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", key, value)
		}
	}

	for name := range config.Retailers {
		if !domain.IsSupportedRetailer(domain.RetailerID(name)) {
			return fmt.Errorf("%w: %s", domain.ErrUnknownRetailer, name)
		}
	}

	if len(config.EnabledRetailers()) == 0 {
		return fmt.Errorf("at least one retailer must be enabled")
	}

	return nil
}

// EnabledRetailers lists enabled retailers in the canonical retailer order
func (c *Config) EnabledRetailers() []domain.RetailerID {
	var out []domain.RetailerID
	for _, id := range domain.SupportedRetailers {
		if rc, ok := c.Retailers[string(id)]; ok && rc.Enabled {
			out = append(out, id)
		}
	}
	return out
}
