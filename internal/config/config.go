package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StrategyGeneric = "generic"
	StrategyTable   = "table"

	// DefaultUserAgent is sent on every outbound fetch; some listing sites reject bot agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Config holds the application configuration loaded from files, environment variables and flags.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	HTTPAddr  string `mapstructure:"http_addr"`
	PublicURL string `mapstructure:"public_url"`

	UserAgent           string        `mapstructure:"user_agent"`
	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	MaxBodyBytes        int64         `mapstructure:"max_body_bytes"`

	DefaultMaxItems    int    `mapstructure:"default_max_items"`
	MaxItemsLimit      int    `mapstructure:"max_items_limit"`
	DefaultStrategy    string `mapstructure:"default_strategy"`
	DescriptionMaxLen  int    `mapstructure:"description_max_len"`
	CacheMaxAgeSeconds int    `mapstructure:"cache_max_age_seconds"`

	ProfilesFile   string `mapstructure:"profiles_file"`
	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and config files. Flags in fs,
// when non-nil, override both; a flag named "http-addr" sets the key "http_addr".
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "khobor-rss")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("max_body_bytes", 5<<20)
	v.SetDefault("default_max_items", 20)
	v.SetDefault("max_items_limit", 200)
	v.SetDefault("default_strategy", StrategyGeneric)
	v.SetDefault("description_max_len", 300)
	v.SetDefault("cache_max_age_seconds", 300)
	v.SetDefault("profiles_file", "")
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %q: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates the loaded values and derives durations.
func (c *Config) normalize() error {
	c.DefaultStrategy = strings.ToLower(strings.TrimSpace(c.DefaultStrategy))
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
	c.UserAgent = strings.TrimSpace(c.UserAgent)

	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max_body_bytes (must be positive)")
	}
	if c.DefaultMaxItems <= 0 {
		return fmt.Errorf("invalid default_max_items (must be positive)")
	}
	if c.MaxItemsLimit < c.DefaultMaxItems {
		return fmt.Errorf("invalid max_items_limit %d (must be >= default_max_items %d)", c.MaxItemsLimit, c.DefaultMaxItems)
	}
	if c.DescriptionMaxLen <= 0 {
		return fmt.Errorf("invalid description_max_len (must be positive)")
	}
	if c.CacheMaxAgeSeconds < 0 {
		return fmt.Errorf("invalid cache_max_age_seconds (must not be negative)")
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	switch c.DefaultStrategy {
	case StrategyGeneric, StrategyTable:
	default:
		return fmt.Errorf("invalid default_strategy %q (expected %s or %s)", c.DefaultStrategy, StrategyGeneric, StrategyTable)
	}

	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid public_url %q (must be an absolute URL)", c.PublicURL)
	}
	return nil
}
