package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	ICD10APIURL     string        `mapstructure:"ICD10_API_URL"`
	NPIAPIURL       string        `mapstructure:"NPI_API_URL"`
	NPIAPIVersion   string        `mapstructure:"NPI_API_VERSION"`
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT"`

	CacheTTL   time.Duration `mapstructure:"CACHE_TTL"`
	RateWindow time.Duration `mapstructure:"RATE_WINDOW"`

	RateLimitICD10       int `mapstructure:"RATE_LIMIT_ICD10"`
	RateLimitCPT         int `mapstructure:"RATE_LIMIT_CPT"`
	RateLimitTerminology int `mapstructure:"RATE_LIMIT_TERMINOLOGY"`
	RateLimitNPI         int `mapstructure:"RATE_LIMIT_NPI"`

	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	WarmQueries []string `mapstructure:"WARM_QUERIES"`
}

var keys = []string{
	"PORT", "ENV", "CORS_ORIGINS",
	"ICD10_API_URL", "NPI_API_URL", "NPI_API_VERSION", "PROVIDER_TIMEOUT",
	"CACHE_TTL", "RATE_WINDOW",
	"RATE_LIMIT_ICD10", "RATE_LIMIT_CPT", "RATE_LIMIT_TERMINOLOGY", "RATE_LIMIT_NPI",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"WARM_QUERIES",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	// The ICD-10 client expects a JSON array of code objects. Public search
	// APIs use other shapes, so the default is a local compatible service.
	v.SetDefault("ICD10_API_URL", "http://localhost:8090/icd10/search")
	v.SetDefault("NPI_API_URL", "https://npiregistry.cms.hhs.gov/api/")
	v.SetDefault("NPI_API_VERSION", "2.1")
	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("RATE_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_ICD10", 100)
	v.SetDefault("RATE_LIMIT_CPT", 50)
	v.SetDefault("RATE_LIMIT_TERMINOLOGY", 50)
	v.SetDefault("RATE_LIMIT_NPI", 30)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("WARM_QUERIES", "")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma lists arrive from the environment as a single string.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.WarmQueries = splitList(v.GetString("WARM_QUERIES"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is usable. Every budget, window and
// timeout must be positive and both registry URLs must be absolute.
func (c *Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"PROVIDER_TIMEOUT": c.ProviderTimeout,
		"CACHE_TTL":        c.CacheTTL,
		"RATE_WINDOW":      c.RateWindow,
		"REQUEST_TIMEOUT":  c.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	for name, n := range map[string]int{
		"RATE_LIMIT_ICD10":       c.RateLimitICD10,
		"RATE_LIMIT_CPT":         c.RateLimitCPT,
		"RATE_LIMIT_TERMINOLOGY": c.RateLimitTerminology,
		"RATE_LIMIT_NPI":         c.RateLimitNPI,
		"RATE_LIMIT_BURST":       c.RateLimitBurst,
	} {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %g", c.RateLimitRPS)
	}

	for name, raw := range map[string]string{
		"ICD10_API_URL": c.ICD10APIURL,
		"NPI_API_URL":   c.NPIAPIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}

	if c.NPIAPIVersion == "" {
		return fmt.Errorf("NPI_API_VERSION is required")
	}
	return nil
}
