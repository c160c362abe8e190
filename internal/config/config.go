// Package config loads filmfinder settings from defaults, an optional YAML
// file and FILMFINDER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// FILMFINDER_PIPELINE_MAX_RESULTS.
const EnvPrefix = "FILMFINDER"

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Artwork   ArtworkConfig   `mapstructure:"artwork"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type LogConfig struct {
	Format string `mapstructure:"format"` // text or json
	Debug  bool   `mapstructure:"debug"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type ArtworkConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Enabled    bool          `mapstructure:"enabled"`
	PageDelay  time.Duration `mapstructure:"page_delay"`
	UseBrowser bool          `mapstructure:"use_browser"`
}

type PipelineConfig struct {
	TitleConcurrency   int           `mapstructure:"title_concurrency"`
	ArtworkConcurrency int           `mapstructure:"artwork_concurrency"`
	ItemTimeout        time.Duration `mapstructure:"item_timeout"`
	MaxResults         int           `mapstructure:"max_results"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	SearchLimit   int           `mapstructure:"search_limit"`
	SearchWindow  time.Duration `mapstructure:"search_window"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// Defaults returns every key with its default value.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                  8080,
		"server.debug":                 false,
		"log.format":                   "text",
		"log.debug":                    false,
		"http.timeout":                 15 * time.Second,
		"http.user_agent":              "",
		"catalog.base_url":             "https://www.svenskfilmdatabas.se",
		"catalog.token":                "DCP",
		"artwork.base_url":             "https://www.imdb.com",
		"artwork.enabled":              true,
		"artwork.page_delay":           500 * time.Millisecond,
		"artwork.use_browser":          false,
		"pipeline.title_concurrency":   5,
		"pipeline.artwork_concurrency": 3,
		"pipeline.item_timeout":        45 * time.Second,
		"pipeline.max_results":         6,
		"ratelimit.enabled":            true,
		"ratelimit.default_limit":      300,
		"ratelimit.default_window":     time.Minute,
		"ratelimit.search_limit":       30,
		"ratelimit.search_window":      time.Minute,
		"ratelimit.whitelist":          []string{},
		"ratelimit.blacklist":          []string{},
	}
}

// Load reads the configuration. When cfgFile is empty, filmfinder.yaml is
// looked up in the working directory and in ~/.config/filmfinder; a missing
// file there is not an error. An explicit cfgFile must exist.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("filmfinder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "filmfinder"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks URLs, ports, limits and timeouts.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if err := validateBaseURL("catalog.base_url", c.Catalog.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Catalog.Token) == "" {
		errs = append(errs, errors.New("catalog.token must not be empty"))
	}
	if c.Artwork.Enabled {
		if err := validateBaseURL("artwork.base_url", c.Artwork.BaseURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Artwork.PageDelay < 0 {
		errs = append(errs, errors.New("artwork.page_delay must not be negative"))
	}
	if c.Pipeline.TitleConcurrency <= 0 {
		errs = append(errs, errors.New("pipeline.title_concurrency must be positive"))
	}
	if c.Pipeline.ArtworkConcurrency <= 0 {
		errs = append(errs, errors.New("pipeline.artwork_concurrency must be positive"))
	}
	if c.Pipeline.ItemTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.item_timeout must be positive"))
	}
	if c.Pipeline.MaxResults <= 0 {
		errs = append(errs, errors.New("pipeline.max_results must be positive"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.DefaultLimit <= 0 || c.RateLimit.DefaultWindow <= 0 {
			errs = append(errs, errors.New("ratelimit.default_limit and ratelimit.default_window must be positive"))
		}
		if c.RateLimit.SearchLimit <= 0 || c.RateLimit.SearchWindow <= 0 {
			errs = append(errs, errors.New("ratelimit.search_limit and ratelimit.search_window must be positive"))
		}
	}

	return errors.Join(errs...)
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}
