package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/filmfinder/internal/config"
)

// DefaultCleanupInterval is how often idle buckets are swept.
const DefaultCleanupInterval = 5 * time.Minute

// EndpointConfig is the limit for one route. Paths ending in "/" match by
// prefix.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per window
	Window time.Duration
	Burst  int // defaults to Limit when 0
}

// FromConfig converts the ratelimit section of the application config.
func FromConfig(c config.RateLimitConfig) *Config {
	if !c.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    c.DefaultLimit,
		DefaultWindow:   c.DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		Whitelist:       ipSet(c.Whitelist),
		Blacklist:       ipSet(c.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(c.SearchLimit, c.SearchWindow),
	}
}

// DefaultEndpointConfigs returns the per-route limits. Searches fan out to
// both upstream sites, so they share the stricter search budget.
func DefaultEndpointConfigs(searchLimit int, searchWindow time.Duration) []EndpointConfig {
	burst := max(searchLimit/5, 1)
	return []EndpointConfig{
		{Path: "/search", Method: "POST", Limit: searchLimit, Window: searchWindow, Burst: burst},
		{Path: "/search", Method: "GET", Limit: searchLimit, Window: searchWindow, Burst: burst},
		{Path: "/search/stream", Method: "POST", Limit: searchLimit, Window: searchWindow, Burst: burst},
		{Path: "/films/", Method: "GET", Limit: searchLimit * 2, Window: searchWindow, Burst: burst * 2},
	}
}

func ipSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, entry := range list {
		// env overrides arrive as one comma separated value
		for _, ip := range strings.Split(entry, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				result[ip] = true
			}
		}
	}
	return result
}
