package ratelimit

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit      = 1000
	DefaultWindow     = time.Minute
	DefaultIdleTTL    = time.Hour
	DefaultMaxBuckets = 10000
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	IdleTTL         time.Duration // untouched buckets are dropped after this
	MaxBuckets      int           // least recently used buckets go first
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig is one rate limit tier: Limit requests per Window, with
// Burst defaulting to Limit. A Limit of 0 is unlimited. A Path ending in "/"
// matches every path beneath it.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// key names the bucket shared by every request in this tier.
func (c *EndpointConfig) key() string {
	if c.Path == "" {
		return "default"
	}
	return c.Method + " " + c.Path
}

// DefaultEndpointConfigs returns the built-in tiers.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Analysis runs render pages, clone repositories and call the model.
		{Path: "/projects", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/projects/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/projects/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		// Hit by every page view of an embedding site.
		{Path: "/lookup", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/plugin.js", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
	}
}

// LoadConfig reads RATE_LIMIT_* variables. Unparseable values are logged and
// replaced by the default.
func LoadConfig() *Config {
	env := envReader(os.LookupEnv)
	if !env.getBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.getInt("RATE_LIMIT_DEFAULT_LIMIT", DefaultLimit),
		DefaultWindow:   env.getDuration("RATE_LIMIT_DEFAULT_WINDOW", DefaultWindow),
		IdleTTL:         env.getDuration("RATE_LIMIT_IDLE_TTL", DefaultIdleTTL),
		MaxBuckets:      env.getInt("RATE_LIMIT_MAX_BUCKETS", DefaultMaxBuckets),
		Whitelist:       parseIPList(env.get("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(env.get("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

type envReader func(key string) (string, bool)

func (e envReader) get(key string) string {
	v, _ := e(key)
	return strings.TrimSpace(v)
}

func (e envReader) getInt(key string, def int) int {
	return parseOr(e, key, def, strconv.Atoi)
}

func (e envReader) getBool(key string, def bool) bool {
	return parseOr(e, key, def, strconv.ParseBool)
}

func (e envReader) getDuration(key string, def time.Duration) time.Duration {
	return parseOr(e, key, def, time.ParseDuration)
}

func parseOr[T any](e envReader, key string, def T, parse func(string) (T, error)) T {
	raw := e.get(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		log.Printf("[RATELIMIT] ignoring %s=%q: %v", key, raw, err)
		return def
	}
	return v
}

// parseIPList parses a comma-separated list of client addresses.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
