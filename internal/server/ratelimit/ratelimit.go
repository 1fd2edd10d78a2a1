// Package ratelimit throttles requests per client and endpoint tier using
// token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Info describes the bucket a request was charged against.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// bucket pairs a token bucket with the tier limit it reports.
type bucket struct {
	limiter *rate.Limiter
	limit   int
}

func newBucket(cfg *EndpointConfig) *bucket {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Limit
	}
	perSecond := rate.Limit(float64(cfg.Limit) / window.Seconds())
	return &bucket{limiter: rate.NewLimiter(perSecond, burst), limit: cfg.Limit}
}

// take spends one token if available.
func (b *bucket) take(now time.Time) Info {
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	perSecond := float64(b.limiter.Limit())

	info := Info{
		Allowed:   allowed,
		Limit:     b.limit,
		Remaining: max(int(tokens), 0),
		ResetTime: now,
	}
	if perSecond <= 0 {
		return info
	}
	if missing := float64(b.limiter.Burst()) - tokens; missing > 0 {
		info.ResetTime = now.Add(seconds(missing / perSecond))
	}
	if !allowed {
		info.RetryAfter = seconds((1 - tokens) / perSecond)
	}
	return info
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Limiter tracks one bucket per client and endpoint tier. Idle buckets expire
// and the total is capped.
type Limiter struct {
	config  *Config
	mu      sync.Mutex
	buckets *expirable.LRU[string, *bucket]
}

// NewLimiter builds a limiter. A nil config enables the default limit only.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{Enabled: true, DefaultLimit: DefaultLimit, DefaultWindow: DefaultWindow}
	}
	ttl := config.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	size := config.MaxBuckets
	if size <= 0 {
		size = DefaultMaxBuckets
	}

	return &Limiter{
		config:  config,
		buckets: expirable.NewLRU[string, *bucket](size, nil, ttl),
	}
}

// Allow charges one request from clientID against the tier matching
// endpoint and method.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	tier := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if tier == nil {
		tier = &EndpointConfig{Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if tier.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	info := l.bucket(clientID+":"+tier.key(), tier).take(time.Now())
	return info.Allowed, info
}

// bucket returns the bucket for key, creating it on first use. Re-adding on
// every access restarts the idle TTL.
func (l *Limiter) bucket(key string, tier *EndpointConfig) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets.Get(key)
	if !ok {
		b = newBucket(tier)
	}
	l.buckets.Add(key, b)
	return b
}

// Len reports how many buckets are tracked.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

// Stop drops all buckets.
func (l *Limiter) Stop() {
	l.buckets.Purge()
}
