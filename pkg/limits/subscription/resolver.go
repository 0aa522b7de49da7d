package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// ExpiredSentinel is the cache value meaning "resolved to no effective
// subscription".
const ExpiredSentinel = "EXPIRED"

// CacheKey returns the subscription cache key for a client id, namespaced
// under the same key prefix as the counter keys (timebucket.KeyPrefix).
func CacheKey(prefix, clientID string) string {
	return prefix + ":sub:cache:" + clientID
}

// Cache is the subset of storage.CounterStore the resolver needs.
type Cache interface {
	GetCache(ctx context.Context, key string) (value string, found bool, err error)
	SetCache(ctx context.Context, key, value string, ttl time.Duration) error
}

// DurableLookup is the subset of storage.DurableStore the resolver needs.
type DurableLookup interface {
	GetClientByID(ctx context.Context, id string) (*plans.Client, error)
	GetPlan(ctx context.Context, id string) (*plans.SubscriptionPlan, error)
}

// Config controls the TTLs the resolver applies to cached entries, mirroring
// config.SubscriptionsConfig.
type Config struct {
	MinCacheTTL      time.Duration
	MaxCacheTTL      time.Duration
	DefaultCacheTTL  time.Duration
	NegativeCacheTTL time.Duration
}

// Resolver resolves a client id to its currently effective
// plan, reading through a negative/positive cache fronting the durable
// store.
type Resolver struct {
	cache     Cache
	durable   DurableLookup
	keyPrefix string
	cfg       Config
	clock     func() time.Time
	onLookup  func(result string)
}

// Cache lookup results reported through OnLookup.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNegative = "negative"
)

// New returns a Resolver backed by cache and durable, using the given TTL
// configuration, key prefix, and the real wall clock.
func New(cache Cache, durable DurableLookup, keyPrefix string, cfg Config) *Resolver {
	return &Resolver{cache: cache, durable: durable, keyPrefix: keyPrefix, cfg: cfg, clock: time.Now}
}

// OnLookup registers a hook invoked with the result of every cache lookup
// (hit, miss, or negative), used to record cache metrics.
func (r *Resolver) OnLookup(fn func(result string)) {
	r.onLookup = fn
}

func (r *Resolver) recordLookup(result string) {
	if r.onLookup != nil {
		r.onLookup(result)
	}
}

// cachedPlan is the JSON envelope stored under the subscription cache key.
type cachedPlan struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	MonthlyLimit  int64      `json:"monthlyLimit"`
	WindowLimit   int64      `json:"windowLimit"`
	WindowSeconds int64      `json:"windowSeconds"`
	Active        bool       `json:"active"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toCached(p *plans.SubscriptionPlan) cachedPlan {
	return cachedPlan{
		ID:            p.ID,
		Name:          p.Name,
		MonthlyLimit:  p.MonthlyLimit,
		WindowLimit:   p.WindowLimit,
		WindowSeconds: p.WindowSeconds,
		Active:        p.Active,
		ExpiresAt:     p.ExpiresAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (c cachedPlan) toPlan() *plans.SubscriptionPlan {
	return &plans.SubscriptionPlan{
		ID:            c.ID,
		Name:          c.Name,
		MonthlyLimit:  c.MonthlyLimit,
		WindowLimit:   c.WindowLimit,
		WindowSeconds: c.WindowSeconds,
		Active:        c.Active,
		ExpiresAt:     c.ExpiresAt,
		CreatedAt:     c.CreatedAt,
	}
}

// Resolve returns the client's currently effective plan, or nil when the
// client has no effective subscription (unknown client, missing plan, or an
// inactive/expired plan). A non-nil error means the durable store could not
// be consulted on a cache miss; callers must map this to 503, never to
// "no subscription".
func (r *Resolver) Resolve(ctx context.Context, clientID string) (*plans.SubscriptionPlan, error) {
	key := CacheKey(r.keyPrefix, clientID)

	if value, found, err := r.cache.GetCache(ctx, key); err == nil && found {
		if value == ExpiredSentinel {
			r.recordLookup(LookupNegative)
			return nil, nil
		}
		var cp cachedPlan
		if err := json.Unmarshal([]byte(value), &cp); err == nil {
			r.recordLookup(LookupHit)
			return cp.toPlan(), nil
		}
		// Fall through to re-resolve on a corrupt cache entry.
	}

	r.recordLookup(LookupMiss)

	client, err := r.durable.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("subscription: lookup client: %w", err)
	}
	if client == nil || !client.Active {
		r.setExpired(ctx, key)
		return nil, nil
	}

	plan, err := r.durable.GetPlan(ctx, client.PlanID)
	if err != nil {
		return nil, fmt.Errorf("subscription: lookup plan: %w", err)
	}
	if plan == nil || !plan.EffectivelyActive(r.clock()) {
		r.setExpired(ctx, key)
		return nil, nil
	}

	r.setPlan(ctx, key, plan)
	return plan, nil
}

func (r *Resolver) setExpired(ctx context.Context, key string) {
	ttl := r.cfg.NegativeCacheTTL
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	_ = r.cache.SetCache(ctx, key, ExpiredSentinel, ttl)
}

func (r *Resolver) setPlan(ctx context.Context, key string, plan *plans.SubscriptionPlan) {
	payload, err := json.Marshal(toCached(plan))
	if err != nil {
		return
	}
	_ = r.cache.SetCache(ctx, key, string(payload), r.cacheTTL(plan))
}

// cacheTTL computes the positive cache TTL: the plan's remaining life
// halved, clamped to the configured floor and ceiling.
func (r *Resolver) cacheTTL(plan *plans.SubscriptionPlan) time.Duration {
	def := r.cfg.DefaultCacheTTL
	if def <= 0 {
		def = 3600 * time.Second
	}
	min := r.cfg.MinCacheTTL
	if min <= 0 {
		min = 60 * time.Second
	}
	max := r.cfg.MaxCacheTTL
	if max <= 0 {
		max = 3600 * time.Second
	}

	if plan.ExpiresAt == nil {
		return def
	}

	remaining := plan.ExpiresAt.Sub(r.clock())
	if remaining <= 0 {
		return 60 * time.Second
	}

	ttl := remaining / 2
	if ttl < min {
		return min
	}
	if ttl > max {
		return max
	}
	return ttl
}
