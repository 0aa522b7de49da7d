package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed evaluate.lua
var evaluateScript string

// EvalResult is the outcome of one CounterStore.Evaluate call.
type EvalResult struct {
	// Admitted is true when every key was incremented.
	Admitted bool

	// FailedIndex is the index (into the keys slice passed to Evaluate) of
	// the first ceiling that was already met or exceeded. Meaningful only
	// when Admitted is false.
	FailedIndex int

	// CurrentCount is the pre-existing count of the failed key. Meaningful
	// only when Admitted is false.
	CurrentCount int64

	// Ceiling is the limit of the failed key. Meaningful only when
	// Admitted is false.
	Ceiling int64

	// ResidualTTLSeconds is the failed key's remaining TTL, used for the
	// Retry-After header. Meaningful only when Admitted is false.
	ResidualTTLSeconds int64

	// MaxTTLSeconds is the largest TTL across all incremented keys.
	// Meaningful only when Admitted is true.
	MaxTTLSeconds int64

	// PostCounts is the post-increment count of every key, in the same
	// order as the keys passed to Evaluate, with 0 for disabled
	// (ceiling <= 0) keys. Meaningful only when Admitted is true; used by
	// the post-admission global usage warning.
	PostCounts []int64
}

// CounterStore is the shared external in-memory store backing both the
// atomic evaluator and the subscription resolver's cache.
type CounterStore interface {
	// Evaluate runs the atomic check-and-increment script over keys, each
	// paired with a ceiling and the TTL to apply on first increment.
	// len(keys) == len(ceilings) == len(ttls) must hold; the empty-list
	// case is handled by the caller (admit unconditionally), not
	// here.
	Evaluate(ctx context.Context, keys []string, ceilings []int64, ttls []time.Duration) (*EvalResult, error)

	// GetCache returns the cached value at key and whether it was present.
	GetCache(ctx context.Context, key string) (value string, found bool, err error)

	// SetCache stores value at key with the given TTL.
	SetCache(ctx context.Context, key, value string, ttl time.Duration) error

	// DeleteKeys removes the given keys, used by the admin surface's cache
	// and counter invalidation on plan/client edits.
	DeleteKeys(ctx context.Context, keys ...string) error

	// ScanKeys returns every key matching a glob-style pattern, used to
	// find all rl:c:<clientId>:* counter keys for invalidation.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies the store is reachable, used by the readiness check.
	Ping(ctx context.Context) error
}

// RedisCounterStore implements CounterStore against a Redis server, using a
// server-side Lua script loaded once at startup to make the multi-key
// evaluate operation atomic (grounded on this pack's token-bucket Redis
// limiter: ScriptLoad once, EvalSha per call).
type RedisCounterStore struct {
	client    *redis.Client
	scriptSHA string
}

// NewRedisCounterStore dials Redis, verifies connectivity, and loads the
// evaluation script.
func NewRedisCounterStore(cfg RedisCounterStoreConfig) (*RedisCounterStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("counter store: ping: %w", err)
	}

	sha, err := client.ScriptLoad(ctx, evaluateScript).Result()
	if err != nil {
		return nil, fmt.Errorf("counter store: load script: %w", err)
	}

	return &RedisCounterStore{client: client, scriptSHA: sha}, nil
}

// RedisCounterStoreConfig configures a RedisCounterStore. It mirrors
// config.RedisConfig field-for-field so callers can pass it through
// directly.
type RedisCounterStoreConfig struct {
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// Evaluate runs the embedded evaluate.lua script via EvalSha, falling back
// to EvalShaRO's sibling Eval call if the script has been evicted from the
// server's script cache (NOSCRIPT).
func (r *RedisCounterStore) Evaluate(ctx context.Context, keys []string, ceilings []int64, ttls []time.Duration) (*EvalResult, error) {
	if len(keys) != len(ceilings) || len(keys) != len(ttls) {
		return nil, fmt.Errorf("counter store: keys/ceilings/ttls length mismatch")
	}

	argv := make([]any, 0, len(keys)*2)
	for _, c := range ceilings {
		argv = append(argv, c)
	}
	for _, ttl := range ttls {
		argv = append(argv, int64(ttl.Seconds()))
	}

	res, err := r.client.EvalSha(ctx, r.scriptSHA, keys, argv...).Result()
	if err != nil && isNoScript(err) {
		res, err = r.client.Eval(ctx, evaluateScript, keys, argv...).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("counter store: evaluate: %w", err)
	}

	values, ok := res.([]any)
	if !ok || len(values) < 2 {
		return nil, errors.New("counter store: malformed evaluate response")
	}

	admitted := toInt64(values[0]) == 1
	if admitted {
		postCounts := make([]int64, len(keys))
		for i := range keys {
			if 2+i < len(values) {
				postCounts[i] = toInt64(values[2+i])
			}
		}
		return &EvalResult{Admitted: true, MaxTTLSeconds: toInt64(values[1]), PostCounts: postCounts}, nil
	}
	if len(values) != 5 {
		return nil, errors.New("counter store: malformed evaluate failure response")
	}
	return &EvalResult{
		Admitted:           false,
		FailedIndex:        int(toInt64(values[1])),
		CurrentCount:       toInt64(values[2]),
		Ceiling:            toInt64(values[3]),
		ResidualTTLSeconds: toInt64(values[4]),
	}, nil
}

func (r *RedisCounterStore) GetCache(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("counter store: get: %w", err)
	}
	return value, true, nil
}

func (r *RedisCounterStore) SetCache(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("counter store: set: %w", err)
	}
	return nil
}

func (r *RedisCounterStore) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("counter store: del: %w", err)
	}
	return nil
}

func (r *RedisCounterStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("counter store: scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (r *RedisCounterStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection pool.
func (r *RedisCounterStore) Close() error {
	return r.client.Close()
}

func isNoScript(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "NOSCRIPT"
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
