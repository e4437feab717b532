package predictor

import (
	"context"
	"slices"
	"time"

	"finadvisor/internal/cache"
	"finadvisor/internal/features"
	"finadvisor/internal/services"
)

var (
	_ services.Predictor = (*Client)(nil)
	_ services.Predictor = (*Cached)(nil)
	_ services.Predictor = Funcs{}
)

// Cached memoizes scores per capability and vector. Entries are keyed by
// schema version and vector contents, so a schema change never reuses a
// stale score. Errors are not cached.
type Cached struct {
	next   services.Predictor
	binary *cache.LRUCache[float64]
	dist   *cache.LRUCache[[]float64]
}

// NewCached wraps next with two LRU caches of the given size and TTL.
func NewCached(next services.Predictor, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:   next,
		binary: cache.NewLRUCache[float64](size, ttl),
		dist:   cache.NewLRUCache[[]float64](size, ttl),
	}
}

// Caches returns the underlying caches for registration with a cache.Manager.
func (c *Cached) Caches() []cache.Cleaner {
	return []cache.Cleaner{c.binary, c.dist}
}

// Stats returns the combined cache counters.
func (c *Cached) Stats() cache.Stats {
	a, b := c.binary.Stats(), c.dist.Stats()
	return cache.Stats{
		Hits:      a.Hits + b.Hits,
		Misses:    a.Misses + b.Misses,
		Evictions: a.Evictions + b.Evictions,
		Size:      a.Size + b.Size,
	}
}

func (c *Cached) ScoreBillDue(ctx context.Context, v features.Vector) (float64, error) {
	return c.scoreBinary(ctx, PathBillDue, v, c.next.ScoreBillDue)
}

func (c *Cached) ScoreLowBalance(ctx context.Context, v features.Vector) (float64, error) {
	return c.scoreBinary(ctx, PathLowBalance, v, c.next.ScoreLowBalance)
}

func (c *Cached) ScoreExpenseCategory(ctx context.Context, v features.Vector) ([]float64, error) {
	key := PathExpenseCategory + "|" + v.Key()
	if dist, ok := c.dist.Get(key); ok {
		return slices.Clone(dist), nil
	}
	dist, err := c.next.ScoreExpenseCategory(ctx, v)
	if err != nil {
		return nil, err
	}
	c.dist.Set(key, slices.Clone(dist))
	return dist, nil
}

func (c *Cached) scoreBinary(ctx context.Context, path string, v features.Vector, score func(context.Context, features.Vector) (float64, error)) (float64, error) {
	key := path + "|" + v.Key()
	if p, ok := c.binary.Get(key); ok {
		return p, nil
	}
	p, err := score(ctx, v)
	if err != nil {
		return 0, err
	}
	c.binary.Set(key, p)
	return p, nil
}
