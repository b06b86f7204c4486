// Package cache provides the time-boxed result cache that sits in front of
// the station merge. Entries live for a fixed window from the moment they are
// computed, the table is bounded with least-recently-used eviction, and
// concurrent misses on one key share a single computation.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL            = 120 * time.Second
	DefaultMaxEntries     = 8192
	DefaultComputeTimeout = 30 * time.Second
)

// Options configures a Cache. A TTL of zero or less disables caching.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	// ComputeTimeout bounds a shared computation. Defaults to
	// DefaultComputeTimeout.
	ComputeTimeout time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Item is a value held in a Tier together with the end of the window that
// started when it was computed.
type Item[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Tier is a secondary store consulted on local misses, typically shared
// between API replicas. ttl is a retention hint for the backing store.
type Tier[V any] interface {
	Get(ctx context.Context, key string) (Item[V], bool, error)
	Set(ctx context.Context, key string, item Item[V], ttl time.Duration) error
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a bounded key -> (value, expiry) table. Values are shared between
// callers and must be treated as read-only.
type Cache[V any] struct {
	ttl            time.Duration
	max            int
	computeTimeout time.Duration
	now            func() time.Time
	shared         Tier[V]
	flights        singleflight.Group

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

// New creates a Cache. shared may be nil.
func New[V any](opts Options, shared Tier[V]) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = DefaultComputeTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[V]{
		ttl:            opts.TTL,
		max:            opts.MaxEntries,
		computeTimeout: opts.ComputeTimeout,
		now:            opts.Now,
		shared:         shared,
		order:          list.New(),
		items:          make(map[string]*list.Element),
	}
}

// TTL returns the configured window.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the live value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[V])
	if !c.now().Before(ent.expiresAt) {
		c.remove(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// GetOrCompute returns the cached value for key or runs compute to produce
// it. Errors from compute are returned and never stored, so the next call
// tries again. The computation is shared by concurrent callers and is not
// canceled when one of them gives up; each caller stops waiting when its own
// ctx is done.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	if c.ttl <= 0 {
		return compute(ctx)
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(flightCtx, c.computeTimeout)
		defer cancel()

		// a flight that finished just before this one started already filled the slot
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		if v, ok := c.loadShared(ctx, key); ok {
			return v, nil
		}

		log.Debug().Str("key", key).Msg("Cache miss, recomputing")
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		expiresAt := c.add(key, v)
		c.storeShared(ctx, key, v, expiresAt)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			log.Debug().Str("key", key).Msg("Joined in-flight computation")
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *Cache[V]) add(key string, value V) time.Time {
	expiresAt := c.now().Add(c.ttl)
	c.addUntil(key, value, expiresAt)
	return expiresAt
}

func (c *Cache[V]) addUntil(key string, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.max {
		c.remove(c.order.Back())
	}
}

func (c *Cache[V]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

// loadShared adopts a live value from the shared tier, keeping the expiry
// set by the replica that computed it.
func (c *Cache[V]) loadShared(ctx context.Context, key string) (V, bool) {
	var zero V
	if c.shared == nil {
		return zero, false
	}
	item, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Shared cache read failed")
		return zero, false
	}
	if !ok || !c.now().Before(item.ExpiresAt) {
		return zero, false
	}
	c.addUntil(key, item.Value, item.ExpiresAt)
	return item.Value, true
}

func (c *Cache[V]) storeShared(ctx context.Context, key string, value V, expiresAt time.Time) {
	if c.shared == nil {
		return
	}
	item := Item[V]{Value: value, ExpiresAt: expiresAt}
	if err := c.shared.Set(ctx, key, item, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Shared cache write failed")
	}
}
