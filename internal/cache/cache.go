// Package cache is the client-side read cache for Schedule Service resources.
//
// Reads go through Read, which serves fresh entries from memory and
// de-duplicates concurrent fetches of the same key. Writes go through Mutate,
// which performs one remote write, invalidates the declared key prefixes and
// emits exactly one outcome notification. Cached values are never patched;
// the next read after an invalidation fetches the server's state.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/fleetboard/internal/logger"
)

// State describes a cache entry as seen by Peek
type State int

const (
	StateAbsent State = iota
	StatePending
	StateFresh
	StateStale
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateInvalidated:
		return "invalidated"
	}
	return "absent"
}

type entry struct {
	value       interface{}
	hasValue    bool
	fetchedAt   time.Time
	invalidated bool
	// gen changes on creation and on every invalidation; a fetch only stores
	// its result if the generation it started under is still current
	gen  uint64
	refs int
}

// Stats counts cache activity since the coordinator was created
type Stats struct {
	Hits          int
	Misses        int
	Fetches       int
	Invalidations int
	Evictions     int
	Discarded     int
}

// Coordinator owns every cache entry. Views only hold read results.
type Coordinator struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	nextGen  uint64
	stats    Stats
	flights  singleflight.Group
	policies Policies
	now      func() time.Time
	notifier Notifier
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock injects the time source used for staleness checks
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithPolicies replaces the staleness windows
func WithPolicies(p Policies) Option {
	return func(c *Coordinator) { c.policies = p }
}

// WithNotifier sets where mutation outcomes are reported
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// New creates a Coordinator with the default policies, the wall clock and no notifier.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		entries:  make(map[Key]*entry),
		policies: DefaultPolicies(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = discard{}
	}
	return c
}

// entryLocked returns the entry for k, creating a pending one. c.mu must be held.
func (c *Coordinator) entryLocked(k Key) *entry {
	e, ok := c.entries[k]
	if !ok {
		c.nextGen++
		e = &entry{gen: c.nextGen}
		c.entries[k] = e
	}
	return e
}

func (c *Coordinator) freshLocked(k Key, e *entry) bool {
	if !e.hasValue || e.invalidated {
		return false
	}
	window := c.policies.StaleAfter(k)
	if window <= 0 {
		return false
	}
	return c.now().Sub(e.fetchedAt) < window
}

// lookup returns a fresh cached value, or the generation a fetch must start under.
func (c *Coordinator) lookup(k Key) (interface{}, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(k)
	if c.freshLocked(k, e) {
		c.stats.Hits++
		return e.value, e.gen, true
	}
	c.stats.Misses++
	return nil, e.gen, false
}

func (c *Coordinator) store(k Key, gen uint64, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok || e.gen != gen {
		// Invalidated or evicted while in flight
		c.stats.Discarded++
		logger.Debug("cache result discarded", "key", k, "gen", gen)
		return
	}
	e.value = v
	e.hasValue = true
	e.fetchedAt = c.now()
	e.invalidated = false
}

// Read returns the value under key, fetching it when the entry is absent,
// stale or invalidated. Concurrent reads of the same key share one fetch.
//
// The fetch runs detached from ctx so other readers still get the result when
// the first caller goes away. A caller whose ctx ends stops waiting and gets
// ctx.Err(); the entry is still populated.
func Read[T any](ctx context.Context, c *Coordinator, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	v, gen, ok := c.lookup(key)
	if ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}

	flight := fmt.Sprintf("%s#%d", key, gen)
	ch := c.flights.DoChan(flight, func() (interface{}, error) {
		c.mu.Lock()
		c.stats.Fetches++
		c.mu.Unlock()

		logger.Debug("cache fetch", "key", key)
		val, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, gen, val)
		return val, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: fetch for %s returned %T", key, res.Val)
		}
		return typed, nil
	}
}

// Invalidate flags every entry at or below the given prefixes for refetch and
// returns how many entries it flagged. Values are left in place.
func (c *Coordinator) Invalidate(prefixes ...Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		for _, p := range prefixes {
			if k.HasPrefix(p) {
				c.nextGen++
				e.gen = c.nextGen
				e.invalidated = true
				n++
				break
			}
		}
	}
	c.stats.Invalidations += n
	logger.Debug("cache invalidated", "prefixes", prefixes, "entries", n)
	return n
}

// Retain registers a view's interest in key and returns the release func.
// When the last reference is released the entry is evicted. Release is idempotent.
func (c *Coordinator) Retain(key Key) func() {
	c.mu.Lock()
	c.entryLocked(key).refs++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.release(key) })
	}
}

func (c *Coordinator) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.entries, key)
		c.stats.Evictions++
		logger.Debug("cache evicted", "key", key)
	}
}

// Retained reports whether any view still references key
func (c *Coordinator) Retained(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && e.refs > 0
}

// Prune evicts every entry no view references and returns how many it removed.
func (c *Coordinator) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if e.refs <= 0 {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Evictions += n
	return n
}

// Peek reports the state of key without fetching
func (c *Coordinator) Peek(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	switch {
	case !ok:
		return StateAbsent
	case e.invalidated:
		return StateInvalidated
	case !e.hasValue:
		return StatePending
	case c.freshLocked(key, e):
		return StateFresh
	}
	return StateStale
}

// Len returns the number of entries held
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the activity counters
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
