package inject

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// EntryState is the state of a scope cache entry.
type EntryState int

const (
	// NotStarted entries have no instance and no construction in progress.
	NotStarted EntryState = iota

	// InConstruction entries are being built by exactly one resolution.
	InConstruction

	// Completed entries hold the instance for the lifetime of the injector.
	Completed
)

// String returns the string representation of the EntryState.
func (s EntryState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case InConstruction:
		return "InConstruction"
	case Completed:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// CacheStatistics tracks scope cache activity.
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Creations int64
	Failures  int64
	Entries   int
}

// reentryError reports that a resolution asked for a key it is itself
// constructing, or that waiting for the key would close a waits-for cycle
// between resolutions. The resolver turns it into a CircularDependencyError.
type reentryError struct {
	key Key
}

func (e reentryError) Error() string {
	return fmt.Sprintf("%s is already under construction", e.key)
}

type cacheEntry struct {
	state    EntryState
	instance any
	owner    uint64   // resolution constructing the entry
	attempt  *attempt // construction in progress
}

// attempt is one run of a factory. done is closed once err is set.
type attempt struct {
	done chan struct{}
	err  error
}

// scopeCache holds Singleton instances. At most one factory runs per key at a
// time and at most one ever succeeds; entries are never removed. Factories
// run without holding the cache lock and waiters block on the attempt of
// their own key only, so different keys never wait for each other.
type scopeCache struct {
	mu      sync.RWMutex
	entries map[Key]*cacheEntry

	// waiting maps a resolution to the key it is blocked on
	waiting map[uint64]Key

	stats struct {
		hits      atomic.Int64
		misses    atomic.Int64
		creations atomic.Int64
		failures  atomic.Int64
	}
}

func newScopeCache() *scopeCache {
	return &scopeCache{
		entries: make(map[Key]*cacheEntry),
		waiting: make(map[uint64]Key),
	}
}

// get returns the completed instance for key.
func (c *scopeCache) get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok && e.state == Completed {
		return e.instance, true
	}
	return nil, false
}

// getOrCreate returns the instance for key, running factory if no instance
// exists yet. Callers for a key under construction by another resolution wait
// for that attempt and share its outcome: a failed attempt fails every caller
// that waited on it. created reports whether this call ran the factory
// successfully. A failed factory leaves the entry NotStarted, so only a later
// request builds it again.
func (c *scopeCache) getOrCreate(key Key, owner uint64, factory func() (any, error)) (instance any, created bool, err error) {
	if instance, ok := c.get(key); ok {
		c.stats.hits.Add(1)
		return instance, false, nil
	}

	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &cacheEntry{}
		c.entries[key] = e
	}

	for e.state != NotStarted {
		if e.state == Completed {
			c.mu.Unlock()
			c.stats.hits.Add(1)
			return e.instance, false, nil
		}

		if e.owner == owner || c.waitsFor(e.owner, owner) {
			c.mu.Unlock()
			return nil, false, reentryError{key: key}
		}

		a := e.attempt
		c.waiting[owner] = key
		c.mu.Unlock()

		<-a.done

		c.mu.Lock()
		delete(c.waiting, owner)
		if a.err != nil {
			c.mu.Unlock()
			return nil, false, a.err
		}
	}

	a := &attempt{done: make(chan struct{})}
	e.state = InConstruction
	e.owner = owner
	e.attempt = a
	c.mu.Unlock()

	c.stats.misses.Add(1)

	defer func() {
		if r := recover(); r != nil {
			c.finish(e, a, nil, PanicError{Value: r, Stack: debug.Stack()})
			panic(r)
		}
	}()

	instance, err = factory()
	c.finish(e, a, instance, err)

	if err != nil {
		return nil, false, err
	}
	return instance, true, nil
}

// finish records the outcome of a and wakes its waiters.
func (c *scopeCache) finish(e *cacheEntry, a *attempt, instance any, err error) {
	c.mu.Lock()
	if err != nil {
		e.state = NotStarted
		c.stats.failures.Add(1)
	} else {
		e.state = Completed
		e.instance = instance
		c.stats.creations.Add(1)
	}
	e.owner = 0
	e.attempt = nil
	a.err = err
	c.mu.Unlock()

	close(a.done)
}

// waitsFor reports whether holder is, directly or through other resolutions,
// waiting on a key that owner is constructing. Callers hold c.mu.
func (c *scopeCache) waitsFor(holder, owner uint64) bool {
	seen := make(map[uint64]bool)
	for !seen[holder] {
		seen[holder] = true

		key, ok := c.waiting[holder]
		if !ok {
			return false
		}

		e := c.entries[key]
		if e == nil || e.state != InConstruction {
			return false
		}
		if e.owner == owner {
			return true
		}
		holder = e.owner
	}
	return false
}

// state returns the state of the entry for key.
func (c *scopeCache) state(key Key) EntryState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return NotStarted
}

// statistics returns cache statistics.
func (c *scopeCache) statistics() CacheStatistics {
	return CacheStatistics{
		Hits:      c.stats.hits.Load(),
		Misses:    c.stats.misses.Load(),
		Creations: c.stats.creations.Load(),
		Failures:  c.stats.failures.Load(),
		Entries:   c.len(),
	}
}

// len returns the number of completed instances.
func (c *scopeCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if e.state == Completed {
			n++
		}
	}
	return n
}
