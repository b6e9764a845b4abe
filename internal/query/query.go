// Package query is a small data-fetching cache in the spirit of client-side
// query libraries: results are cached under a Key, concurrent fetches of
// the same key share a single call, data stays fresh for StaleTime, and
// invalidation forces the next read to refetch.
//
// Nothing is retried. A failed fetch leaves the previous data in place and
// records the error on the entry.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime = 30 * time.Second
	DefaultCacheTime = 5 * time.Minute
)

// Status is the lifecycle of a query or mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of one cache entry.
type State struct {
	Status      Status
	UpdatedAt   time.Time // time of the last successful fetch
	Err         error     // error of the last failed fetch
	HasData     bool
	Invalidated bool
}

// FetchFunc loads the data for one key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configure a Client. Zero values fall back to the defaults.
type Options struct {
	StaleTime time.Duration
	CacheTime time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	status      Status
	err         error
	updatedAt   time.Time
	lastAccess  time.Time
	invalidated bool
	generation  uint64
	inflight    int
}

// Client holds the cache. It is safe for concurrent use.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	staleTime time.Duration
	cacheTime time.Duration
	log       *slog.Logger
	now       func() time.Time
}

func NewClient(opts Options) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		staleTime: opts.StaleTime,
		cacheTime: opts.CacheTime,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if c.staleTime <= 0 {
		c.staleTime = DefaultStaleTime
	}
	if c.cacheTime <= 0 {
		c.cacheTime = DefaultCacheTime
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Fetch returns the data cached under key when it is fresh and otherwise
// calls fn. Callers asking for the same key at the same time share one
// call of fn. The shared call does not inherit the caller's cancellation;
// a caller whose ctx ends gets ctx.Err() while the call completes and
// fills the cache for everyone else.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn FetchFunc[T]) (T, error) {
	var zero T

	if v, ok := c.fresh(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached %T is not %T", key, v, zero)
	}
	return t, nil
}

// Prefetch warms the cache for key. Fresh data skips the call; errors are
// logged and otherwise dropped.
func Prefetch[T any](ctx context.Context, c *Client, key Key, fn FetchFunc[T]) {
	if _, err := Fetch(ctx, c, key, fn); err != nil {
		c.log.Debug("prefetch failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
	}
}

// Peek returns whatever data is cached under key, fresh or not.
func Peek[T any](c *Client, key Key) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return zero, false
	}
	e.lastAccess = c.now()

	t, ok := e.data.(T)
	return t, ok
}

// State reports the lifecycle of key. Unknown keys are idle.
func (c *Client) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return State{Status: StatusIdle}
	}
	return State{
		Status:      e.status,
		UpdatedAt:   e.updatedAt,
		Err:         e.err,
		HasData:     e.hasData,
		Invalidated: e.invalidated,
	}
}

// Invalidate marks every entry whose key starts with prefix as stale, so
// the next Fetch refetches it. Results of calls already in flight are still
// stored but stay stale. It returns the number of entries touched.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.invalidated = true
		e.generation++
		c.group.Forget(id)
		n++
	}

	if n > 0 {
		c.log.Debug("queries invalidated",
			slog.String("prefix", prefix.String()),
			slog.Int("count", n))
	}
	return n
}

// Remove drops key from the cache.
func (c *Client) Remove(key Key) {
	id := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		e.generation++
		delete(c.entries, id)
	}
	c.group.Forget(id)
}

// Collect evicts entries nobody has read for CacheTime. Entries with a
// call in flight are kept. It returns the number of entries removed.
func (c *Client) Collect(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, e := range c.entries {
		if e.inflight > 0 || now.Sub(e.lastAccess) < c.cacheTime {
			continue
		}
		delete(c.entries, id)
		n++
	}
	return n
}

// Run calls Collect periodically until ctx is done.
func (c *Client) Run(ctx context.Context) {
	interval := c.cacheTime / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Collect(c.now()); n > 0 {
				c.log.Debug("query cache collected", slog.Int("evicted", n))
			}
		}
	}
}

func (c *Client) fresh(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}

	now := c.now()
	e.lastAccess = now

	if !e.hasData || e.invalidated || now.Sub(e.updatedAt) >= c.staleTime {
		return nil, false
	}
	return e.data, true
}

func (c *Client) fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.String()
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(id, func() (any, error) {
		e, generation := c.begin(id, key)
		v, err := fn(detached)
		c.finish(id, e, generation, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// begin records that a call for id started and returns the entry with its
// generation at that moment.
func (c *Client) begin(id string, key Key) (*entry, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key}
		c.entries[id] = e
	}
	e.status = StatusLoading
	e.lastAccess = c.now()
	e.inflight++
	return e, e.generation
}

func (c *Client) finish(id string, e *entry, generation uint64, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.inflight--
	if c.entries[id] != e {
		// Removed while the call was running.
		return
	}

	if err != nil {
		e.status = StatusError
		e.err = err
		return
	}

	e.data = v
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.updatedAt = c.now()
	e.invalidated = e.generation != generation
	if e.inflight > 0 {
		e.status = StatusLoading
	}
}
