// Package listing holds the last fetched snapshot of minted names.
package listing

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source is the read side of the name registry.
type Source interface {
	ListAllNames(ctx context.Context) ([]string, error)
	GetRecord(ctx context.Context, name string) (string, error)
	GetOwner(ctx context.Context, name string) (common.Address, error)
}

// Entry is one minted name. Index is its position in the registry list at fetch time
// and is not stable across refreshes; Name is the identity.
type Entry struct {
	Index  int            `json:"index"`
	Name   string         `json:"name"`
	Record string         `json:"record"`
	Owner  common.Address `json:"owner"`
}

// OwnedBy reports whether account owns the entry (case-insensitive hex compare).
func (e Entry) OwnedBy(account string) bool {
	return account != "" && strings.EqualFold(e.Owner.Hex(), account)
}

// Snapshot is an immutable point-in-time view of the registry.
type Snapshot struct {
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Lookup finds an entry by name.
func (s *Snapshot) Lookup(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries (0 for nil).
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Cache rebuilds the snapshot from a Source. Readers always see a complete snapshot.
type Cache struct {
	src         Source
	concurrency int
	now         func() time.Time

	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	// gen is bumped by Clear; a fetch started under an older gen is not stored.
	mu  sync.Mutex
	gen uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithConcurrency bounds the per-name fan-out. Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(c *Cache) { c.concurrency = n }
}

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{src: src, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns the current snapshot, or nil before the first successful refresh.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Lookup finds a name in the current snapshot.
func (c *Cache) Lookup(name string) (Entry, bool) {
	return c.Snapshot().Lookup(name)
}

// Clear drops the current snapshot. Refreshes already in flight do not store their result.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.current.Store(nil)
	c.mu.Unlock()
}

// Refresh fetches every name and then each record and owner concurrently, and swaps the
// snapshot in one step. On error the previous snapshot stays visible.
// Concurrent callers share one fetch.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, shared := c.group.Do("refresh", func() (any, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("Listing refresh coalesced")
	}
	return v.(*Snapshot), nil
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	names, err := c.src.ListAllNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list names")
	}

	entries := make([]Entry, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			record, err := c.src.GetRecord(gctx, name)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch record for %q", name)
			}
			owner, err := c.src.GetOwner(gctx, name)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch owner of %q", name)
			}
			entries[i] = Entry{Index: i, Name: name, Record: record, Owner: owner}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Entries: entries, FetchedAt: c.now()}
	c.mu.Lock()
	stale := gen != c.gen
	if !stale {
		c.current.Store(snap)
	}
	c.mu.Unlock()
	if stale {
		log.Debug().Msg("Listing cleared during refresh, dropping result")
		return snap, nil
	}
	log.Debug().Int("entries", len(entries)).Msg("Listing refreshed")
	return snap, nil
}
