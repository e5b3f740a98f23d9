// Package lock provides per-entity serialization for table and order
// mutations. Locks are keyed by entity id; operations on different ids
// run fully in parallel, waits are bounded so a stuck holder surfaces as
// a busy error instead of freezing terminals.
package lock

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when a lock cannot be acquired within the wait bound.
var ErrBusy = errors.New("entity busy, try again")

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Registry hands out one lock per entity id, created on demand and
// dropped once unused.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	wait    time.Duration
}

func NewRegistry(wait time.Duration) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
		wait:    wait,
	}
}

func (r *Registry) get(id uuid.UUID) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		r.entries[id] = e
	}
	e.refs++
	return e
}

func (r *Registry) put(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	e.refs--
	if e.refs == 0 {
		delete(r.entries, id)
	}
}

// Acquire takes the lock for one entity, waiting at most the registry's
// bound. The returned release function must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	e := r.get(id)

	waitCtx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		r.put(id)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			r.put(id)
		})
	}, nil
}

// AcquireMany takes locks for several entities in one call. Ids are
// acquired in stable byte order so overlapping multi-table operations
// (two joins sharing a candidate) cannot deadlock.
func (r *Registry) AcquireMany(ctx context.Context, ids []uuid.UUID) (func(), error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, id := range sorted {
		rel, err := r.Acquire(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, rel)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
