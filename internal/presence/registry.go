// Package presence keeps the user-id to connection mapping.
package presence

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/vovakirdan/wirecall-server/internal/core"
)

// DefaultShards is used when New is given a non-positive shard count.
const DefaultShards = 32

type bucket struct {
	sync.RWMutex
	entries map[string]core.Entry
}

// Registry maps user ids to their single active connection.
// Keys are spread over independently locked buckets; operations on one key
// never block unrelated keys in other buckets, and there is no cross-key snapshot.
type Registry struct {
	buckets []*bucket
	mask    uint64
	now     func() time.Time
}

// New builds a registry with shards buckets, rounded up to a power of two.
func New(shards int) *Registry {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}
	r := &Registry{
		buckets: make([]*bucket, n),
		mask:    uint64(n - 1),
		now:     time.Now,
	}
	for i := range r.buckets {
		r.buckets[i] = &bucket{entries: make(map[string]core.Entry)}
	}
	return r
}

func (r *Registry) bucketFor(userID string) *bucket {
	return r.buckets[xxhash.Sum64String(userID)&r.mask]
}

// Register binds userID to conn, replacing any previous connection.
// The replaced connection is returned so the caller can close it.
func (r *Registry) Register(userID string, conn core.Conn) (core.Conn, bool) {
	b := r.bucketFor(userID)
	b.Lock()
	prev, replaced := b.entries[userID]
	b.entries[userID] = core.Entry{Conn: conn, EstablishedAt: r.now()}
	b.Unlock()
	if !replaced {
		return nil, false
	}
	return prev.Conn, true
}

// Unregister drops userID. Unknown ids are ignored.
func (r *Registry) Unregister(userID string) {
	b := r.bucketFor(userID)
	b.Lock()
	delete(b.entries, userID)
	b.Unlock()
}

// Release drops userID only while it is still bound to conn, so a connection
// that was replaced cannot evict its replacement when it closes.
func (r *Registry) Release(userID string, conn core.Conn) bool {
	b := r.bucketFor(userID)
	b.Lock()
	defer b.Unlock()
	e, ok := b.entries[userID]
	if !ok || e.Conn != conn {
		return false
	}
	delete(b.entries, userID)
	return true
}

// Lookup returns the connection bound to userID.
func (r *Registry) Lookup(userID string) (core.Conn, bool) {
	e, ok := r.Get(userID)
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// Get returns the full entry for userID.
func (r *Registry) Get(userID string) (core.Entry, bool) {
	b := r.bucketFor(userID)
	b.RLock()
	e, ok := b.entries[userID]
	b.RUnlock()
	return e, ok
}

// Online reports presence for each id, in order. Each check is independent.
func (r *Registry) Online(userIDs ...string) []bool {
	out := make([]bool, len(userIDs))
	for i, id := range userIDs {
		_, out[i] = r.Get(id)
	}
	return out
}

// Len counts registered users. Buckets are read one at a time, so the total
// is approximate under concurrent churn.
func (r *Registry) Len() int {
	total := 0
	for _, b := range r.buckets {
		b.RLock()
		total += len(b.entries)
		b.RUnlock()
	}
	return total
}

// Shards returns the bucket count.
func (r *Registry) Shards() int {
	return len(r.buckets)
}

var _ core.Directory = (*Registry)(nil)
