package replay

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vitalvas/signedrequests/signedreq"
)

// DefaultCleanupInterval is how often Memory purges expired ids.
const DefaultCleanupInterval = time.Minute

var _ signedreq.AtomicReplayCache = (*Memory)(nil)

// Memory is an in-process replay cache backed by patrickmn/go-cache.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a Memory cache. A cleanupInterval of zero uses
// DefaultCleanupInterval.
func NewMemory(cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &Memory{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Has reports whether key is present and not expired.
func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	_, found := m.cache.Get(key)
	return found, nil
}

// Put stores key for ttl. A non-positive ttl never expires.
func (m *Memory) Put(_ context.Context, key, value string, ttl time.Duration) error {
	m.cache.Set(key, value, expiration(ttl))
	return nil
}

// PutIfAbsent stores key for ttl unless it is already present.
func (m *Memory) PutIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := m.cache.Add(key, value, expiration(ttl)); err != nil {
		return false, nil
	}

	return true, nil
}

// Len returns the number of stored ids, including expired ids not yet
// purged.
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}

	return ttl
}
