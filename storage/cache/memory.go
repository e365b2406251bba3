package cache

import (
	"context"
	"sync"
	"time"

	"github.com/projetogalileu/galileu/core/sensor"
)

var nowFunc = time.Now // mockable

// MemorySnapshotCache is the single instance SnapshotCache.
type MemorySnapshotCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	reading sensor.Reading
	expires time.Time
}

var _ sensor.Cache = (*MemorySnapshotCache)(nil)

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{ttl: ttl}
}

func (c *MemorySnapshotCache) SetReading(_ context.Context, r sensor.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = r
	c.expires = nowFunc().Add(c.ttl)
	return nil
}

func (c *MemorySnapshotCache) GetReading(context.Context) (sensor.Reading, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.expires.IsZero() || !nowFunc().Before(c.expires) {
		return sensor.Reading{}, sensor.ErrNoReading
	}
	return c.reading, nil
}

// MemoryDenylist keeps revoked token ids in a map, evicting expired ones on write.
type MemoryDenylist struct {
	mu     sync.Mutex
	denied map[string]time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{denied: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Deny(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := nowFunc()
	for id, exp := range d.denied {
		if !now.Before(exp) {
			delete(d.denied, id)
		}
	}
	d.denied[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsDenied(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.denied[tokenID]
	return ok && nowFunc().Before(exp), nil
}
