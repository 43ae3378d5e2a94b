package roles

import (
	"sync"

	"github.com/google/uuid"
)

// cache is the in-memory fallback tier for role records.
type cache struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

func newCache() *cache {
	return &cache{records: make(map[uuid.UUID]Record)}
}

func (c *cache) put(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.UID] = rec
}

func (c *cache) get(uid uuid.UUID) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[uid]
	return rec, ok
}

func (c *cache) delete(uid uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, uid)
}
