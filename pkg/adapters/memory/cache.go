package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/lettergraph/pkg/domain"
)

type cacheEntry struct {
	raw     []byte
	expires time.Time
}

// Cache implements ports.GraphCache in memory. Documents are stored serialized
// so cached copies are isolated from callers. Safe for concurrent use.
type Cache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a cache. A ttl of zero keeps entries until invalidated.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{data: make(map[string]cacheEntry), ttl: ttl, now: time.Now}
}

// Get returns the cached document or domain.ErrGraphNotFound.
func (c *Cache) Get(_ context.Context, graphID string) (*domain.GraphDocument, error) {
	c.mu.RLock()
	e, ok := c.data[graphID]
	c.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && c.now().After(e.expires)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, graphID)
	}
	var doc domain.GraphDocument
	if err := json.Unmarshal(e.raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Put stores doc under its id.
func (c *Cache) Put(_ context.Context, doc *domain.GraphDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	e := cacheEntry{raw: raw}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[doc.ID] = e
	return nil
}

// Invalidate drops graphID. Missing ids are not an error.
func (c *Cache) Invalidate(_ context.Context, graphID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, graphID)
	return nil
}
