package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lettergraph/pkg/domain"
)

type contentKey struct {
	id string
	domain.Variant
}

// Content implements ports.ContentRepository with exact-variant matching.
// Safe for concurrent use.
type Content struct {
	mu    sync.RWMutex
	items map[contentKey]domain.Content
}

// NewContent creates a repository holding items. Each item is keyed by its
// ID, Language and Variation.
func NewContent(items ...domain.Content) *Content {
	c := &Content{items: make(map[contentKey]domain.Content, len(items))}
	for _, it := range items {
		c.Add(it)
	}
	return c
}

// Add stores or replaces an item.
func (c *Content) Add(item domain.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[contentKey{item.ID, domain.Variant{Language: item.Language, Variation: item.Variation}}] = item
}

// Get returns a copy of the item for id in exactly variant v.
func (c *Content) Get(_ context.Context, id string, v domain.Variant) (*domain.Content, error) {
	c.mu.RLock()
	item, ok := c.items[contentKey{id, v}]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, id)
	}
	item.Tags = append([]string(nil), item.Tags...)
	item.ComplianceFlags = append([]string(nil), item.ComplianceFlags...)
	return &item, nil
}
