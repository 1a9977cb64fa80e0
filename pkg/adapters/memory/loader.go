package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Loader implements ports.GraphLoader using an in-memory map.
// Safe for concurrent use.
type Loader struct {
	mu     sync.RWMutex
	graphs map[string][]byte
}

// NewLoader creates a loader serving the given documents.
func NewLoader(docs ...*domain.GraphDocument) (*Loader, error) {
	l := &Loader{graphs: make(map[string][]byte, len(docs))}
	for _, d := range docs {
		if err := l.Add(d); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// NewLoaderFromJSON creates a loader from raw JSON documents keyed by graph id.
func NewLoaderFromJSON(data map[string]string) *Loader {
	graphs := make(map[string][]byte, len(data))
	for k, v := range data {
		graphs[k] = []byte(v)
	}
	return &Loader{graphs: graphs}
}

// Add stores a copy of doc, replacing any graph with the same id.
func (l *Loader) Add(doc *domain.GraphDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("graph document missing id")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal graph %s: %w", doc.ID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graphs[doc.ID] = raw
	return nil
}

// Load decodes a fresh copy of the graph, so callers may mutate it freely.
func (l *Loader) Load(_ context.Context, graphID string) (*domain.GraphDocument, error) {
	l.mu.RLock()
	raw, ok := l.graphs[graphID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, graphID)
	}
	var doc domain.GraphDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph %s: %w", graphID, err)
	}
	if doc.ID == "" {
		doc.ID = graphID
	}
	return &doc, nil
}

// List returns all graph ids.
func (l *Loader) List(context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.graphs))
	for k := range l.graphs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
