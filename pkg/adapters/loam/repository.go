// Package loam serves letter content (blocks and components) from a loam
// repository of markdown documents with YAML frontmatter.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/loam"

	"github.com/aretw0/lettergraph/pkg/domain"
)

type variantKey struct {
	id        string
	language  string
	variation string
}

// Repository adapts a loam repository to ports.ContentRepository.
// The (id, language, variation) index is built on first use and rebuilt
// after Reload or a watched change.
type Repository struct {
	Repo *loam.TypedRepository[ContentMetadata]

	mu    sync.RWMutex
	index map[variantKey]string
}

// New creates a new Loam content adapter.
func New(repo *loam.TypedRepository[ContentMetadata]) *Repository {
	return &Repository{Repo: repo}
}

// Get returns the document registered for exactly id and variant.
func (r *Repository) Get(ctx context.Context, id string, variant domain.Variant) (*domain.Content, error) {
	index, err := r.lookupIndex(ctx)
	if err != nil {
		return nil, err
	}
	key := variantKey{id: id, language: strings.ToLower(variant.Language), variation: variant.Variation}
	name, ok := index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s (language=%q variation=%q)", domain.ErrContentNotFound, id, variant.Language, variant.Variation)
	}

	doc, err := r.Repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", name, err)
	}
	return &domain.Content{
		ID:              id,
		Body:            strings.TrimSpace(doc.Content),
		Language:        doc.Data.Language,
		Variation:       doc.Data.Variation,
		Tags:            doc.Data.Tags,
		ComplianceFlags: doc.Data.ComplianceFlags,
	}, nil
}

// List returns the distinct content ids in the repository, sorted.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	index, err := r.lookupIndex(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for k := range index {
		if !seen[k.id] {
			seen[k.id] = true
			ids = append(ids, k.id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Reload rebuilds the variant index from the repository.
func (r *Repository) Reload(ctx context.Context) error {
	docs, err := r.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	index := make(map[variantKey]string, len(docs))
	for _, doc := range docs {
		name := trimExtension(doc.ID)
		id := doc.Data.ID
		if id == "" {
			id = name
		}
		key := variantKey{
			id:        trimExtension(id),
			language:  strings.ToLower(doc.Data.Language),
			variation: doc.Data.Variation,
		}
		// Collision Detection
		if existing, ok := index[key]; ok {
			return fmt.Errorf("collision detected: content '%s' (language=%q variation=%q) is defined in both '%s' and '%s'",
				key.id, key.language, key.variation, existing, name)
		}
		index[key] = name
	}

	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
	return nil
}

func (r *Repository) lookupIndex(ctx context.Context) (map[variantKey]string, error) {
	r.mu.RLock()
	index := r.index
	r.mu.RUnlock()
	if index != nil {
		return index, nil
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch drops the index whenever a document changes and reports the changed
// document ids. The channel closes when ctx is done.
func (r *Repository) Watch(ctx context.Context) (<-chan string, error) {
	events, err := r.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				r.mu.Lock()
				r.index = nil
				r.mu.Unlock()
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
