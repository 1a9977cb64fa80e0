package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
)

// GraphLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.GraphLoader. want maps graph id to its expected node count.
func GraphLoaderContractTest(t *testing.T, loader ports.GraphLoader, want map[string]int) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_Success", func(t *testing.T) {
		for id, nodes := range want {
			doc, err := loader.Load(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error loading graph %s: %v", id, err)
			}
			if doc.ID != id {
				t.Errorf("loaded document id = %q, want %q", doc.ID, id)
			}
			if len(doc.Nodes) != nodes {
				t.Errorf("graph %s: got %d nodes, want %d", id, len(doc.Nodes), nodes)
			}
		}
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-graph")
		if !errors.Is(err, domain.ErrGraphNotFound) {
			t.Errorf("expected ErrGraphNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		ids, err := loader.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing graphs: %v", err)
		}
		if len(ids) != len(want) {
			t.Errorf("expected %d graphs, got %d (%v)", len(want), len(ids), ids)
		}
		lookup := make(map[string]bool)
		for i, id := range ids {
			lookup[id] = true
			if i > 0 && ids[i-1] > id {
				t.Errorf("List is not sorted: %v", ids)
			}
		}
		for id := range want {
			if !lookup[id] {
				t.Errorf("graph %s missing from list", id)
			}
		}
	})
}

// ContentRepositoryContractTest verifies exact-variant lookups. The repository
// must contain "greeting" in the default variant with body "Hello" and in
// language "es" with body "Hola", and nothing else for that id.
func ContentRepositoryContractTest(t *testing.T, repo ports.ContentRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_Default", func(t *testing.T) {
		c, err := repo.Get(ctx, "greeting", domain.Variant{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Body != "Hello" {
			t.Errorf("body = %q, want Hello", c.Body)
		}
	})

	t.Run("Get_Language", func(t *testing.T) {
		c, err := repo.Get(ctx, "greeting", domain.Variant{Language: "es"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Body != "Hola" {
			t.Errorf("body = %q, want Hola", c.Body)
		}
	})

	t.Run("Get_ExactOnly", func(t *testing.T) {
		_, err := repo.Get(ctx, "greeting", domain.Variant{Language: "fr"})
		if !errors.Is(err, domain.ErrContentNotFound) {
			t.Errorf("expected ErrContentNotFound for a variant that does not exist, got %v", err)
		}
	})

	t.Run("Get_Missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "no-such-block", domain.Variant{})
		if !errors.Is(err, domain.ErrContentNotFound) {
			t.Errorf("expected ErrContentNotFound, got %v", err)
		}
	})
}
