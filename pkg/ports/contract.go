package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphCacheContract runs a suite of tests to verify that a GraphCache
// implementation adheres to the interface contract.
func RunGraphCacheContract(t *testing.T, cache GraphCache) {
	ctx := context.Background()
	graphID := "contract-graph-" + time.Now().Format("20060102150405")

	doc := &domain.GraphDocument{
		ID:      graphID,
		Version: "7",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "greet", Type: domain.NodeTypeDynamicText, Config: map[string]any{"text": "Dear {{member.name}},"}},
		},
		Edges:     []domain.Edge{{ID: "e1", Source: "start", Target: "greet"}},
		Variables: []domain.VariableDefinition{{Key: "member.name", Required: true}},
	}

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, doc), "Put should not return error")

		got, err := cache.Get(ctx, graphID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, doc.Version, got.Version)
		require.Len(t, got.Nodes, 2)
		assert.Equal(t, "Dear {{member.name}},", got.Nodes[1].Config["text"])
		assert.True(t, got.Variables[0].Required)
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+graphID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, doc))
		require.NoError(t, cache.Invalidate(ctx, graphID))

		_, err := cache.Get(ctx, graphID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound, "Get after Invalidate should miss")

		assert.NoError(t, cache.Invalidate(ctx, graphID), "Invalidate of a missing id is not an error")
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, doc))
		next := *doc
		next.Version = "8"
		require.NoError(t, cache.Put(ctx, &next))

		got, err := cache.Get(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, "8", got.Version, fmt.Sprintf("cache %T kept a stale entry", cache))
	})
}
