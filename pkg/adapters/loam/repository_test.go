package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/internal/testutils"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports/tests"
)

func TestRepository_Contract(t *testing.T) {
	_, repo := testutils.NewContentDir(t, map[string]string{
		"greeting.md":    "---\nid: greeting\nkind: block\n---\nHello",
		"greeting-es.md": "---\nid: greeting\nlanguage: es\n---\nHola",
	})

	tests.ContentRepositoryContractTest(t, New(loam.NewTypedRepository[ContentMetadata](repo)))
}

func TestRepository_MetadataAndImplicitID(t *testing.T) {
	files := map[string]string{
		"appeal-rights.md": `---
tags: [legal]
compliance_flags: [appeal-language]
variation: medicare
---
You may appeal this decision within 60 days.`,
		"signature.md": `---
kind: component
---
Sincerely, {{params.signer}}`,
	}
	_, repo := testutils.NewContentDir(t, files)

	r := New(loam.NewTypedRepository[ContentMetadata](repo))
	ctx := context.Background()

	c, err := r.Get(ctx, "appeal-rights", domain.Variant{Variation: "medicare"})
	require.NoError(t, err)
	assert.Equal(t, "You may appeal this decision within 60 days.", c.Body)
	assert.Equal(t, []string{"legal"}, c.Tags)
	assert.Equal(t, []string{"appeal-language"}, c.ComplianceFlags)

	_, err = r.Get(ctx, "appeal-rights", domain.Variant{})
	assert.ErrorIs(t, err, domain.ErrContentNotFound, "lookups are exact; fallback is the engine's job")

	ids, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"appeal-rights", "signature"}, ids)
}

func TestRepository_DetectsCollisions(t *testing.T) {
	files := map[string]string{
		"closing.md":     "---\nid: closing\n---\nThanks",
		"closing-old.md": "---\nid: closing\n---\nThank you",
	}
	_, repo := testutils.NewContentDir(t, files)

	r := New(loam.NewTypedRepository[ContentMetadata](repo))
	err := r.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "closing")
}
