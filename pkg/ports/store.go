package ports

import (
	"context"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// GraphCache keeps graph documents in front of a slow GraphLoader.
// Entries expire after an implementation-defined TTL.
type GraphCache interface {
	// Get returns domain.ErrGraphNotFound on a miss.
	Get(ctx context.Context, graphID string) (*domain.GraphDocument, error)
	Put(ctx context.Context, doc *domain.GraphDocument) error
	Invalidate(ctx context.Context, graphID string) error
}

// ContentRepository resolves blocks and components. Get matches the variant
// exactly; the engine walks domain.Variant.Fallbacks itself. A miss returns
// domain.ErrContentNotFound.
type ContentRepository interface {
	Get(ctx context.Context, id string, variant domain.Variant) (*domain.Content, error)
}
