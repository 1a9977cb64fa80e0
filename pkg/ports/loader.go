package ports

import (
	"context"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// GraphLoader retrieves graph documents. Implementations return
// domain.ErrGraphNotFound (possibly wrapped) for unknown ids.
type GraphLoader interface {
	Load(ctx context.Context, graphID string) (*domain.GraphDocument, error)

	// List returns the ids of all graphs the loader can serve, sorted.
	// This is used by the CLI and the MCP server for discovery.
	List(ctx context.Context) ([]string, error)
}
