package ports

import (
	"context"
	"encoding/json"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// DataProvider answers the calls of data nodes. It must honour ctx deadlines.
type DataProvider interface {
	Call(ctx context.Context, call domain.ProviderCall) (json.RawMessage, error)
}

// Evaluator is the engine surface used by driving adapters (HTTP, MCP, CLI).
type Evaluator interface {
	// Evaluate loads req.GraphID and evaluates it. Only *domain.GraphError,
	// domain.ErrGraphNotFound and domain.ErrCancelled are returned as errors.
	Evaluate(ctx context.Context, req domain.Request) (*domain.EvaluationResult, error)

	// EvaluateDocument evaluates an inline graph document.
	EvaluateDocument(ctx context.Context, doc *domain.GraphDocument, req domain.Request) (*domain.EvaluationResult, error)

	// Validate compiles doc and returns its *domain.GraphError, if any.
	Validate(ctx context.Context, doc *domain.GraphDocument) error
}
