package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// LogHooks logs node and provider events at Debug and finished evaluations at Info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "request_id", e.RequestID, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnProviderCall: func(ctx context.Context, e *domain.ProviderEvent) {
			logger.DebugContext(ctx, "provider_call", "request_id", e.RequestID, "node_id", e.NodeID, "provider", e.Provider, "attempt", e.Attempt)
		},
		OnProviderReturn: func(ctx context.Context, e *domain.ProviderEvent) {
			logger.DebugContext(ctx, "provider_return",
				"request_id", e.RequestID,
				"node_id", e.NodeID,
				"provider", e.Provider,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnEvaluationDone: func(ctx context.Context, e *domain.EvaluationEvent) {
			logger.InfoContext(ctx, "evaluation_done",
				"request_id", e.RequestID,
				"graph_id", e.GraphID,
				"outcome", e.Outcome,
				"violations", e.Violations,
				"warnings", e.Warnings,
				"duration", e.Duration,
			)
		},
	}
}

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnNodeEnter = chain(out.OnNodeEnter, s.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, s.OnNodeLeave)
		out.OnProviderCall = chain(out.OnProviderCall, s.OnProviderCall)
		out.OnProviderReturn = chain(out.OnProviderReturn, s.OnProviderReturn)
		out.OnEvaluationDone = chain(out.OnEvaluationDone, s.OnEvaluationDone)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
