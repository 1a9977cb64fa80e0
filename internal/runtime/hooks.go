package runtime

import (
	"context"
	"time"

	"github.com/aretw0/lettergraph/pkg/domain"
)

func (r *run) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		RequestID: r.requestID,
		GraphID:   r.graph.ID(),
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, r *run, n *domain.CompiledNode) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: r.base(domain.EventNodeEnter), NodeID: n.ID, NodeType: n.Type})
}

func (e *Engine) emitNodeLeave(ctx context.Context, r *run, n *domain.CompiledNode) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: r.base(domain.EventNodeLeave), NodeID: n.ID, NodeType: n.Type})
}

func (e *Engine) emitProviderCall(ctx context.Context, r *run, nodeID, provider string, attempt int) {
	if e.hooks.OnProviderCall == nil {
		return
	}
	e.hooks.OnProviderCall(ctx, &domain.ProviderEvent{
		EventBase: r.base(domain.EventProviderCall),
		NodeID:    nodeID,
		Provider:  provider,
		Attempt:   attempt,
	})
}

func (e *Engine) emitProviderReturn(ctx context.Context, r *run, nodeID, provider string, attempt int, d time.Duration, failed bool) {
	if e.hooks.OnProviderReturn == nil {
		return
	}
	e.hooks.OnProviderReturn(ctx, &domain.ProviderEvent{
		EventBase: r.base(domain.EventProviderReturn),
		NodeID:    nodeID,
		Provider:  provider,
		Attempt:   attempt,
		Duration:  d,
		IsError:   failed,
	})
}

func (e *Engine) emitEvaluationDone(ctx context.Context, r *run, res *domain.EvaluationResult, d time.Duration) {
	if e.hooks.OnEvaluationDone == nil {
		return
	}
	e.hooks.OnEvaluationDone(ctx, &domain.EvaluationEvent{
		EventBase:  r.base(domain.EventEvaluationDone),
		Outcome:    res.Outcome,
		Violations: len(res.Violations),
		Warnings:   len(res.Warnings),
		Duration:   d,
	})
}
