package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

var errInvalidPayload = errors.New("provider returned invalid JSON")

// call builds the provider request of a data node from its templates.
func (r *run) call(n *domain.CompiledNode, cfg *domain.DataConfig) (domain.ProviderCall, bool) {
	c := domain.ProviderCall{
		NodeID:   n.ID,
		NodeType: n.Type,
		Provider: cfg.Provider,
		Method:   strings.ToUpper(cfg.Method),
	}
	ok := true
	if cfg.Resource != "" {
		c.Resource, ok = r.templateText(n, "resource")
	}
	if len(cfg.Params) > 0 {
		c.Params = make(map[string]any, len(cfg.Params))
		for k, v := range cfg.Params {
			if _, isString := v.(string); isString {
				s, good := r.templateText(n, "params."+k)
				ok = ok && good
				c.Params[k] = s
				continue
			}
			c.Params[k] = v
		}
	}
	if cfg.Body != "" {
		s, good := r.templateText(n, "body")
		ok = ok && good
		if json.Valid([]byte(s)) {
			c.Body = json.RawMessage(s)
		} else {
			quoted, _ := json.Marshal(s)
			c.Body = quoted
		}
	}
	return c, ok
}

// fetch calls the provider with a per-attempt timeout, retrying transient failures
// with exponential backoff.
func (r *run) fetch(cfg *domain.DataConfig, c domain.ProviderCall) (json.RawMessage, int, error) {
	e := r.engine
	if e.provider == nil {
		return nil, 0, fmt.Errorf("%w: no data provider configured", domain.ErrProviderNotFound)
	}
	timeout := e.providerTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	retries := e.retries
	if cfg.Retries > 0 {
		retries = cfg.Retries
	}

	ctx, span := e.tracer.Start(r.ctx, "lettergraph.provider", trace.WithAttributes(
		attribute.String("lettergraph.node_id", c.NodeID),
		attribute.String("lettergraph.provider", c.Provider),
		attribute.String("lettergraph.resource", c.Resource),
	))
	defer span.End()

	attempts := 0
	op := func() (json.RawMessage, error) {
		attempts++
		e.emitProviderCall(ctx, r, c.NodeID, c.Provider, attempts)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		started := time.Now()
		out, err := e.provider.Call(callCtx, c)
		if err == nil && !json.Valid(out) {
			err = backoff.Permanent(errInvalidPayload)
		}
		e.emitProviderReturn(ctx, r, c.NodeID, c.Provider, attempts, time.Since(started), err != nil)
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, domain.ErrProviderNotFound), errors.Is(err, domain.ErrProviderRejected), ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		}
		r.logger.Debug("provider attempt failed", "node_id", c.NodeID, "provider", c.Provider, "attempt", attempts, "err", err)
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval
	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(retries+1)),
	)
	span.SetAttributes(attribute.Int("lettergraph.attempts", attempts))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return out, attempts, err
}

// dataCall handles query, api_call, push_data and fhir_query nodes. The response
// is merged into the data context at the node's target, by default data.<nodeId>.
// push_data responses are only merged when a target is set.
func (r *run) dataCall(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.DataConfig)
	edges := r.graph.Outgoing(n.ID)

	c, ok := r.call(n, cfg)
	var (
		out      json.RawMessage
		attempts int
		err      error
	)
	if ok {
		out, attempts, err = r.fetch(cfg, c)
	} else {
		err = errors.New("request could not be built")
	}
	if err != nil {
		if cerr := r.ctx.Err(); cerr != nil {
			return nil, nil, cerr
		}
		return r.dataFailed(n, cfg.Critical, &domain.ExternalCallError{NodeID: n.ID, Provider: cfg.Provider, Attempts: attempts, Err: err})
	}

	target := cfg.Target
	if target == "" && n.Type != domain.NodeTypePushData {
		target = "data." + n.ID
	}
	if target != "" {
		if err := r.scope.MergeData(target, out); err != nil {
			return r.dataFailed(n, cfg.Critical, &domain.ExternalCallError{NodeID: n.ID, Provider: cfg.Provider, Attempts: attempts, Err: err})
		}
	}
	return nil, unlabeled(edges), nil
}

// dataFailed records a data node failure. Critical nodes abort the evaluation;
// others follow their error edge, if any.
func (r *run) dataFailed(n *domain.CompiledNode, critical bool, err error) ([]domain.RenderInstruction, []domain.Edge, error) {
	if critical {
		return nil, nil, r.abort(n.ID, domain.WarnExternalCall, err.Error())
	}
	r.warn(n.ID, domain.WarnExternalCall, "%v", err)
	return nil, labeled(r.graph.Outgoing(n.ID), domain.LabelError), nil
}

// dataJoin merges two arrays of objects by key. Right-hand fields never
// overwrite left-hand ones.
func (r *run) dataJoin(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.DataJoinConfig)
	left, lok := r.scope.Resolve(cfg.Left)
	right, rok := r.scope.Resolve(cfg.Right)
	ls, lIsList := left.([]any)
	rs, rIsList := right.([]any)
	if !lok || !rok || (left != nil && !lIsList) || (right != nil && !rIsList) {
		return r.dataFailed(n, false, fmt.Errorf("join needs lists at %s and %s", cfg.Left, cfg.Right))
	}

	index := make(map[string]map[string]any, len(rs))
	for _, row := range rs {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		key := expr.Stringify(m[cfg.RightKey])
		if _, dup := index[key]; !dup {
			index[key] = m
		}
	}

	joined := make([]any, 0, len(ls))
	for _, row := range ls {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		match, found := index[expr.Stringify(m[cfg.LeftKey])]
		if !found && cfg.Inner {
			continue
		}
		merged := make(map[string]any, len(m)+len(match))
		for k, v := range match {
			merged[k] = v
		}
		for k, v := range m {
			merged[k] = v
		}
		joined = append(joined, merged)
	}

	raw, err := json.Marshal(joined)
	if err == nil {
		target := cfg.Target
		if target == "" {
			target = "data." + n.ID
		}
		err = r.scope.MergeData(target, raw)
	}
	if err != nil {
		return r.dataFailed(n, false, err)
	}
	return nil, unlabeled(r.graph.Outgoing(n.ID)), nil
}
