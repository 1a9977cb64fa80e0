// Package runtime walks a compiled logic graph for one request and turns it
// into an evaluation result.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/lettergraph/pkg/compliance"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
	"github.com/aretw0/lettergraph/pkg/render"
	"github.com/aretw0/lettergraph/pkg/scope"
)

const (
	// DefaultMaxNodeVisits bounds the work a single evaluation may do.
	DefaultMaxNodeVisits = 10000
	// DefaultProviderTimeout applies to data nodes without timeoutMs.
	DefaultProviderTimeout = 5 * time.Second
	// DefaultRetryInterval is the first backoff interval between provider attempts.
	DefaultRetryInterval = 200 * time.Millisecond
)

const tracerName = "github.com/aretw0/lettergraph/internal/runtime"

// Engine evaluates compiled graphs. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	content         ports.ContentRepository
	provider        ports.DataProvider
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	tracer          trace.Tracer
	maxVisits       int
	providerTimeout time.Duration
	retries         int
	retryInterval   time.Duration
	clock           func() time.Time
	newID           func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithContent sets the repository blocks and components are resolved from.
func WithContent(repo ports.ContentRepository) EngineOption {
	return func(e *Engine) { e.content = repo }
}

// WithProvider sets the data provider used by data nodes.
func WithProvider(p ports.DataProvider) EngineOption {
	return func(e *Engine) { e.provider = p }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMaxNodeVisits bounds node visits per evaluation. Values below 1 are ignored.
func WithMaxNodeVisits(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxVisits = n
		}
	}
}

// WithProviderTimeout sets the per-attempt timeout of data nodes without timeoutMs.
func WithProviderTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.providerTimeout = d
		}
	}
}

// WithRetries sets how many times a failed provider call is retried when the
// node does not say.
func WithRetries(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithRetryInterval sets the initial backoff interval between provider attempts.
func WithRetryInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.retryInterval = d
		}
	}
}

// WithClock sets the clock used when a request carries no asOf date.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine creates an engine. Without a content repository every block is
// reported as not found; without a provider every data node fails.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tracer:          otel.Tracer(tracerName),
		maxVisits:       DefaultMaxNodeVisits,
		providerTimeout: DefaultProviderTimeout,
		retries:         2,
		retryInterval:   DefaultRetryInterval,
		clock:           time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one request against a compiled graph. Node-level problems are
// reported inside the result; only an unusable request or cancellation yields an
// error.
func (e *Engine) Evaluate(ctx context.Context, g *domain.Graph, req domain.Request) (*domain.EvaluationResult, error) {
	started := time.Now()
	requestID := e.newID()

	ctx, span := e.tracer.Start(ctx, "lettergraph.evaluate", trace.WithAttributes(
		attribute.String("lettergraph.request_id", requestID),
		attribute.String("lettergraph.graph_id", g.ID()),
		attribute.String("lettergraph.graph_version", g.Version()),
		attribute.String("lettergraph.channel", req.Channel),
	))
	defer span.End()

	data, err := scope.NewData(req.Data)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	var warnings []domain.Warning
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		warnings = append(warnings, domain.Warning{Kind: domain.WarnNoMatch, Message: err.Error() + "; rendering html"})
		format = render.FormatHTML
	}

	now := req.AsOf
	if now.IsZero() {
		now = e.clock()
	}

	r := &run{
		engine:    e,
		ctx:       ctx,
		graph:     g,
		requestID: requestID,
		scope: scope.New(data, g.Variables(), scope.Flags{
			Channel:   req.Channel,
			Language:  req.Language,
			Variation: req.Variation,
		}, now),
		checker:  compliance.New(),
		warnings: warnings,
		logger:   e.logger.With("request_id", requestID, "graph_id", g.ID()),
	}

	instrs, err := r.visit(g.Entry())
	switch {
	case err == nil, errors.Is(err, errHalt), errors.Is(err, errAbort):
	case ctx.Err() != nil:
		span.SetStatus(codes.Error, "cancelled")
		r.logger.Info("evaluation cancelled", "visits", r.visits)
		return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	default:
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	flags := r.scope.Flags()
	report := r.checker.Finalize()
	content, renderWarnings := render.New(format, flags.Language).Render(instrs)

	res := &domain.EvaluationResult{
		RequestID:        requestID,
		GraphID:          g.ID(),
		GraphVersion:     g.Version(),
		Channel:          flags.Channel,
		Language:         flags.Language,
		Variation:        flags.Variation,
		Format:           string(format),
		RenderedContent:  content,
		Violations:       nonNil(report.Violations),
		Warnings:         nonNil(append(r.warnings, renderWarnings...)),
		DerivedVariables: r.scope.Derived(),
		Flags:            nonNil(append(r.flags, report.Flags...)),
		IncludedContent:  r.included,
		Outcome:          domain.OutcomeClean,
	}

	switch {
	case r.aborted != "":
		res.AbortReason = r.aborted
	case report.Blocked():
		res.AbortReason = "blocking compliance violation: " + firstBlocking(report.Violations)
	}
	if res.AbortReason != "" {
		res.Aborted = true
		res.RenderedContent = ""
		res.Outcome = domain.OutcomeAborted
	} else if len(res.Violations) > 0 {
		res.Outcome = domain.OutcomeAdvisory
	}

	span.SetAttributes(
		attribute.String("lettergraph.outcome", string(res.Outcome)),
		attribute.Int("lettergraph.violations", len(res.Violations)),
		attribute.Int("lettergraph.warnings", len(res.Warnings)),
	)
	elapsed := time.Since(started)
	e.emitEvaluationDone(ctx, r, res, elapsed)
	r.logger.Debug("evaluation finished",
		"outcome", res.Outcome,
		"visits", r.visits,
		"violations", len(res.Violations),
		"warnings", len(res.Warnings),
		"duration", elapsed)
	return res, nil
}

func firstBlocking(vs []domain.Violation) string {
	for _, v := range vs {
		if v.Level == domain.LevelBlocking {
			return v.RuleID
		}
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
