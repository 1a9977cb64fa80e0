package lettergraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/lettergraph/internal/compiler"
	"github.com/aretw0/lettergraph/internal/runtime"
	fileAdapter "github.com/aretw0/lettergraph/pkg/adapters/file"
	loamAdapter "github.com/aretw0/lettergraph/pkg/adapters/loam"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
	"github.com/aretw0/lettergraph/pkg/registry"
)

// Engine is the high-level entry point for the lettergraph library.
// It loads graphs by id, compiles and caches them, and evaluates requests
// through the internal runtime.
type Engine struct {
	runtime     *runtime.Engine
	compiler    *compiler.Compiler
	nodes       *registry.Nodes
	loader      ports.GraphLoader
	cache       ports.GraphCache
	content     ports.ContentRepository
	contentDir  string
	provider    ports.DataProvider
	strict      bool
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger

	mu       sync.RWMutex
	compiled map[string]*domain.Graph

	Name string
}

var _ ports.Evaluator = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom GraphLoader, bypassing the default file loader.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithGraphCache puts a cache (memory, Redis) in front of the loader.
func WithGraphCache(c ports.GraphCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithContent sets the repository that resolves blocks and components.
func WithContent(repo ports.ContentRepository) Option {
	return func(e *Engine) {
		e.content = repo
	}
}

// WithContentDir serves content from a loam repository at dir. It is ignored
// when WithContent is also given.
func WithContentDir(dir string) Option {
	return func(e *Engine) {
		e.contentDir = dir
	}
}

// WithProvider sets the data provider used by data nodes, usually a
// *registry.Providers.
func WithProvider(p ports.DataProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithNodeRegistry replaces the builtin node catalog.
func WithNodeRegistry(nodes *registry.Nodes) Option {
	return func(e *Engine) {
		e.nodes = nodes
	}
}

// WithStrictExpressions rejects graphs with expression syntax errors at load
// time instead of reporting them as warnings during evaluation.
func WithStrictExpressions() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxNodeVisits bounds the node visits of a single evaluation.
func WithMaxNodeVisits(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxNodeVisits(n))
	}
}

// WithProviderTimeout sets the default timeout of one data provider attempt.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithProviderTimeout(d))
	}
}

// WithRetries sets how often a failed data provider call is retried.
func WithRetries(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRetries(n))
	}
}

// WithClock fixes the engine clock used when a request has no AsOf date.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(clock))
	}
}

// New initializes a new lettergraph Engine.
// By default, graphs are read from JSON or YAML files under graphDir.
// If WithLoader is provided, graphDir can be empty and only labels the engine.
func New(graphDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{compiled: make(map[string]*domain.Graph)}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if graphDir == "" {
			return nil, fmt.Errorf("graphDir is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(graphDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.loader = fileAdapter.New(absPath)
	} else if graphDir != "" {
		eng.Name = filepath.Base(graphDir)
	}

	if eng.content == nil && eng.contentDir != "" {
		absPath, err := filepath.Abs(eng.contentDir)
		if err != nil {
			return nil, fmt.Errorf("invalid content path: %w", err)
		}
		// Strict mode keeps numeric frontmatter consistent across formats;
		// the engine never writes content.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.content = loamAdapter.New(loam.NewTypedRepository[loamAdapter.ContentMetadata](repo))
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graphs", eng.Name)
	}
	if eng.nodes == nil {
		eng.nodes = registry.Builtin()
	}

	compilerOpts := []compiler.Option{compiler.WithLogger(eng.logger)}
	if eng.strict {
		compilerOpts = append(compilerOpts, compiler.WithStrictExpressions())
	}
	eng.compiler = compiler.New(eng.nodes, compilerOpts...)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithContent(eng.content),
		runtime.WithProvider(eng.provider),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	return eng, nil
}

// Evaluate loads req.GraphID and evaluates it.
func (e *Engine) Evaluate(ctx context.Context, req domain.Request) (*domain.EvaluationResult, error) {
	g, err := e.Graph(ctx, req.GraphID)
	if err != nil {
		return nil, err
	}
	return e.runtime.Evaluate(ctx, g, req)
}

// EvaluateDocument compiles doc and evaluates req against it. Inline documents
// are never cached.
func (e *Engine) EvaluateDocument(ctx context.Context, doc *domain.GraphDocument, req domain.Request) (*domain.EvaluationResult, error) {
	g, err := e.compiler.Compile(doc)
	if err != nil {
		return nil, err
	}
	if req.GraphID == "" {
		req.GraphID = doc.ID
	}
	return e.runtime.Evaluate(ctx, g, req)
}

// Validate compiles doc and returns its *domain.GraphError, if any.
func (e *Engine) Validate(_ context.Context, doc *domain.GraphDocument) error {
	_, err := e.compiler.Compile(doc)
	return err
}

// Graph returns the compiled graph for id. Versioned graphs are compiled once
// per id@version; unversioned graphs are recompiled on every load.
func (e *Engine) Graph(ctx context.Context, graphID string) (*domain.Graph, error) {
	doc, err := e.Document(ctx, graphID)
	if err != nil {
		return nil, err
	}
	key := ""
	if doc.Version != "" {
		key = doc.ID + "@" + doc.Version
		e.mu.RLock()
		g, ok := e.compiled[key]
		e.mu.RUnlock()
		if ok {
			return g, nil
		}
	}
	g, err := e.compiler.Compile(doc)
	if err != nil {
		return nil, err
	}
	if key != "" {
		e.mu.Lock()
		e.compiled[key] = g
		e.mu.Unlock()
	}
	return g, nil
}

// Document returns the graph document for id, consulting the cache first.
func (e *Engine) Document(ctx context.Context, graphID string) (*domain.GraphDocument, error) {
	if graphID == "" {
		return nil, fmt.Errorf("%w: empty graph id", domain.ErrGraphNotFound)
	}
	if e.cache != nil {
		doc, err := e.cache.Get(ctx, graphID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, domain.ErrGraphNotFound) {
			e.logger.Warn("graph cache unavailable", "graph_id", graphID, "err", err)
		}
	}

	doc, err := e.loader.Load(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = graphID
	}
	if e.cache != nil {
		if err := e.cache.Put(ctx, doc); err != nil {
			e.logger.Warn("graph cache put failed", "graph_id", graphID, "err", err)
		}
	}
	return doc, nil
}

// Invalidate drops graphID from the document cache and every compiled version.
func (e *Engine) Invalidate(ctx context.Context, graphID string) error {
	e.mu.Lock()
	for key, g := range e.compiled {
		if g.ID() == graphID {
			delete(e.compiled, key)
		}
	}
	e.mu.Unlock()
	if e.cache != nil {
		return e.cache.Invalidate(ctx, graphID)
	}
	return nil
}

// Graphs lists the ids served by the loader.
func (e *Engine) Graphs(ctx context.Context) ([]string, error) {
	return e.loader.List(ctx)
}

// NodeTypes returns the node catalog in registration order.
func (e *Engine) NodeTypes() []registry.NodeDefinition {
	return e.nodes.List()
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}

// Content returns the content repository, or nil.
func (e *Engine) Content() ports.ContentRepository {
	return e.content
}
