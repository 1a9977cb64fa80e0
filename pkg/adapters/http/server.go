package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/lettergraph/pkg/batch"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
	"github.com/aretw0/lettergraph/pkg/redact"
	"github.com/aretw0/lettergraph/pkg/registry"
)

// maxBody bounds request bodies, batches included.
const maxBody = 16 << 20

// Engine is what the HTTP API needs from the lettergraph facade.
type Engine interface {
	ports.Evaluator
	NodeTypes() []registry.NodeDefinition
}

// Server serves the evaluation API.
type Server struct {
	Engine   Engine
	Batch    *batch.Runner
	Redactor *redact.Redactor
	Gatherer prometheus.Gatherer
	// Health, when set, is checked by GET /health (for example a Redis ping).
	Health  func(ctx context.Context) error
	Version string

	logger *slog.Logger
}

type Option func(*Server)

// WithBatchRunner replaces the default batch runner built over the engine.
func WithBatchRunner(r *batch.Runner) Option {
	return func(s *Server) {
		s.Batch = r
	}
}

// WithRedactor masks derived variables in responses.
func WithRedactor(r *redact.Redactor) Option {
	return func(s *Server) {
		s.Redactor = r
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

func WithHealthCheck(fn func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.Health = fn
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = strings.TrimSpace(v)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server over engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:  engine,
		Version: "dev",
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Batch == nil {
		s.Batch = batch.New(engine, batch.WithLogger(s.logger))
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes mounts the API on a chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/evaluate", s.Evaluate)
		r.Post("/batch", s.RunBatch)
		r.Post("/graphs/validate", s.ValidateGraph)
		r.Get("/node-types", s.ListNodeTypes)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EvaluateRequest is the body of POST /v1/evaluate. When Graph is set it is
// evaluated inline and GraphID only labels the result.
type EvaluateRequest struct {
	domain.Request
	Graph *domain.GraphDocument `json:"graph,omitempty"`
}

func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var body EvaluateRequest
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}
	if body.Graph == nil && body.GraphID == "" {
		s.fail(w, r, fmt.Errorf("%w: graphId or graph is required", domain.ErrInvalidRequest))
		return
	}

	var (
		res *domain.EvaluationResult
		err error
	)
	if body.Graph != nil {
		res, err = s.Engine.EvaluateDocument(r.Context(), body.Graph, body.Request)
	} else {
		res, err = s.Engine.Evaluate(r.Context(), body.Request)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("evaluated", "graph_id", res.GraphID, "request_id", res.RequestID, "outcome", res.Outcome)
	s.respond(w, http.StatusOK, s.redact(res))
}

// BatchRequest is the JSON body of POST /v1/batch. Bodies sent as
// application/x-ndjson hold one job per line instead.
type BatchRequest struct {
	Jobs []batch.Job `json:"jobs"`
}

type BatchResponse struct {
	Items   []batch.Item   `json:"items"`
	Summary map[string]int `json:"summary"`
}

func (s *Server) RunBatch(w http.ResponseWriter, r *http.Request) {
	var jobs []batch.Job
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-ndjson") {
		var err error
		jobs, err = batch.DecodeJobs(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
			return
		}
	} else {
		var body BatchRequest
		if err := decode(w, r, &body); err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
			return
		}
		jobs = body.Jobs
	}
	if len(jobs) == 0 {
		s.fail(w, r, fmt.Errorf("%w: no jobs", domain.ErrInvalidRequest))
		return
	}

	items := s.Batch.Run(r.Context(), jobs)
	for i := range items {
		items[i].Result = s.redact(items[i].Result)
	}
	summary := batch.Summary(items)
	s.logger.Info("batch evaluated", "jobs", len(jobs), "summary", summary)
	s.respond(w, http.StatusOK, BatchResponse{Items: items, Summary: summary})
}

// ValidationResponse reports the structural problems of a graph document.
type ValidationResponse struct {
	Valid    bool             `json:"valid"`
	Problems []domain.Problem `json:"problems,omitempty"`
}

func (s *Server) ValidateGraph(w http.ResponseWriter, r *http.Request) {
	var doc domain.GraphDocument
	if err := decode(w, r, &doc); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}
	err := s.Engine.Validate(r.Context(), &doc)
	if err == nil {
		s.respond(w, http.StatusOK, ValidationResponse{Valid: true})
		return
	}
	if ge, ok := asGraphError(err); ok {
		s.respond(w, http.StatusOK, ValidationResponse{Problems: ge.Problems})
		return
	}
	s.fail(w, r, err)
}

func (s *Server) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Engine.NodeTypes())
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "version": s.Version}
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			resp["status"] = "degraded"
			s.respond(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) redact(res *domain.EvaluationResult) *domain.EvaluationResult {
	if s.Redactor == nil || res == nil {
		return res
	}
	return s.Redactor.Result(res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
