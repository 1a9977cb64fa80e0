package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/lettergraph/pkg/adapters/file"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
	"github.com/aretw0/lettergraph/pkg/redact"
	"github.com/aretw0/lettergraph/pkg/registry"
)

const (
	serverName = "lettergraph-mcp"

	graphURIPrefix = "lettergraph://graphs/"
	nodeTypesURI   = "lettergraph://node-types"
)

// Engine is what the MCP server needs from the lettergraph facade.
type Engine interface {
	ports.Evaluator
	NodeTypes() []registry.NodeDefinition
	Graphs(ctx context.Context) ([]string, error)
	Document(ctx context.Context, graphID string) (*domain.GraphDocument, error)
}

// EvaluateInput is the argument set of the evaluate_letter tool.
type EvaluateInput struct {
	GraphID   string         `json:"graph_id" jsonschema_description:"Id of the letter graph to evaluate"`
	Data      map[string]any `json:"data,omitempty" jsonschema_description:"Data context: member, claim, provider and enrollment records"`
	Channel   string         `json:"channel,omitempty" jsonschema_description:"Delivery channel, e.g. mail, email, sms, portal"`
	Language  string         `json:"language,omitempty" jsonschema_description:"BCP 47 language tag"`
	Variation string         `json:"variation,omitempty"`
	Format    string         `json:"format,omitempty" jsonschema_description:"html, markdown or text"`
	AsOf      string         `json:"as_of,omitempty" jsonschema_description:"Evaluation date, YYYY-MM-DD"`
}

// ValidateInput is the argument set of the validate_graph tool. Exactly one of
// GraphID and Document is used; Document wins.
type ValidateInput struct {
	GraphID  string `json:"graph_id,omitempty" jsonschema_description:"Id of a stored graph to validate"`
	Document string `json:"document,omitempty" jsonschema_description:"Graph document in JSON or YAML"`
}

// ValidateResult reports the structural problems of a graph.
type ValidateResult struct {
	Valid    bool             `json:"valid"`
	Problems []domain.Problem `json:"problems,omitempty"`
}

// Server wraps the lettergraph Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	redactor  *redact.Redactor
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

type Option func(*Server)

// WithRedactor masks derived variables in evaluate_letter results.
func WithRedactor(r *redact.Redactor) Option {
	return func(s *Server) {
		s.redactor = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer(serverName, strings.TrimSpace(version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("evaluate_letter",
		mcp.WithDescription("Evaluate a letter graph against a data context and return the rendered letter with its violations, warnings and review flags."),
		mcp.WithInputSchema[EvaluateInput](),
		mcp.WithOutputSchema[domain.EvaluationResult](),
	), s.handleEvaluate)

	s.mcpServer.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Check a graph document, or a stored graph, for structural problems."),
		mcp.WithInputSchema[ValidateInput](),
		mcp.WithOutputSchema[ValidateResult](),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("list_node_types",
		mcp.WithDescription("List the node types a graph may use, with their configuration schema."),
	), s.handleNodeTypes)

	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the ids of the stored letter graphs."),
	), s.handleGraphs)
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input EvaluateInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid evaluate_letter arguments", err), nil
	}
	if input.GraphID == "" {
		return mcp.NewToolResultError("graph_id is required"), nil
	}

	req := domain.Request{
		GraphID:   input.GraphID,
		Channel:   input.Channel,
		Language:  input.Language,
		Variation: input.Variation,
		Format:    input.Format,
	}
	if input.AsOf != "" {
		asOf, err := time.Parse(time.DateOnly, input.AsOf)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("as_of must be YYYY-MM-DD", err), nil
		}
		req.AsOf = asOf
	}
	data := input.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid data context", err), nil
	}
	req.Data = raw

	res, err := s.engine.Evaluate(ctx, req)
	if err != nil {
		s.logger.Warn("MCP evaluate failed", "graph_id", input.GraphID, "err", err)
		return mcp.NewToolResultErrorFromErr("evaluation failed", err), nil
	}
	if s.redactor != nil {
		res = s.redactor.Result(res)
	}
	return mcp.NewToolResultStructuredOnly(*res), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ValidateInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid validate_graph arguments", err), nil
	}

	var (
		doc *domain.GraphDocument
		err error
	)
	switch {
	case input.Document != "":
		ext := ".json"
		if !json.Valid([]byte(input.Document)) {
			ext = ".yaml"
		}
		doc, err = file.Decode([]byte(input.Document), ext)
	case input.GraphID != "":
		doc, err = s.engine.Document(ctx, input.GraphID)
	default:
		return mcp.NewToolResultError("graph_id or document is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("could not read graph", err), nil
	}

	err = s.engine.Validate(ctx, doc)
	if err == nil {
		return mcp.NewToolResultStructuredOnly(ValidateResult{Valid: true}), nil
	}
	var ge *domain.GraphError
	if errors.As(err, &ge) {
		return mcp.NewToolResultStructuredOnly(ValidateResult{Problems: ge.Problems}), nil
	}
	return mcp.NewToolResultErrorFromErr("validation failed", err), nil
}

func (s *Server) handleNodeTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(s.engine.NodeTypes())
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encode node types", err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleGraphs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.engine.Graphs(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list graphs", err), nil
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(nodeTypesURI, "Node type catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		out, err := json.Marshal(s.engine.NodeTypes())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: nodeTypesURI, MIMEType: "application/json", Text: string(out)},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(graphURIPrefix+"{id}", "Letter graph document",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := strings.CutPrefix(uri, graphURIPrefix)
	if !ok || id == "" {
		return nil, fmt.Errorf("unknown resource %q", uri)
	}
	doc, err := s.engine.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(out)},
	}, nil
}
