package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph"
	"github.com/aretw0/lettergraph/pkg/adapters/memory"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/dsl"
	"github.com/aretw0/lettergraph/pkg/redact"
)

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	b := dsl.New("welcome").Version("3")
	b.Start("start").To("phone")
	b.Derived("phone", "contactPhone", "{{member.phone}}").To("greet")
	b.Text("greet", "Welcome, {{member.name}}.")
	loader, err := b.Build()
	require.NoError(t, err)

	eng, err := lettergraph.New("", lettergraph.WithLoader(loader), lettergraph.WithContent(memory.NewContent()))
	require.NoError(t, err)
	return NewServer(eng, "0.1.0\n", opts...)
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestEvaluateLetter(t *testing.T) {
	s := newServer(t, WithRedactor(redact.Default()))

	res, err := s.handleEvaluate(context.Background(), call("evaluate_letter", map[string]any{
		"graph_id": "welcome",
		"format":   "text",
		"as_of":    "2024-03-15",
		"data":     map[string]any{"member": map[string]any{"name": "Ana", "phone": "5551234567"}},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	result, ok := res.StructuredContent.(domain.EvaluationResult)
	require.True(t, ok, "got %T", res.StructuredContent)
	assert.Equal(t, "Welcome, Ana.", result.RenderedContent)
	assert.Equal(t, "3", result.GraphVersion)
	assert.Equal(t, redact.Mask, result.DerivedVariables["contactPhone"])
}

func TestEvaluateLetter_Errors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing graph id", map[string]any{}},
		{"unknown graph", map[string]any{"graph_id": "nope"}},
		{"bad date", map[string]any{"graph_id": "welcome", "as_of": "15/03/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleEvaluate(context.Background(), call("evaluate_letter", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestValidateGraph(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleValidate(ctx, call("validate_graph", map[string]any{"graph_id": "welcome"}))
	require.NoError(t, err)
	assert.Equal(t, ValidateResult{Valid: true}, res.StructuredContent)

	yamlDoc := `
id: broken
nodes:
  - id: start
    type: start
  - id: loose
    type: dynamic_text
    config:
      text: never reached
edges: []
`
	res, err = s.handleValidate(ctx, call("validate_graph", map[string]any{"document": yamlDoc}))
	require.NoError(t, err)
	got, ok := res.StructuredContent.(ValidateResult)
	require.True(t, ok)
	assert.False(t, got.Valid)
	require.NotEmpty(t, got.Problems)
	assert.Equal(t, domain.GraphOrphan, got.Problems[0].Kind)

	res, err = s.handleValidate(ctx, call("validate_graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListTools(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleNodeTypes(ctx, call("list_node_types", nil))
	require.NoError(t, err)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &defs))
	assert.NotEmpty(t, defs)

	res, err = s.handleGraphs(ctx, call("list_graphs", nil))
	require.NoError(t, err)
	assert.Equal(t, "welcome", text(t, res))
}

func TestReadGraphResource(t *testing.T) {
	s := newServer(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = graphURIPrefix + "welcome"
	contents, err := s.readGraph(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var doc domain.GraphDocument
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &doc))
	assert.Equal(t, "welcome", doc.ID)
	assert.Len(t, doc.Nodes, 3)

	req.Params.URI = "lettergraph://other/welcome"
	_, err = s.readGraph(context.Background(), req)
	assert.Error(t, err)
}
