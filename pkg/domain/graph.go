package domain

import "github.com/aretw0/lettergraph/pkg/expr"

// CompiledNode is a node with its decoded config and pre-parsed expressions.
// Parse failures are kept per field so the owning node can report them at evaluation.
type CompiledNode struct {
	Node
	Config    NodeConfig
	Exprs     map[string]*expr.Program
	Templates map[string]*expr.Template
	ExprErrs  map[string]error
}

// Expr returns the compiled expression for field, or the parse error recorded for it.
// A field with neither yields (nil, nil).
func (n *CompiledNode) Expr(field string) (*expr.Program, error) {
	if err, ok := n.ExprErrs[field]; ok {
		return nil, err
	}
	return n.Exprs[field], nil
}

// Template returns the compiled template for field, or the parse error recorded for it.
func (n *CompiledNode) Template(field string) (*expr.Template, error) {
	if err, ok := n.ExprErrs[field]; ok {
		return nil, err
	}
	return n.Templates[field], nil
}

// Graph is an immutable, validated logic graph. It is safe for concurrent use by
// any number of evaluations.
type Graph struct {
	id        string
	version   string
	entry     string
	nodes     map[string]*CompiledNode
	order     []string
	outgoing  map[string][]Edge
	edges     []Edge
	variables map[string]VariableDefinition
	varOrder  []VariableDefinition
	metadata  map[string]string
}

// NewGraph assembles a snapshot. nodes must be in document order and order must
// be a topological order of node ids. The compiler is the only intended caller.
func NewGraph(doc *GraphDocument, entry string, nodes []*CompiledNode, order []string) *Graph {
	g := &Graph{
		id:        doc.ID,
		version:   doc.Version,
		entry:     entry,
		nodes:     make(map[string]*CompiledNode, len(nodes)),
		order:     append([]string(nil), order...),
		outgoing:  make(map[string][]Edge, len(nodes)),
		edges:     append([]Edge(nil), doc.Edges...),
		variables: make(map[string]VariableDefinition, len(doc.Variables)),
		varOrder:  append([]VariableDefinition(nil), doc.Variables...),
		metadata:  doc.Metadata,
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range doc.Edges {
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	}
	for _, v := range doc.Variables {
		g.variables[v.Key] = v
	}
	return g
}

func (g *Graph) ID() string      { return g.id }
func (g *Graph) Version() string { return g.version }
func (g *Graph) Entry() string   { return g.entry }

// Node returns the compiled node with the given id.
func (g *Graph) Node(id string) (*CompiledNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Outgoing returns the edges leaving id in document order. The slice must not be modified.
func (g *Graph) Outgoing(id string) []Edge { return g.outgoing[id] }

// Edges returns a copy of all edges in document order.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Order returns node ids in topological order.
func (g *Graph) Order() []string { return append([]string(nil), g.order...) }

// Nodes returns the compiled nodes in topological order.
func (g *Graph) Nodes() []*CompiledNode {
	out := make([]*CompiledNode, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Variable returns the definition registered for key.
func (g *Graph) Variable(key string) (VariableDefinition, bool) {
	v, ok := g.variables[key]
	return v, ok
}

// Variables returns the variable definitions in document order.
func (g *Graph) Variables() []VariableDefinition {
	return append([]VariableDefinition(nil), g.varOrder...)
}

// Metadata returns a document metadata value.
func (g *Graph) Metadata(key string) (string, bool) {
	v, ok := g.metadata[key]
	return v, ok
}
