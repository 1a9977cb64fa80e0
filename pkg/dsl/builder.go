package dsl

import (
	"fmt"

	"github.com/aretw0/lettergraph/pkg/adapters/memory"
	"github.com/aretw0/lettergraph/pkg/domain"
)

// Builder manages the graph construction. Nodes and edges keep the order in
// which they were added.
type Builder struct {
	doc   domain.GraphDocument
	nodes map[string]*NodeBuilder
	order []*NodeBuilder
	edges int
}

// New creates a new graph builder for graph id.
func New(id string) *Builder {
	return &Builder{
		doc:   domain.GraphDocument{ID: id},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Version sets the graph version.
func (b *Builder) Version(v string) *Builder {
	b.doc.Version = v
	return b
}

// Variable declares a variable of the data context.
func (b *Builder) Variable(key string, typ domain.VariableType, required bool) *Builder {
	b.doc.Variables = append(b.doc.Variables, domain.VariableDefinition{Key: key, Type: typ, Required: required})
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, typ domain.NodeType) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Type: typ, Config: map[string]any{}},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, nb)
	return nb
}

func (b *Builder) connect(source, target, label string) {
	b.edges++
	b.doc.Edges = append(b.doc.Edges, domain.Edge{
		ID:     fmt.Sprintf("e%d", b.edges),
		Source: source,
		Target: target,
		Label:  label,
	})
}

// Document returns a copy of the graph document built so far.
func (b *Builder) Document() *domain.GraphDocument {
	doc := b.doc
	doc.Nodes = make([]domain.Node, 0, len(b.order))
	for _, nb := range b.order {
		n := nb.node
		if len(n.Config) == 0 {
			n.Config = nil
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	doc.Edges = append([]domain.Edge(nil), b.doc.Edges...)
	doc.Variables = append([]domain.VariableDefinition(nil), b.doc.Variables...)
	return &doc
}

// Build returns a memory loader serving the graph.
func (b *Builder) Build() (*memory.Loader, error) {
	loader, err := memory.NewLoader(b.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
