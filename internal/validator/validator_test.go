package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/internal/validator"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/registry"
)

func node(id string, t domain.NodeType) domain.Node {
	return domain.Node{ID: id, Type: t}
}

func edge(id, src, dst, label string) domain.Edge {
	return domain.Edge{ID: id, Source: src, Target: dst, Label: label}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name      string
		doc       domain.GraphDocument
		wantKinds []domain.GraphErrorKind
		wantNode  string // node id of the first problem, when set
		wantMsg   string // substring of the first problem, when set
	}{
		{
			name: "Valid",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("cond", domain.NodeTypeCondition),
					node("appeal", domain.NodeTypeBlock),
					node("approved", domain.NodeTypeBlock),
				},
				Edges: []domain.Edge{
					edge("e1", "start", "cond", ""),
					edge("e2", "cond", "appeal", domain.LabelTrue),
					edge("e3", "cond", "approved", domain.LabelFalse),
				},
			},
		},
		{
			name:      "Empty",
			doc:       domain.GraphDocument{},
			wantKinds: []domain.GraphErrorKind{domain.GraphEmpty},
		},
		{
			name: "Duplicate Node",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{node("start", domain.NodeTypeStart), node("start", domain.NodeTypeDynamicText)},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphDuplicateID},
			wantNode:  "start",
		},
		{
			name: "Unknown Type",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{node("start", domain.NodeTypeStart), node("x", "teleport")},
				Edges: []domain.Edge{edge("e1", "start", "x", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphUnknownType},
			wantNode:  "x",
		},
		{
			name: "Dangling Edge",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{node("start", domain.NodeTypeStart)},
				Edges: []domain.Edge{edge("e1", "start", "ghost", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphDanglingEdge},
			wantMsg:   `target "ghost" does not exist`,
		},
		{
			name: "Self Reference",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{node("start", domain.NodeTypeStart), node("a", domain.NodeTypeDynamicText)},
				Edges: []domain.Edge{edge("e1", "start", "a", ""), edge("e2", "a", "a", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphSelfReference},
			wantNode:  "a",
		},
		{
			name: "Cycle Reports Remaining Nodes",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("a", domain.NodeTypeDynamicText),
					node("b", domain.NodeTypeDynamicText),
				},
				Edges: []domain.Edge{edge("e1", "start", "a", ""), edge("e2", "a", "b", ""), edge("e3", "b", "a", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphCycle},
			wantNode:  "a",
			wantMsg:   "a, b",
		},
		{
			name: "Orphan",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("a", domain.NodeTypeDynamicText),
					node("stray", domain.NodeTypeDynamicText),
				},
				Edges: []domain.Edge{edge("e1", "start", "a", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphOrphan},
			wantNode:  "stray",
		},
		{
			name: "Multiple Entry Candidates",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{node("a", domain.NodeTypeDynamicText), node("b", domain.NodeTypeDynamicText)},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphEntry},
			wantMsg:   "multiple entry candidates",
		},
		{
			name: "Entry With Incoming Edges",
			doc: domain.GraphDocument{
				EntryID: "a",
				Nodes:   []domain.Node{node("start", domain.NodeTypeStart), node("a", domain.NodeTypeDynamicText)},
				Edges:   []domain.Edge{edge("e1", "start", "a", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphEntry},
			wantNode:  "a",
		},
		{
			name: "Condition Missing False Edge",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("cond", domain.NodeTypeCondition),
					node("appeal", domain.NodeTypeBlock),
				},
				Edges: []domain.Edge{edge("e1", "start", "cond", ""), edge("e2", "cond", "appeal", domain.LabelTrue)},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphBranch},
			wantNode:  "cond",
			wantMsg:   "has 1 true and 0 false",
		},
		{
			name: "Switch Label Outside Cases",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					{ID: "plan", Type: domain.NodeTypeSwitch, Config: map[string]any{"cases": []any{"HMO", "PPO"}}},
					node("hmo", domain.NodeTypeBlock),
					node("epo", domain.NodeTypeBlock),
				},
				Edges: []domain.Edge{
					edge("e1", "start", "plan", ""),
					edge("e2", "plan", "hmo", "HMO"),
					edge("e3", "plan", "epo", "EPO"),
				},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphBranch},
			wantNode:  "plan",
			wantMsg:   `"EPO"`,
		},
		{
			name: "Return With Outgoing Edge",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("stop", domain.NodeTypeReturn),
					node("after", domain.NodeTypeDynamicText),
				},
				Edges: []domain.Edge{edge("e1", "start", "stop", ""), edge("e2", "stop", "after", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphBranch},
			wantNode:  "stop",
		},
		{
			name: "Problems Sorted By Kind",
			doc: domain.GraphDocument{
				Nodes: []domain.Node{
					node("start", domain.NodeTypeStart),
					node("a", domain.NodeTypeDynamicText),
					node("a", domain.NodeTypeDynamicText),
				},
				Edges: []domain.Edge{edge("e1", "start", "ghost", ""), edge("e2", "start", "a", "")},
			},
			wantKinds: []domain.GraphErrorKind{domain.GraphDuplicateID, domain.GraphDanglingEdge},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validator.ValidateGraph(&tt.doc, registry.Builtin())

			var kinds []domain.GraphErrorKind
			for _, p := range res.Problems {
				kinds = append(kinds, p.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds, "problems: %+v", res.Problems)
			assert.Equal(t, len(tt.wantKinds) == 0, res.OK())

			if tt.wantNode == "" && tt.wantMsg == "" {
				return
			}
			require.NotEmpty(t, res.Problems)
			if tt.wantNode != "" {
				assert.Equal(t, tt.wantNode, res.Problems[0].NodeID)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, res.Problems[0].Msg, tt.wantMsg)
			}
		})
	}
}

func TestValidateGraph_EntryAndOrder(t *testing.T) {
	doc := &domain.GraphDocument{
		Nodes: []domain.Node{
			node("greet", domain.NodeTypeDynamicText),
			node("start", domain.NodeTypeStart),
			node("close", domain.NodeTypeDynamicText),
		},
		Edges: []domain.Edge{edge("e1", "start", "greet", ""), edge("e2", "greet", "close", "")},
	}

	res := validator.ValidateGraph(doc, registry.Builtin())
	require.True(t, res.OK(), "problems: %+v", res.Problems)
	assert.Equal(t, "start", res.Entry)
	assert.Equal(t, []string{"start", "greet", "close"}, res.Order)
}

func TestSort_KeepsDocumentOrderWithinKind(t *testing.T) {
	problems := []domain.Problem{
		{Kind: domain.GraphOrphan, NodeID: "x"},
		{Kind: domain.GraphDuplicateID, NodeID: "d"},
		{Kind: domain.GraphOrphan, NodeID: "y"},
		{Kind: domain.GraphDanglingEdge, EdgeID: "e9"},
	}
	validator.Sort(problems)

	var got []string
	for _, p := range problems {
		got = append(got, string(p.Kind)+":"+p.NodeID+p.EdgeID)
	}
	assert.Equal(t, []string{"duplicate_id:d", "dangling_edge:e9", "orphan:x", "orphan:y"}, got)
}
