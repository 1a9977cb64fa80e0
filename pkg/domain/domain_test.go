package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Variant
		want []domain.Variant
	}{
		{
			name: "regional language with variation",
			in:   domain.Variant{Language: "es-MX", Variation: "v2"},
			want: []domain.Variant{
				{Language: "es-MX", Variation: "v2"},
				{Language: "es-MX"},
				{Language: "es", Variation: "v2"},
				{Language: "es"},
				{Variation: "v2"},
				{},
			},
		},
		{
			name: "plain language",
			in:   domain.Variant{Language: "en"},
			want: []domain.Variant{{Language: "en"}, {}},
		},
		{
			name: "nothing requested",
			in:   domain.Variant{},
			want: []domain.Variant{{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Fallbacks())
		})
	}
}

func TestParseComplianceLevel(t *testing.T) {
	l, err := domain.ParseComplianceLevel("")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelRequired, l)

	l, err = domain.ParseComplianceLevel(" Blocking ")
	require.NoError(t, err)
	assert.Equal(t, domain.LevelBlocking, l)

	_, err = domain.ParseComplianceLevel("fatal")
	assert.Error(t, err)
}

func TestGraphError(t *testing.T) {
	err := domain.NewGraphError("g1", []domain.Problem{
		{Kind: domain.GraphCycle, NodeID: "a", Msg: "cycle through a, b"},
		{Kind: domain.GraphOrphan, NodeID: "z", Msg: "unreachable from entry"},
	})

	assert.ErrorIs(t, err, domain.ErrGraph)
	assert.Equal(t, domain.GraphCycle, err.Kind)
	assert.Equal(t, "a", err.NodeID)
	assert.True(t, err.Has(domain.GraphOrphan))
	assert.False(t, err.Has(domain.GraphEntry))
	assert.Contains(t, err.Error(), "2 problems")

	var ge *domain.GraphError
	wrapped := errors.Join(errors.New("load"), err)
	require.ErrorAs(t, wrapped, &ge)
	assert.Equal(t, "g1", ge.GraphID)
}

func TestExternalCallError_UnwrapsBoth(t *testing.T) {
	cause := errors.New("connection refused")
	err := &domain.ExternalCallError{NodeID: "q1", Provider: "claims", Attempts: 3, Err: cause}

	assert.ErrorIs(t, err, domain.ErrExternalCall)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 attempt(s)")
}

func TestConditionConfig_Source(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.ConditionConfig
		want string
	}{
		{"expression wins", domain.ConditionConfig{Expression: "{{a}} > 1"}, "{{a}} > 1"},
		{"equals string", domain.ConditionConfig{Field: "claim.status", Operator: "equals", Value: "DENIED"}, `{{claim.status}} == "DENIED"`},
		{"default operator", domain.ConditionConfig{Field: "n", Value: 3}, "{{n}} == 3"},
		{"greater than", domain.ConditionConfig{Field: "n", Operator: "gt", Value: 3}, "{{n}} > 3"},
		{"in list", domain.ConditionConfig{Field: "s", Operator: "in", Value: []any{"A", "B"}}, `({{s}} == "A" || {{s}} == "B")`},
		{"contains", domain.ConditionConfig{Field: "codes", Operator: "contains", Value: "I10"}, `CONTAINS({{codes}}, "I10")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate())
			got, err := tt.cfg.Source()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	bad := domain.ConditionConfig{Field: "n", Operator: "approximately", Value: 1}
	assert.Error(t, bad.Validate())

	empty := domain.ConditionConfig{}
	assert.Error(t, empty.Validate())
	empty.AllowEmpty = true
	assert.NoError(t, empty.Validate())
}

func TestConfigDefaults(t *testing.T) {
	loop := &domain.LoopConfig{Source: "claim.lines"}
	require.NoError(t, loop.Validate())
	assert.Equal(t, "item", loop.ItemVariable)

	dx := &domain.DiagnosisMatchConfig{Codes: []string{"E11*"}}
	require.NoError(t, dx.Validate())
	assert.Equal(t, "member.diagnoses", dx.Field)

	rule := &domain.ComplianceRuleConfig{RuleID: "r1", Trigger: "true", Level: "recommended", BlockingRule: true}
	require.NoError(t, rule.Validate())
	assert.Equal(t, domain.LevelBlocking, rule.Rule().Level)

	assert.Error(t, (&domain.SetVariableConfig{Name: "a.b", Value: 1}).Validate())
	assert.Error(t, (&domain.TableLoopConfig{Source: "x"}).Validate())
}

func TestGraph_Accessors(t *testing.T) {
	doc := &domain.GraphDocument{
		ID:      "g",
		Version: "3",
		Nodes:   []domain.Node{{ID: "s", Type: domain.NodeTypeStart}, {ID: "t", Type: domain.NodeTypeDynamicText}},
		Edges:   []domain.Edge{{ID: "e1", Source: "s", Target: "t"}},
		Variables: []domain.VariableDefinition{
			{Key: "member.name", Required: true},
		},
	}
	nodes := []*domain.CompiledNode{
		{Node: doc.Nodes[0], Config: domain.EmptyConfig{}},
		{Node: doc.Nodes[1], Config: &domain.DynamicTextConfig{Text: "hi"}},
	}
	g := domain.NewGraph(doc, "s", nodes, []string{"s", "t"})

	assert.Equal(t, "g", g.ID())
	assert.Equal(t, "3", g.Version())
	assert.Equal(t, "s", g.Entry())
	assert.Len(t, g.Outgoing("s"), 1)
	assert.Empty(t, g.Outgoing("t"))

	def, ok := g.Variable("member.name")
	require.True(t, ok)
	assert.True(t, def.Required)

	// Mutating the document afterwards does not leak into the snapshot.
	doc.Edges[0].Target = "elsewhere"
	assert.Equal(t, "t", g.Edges()[0].Target)

	order := g.Order()
	order[0] = "x"
	assert.Equal(t, []string{"s", "t"}, g.Order())
}
