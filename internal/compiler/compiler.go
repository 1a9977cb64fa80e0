// Package compiler turns graph documents into immutable, validated graphs.
//
// Compilation strips editor presentation metadata, validates every node config
// against its type's schema, decodes it into the typed config record, parses
// expressions and templates once, and runs the structural checks of the
// validator package. All problems are aggregated into one *domain.GraphError.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/lettergraph/internal/validator"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
	"github.com/aretw0/lettergraph/pkg/registry"
	"github.com/aretw0/lettergraph/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// presentationKeys are written by the visual editor and carry no logic.
var presentationKeys = []string{
	"ui", "position", "positionAbsolute", "handles", "width", "height",
	"selected", "dragging", "label", "description",
}

// Compiler compiles graph documents against a node catalog. It is safe for concurrent use.
type Compiler struct {
	nodes  *registry.Nodes
	strict bool
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithStrictExpressions turns expression and template syntax errors into graph
// errors instead of node-level warnings at evaluation time.
func WithStrictExpressions() Option {
	return func(c *Compiler) { c.strict = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// New creates a compiler. A nil catalog means registry.Builtin().
func New(nodes *registry.Nodes, opts ...Option) *Compiler {
	if nodes == nil {
		nodes = registry.Builtin()
	}
	c := &Compiler{
		nodes:  nodes,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates doc and returns its immutable graph, or a *domain.GraphError
// listing every problem found.
func (c *Compiler) Compile(doc *domain.GraphDocument) (*domain.Graph, error) {
	if doc == nil {
		return nil, domain.NewGraphError("", []domain.Problem{{Kind: domain.GraphEmpty, Msg: "no graph document"}})
	}
	norm := Normalize(doc)

	var problems []domain.Problem
	problems = append(problems, checkVariables(norm.Variables)...)

	compiled := make([]*domain.CompiledNode, 0, len(norm.Nodes))
	for _, n := range norm.Nodes {
		def, ok := c.nodes.Lookup(n.Type)
		if !ok {
			continue
		}
		cn, nodeProblems := c.compileNode(def, n)
		problems = append(problems, nodeProblems...)
		if cn != nil {
			compiled = append(compiled, cn)
		}
	}

	structure := validator.ValidateGraph(norm, c.nodes)
	problems = append(problems, structure.Problems...)

	if len(problems) > 0 {
		validator.Sort(problems)
		err := domain.NewGraphError(norm.ID, problems)
		c.logger.Debug("graph rejected", "graph_id", norm.ID, "problems", len(problems), "err", err)
		return nil, err
	}

	g := domain.NewGraph(norm, structure.Entry, compiled, structure.Order)
	c.logger.Debug("graph compiled", "graph_id", g.ID(), "version", g.Version(), "nodes", len(compiled))
	return g, nil
}

func (c *Compiler) compileNode(def registry.NodeDefinition, n domain.Node) (*domain.CompiledNode, []domain.Problem) {
	var problems []domain.Problem
	invalid := func(format string, args ...any) {
		problems = append(problems, domain.Problem{Kind: domain.GraphInvalidConfig, NodeID: n.ID, Msg: fmt.Sprintf(format, args...)})
	}

	if err := schema.Validate(def.Schema, n.Config); err != nil {
		for _, e := range schema.ValidationErrors(err) {
			invalid("%s", e.Error())
		}
		return nil, problems
	}

	cfg := def.NewConfig()
	if _, isEmpty := cfg.(domain.EmptyConfig); !isEmpty {
		if err := decode(n.Config, cfg); err != nil {
			invalid("decode config: %v", err)
			return nil, problems
		}
	}
	if err := cfg.Validate(); err != nil {
		invalid("%v", err)
		return nil, problems
	}

	cn := &domain.CompiledNode{
		Node:      n,
		Config:    cfg,
		Exprs:     map[string]*expr.Program{},
		Templates: map[string]*expr.Template{},
		ExprErrs:  map[string]error{},
	}
	if src, ok := cfg.(domain.ExpressionSource); ok {
		for field, text := range src.ExpressionFields() {
			p, err := expr.Compile(text)
			if err != nil {
				cn.ExprErrs[field] = err
				continue
			}
			cn.Exprs[field] = p
		}
	}
	if src, ok := cfg.(domain.TemplateSource); ok {
		for field, text := range src.TemplateFields() {
			t, err := expr.ParseTemplate(text)
			if err != nil {
				cn.ExprErrs[field] = err
				continue
			}
			cn.Templates[field] = t
		}
	}
	for _, field := range sortedKeys(cn.ExprErrs) {
		err := cn.ExprErrs[field]
		if c.strict {
			problems = append(problems, domain.Problem{Kind: domain.GraphInvalidExpr, NodeID: n.ID, Msg: fmt.Sprintf("%s: %v", field, err)})
			continue
		}
		c.logger.Warn("expression does not parse", "node_id", n.ID, "field", field, "err", err)
	}
	return cn, problems
}

func decode(input map[string]any, out domain.NodeConfig) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	var merr *mapstructure.Error
	if err := dec.Decode(input); err != nil {
		if errors.As(err, &merr) && len(merr.Errors) == 1 {
			return errors.New(merr.Errors[0])
		}
		return err
	}
	return nil
}

func checkVariables(defs []domain.VariableDefinition) []domain.Problem {
	var problems []domain.Problem
	seen := map[string]bool{}
	for _, d := range defs {
		switch {
		case !expr.IsPath(d.Key):
			problems = append(problems, domain.Problem{Kind: domain.GraphInvalidVarDefs, Msg: fmt.Sprintf("variable key %q is not a dotted path", d.Key)})
		case seen[d.Key]:
			problems = append(problems, domain.Problem{Kind: domain.GraphInvalidVarDefs, Msg: fmt.Sprintf("variable %q defined twice", d.Key)})
		}
		seen[d.Key] = true
	}
	return problems
}
