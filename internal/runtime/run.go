package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/lettergraph/pkg/compliance"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
	"github.com/aretw0/lettergraph/pkg/scope"
)

var (
	// errHalt unwinds the current frame after a return node.
	errHalt = errors.New("return")
	// errAbort unwinds the whole evaluation; run.aborted holds the reason.
	errAbort = errors.New("abort")
)

// handler executes one node. It returns the instructions the node itself produced
// and the edges to follow next, in order. Nodes that walk their own subgraphs
// (bodies, wrapped downstream content) return that output too.
type handler func(r *run, n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error)

var handlers map[domain.NodeType]handler

func init() {
	handlers = map[domain.NodeType]handler{
		domain.NodeTypeStart:      (*run).sequential,
		domain.NodeTypeCondition:  (*run).condition,
		domain.NodeTypeElse:       (*run).condition,
		domain.NodeTypeExpression: (*run).condition,
		domain.NodeTypeSwitch:     (*run).switchNode,
		domain.NodeTypeReturn:     (*run).returnNode,
		domain.NodeTypeFlag:       (*run).flag,

		domain.NodeTypeLoop:      (*run).loop,
		domain.NodeTypeTableLoop: (*run).tableLoop,

		domain.NodeTypeBlock:       (*run).block,
		domain.NodeTypeInclude:     (*run).block,
		domain.NodeTypeComponent:   (*run).component,
		domain.NodeTypeDynamicText: (*run).dynamicText,

		domain.NodeTypeFormatting:  (*run).styled,
		domain.NodeTypeAlertStyle:  (*run).styled,
		domain.NodeTypeLocaleStyle: (*run).styled,
		domain.NodeTypeHide:        (*run).hide,

		domain.NodeTypeChannel:         (*run).channel,
		domain.NodeTypeChannelFallback: (*run).channelFallback,
		domain.NodeTypeSetLanguage:     (*run).setLanguage,
		domain.NodeTypeSetVariation:    (*run).setVariation,

		domain.NodeTypeSetVariable:     (*run).setVariable,
		domain.NodeTypeDerivedVariable: (*run).setVariable,

		domain.NodeTypeQuery:     (*run).dataCall,
		domain.NodeTypeAPICall:   (*run).dataCall,
		domain.NodeTypePushData:  (*run).dataCall,
		domain.NodeTypeFHIRQuery: (*run).dataCall,
		domain.NodeTypeDataJoin:  (*run).dataJoin,

		domain.NodeTypeDiagnosisMatch:     (*run).clinical,
		domain.NodeTypeRiskScore:          (*run).clinical,
		domain.NodeTypeHEDISTrigger:       (*run).clinical,
		domain.NodeTypePCPAssignment:      (*run).clinical,
		domain.NodeTypeProgramEligibility: (*run).clinical,

		domain.NodeTypeComplianceRule: (*run).complianceRule,
	}
}

// Handles reports whether the runtime knows how to execute t.
func Handles(t domain.NodeType) bool {
	_, ok := handlers[t]
	return ok
}

// run is the state of one evaluation. It is owned by a single goroutine.
type run struct {
	engine    *Engine
	ctx       context.Context
	graph     *domain.Graph
	requestID string
	scope     *scope.Context
	checker   *compliance.Checker
	logger    *slog.Logger

	visits   int
	warnings []domain.Warning
	flags    []domain.ReviewFlag
	included []domain.ContentRef
	aborted  string
}

// visit executes the node id and everything reachable from it on the active path.
// On error the output produced so far is still returned.
func (r *run) visit(id string) ([]domain.RenderInstruction, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	r.visits++
	if r.visits > r.engine.maxVisits {
		return nil, r.abort(id, domain.WarnLimit, fmt.Sprintf("node visit budget of %d exceeded", r.engine.maxVisits))
	}

	n, ok := r.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %q is not part of graph %q", id, r.graph.ID())
	}
	h, ok := handlers[n.Type]
	if !ok {
		return nil, fmt.Errorf("no handler for node type %q", n.Type)
	}

	r.engine.emitNodeEnter(r.ctx, r, n)
	out, next, err := h(r, n)
	r.engine.emitNodeLeave(r.ctx, r, n)
	if err != nil {
		return out, err
	}
	more, err := r.follow(next)
	return append(out, more...), err
}

// follow visits edges in order, concatenating their output.
func (r *run) follow(edges []domain.Edge) ([]domain.RenderInstruction, error) {
	var out []domain.RenderInstruction
	for _, e := range edges {
		more, err := r.visit(e.Target)
		out = append(out, more...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// frame runs a subgraph whose return nodes stop only the subgraph itself.
func (r *run) frame(edges []domain.Edge) ([]domain.RenderInstruction, error) {
	out, err := r.follow(edges)
	if errors.Is(err, errHalt) {
		err = nil
	}
	return out, err
}

func (r *run) abort(nodeID string, kind domain.WarningKind, reason string) error {
	r.aborted = reason
	r.warn(nodeID, kind, "%s", reason)
	r.logger.Warn("evaluation aborted", "node_id", nodeID, "reason", reason)
	return errAbort
}

func (r *run) warn(nodeID string, kind domain.WarningKind, format string, args ...any) {
	w := domain.Warning{NodeID: nodeID, Kind: kind, Message: fmt.Sprintf(format, args...)}
	r.warnings = append(r.warnings, w)
	r.logger.Debug("node warning", "node_id", nodeID, "kind", kind, "message", w.Message)
}

func (r *run) warnMissing(nodeID string, missing []string) {
	for _, p := range missing {
		r.warn(nodeID, domain.WarnMissingVariable, "optional variable %s is missing; treated as null", p)
	}
}

// --- edges

func unlabeled(edges []domain.Edge) []domain.Edge {
	var out []domain.Edge
	for _, e := range edges {
		if e.Label == "" {
			out = append(out, e)
		}
	}
	return out
}

func labeled(edges []domain.Edge, label string) []domain.Edge {
	var out []domain.Edge
	for _, e := range edges {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

func labeledFold(edges []domain.Edge, label string) []domain.Edge {
	var out []domain.Edge
	for _, e := range edges {
		if e.Label != "" && strings.EqualFold(e.Label, label) {
			out = append(out, e)
		}
	}
	return out
}

// --- expressions and templates

// eval runs the compiled expression stored for field.
func (r *run) eval(n *domain.CompiledNode, field string) (any, error) {
	p, err := n.Expr(field)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	res, err := p.Run(r.scope)
	if err != nil {
		return nil, err
	}
	r.warnMissing(n.ID, res.Missing)
	return res.Value, nil
}

func (r *run) evalBool(n *domain.CompiledNode, field string) (bool, error) {
	v, err := r.eval(n, field)
	if err != nil {
		return false, err
	}
	return expr.Truthy(v)
}

// instructions expands a template into render instructions bound to the current scope.
func (r *run) instructions(nodeID string, t *expr.Template) []domain.RenderInstruction {
	if t == nil {
		return nil
	}
	out := make([]domain.RenderInstruction, 0, len(t.Segments))
	for _, seg := range t.Segments {
		switch {
		case seg.IsLiteral():
			out = append(out, domain.Literal(nodeID, seg.Text))
		case seg.Path != "":
			out = append(out, domain.RenderInstruction{Kind: domain.KindVariable, NodeID: nodeID, Var: r.scope.Ref(seg.Path)})
		default:
			res, err := seg.Program.Run(r.scope)
			if err != nil {
				r.warn(nodeID, domain.WarnExpression, "{{%s}}: %v", seg.Program.Source(), err)
				continue
			}
			r.warnMissing(nodeID, res.Missing)
			out = append(out, domain.RenderInstruction{
				Kind:   domain.KindVariable,
				NodeID: nodeID,
				Var:    &domain.VariableRef{Path: seg.Program.Source(), Value: res.Value, Found: res.Value != nil},
			})
		}
	}
	return out
}

// text resolves a template to plain text, without renderer formatting.
func (r *run) text(nodeID string, t *expr.Template) (string, error) {
	if t == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, seg := range t.Segments {
		switch {
		case seg.IsLiteral():
			sb.WriteString(seg.Text)
		case seg.Path != "":
			v, ok := r.scope.Resolve(seg.Path)
			if !ok && r.scope.IsRequired(seg.Path) {
				return "", fmt.Errorf("required variable %s is missing", seg.Path)
			}
			sb.WriteString(expr.Stringify(v))
		default:
			res, err := seg.Program.Run(r.scope)
			if err != nil {
				return "", err
			}
			r.warnMissing(nodeID, res.Missing)
			sb.WriteString(expr.Stringify(res.Value))
		}
	}
	return sb.String(), nil
}

// templateText resolves the template stored for field, recording failures as warnings.
func (r *run) templateText(n *domain.CompiledNode, field string) (string, bool) {
	t, err := n.Template(field)
	if err == nil {
		var s string
		if s, err = r.text(n.ID, t); err == nil {
			return s, true
		}
	}
	r.warn(n.ID, domain.WarnExpression, "%s: %v", field, err)
	return "", false
}
