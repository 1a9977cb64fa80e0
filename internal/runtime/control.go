package runtime

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/aretw0/lettergraph/pkg/compliance"
	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

func (r *run) sequential(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	return nil, unlabeled(r.graph.Outgoing(n.ID)), nil
}

func (r *run) returnNode(*domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	return nil, nil, errHalt
}

// condition covers condition, expression and else nodes. A failing expression is
// recorded and counts as false. An else node without expression is always true.
func (r *run) condition(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	edges := r.graph.Outgoing(n.ID)
	ok := true
	if p, err := n.Expr("expression"); err != nil || p != nil {
		ok, err = r.evalBool(n, "expression")
		if err != nil {
			r.warn(n.ID, domain.WarnExpression, "%v; taking the false branch", err)
			ok = false
		}
	}
	label := domain.LabelFalse
	if ok {
		label = domain.LabelTrue
	}
	return nil, labeled(edges, label), nil
}

func (r *run) switchNode(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	edges := r.graph.Outgoing(n.ID)
	v, err := r.eval(n, "discriminant")
	if err != nil {
		r.warn(n.ID, domain.WarnExpression, "discriminant: %v", err)
	} else {
		key := expr.Stringify(v)
		for _, e := range edges {
			if e.Label == key && key != domain.LabelDefault {
				return nil, []domain.Edge{e}, nil
			}
		}
	}
	if def := labeled(edges, domain.LabelDefault); len(def) > 0 {
		return nil, def[:1], nil
	}
	r.warn(n.ID, domain.WarnNoMatch, "no case matches %q and there is no default", expr.Stringify(v))
	return nil, nil, nil
}

func (r *run) channel(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	edges := r.graph.Outgoing(n.ID)
	ch := r.scope.Flags().Channel
	if ch != "" {
		if match := labeledFold(edges, ch); len(match) > 0 {
			return nil, match[:1], nil
		}
	}
	if def := labeled(edges, domain.LabelDefault); len(def) > 0 {
		return nil, def[:1], nil
	}
	r.warn(n.ID, domain.WarnNoMatch, "no branch for channel %q and there is no default", ch)
	return nil, nil, nil
}

func (r *run) channelFallback(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.ChannelFallbackConfig)
	label := domain.LabelFallback
	if cfg.Supports(r.scope.Flags().Channel) {
		label = domain.LabelPrimary
	}
	return nil, labeled(r.graph.Outgoing(n.ID), label), nil
}

func (r *run) setLanguage(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	next := unlabeled(r.graph.Outgoing(n.ID))
	raw, ok := r.templateText(n, "language")
	if !ok {
		return nil, next, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		r.warn(n.ID, domain.WarnNoMatch, "language resolved to an empty value; keeping %q", r.scope.Flags().Language)
		return nil, next, nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		r.warn(n.ID, domain.WarnNoMatch, "language %q is not a valid tag; keeping %q", raw, r.scope.Flags().Language)
		return nil, next, nil
	}
	r.scope.SetLanguage(tag.String())
	return nil, next, nil
}

func (r *run) setVariation(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	next := unlabeled(r.graph.Outgoing(n.ID))
	if v, ok := r.templateText(n, "variation"); ok {
		r.scope.SetVariation(strings.TrimSpace(v))
	}
	return nil, next, nil
}

// setVariable binds a literal value or an expression result in the current scope.
// A failed expression leaves the name unbound.
func (r *run) setVariable(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.SetVariableConfig)
	next := unlabeled(r.graph.Outgoing(n.ID))
	if cfg.Expression == "" {
		r.scope.Set(cfg.Name, cfg.Value)
		return nil, next, nil
	}
	v, err := r.eval(n, "expression")
	if err != nil {
		r.warn(n.ID, domain.WarnExpression, "%s: %v", cfg.Name, err)
		return nil, next, nil
	}
	r.scope.Set(cfg.Name, v)
	return nil, next, nil
}

func (r *run) complianceRule(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.ComplianceRuleConfig)
	p, perr := n.Expr("trigger")
	triggered, err := compliance.Trigger(p, r.scope)
	if perr != nil {
		err = perr
	}
	if err != nil {
		r.warn(n.ID, domain.WarnCompliance, "rule %s: %v; treated as triggered", cfg.RuleID, err)
	}
	r.checker.Register(n.ID, cfg.Rule(), triggered)
	return nil, unlabeled(r.graph.Outgoing(n.ID)), nil
}

func (r *run) flag(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.FlagConfig)
	msg, ok := r.templateText(n, "message")
	if !ok {
		msg = cfg.Message
	}
	r.flags = append(r.flags, domain.ReviewFlag{
		NodeID:   n.ID,
		Source:   domain.FlagFromNode,
		Severity: cfg.Severity,
		Message:  msg,
	})
	return nil, unlabeled(r.graph.Outgoing(n.ID)), nil
}
