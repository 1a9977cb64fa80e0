package runtime

import (
	"errors"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

func (r *run) dynamicText(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	next := unlabeled(r.graph.Outgoing(n.ID))
	t, err := n.Template("text")
	if err != nil {
		r.warn(n.ID, domain.WarnExpression, "text: %v", err)
		return nil, next, nil
	}
	return r.instructions(n.ID, t), next, nil
}

// lookup resolves content id for the current language and variation, walking
// the variant fallbacks from most to least specific.
func (r *run) lookup(nodeID, id string) (*domain.Content, bool) {
	repo := r.engine.content
	if repo == nil {
		return nil, false
	}
	for _, v := range r.scope.Flags().Variant().Fallbacks() {
		c, err := repo.Get(r.ctx, id, v)
		if err == nil {
			return c, true
		}
		if !errors.Is(err, domain.ErrContentNotFound) {
			r.warn(nodeID, domain.WarnContentNotFound, "content %s: %v", id, err)
			return nil, false
		}
	}
	return nil, false
}

// body parses a content body as a template. Bodies that fail to parse are emitted verbatim.
func (r *run) body(nodeID string, c *domain.Content) []domain.RenderInstruction {
	t, err := expr.ParseTemplate(c.Body)
	if err != nil {
		r.warn(nodeID, domain.WarnExpression, "content %s: %v", c.ID, err)
		return []domain.RenderInstruction{domain.Literal(nodeID, c.Body)}
	}
	return r.instructions(nodeID, t)
}

func (r *run) missingContent(n *domain.CompiledNode, id string, optional bool) []domain.RenderInstruction {
	r.warn(n.ID, domain.WarnContentNotFound, "%s %s not found for %+v", n.Type, id, r.scope.Flags().Variant())
	if optional {
		return nil
	}
	return []domain.RenderInstruction{domain.Literal(n.ID, "[MISSING CONTENT: "+id+"]")}
}

func (r *run) include(n *domain.CompiledNode, kind domain.InstructionKind, c *domain.Content) {
	r.included = append(r.included, domain.ContentRef{
		Kind:      kind,
		ID:        c.ID,
		Language:  c.Language,
		Variation: c.Variation,
		NodeID:    n.ID,
	})
}

// block handles block and include nodes.
func (r *run) block(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.BlockConfig)
	next := unlabeled(r.graph.Outgoing(n.ID))
	c, ok := r.lookup(n.ID, cfg.BlockID)
	if !ok {
		return r.missingContent(n, cfg.BlockID, cfg.Optional), next, nil
	}
	r.checker.IncludeBlock(cfg.BlockID)
	r.include(n, domain.KindBlock, c)
	return []domain.RenderInstruction{{
		Kind:     domain.KindBlock,
		NodeID:   n.ID,
		RefID:    cfg.BlockID,
		Tags:     c.Tags,
		Children: r.body(n.ID, c),
	}}, next, nil
}

// component renders a reusable component with its params bound as params.* in a
// child scope. String params may reference the data context with {{...}}.
func (r *run) component(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.ComponentConfig)
	next := unlabeled(r.graph.Outgoing(n.ID))
	c, ok := r.lookup(n.ID, cfg.ComponentID)
	if !ok {
		return r.missingContent(n, cfg.ComponentID, cfg.Optional), next, nil
	}

	params := make(map[string]any, len(cfg.Params))
	for k, v := range cfg.Params {
		s, isString := v.(string)
		if !isString || !strings.Contains(s, "{{") {
			params[k] = v
			continue
		}
		t, err := expr.ParseTemplate(s)
		if err == nil {
			s, err = r.text(n.ID, t)
		}
		if err != nil {
			r.warn(n.ID, domain.WarnExpression, "param %s: %v", k, err)
		}
		params[k] = s
	}

	children := r.componentBody(n.ID, c, params)

	r.checker.IncludeComponent(n.ID, cfg.ComponentID, c.ComplianceFlags)
	r.include(n, domain.KindComponent, c)
	return []domain.RenderInstruction{{
		Kind:     domain.KindComponent,
		NodeID:   n.ID,
		RefID:    cfg.ComponentID,
		Tags:     c.Tags,
		Flags:    c.ComplianceFlags,
		Children: children,
	}}, next, nil
}

// componentBody renders c with params bound in a child scope.
func (r *run) componentBody(nodeID string, c *domain.Content, params map[string]any) []domain.RenderInstruction {
	r.scope.Push()
	defer r.scope.Pop()
	r.scope.Set("params", params)
	return r.body(nodeID, c)
}

func styleOf(n *domain.CompiledNode) *domain.Style {
	st := &domain.Style{Kind: n.Type}
	switch cfg := n.Config.(type) {
	case *domain.FormattingConfig:
		st.Attrs = cfg.Attrs()
	case *domain.AlertStyleConfig:
		st.Attrs = map[string]string{"level": cfg.Level}
		if cfg.Title != "" {
			st.Attrs["title"] = cfg.Title
		}
	case *domain.LocaleStyleConfig:
		st.Attrs = map[string]string{}
		if cfg.Locale != "" {
			st.Attrs["lang"] = cfg.Locale
		}
		if cfg.Direction != "" {
			st.Attrs["dir"] = cfg.Direction
		}
	}
	return st
}

// styled wraps its body edge, or everything downstream when there is none.
func (r *run) styled(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	edges := r.graph.Outgoing(n.ID)
	body := labeled(edges, domain.LabelBody)
	next := unlabeled(edges)
	if len(body) == 0 {
		body, next = next, nil
	}
	children, err := r.follow(body)
	out := []domain.RenderInstruction{{Kind: domain.KindStyled, NodeID: n.ID, Style: styleOf(n), Children: children}}
	return out, next, err
}

// hide skips its body edge when the condition holds, or everything downstream
// when there is no body edge. A failing condition shows the content.
func (r *run) hide(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	edges := r.graph.Outgoing(n.ID)
	body := labeled(edges, domain.LabelBody)
	next := unlabeled(edges)

	hidden, err := r.evalBool(n, "condition")
	if err != nil {
		r.warn(n.ID, domain.WarnExpression, "condition: %v; content shown", err)
		hidden = false
	}
	switch {
	case hidden && len(body) == 0:
		return nil, nil, nil
	case hidden:
		return nil, next, nil
	case len(body) == 0:
		return nil, next, nil
	}
	out, err := r.follow(body)
	return out, next, err
}

// items evaluates the source of a loop node into its elements.
func (r *run) items(n *domain.CompiledNode, limit int) ([]any, bool) {
	v, err := r.eval(n, "source")
	if err != nil {
		r.warn(n.ID, domain.WarnExpression, "source: %v", err)
		return nil, false
	}
	var list []any
	switch x := v.(type) {
	case nil:
	case []any:
		list = x
	default:
		r.warn(n.ID, domain.WarnExpression, "source is %s, not a list; nothing repeated", expr.TypeName(v))
		return nil, false
	}
	if limit > 0 && len(list) > limit {
		r.warn(n.ID, domain.WarnLimit, "source has %d items; only the first %d are used", len(list), limit)
		list = list[:limit]
	}
	return list, true
}

// iterate binds each element in a child scope and calls fn for the elements that
// pass the filter.
func (r *run) iterate(n *domain.CompiledNode, list []any, itemVar, indexVar string, fn func() error) error {
	_, hasFilter := n.Exprs["filter"]
	if _, bad := n.ExprErrs["filter"]; bad {
		hasFilter = true
	}
	for i, el := range list {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		err := r.scope.WithChild(func() error {
			r.scope.Set(itemVar, el)
			if indexVar != "" {
				r.scope.Set(indexVar, i)
			}
			r.scope.Set("loop", map[string]any{
				"index": i,
				"first": i == 0,
				"last":  i == len(list)-1,
				"count": len(list),
			})
			if hasFilter {
				keep, err := r.evalBool(n, "filter")
				if err != nil {
					r.warn(n.ID, domain.WarnExpression, "filter on item %d: %v; item skipped", i, err)
					return nil
				}
				if !keep {
					return nil
				}
			}
			return fn()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) loop(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.LoopConfig)
	edges := r.graph.Outgoing(n.ID)
	body := labeled(edges, domain.LabelBody)
	next := unlabeled(edges)

	list, ok := r.items(n, cfg.Limit)
	if !ok || len(list) == 0 {
		return nil, next, nil
	}
	tpl, tplErr := n.Template("template")
	if tplErr != nil {
		r.warn(n.ID, domain.WarnExpression, "template: %v", tplErr)
		return nil, next, nil
	}

	var items [][]domain.RenderInstruction
	err := r.iterate(n, list, cfg.ItemVariable, cfg.IndexVariable, func() error {
		var item []domain.RenderInstruction
		if tpl != nil {
			item = r.instructions(n.ID, tpl)
		} else {
			var err error
			if item, err = r.frame(body); err != nil {
				return err
			}
		}
		if len(item) > 0 {
			items = append(items, item)
		}
		return nil
	})
	if len(items) == 0 {
		return nil, next, err
	}
	out := []domain.RenderInstruction{{Kind: domain.KindRepeated, NodeID: n.ID, Items: items, Separator: cfg.Separator}}
	return out, next, err
}

func (r *run) tableLoop(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	cfg := n.Config.(*domain.TableLoopConfig)
	next := unlabeled(r.graph.Outgoing(n.ID))

	list, ok := r.items(n, cfg.Limit)
	if !ok || len(list) == 0 {
		return nil, next, nil
	}
	headers := make([]string, len(cfg.Columns))
	columns := make([]*expr.Template, len(cfg.Columns))
	for i, col := range cfg.Columns {
		headers[i] = col.Header
		t, err := n.Template(domain.ColumnKey(i))
		if err != nil {
			r.warn(n.ID, domain.WarnExpression, "column %q: %v", col.Header, err)
		}
		columns[i] = t
	}

	var rows [][]domain.RenderInstruction
	err := r.iterate(n, list, cfg.ItemVariable, "", func() error {
		row := make([]domain.RenderInstruction, len(columns))
		for i, t := range columns {
			row[i] = domain.RenderInstruction{
				Kind:     domain.KindStyled,
				NodeID:   n.ID,
				Style:    &domain.Style{Kind: domain.StyleCell},
				Children: r.instructions(n.ID, t),
			}
		}
		rows = append(rows, row)
		return nil
	})
	if len(rows) == 0 {
		return nil, next, err
	}
	out := []domain.RenderInstruction{{
		Kind:   domain.KindRepeated,
		NodeID: n.ID,
		Items:  rows,
		Table:  &domain.TableSpec{Headers: headers},
	}}
	return out, next, err
}
