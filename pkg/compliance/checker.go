// Package compliance decides which compliance rules a letter violates.
//
// Rule nodes register their rules while the graph is traversed; block and
// component nodes report what made it into the letter. Finalize then classifies
// every triggered rule whose requirement is unmet.
package compliance

import (
	"fmt"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

type activation struct {
	rule      domain.ComplianceRule
	nodeID    string
	triggered bool
}

// Checker collects rule activations and content inclusions for one evaluation.
// It is not safe for concurrent use.
type Checker struct {
	order      []string
	rules      map[string]*activation
	blocks     map[string]bool
	components map[string]bool
	flags      []domain.ReviewFlag
}

// Report is the outcome of Finalize.
type Report struct {
	Violations []domain.Violation
	Flags      []domain.ReviewFlag
}

// Blocked reports whether any violation is blocking.
func (r Report) Blocked() bool {
	for _, v := range r.Violations {
		if v.Level == domain.LevelBlocking {
			return true
		}
	}
	return false
}

// New creates an empty checker.
func New() *Checker {
	return &Checker{
		rules:      map[string]*activation{},
		blocks:     map[string]bool{},
		components: map[string]bool{},
	}
}

// Trigger evaluates a rule trigger. Errors fail closed: the rule counts as
// triggered and the error is returned for the caller to record as a warning.
func Trigger(p *expr.Program, env expr.Env) (bool, error) {
	if p == nil {
		return true, fmt.Errorf("trigger is not a valid expression")
	}
	res, err := p.Run(env)
	if err != nil {
		return true, err
	}
	ok, err := expr.Truthy(res.Value)
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Register records a rule activation. A rule reached more than once counts as
// triggered if any activation triggered.
func (c *Checker) Register(nodeID string, rule domain.ComplianceRule, triggered bool) {
	if a, ok := c.rules[rule.RuleID]; ok {
		a.triggered = a.triggered || triggered
		return
	}
	c.order = append(c.order, rule.RuleID)
	c.rules[rule.RuleID] = &activation{rule: rule, nodeID: nodeID, triggered: triggered}
}

// IncludeBlock records that a content block was rendered.
func (c *Checker) IncludeBlock(id string) { c.blocks[id] = true }

// IncludeComponent records a rendered component and turns its compliance
// flags into review flags.
func (c *Checker) IncludeComponent(nodeID, id string, complianceFlags []string) {
	c.components[id] = true
	for _, f := range complianceFlags {
		c.flags = append(c.flags, domain.ReviewFlag{
			NodeID:   nodeID,
			Source:   domain.FlagFromComponent,
			Severity: "info",
			Message:  fmt.Sprintf("component %s: %s", id, f),
		})
	}
}

// Finalize classifies the triggered rules. Rules are reported in the order
// they were first registered.
func (c *Checker) Finalize() Report {
	var rep Report
	for _, id := range c.order {
		a := c.rules[id]
		if !a.triggered || a.rule.Level == domain.LevelNone {
			continue
		}
		if msg, unmet := c.unmet(a.rule); unmet {
			rep.Violations = append(rep.Violations, domain.Violation{
				RuleID:         a.rule.RuleID,
				Name:           a.rule.Name,
				Level:          a.rule.Level,
				Message:        msg,
				RequiredAction: a.rule.RequiredAction,
				NodeID:         a.nodeID,
			})
		}
	}
	rep.Flags = append(rep.Flags, c.flags...)
	for _, v := range rep.Violations {
		if v.Level == domain.LevelRecommended {
			rep.Flags = append(rep.Flags, domain.ReviewFlag{
				NodeID:   v.NodeID,
				Source:   domain.FlagFromCompliance,
				Severity: "warning",
				Message:  v.Message,
			})
		}
	}
	return rep
}

func (c *Checker) unmet(r domain.ComplianceRule) (string, bool) {
	name := r.Name
	if name == "" {
		name = r.RuleID
	}
	var missing []string
	if r.RequiredBlockID != "" && !c.blocks[r.RequiredBlockID] {
		missing = append(missing, "block "+r.RequiredBlockID)
	}
	if r.RequiredComponentID != "" && !c.components[r.RequiredComponentID] {
		missing = append(missing, "component "+r.RequiredComponentID)
	}
	switch {
	case len(missing) > 0:
		msg := fmt.Sprintf("%s: required %s not included", name, missing[0])
		if len(missing) > 1 {
			msg = fmt.Sprintf("%s: required %s and %s not included", name, missing[0], missing[1])
		}
		return msg, true
	case r.RequiredBlockID == "" && r.RequiredComponentID == "":
		if r.RequiredAction != "" {
			return fmt.Sprintf("%s: %s", name, r.RequiredAction), true
		}
		return name + " triggered", true
	}
	return "", false
}
