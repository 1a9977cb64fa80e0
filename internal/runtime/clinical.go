package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

// clinical evaluates the healthcare trigger nodes. A missing or malformed field
// takes the false branch with a warning.
func (r *run) clinical(n *domain.CompiledNode) ([]domain.RenderInstruction, []domain.Edge, error) {
	var (
		ok  bool
		err error
	)
	switch cfg := n.Config.(type) {
	case *domain.DiagnosisMatchConfig:
		ok, err = r.diagnosisMatch(cfg)
	case *domain.RiskScoreConfig:
		ok, err = r.riskScore(cfg)
	case *domain.HEDISTriggerConfig:
		ok, err = r.hedisTrigger(cfg)
	case *domain.PCPAssignmentConfig:
		ok, err = r.pcpAssignment(cfg)
	case *domain.ProgramEligibilityConfig:
		ok, err = r.programEligibility(cfg)
	default:
		err = fmt.Errorf("unexpected config %T", n.Config)
	}
	if err != nil {
		r.warn(n.ID, domain.WarnClinicalField, "%v; taking the false branch", err)
		ok = false
	}
	label := domain.LabelFalse
	if ok {
		label = domain.LabelTrue
	}
	return nil, labeled(r.graph.Outgoing(n.ID), label), nil
}

func (r *run) list(field string) ([]any, error) {
	v, ok := r.scope.Resolve(field)
	if !ok || v == nil {
		return nil, fmt.Errorf("field %s is missing", field)
	}
	l, isList := v.([]any)
	if !isList {
		return nil, fmt.Errorf("field %s is %s, not a list", field, expr.TypeName(v))
	}
	return l, nil
}

// codeOf extracts a code from a plain string element or from key of an object element.
func codeOf(el any, keys ...string) string {
	switch x := el.(type) {
	case string:
		return x
	case map[string]any:
		for _, k := range keys {
			if v, ok := x[k]; ok && v != nil {
				return expr.Stringify(v)
			}
		}
	}
	return ""
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ".", ""))
}

// codeMatches compares ICD-style codes ignoring case and dots. A trailing * in
// pattern matches by prefix.
func codeMatches(code, pattern string) bool {
	code = normalizeCode(code)
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(code, normalizeCode(prefix))
	}
	return code == normalizeCode(pattern)
}

func (r *run) diagnosisMatch(cfg *domain.DiagnosisMatchConfig) (bool, error) {
	dx, err := r.list(cfg.Field)
	if err != nil {
		return false, err
	}
	for _, el := range dx {
		code := codeOf(el, cfg.CodeField)
		if code == "" {
			continue
		}
		for _, p := range cfg.Codes {
			if codeMatches(code, p) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *run) riskScore(cfg *domain.RiskScoreConfig) (bool, error) {
	v, ok := r.scope.Resolve(cfg.Field)
	if !ok || v == nil {
		return false, fmt.Errorf("field %s is missing", cfg.Field)
	}
	score, isNumber := v.(float64)
	if !isNumber {
		return false, fmt.Errorf("field %s is %s, not a number", cfg.Field, expr.TypeName(v))
	}
	switch cfg.Operator {
	case ">":
		return score > cfg.Threshold, nil
	case ">=":
		return score >= cfg.Threshold, nil
	case "<":
		return score < cfg.Threshold, nil
	case "<=":
		return score <= cfg.Threshold, nil
	case "==":
		return score == cfg.Threshold, nil
	case "!=":
		return score != cfg.Threshold, nil
	}
	return false, fmt.Errorf("unknown operator %q", cfg.Operator)
}

// hedisTrigger is true when an open care gap matches one of the measures.
// Gaps with status "closed" are ignored.
func (r *run) hedisTrigger(cfg *domain.HEDISTriggerConfig) (bool, error) {
	gaps, err := r.list(cfg.Field)
	if err != nil {
		return false, err
	}
	for _, g := range gaps {
		if m, ok := g.(map[string]any); ok && strings.EqualFold(expr.Stringify(m["status"]), "closed") {
			continue
		}
		measure := codeOf(g, cfg.MeasureField)
		for _, want := range cfg.Measures {
			if measure != "" && strings.EqualFold(measure, want) {
				return true, nil
			}
		}
	}
	return false, nil
}

// pcpAssignment is true when a primary care provider is assigned, restricted to
// ProviderIDs when any are listed.
func (r *run) pcpAssignment(cfg *domain.PCPAssignmentConfig) (bool, error) {
	v, ok := r.scope.Resolve(cfg.Field)
	if !ok || v == nil {
		return false, fmt.Errorf("field %s is missing", cfg.Field)
	}
	id := strings.TrimSpace(expr.Stringify(v))
	if id == "" {
		return false, nil
	}
	if len(cfg.ProviderIDs) == 0 {
		return true, nil
	}
	for _, p := range cfg.ProviderIDs {
		if p == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *run) programEligibility(cfg *domain.ProgramEligibilityConfig) (bool, error) {
	enrolled, err := r.list(cfg.Field)
	if err != nil {
		return false, err
	}
	have := make(map[string]bool, len(enrolled))
	for _, el := range enrolled {
		if c := codeOf(el, "code", "id", "name"); c != "" {
			have[strings.ToUpper(c)] = true
		}
	}
	matched := 0
	for _, p := range cfg.Programs {
		if have[strings.ToUpper(p)] {
			matched++
		}
	}
	if cfg.Match == "all" {
		return matched == len(cfg.Programs), nil
	}
	return matched > 0, nil
}
