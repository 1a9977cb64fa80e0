// Package redact masks protected health information before results or data
// contexts leave the process through logs or API responses.
package redact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Mask replaces every redacted value.
const Mask = "***"

// DefaultPatterns match the usual member identifiers by key name.
var DefaultPatterns = []string{
	`(?i)ssn|social_?security`,
	`(?i)birth|^dob$`,
	`(?i)phone`,
	`(?i)e_?mail`,
	`(?i)^mrn$|medical_?record`,
}

// Redactor masks values whose key matches one of its patterns, at any depth.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles patterns into a Redactor.
func New(patterns ...string) (*Redactor, error) {
	r := &Redactor{patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		r.patterns[i] = re
	}
	return r, nil
}

// Default returns a Redactor for DefaultPatterns.
func Default() *Redactor {
	r, err := New(DefaultPatterns...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Redactor) matches(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// Map returns a masked deep copy of m. The input is never modified.
func (r *Redactor) Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = r.value(v)
	}
	return out
}

func (r *Redactor) value(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return r.Map(x)
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = r.value(el)
		}
		return out
	}
	return v
}

// JSON masks a JSON object. Values that are not objects are returned unchanged.
func (r *Redactor) JSON(raw json.RawMessage) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return raw
	}
	out, err := json.Marshal(r.Map(m))
	if err != nil {
		return raw
	}
	return out
}

// Result returns a shallow copy of res with masked derived variables.
func (r *Redactor) Result(res *domain.EvaluationResult) *domain.EvaluationResult {
	if res == nil {
		return nil
	}
	cloned := *res
	cloned.DerivedVariables = r.Map(maps.Clone(res.DerivedVariables))
	return &cloned
}

// ReplaceAttr can be used in slog.HandlerOptions to mask attributes by key.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.matches(a.Key) {
		return slog.String(a.Key, Mask)
	}
	return a
}
