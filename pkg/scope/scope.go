// Package scope implements the variable context of an evaluation: the request's
// data snapshot, a chain of scopes holding computed bindings, the graph's
// variable definitions and the request flags (channel, language, variation).
//
// A Context belongs to a single evaluation and is not safe for concurrent use.
package scope

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
)

// Scope is one layer of bindings.
type Scope struct {
	parent *Scope
	vars   map[string]any
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]any{}}
}

// lookup walks the chain innermost-first.
func (s *Scope) lookup(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Flags are the request-level settings content lookups depend on.
type Flags struct {
	Channel   string
	Language  string
	Variation string
}

// Variant returns the content lookup key for the current flags.
func (f Flags) Variant() domain.Variant {
	return domain.Variant{Language: f.Language, Variation: f.Variation}
}

// Context resolves variables for expressions and templates. It implements expr.Env.
type Context struct {
	data    *Data
	defs    map[string]domain.VariableDefinition
	flags   Flags
	root    *Scope
	current *Scope
	now     time.Time
}

// New creates a context with an empty root scope. A zero now means the wall clock.
func New(data *Data, defs []domain.VariableDefinition, flags Flags, now time.Time) *Context {
	if data == nil {
		data = &Data{raw: []byte("{}")}
	}
	m := make(map[string]domain.VariableDefinition, len(defs))
	for _, d := range defs {
		m[d.Key] = d
	}
	root := newScope(nil)
	return &Context{data: data, defs: m, flags: flags, root: root, current: root, now: now}
}

// Resolve looks path up: scope bindings first (innermost wins, matched on the
// first path segment), then request flags, then the data context.
func (c *Context) Resolve(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	if v, ok := c.current.lookup(head); ok {
		if !nested {
			return v, true
		}
		return expr.MapEnv{head: v}.Lookup(path)
	}
	if head == "request" && nested {
		switch rest {
		case "channel":
			return c.flags.Channel, true
		case "language":
			return c.flags.Language, true
		case "variation":
			return c.flags.Variation, true
		}
	}
	return c.data.Get(path)
}

func (c *Context) Lookup(path string) (any, bool) { return c.Resolve(path) }

// IsRequired reports whether a definition marks path as required.
func (c *Context) IsRequired(path string) bool {
	d, ok := c.defs[path]
	return ok && d.Required
}

// Now is the clock date helpers use.
func (c *Context) Now() time.Time {
	if c.now.IsZero() {
		return time.Now()
	}
	return c.now
}

// Definition returns the variable definition registered for path.
func (c *Context) Definition(path string) (domain.VariableDefinition, bool) {
	d, ok := c.defs[path]
	return d, ok
}

// Ref resolves path into a render-ready reference carrying its definition.
func (c *Context) Ref(path string) *domain.VariableRef {
	v, ok := c.Resolve(path)
	ref := &domain.VariableRef{Path: path, Value: v, Found: ok && v != nil}
	if d, ok := c.defs[path]; ok {
		ref.Definition = &d
	}
	return ref
}

// Set binds name in the current scope only.
func (c *Context) Set(name string, value any) {
	c.current.vars[name] = expr.Normalize(value)
}

// Push opens a child scope.
func (c *Context) Push() { c.current = newScope(c.current) }

// Pop discards the current scope. The root scope is never popped.
func (c *Context) Pop() {
	if c.current.parent != nil {
		c.current = c.current.parent
	}
}

// WithChild runs fn inside a fresh child scope that is discarded afterwards,
// whatever fn returns.
func (c *Context) WithChild(fn func() error) error {
	c.Push()
	defer c.Pop()
	return fn()
}

// Depth is the number of scopes above the root.
func (c *Context) Depth() int {
	n := 0
	for s := c.current; s.parent != nil; s = s.parent {
		n++
	}
	return n
}

// Flags returns the current request flags.
func (c *Context) Flags() Flags { return c.flags }

func (c *Context) SetLanguage(lang string) { c.flags.Language = lang }

// Language is the parsed language flag, or language.Und when unset or malformed.
func (c *Context) Language() language.Tag {
	tag, err := language.Parse(c.flags.Language)
	if err != nil {
		return language.Und
	}
	return tag
}
func (c *Context) SetVariation(name string) { c.flags.Variation = name }

// Data returns the current data snapshot.
func (c *Context) Data() *Data { return c.data }

// MergeData replaces the data snapshot with a copy holding value at target.
func (c *Context) MergeData(target string, value json.RawMessage) error {
	d, err := c.data.Merge(target, value)
	if err != nil {
		return err
	}
	c.data = d
	return nil
}

// Derived snapshots the bindings of the root scope.
func (c *Context) Derived() map[string]any {
	out := make(map[string]any, len(c.root.vars))
	for k, v := range c.root.vars {
		out[k] = v
	}
	return out
}
