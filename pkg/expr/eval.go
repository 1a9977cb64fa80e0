package expr

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Env supplies variable values and policy to a running expression.
type Env interface {
	// Lookup resolves a dotted path. The boolean is false when the path is absent.
	Lookup(path string) (any, bool)
	// IsRequired reports whether an absent path must fail the expression.
	IsRequired(path string) bool
	// Now is the clock used by date helpers such as TODAY().
	Now() time.Time
}

// Result is the outcome of a successful evaluation.
type Result struct {
	Value any
	// Missing lists optional variables that were absent and resolved to null.
	Missing []string
}

// Program is a parsed expression, safe for concurrent use.
type Program struct {
	src  string
	root node
}

// Compile parses src into a reusable Program.
func Compile(src string) (*Program, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and constants.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Evaluate compiles and runs src in one step.
func Evaluate(src string, env Env) (Result, error) {
	p, err := Compile(src)
	if err != nil {
		return Result{}, err
	}
	return p.Run(env)
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Variables returns the distinct variable paths referenced by the program, sorted.
func (p *Program) Variables() []string {
	seen := map[string]bool{}
	walkVars(p.root, func(path string) { seen[path] = true })
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run evaluates the program against env.
func (p *Program) Run(env Env) (Result, error) {
	if env == nil {
		env = MapEnv(nil)
	}
	ev := &evaluator{env: env}
	v, err := ev.eval(p.root)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v, Missing: ev.missing}, nil
}

type evaluator struct {
	env     Env
	missing []string
}

func (ev *evaluator) eval(n node) (any, error) {
	switch x := n.(type) {
	case *literalNode:
		return x.value, nil
	case *varNode:
		return ev.lookup(x.path)
	case *unaryNode:
		return ev.unary(x)
	case *binaryNode:
		return ev.binary(x)
	case *callNode:
		return ev.call(x)
	}
	return nil, evalErr(InvalidArgument, "unsupported node %T", n)
}

func (ev *evaluator) lookup(path string) (any, error) {
	v, ok := ev.env.Lookup(path)
	if ok {
		return Normalize(v), nil
	}
	if ev.env.IsRequired(path) {
		return nil, evalErr(MissingVariable, "required variable %q is not set", path)
	}
	ev.missing = append(ev.missing, path)
	return nil, nil
}

func (ev *evaluator) unary(n *unaryNode) (any, error) {
	v, err := ev.eval(n.operand)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		b, err := Truthy(v)
		if err != nil {
			return nil, err
		}
		return !b, nil
	case "-":
		f, ok := v.(float64)
		if !ok {
			return nil, evalErr(TypeMismatch, "cannot negate %s", TypeName(v))
		}
		return -f, nil
	}
	return nil, evalErr(InvalidArgument, "unknown unary operator %s", n.op)
}

func (ev *evaluator) binary(n *binaryNode) (any, error) {
	// Logical operators short-circuit.
	if n.op == "&&" || n.op == "||" {
		lv, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		lb, err := Truthy(lv)
		if err != nil {
			return nil, err
		}
		if n.op == "&&" && !lb {
			return false, nil
		}
		if n.op == "||" && lb {
			return true, nil
		}
		rv, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}
		return Truthy(rv)
	}

	lv, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}
	rv, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(lv, rv)
	case "!=":
		eq, err := equal(lv, rv)
		return !eq, err
	case "<", "<=", ">", ">=":
		return compare(n.op, lv, rv)
	case "+":
		_, ls := lv.(string)
		_, rs := rv.(string)
		if ls || rs {
			return Stringify(lv) + Stringify(rv), nil
		}
	}
	return arithmetic(n.op, lv, rv)
}

func compare(op string, a, b any) (any, error) {
	var c int
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return nil, evalErr(TypeMismatch, "cannot compare %s %s %s", TypeName(a), op, TypeName(b))
		}
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	case string:
		y, ok := b.(string)
		if !ok {
			return nil, evalErr(TypeMismatch, "cannot compare %s %s %s", TypeName(a), op, TypeName(b))
		}
		c = strings.Compare(x, y)
	default:
		return nil, evalErr(TypeMismatch, "cannot compare %s %s %s", TypeName(a), op, TypeName(b))
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func arithmetic(op string, a, b any) (any, error) {
	x, xok := a.(float64)
	y, yok := b.(float64)
	if !xok || !yok {
		return nil, evalErr(TypeMismatch, "cannot apply %s to %s and %s", op, TypeName(a), TypeName(b))
	}
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, evalErr(DivisionByZero, "division by zero")
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return nil, evalErr(DivisionByZero, "modulo by zero")
		}
		return math.Mod(x, y), nil
	}
	return nil, evalErr(InvalidArgument, "unknown operator %s", op)
}

func (ev *evaluator) call(n *callNode) (any, error) {
	// IF and COALESCE evaluate their arguments lazily.
	switch n.name {
	case "IF":
		if len(n.args) < 2 || len(n.args) > 3 {
			return nil, evalErr(InvalidArgument, "IF expects 2 or 3 arguments, got %d", len(n.args))
		}
		cv, err := ev.eval(n.args[0])
		if err != nil {
			return nil, err
		}
		cond, err := Truthy(cv)
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.eval(n.args[1])
		}
		if len(n.args) == 3 {
			return ev.eval(n.args[2])
		}
		return nil, nil
	case "COALESCE":
		for _, a := range n.args {
			v, err := ev.eval(a)
			if err != nil {
				return nil, err
			}
			if v != nil && v != "" {
				return v, nil
			}
		}
		return nil, nil
	}

	fn, ok := builtins[n.name]
	if !ok {
		return nil, evalErr(UnknownFunction, "unknown function %s", n.name)
	}
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(ev.env, args)
}

// MapEnv is an Env over a plain map with dotted-path lookup. It has no required
// variables and uses the wall clock. Useful for tests and ad-hoc evaluation.
type MapEnv map[string]any

func (m MapEnv) Lookup(path string) (any, bool) {
	var cur any = map[string]any(m)
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := index(seg, len(c))
			if !ok {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func (m MapEnv) IsRequired(string) bool { return false }
func (m MapEnv) Now() time.Time         { return time.Now() }

func index(seg string, n int) (int, bool) {
	i := 0
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
		i = i*10 + int(r-'0')
	}
	return i, i < n
}
