package expr_test

import (
	"testing"
	"time"

	"github.com/aretw0/lettergraph/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	vars     expr.MapEnv
	required map[string]bool
	now      time.Time
}

func (e testEnv) Lookup(path string) (any, bool) { return e.vars.Lookup(path) }
func (e testEnv) IsRequired(path string) bool    { return e.required[path] }
func (e testEnv) Now() time.Time                 { return e.now }

func newEnv(vars map[string]any, required ...string) testEnv {
	req := map[string]bool{}
	for _, r := range required {
		req[r] = true
	}
	return testEnv{
		vars:     vars,
		required: req,
		now:      time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_Values(t *testing.T) {
	env := newEnv(map[string]any{
		"a":     250,
		"b":     4,
		"name":  "Ada",
		"claim": map[string]any{"status": "DENIED", "lines": []any{map[string]any{"amount": 10}, map[string]any{"amount": 20.5}}},
	})

	tests := []struct {
		name string
		src  string
		want any
	}{
		{"arithmetic precedence", "1 + 2 * 3", 7.0},
		{"parentheses", "(1 + 2) * 3", 9.0},
		{"derived variable", "{{a}} * {{b}} / 100", 10.0},
		{"modulo", "10 % 4", 2.0},
		{"unary minus", "-{{b}} + 1", -3.0},
		{"string concat with number", "'$' + 10", "$10"},
		{"number concat keeps decimals", "'x' + 2.5", "x2.5"},
		{"string equality", "{{claim.status}} == 'DENIED'", true},
		{"bare path", "claim.status != 'PAID'", true},
		{"array index path", "{{claim.lines.1.amount}}", 20.5},
		{"relational strings", "'abc' < 'abd'", true},
		{"relational numbers", "{{a}} >= 250", true},
		{"logic", "true && !false", true},
		{"null equality", "{{missing}} == null", true},
		{"null vs value", "{{name}} == null", false},
		{"short circuit and", "false && {{missing}} > 1", false},
		{"short circuit or", "true || (1 / 0) > 1", true},
		{"null is false in logic", "{{missing}} || true", true},
		{"double quoted string", `"a\"b"`, `a"b`},
		{"case insensitive keyword", "TRUE", true},
		{"function case insensitive", "upper({{name}})", "ADA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := expr.Evaluate(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	env := newEnv(map[string]any{"n": 1, "s": "x", "flag": true}, "member.id")

	tests := []struct {
		name string
		src  string
		kind expr.EvalErrorKind
	}{
		{"number vs string comparison", "{{n}} < 'a'", expr.TypeMismatch},
		{"cross type equality", "{{n}} == 'x'", expr.TypeMismatch},
		{"arithmetic on string", "{{s}} * 2", expr.TypeMismatch},
		{"logic on number", "{{n}} && true", expr.TypeMismatch},
		{"negate string", "-{{s}}", expr.TypeMismatch},
		{"division by zero", "1 / 0", expr.DivisionByZero},
		{"modulo by zero", "1 % 0", expr.DivisionByZero},
		{"unknown function", "NOPE(1)", expr.UnknownFunction},
		{"required variable missing", "{{member.id}} == 'A1'", expr.MissingVariable},
		{"bad argument", "ROUND('x')", expr.TypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expr.Evaluate(tt.src, env)
			require.Error(t, err)
			assert.ErrorIs(t, err, expr.ErrEval)
			assert.True(t, expr.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestEvaluate_OptionalMissingIsNull(t *testing.T) {
	res, err := expr.Evaluate("COALESCE({{member.nickname}}, 'friend')", newEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "friend", res.Value)
	assert.Equal(t, []string{"member.nickname"}, res.Missing)
}

func TestCompile_ParseErrors(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{"", 0},
		{"1 +", 3},
		{"(1 + 2", 6},
		{"{{a.b", 0},
		{"'open", 0},
		{"1 # 2", 2},
		{"a b", 2},
		{"{{ }}", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := expr.Compile(tt.src)
			require.Error(t, err)
			var pe *expr.ParseError
			require.ErrorAs(t, err, &pe)
			assert.ErrorIs(t, err, expr.ErrParse)
			assert.Equal(t, tt.offset, pe.Offset)
		})
	}
}

func TestProgram_Variables(t *testing.T) {
	p := expr.MustCompile("{{b}} + SUM(a.x, c) + {{b}}")
	assert.Equal(t, []string{"a.x", "b", "c"}, p.Variables())
	assert.Equal(t, "{{b}} + SUM(a.x, c) + {{b}}", p.Source())
}

func TestProgram_ConcurrentRuns(t *testing.T) {
	p := expr.MustCompile("{{x}} * 2")
	done := make(chan float64, 50)
	for i := 0; i < 50; i++ {
		go func(i int) {
			res, err := p.Run(newEnv(map[string]any{"x": i}))
			if err != nil {
				done <- -1
				return
			}
			done <- res.Value.(float64) - float64(i*2)
		}(i)
	}
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0.0, <-done)
	}
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, `"DENIED"`, expr.Literal("DENIED"))
	assert.Equal(t, "10", expr.Literal(10))
	assert.Equal(t, "true", expr.Literal(true))
	assert.Equal(t, "null", expr.Literal(nil))

	res, err := expr.Evaluate("{{s}} == "+expr.Literal(`it's "quoted"`), newEnv(map[string]any{"s": `it's "quoted"`}))
	require.NoError(t, err)
	assert.Equal(t, true, res.Value)
}
