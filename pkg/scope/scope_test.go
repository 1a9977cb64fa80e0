package scope_test

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
	"github.com/aretw0/lettergraph/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberJSON = `{"member":{"name":"Ada","diagnoses":[{"code":"E11.9"}]},"claim":{"lines":[{"amount":10},{"amount":20}]}}`

func newContext(t *testing.T) *scope.Context {
	t.Helper()
	data, err := scope.NewData([]byte(memberJSON))
	require.NoError(t, err)
	defs := []domain.VariableDefinition{{Key: "member.id", Required: true}, {Key: "member.name"}}
	return scope.New(data, defs, scope.Flags{Channel: "email", Language: "en"}, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
}

func TestNewData(t *testing.T) {
	_, err := scope.NewData([]byte(`[1,2]`))
	assert.ErrorIs(t, err, scope.ErrInvalidData)

	_, err = scope.NewData([]byte(`{"a":`))
	assert.ErrorIs(t, err, scope.ErrInvalidData)

	d, err := scope.NewData(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(d.Raw()))
}

func TestContext_ResolveData(t *testing.T) {
	c := newContext(t)

	v, ok := c.Resolve("member.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = c.Resolve("claim.lines.1.amount")
	require.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = c.Resolve("member.nickname")
	assert.False(t, ok)

	v, ok = c.Resolve("request.channel")
	require.True(t, ok)
	assert.Equal(t, "email", v)
}

func TestContext_InnermostScopeWins(t *testing.T) {
	c := newContext(t)
	c.Set("member", map[string]any{"name": "Root"})

	err := c.WithChild(func() error {
		c.Set("member", map[string]any{"name": "Inner"})
		v, _ := c.Resolve("member.name")
		assert.Equal(t, "Inner", v)
		assert.Equal(t, 1, c.Depth())
		return errors.New("stop")
	})
	assert.EqualError(t, err, "stop")

	v, _ := c.Resolve("member.name")
	assert.Equal(t, "Root", v)
	assert.Equal(t, 0, c.Depth())
}

func TestContext_SetOnlyTouchesCurrentScope(t *testing.T) {
	c := newContext(t)
	c.Set("total", 5)

	c.Push()
	c.Set("total", 99)
	c.Set("lineTotal", 1)
	c.Pop()

	assert.Equal(t, map[string]any{"total": 5.0}, c.Derived())
	_, ok := c.Resolve("lineTotal")
	assert.False(t, ok)

	// Popping the root is a no-op.
	c.Pop()
	assert.Equal(t, 0, c.Depth())
}

func TestContext_MergeDataIsCopyOnWrite(t *testing.T) {
	c := newContext(t)
	before := c.Data()

	require.NoError(t, c.MergeData("data.q1", []byte(`{"balance":12.5}`)))

	v, ok := c.Resolve("data.q1.balance")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = before.Get("data.q1.balance")
	assert.False(t, ok, "original snapshot must not change")

	assert.Error(t, c.MergeData("bad path!", []byte(`1`)))
	assert.Error(t, c.MergeData("data.x", []byte(`{`)))
}

func TestContext_ImplementsEnv(t *testing.T) {
	c := newContext(t)

	var env expr.Env = c
	res, err := expr.Evaluate("SUM({{claim.lines}}, 'amount') + 1", env)
	require.NoError(t, err)
	assert.Equal(t, 31.0, res.Value)

	_, err = expr.Evaluate("{{member.id}} == 'x'", env)
	assert.True(t, expr.IsKind(err, expr.MissingVariable))

	res, err = expr.Evaluate("TODAY()", env)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", res.Value)
}

func TestContext_Ref(t *testing.T) {
	c := newContext(t)

	ref := c.Ref("member.name")
	assert.True(t, ref.Found)
	assert.False(t, ref.Required())

	ref = c.Ref("member.id")
	assert.False(t, ref.Found)
	assert.True(t, ref.Required())
}

func TestFlags(t *testing.T) {
	c := newContext(t)
	c.SetLanguage("es-MX")
	c.SetVariation("v2")
	assert.Equal(t, domain.Variant{Language: "es-MX", Variation: "v2"}, c.Flags().Variant())
	assert.Equal(t, language.MustParse("es-MX"), c.Language())

	c.SetLanguage("tr")
	var env expr.Env = c
	res, err := expr.Evaluate("UPPER('iyi')", env)
	require.NoError(t, err)
	assert.Equal(t, "İYİ", res.Value)

	c.SetLanguage("")
	assert.Equal(t, language.Und, c.Language())
}
