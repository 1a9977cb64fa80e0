package runtime_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/internal/compiler"
	"github.com/aretw0/lettergraph/internal/runtime"
	"github.com/aretw0/lettergraph/pkg/domain"
)

type contentMap map[string]map[domain.Variant]domain.Content

func (m contentMap) Get(_ context.Context, id string, v domain.Variant) (*domain.Content, error) {
	c, ok := m[id][v]
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	c.ID = id
	c.Language, c.Variation = v.Language, v.Variation
	return &c, nil
}

var letters = contentMap{
	"appeal-rights": {
		{}:               {Body: "You may appeal this decision."},
		{Language: "es"}: {Body: "Puede apelar esta decisión."},
	},
	"approval-notice": {{}: {Body: "Your claim was approved."}},
	"greeting":        {{}: {Body: "Dear {{member.name}},"}},
	"signature":       {{}: {Body: "Sincerely, {{params.signer}}", ComplianceFlags: []string{"signature-review"}}},
}

func n(id string, t domain.NodeType, cfg map[string]any) domain.Node {
	return domain.Node{ID: id, Type: t, Config: cfg}
}

func e(src, dst, label string) domain.Edge {
	return domain.Edge{Source: src, Target: dst, Label: label}
}

func compile(t *testing.T, nodes []domain.Node, edges []domain.Edge, vars ...domain.VariableDefinition) *domain.Graph {
	t.Helper()
	g, err := compiler.New(nil).Compile(&domain.GraphDocument{ID: "test", Version: "1", Nodes: nodes, Edges: edges, Variables: vars})
	require.NoError(t, err)
	return g
}

func request(data string) domain.Request {
	return domain.Request{
		GraphID: "test",
		Data:    json.RawMessage(data),
		Channel: "mail",
		Format:  "text",
		AsOf:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func denialGraph(t *testing.T) *domain.Graph {
	return compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("denied", domain.NodeTypeCondition, map[string]any{"expression": "{{claim.status}} == 'DENIED'"}),
			n("appeal", domain.NodeTypeInclude, map[string]any{"blockId": "appeal-rights"}),
			n("approved", domain.NodeTypeInclude, map[string]any{"blockId": "approval-notice"}),
		},
		[]domain.Edge{
			e("start", "denied", ""),
			e("denied", "appeal", "true"),
			e("denied", "approved", "false"),
		},
	)
}

func TestEvaluate_ConditionSelectsOneBranch(t *testing.T) {
	eng := runtime.NewEngine(runtime.WithContent(letters))
	g := denialGraph(t)

	res, err := eng.Evaluate(context.Background(), g, request(`{"claim":{"status":"DENIED"}}`))
	require.NoError(t, err)
	assert.Equal(t, "You may appeal this decision.", res.RenderedContent)
	assert.Equal(t, domain.OutcomeClean, res.Outcome)
	require.Len(t, res.IncludedContent, 1)
	assert.Equal(t, "appeal-rights", res.IncludedContent[0].ID)

	res, err = eng.Evaluate(context.Background(), g, request(`{"claim":{"status":"PAID"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Your claim was approved.", res.RenderedContent)
}

func TestEvaluate_HTMLBlockMarkup(t *testing.T) {
	eng := runtime.NewEngine(runtime.WithContent(letters))
	req := request(`{"claim":{"status":"DENIED"}}`)
	req.Format = ""

	res, err := eng.Evaluate(context.Background(), denialGraph(t), req)
	require.NoError(t, err)
	assert.Equal(t, "html", res.Format)
	assert.Contains(t, res.RenderedContent, `data-block-id="appeal-rights"`)
	assert.NotContains(t, res.RenderedContent, "approved")
}

func TestEvaluate_LoopWithTemplate(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("lines", domain.NodeTypeLoop, map[string]any{
				"source":       "claim.lines",
				"itemVariable": "line",
				"template":     "${{line.amount}}",
				"separator":    ", ",
			}),
		},
		[]domain.Edge{e("start", "lines", "")},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g,
		request(`{"claim":{"lines":[{"amount":10},{"amount":20},{"amount":30}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "$10, $20, $30", res.RenderedContent)
	assert.Empty(t, res.DerivedVariables, "loop bindings must not leak")
}

func TestEvaluate_LoopBodyScopesAndReturn(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("each", domain.NodeTypeLoop, map[string]any{
				"source":    "codes",
				"filter":    "{{item}} != 'skip'",
				"separator": "|",
				"limit":     4,
			}),
			n("stop", domain.NodeTypeCondition, map[string]any{"expression": "{{item}} == 'halt'"}),
			n("ret", domain.NodeTypeReturn, nil),
			n("text", domain.NodeTypeDynamicText, map[string]any{"text": "{{loop.index}}:{{item}}"}),
			n("after", domain.NodeTypeDynamicText, map[string]any{"text": " done"}),
		},
		[]domain.Edge{
			e("start", "each", ""),
			e("each", "stop", "body"),
			e("stop", "ret", "true"),
			e("stop", "text", "false"),
			e("each", "after", ""),
		},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g,
		request(`{"codes":["a","skip","halt","b","c"]}`))
	require.NoError(t, err)
	assert.Equal(t, "0:a|3:b done", res.RenderedContent)

	var limited bool
	for _, w := range res.Warnings {
		limited = limited || w.Kind == domain.WarnLimit
	}
	assert.True(t, limited)
}

func TestEvaluate_DerivedVariables(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("pct", domain.NodeTypeDerivedVariable, map[string]any{"name": "share", "expression": "{{a}} * {{b}} / 100"}),
			n("const", domain.NodeTypeSetVariable, map[string]any{"name": "plan", "value": "Gold"}),
			n("out", domain.NodeTypeDynamicText, map[string]any{"text": "{{plan}} {{share}}"}),
		},
		[]domain.Edge{e("start", "pct", ""), e("pct", "const", ""), e("const", "out", "")},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g, request(`{"a":250,"b":4}`))
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.DerivedVariables["share"])
	assert.Equal(t, "Gold", res.DerivedVariables["plan"])
	assert.Equal(t, "Gold 10", res.RenderedContent)
}

func TestEvaluate_BlockingViolationAborts(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("rule", domain.NodeTypeComplianceRule, map[string]any{
				"ruleId":          "appeal-notice",
				"trigger":         "{{claim.status}} == 'DENIED'",
				"level":           "blocking",
				"requiredBlockId": "appeal-rights",
				"requiredAction":  "Include appeal rights",
			}),
			n("body", domain.NodeTypeDynamicText, map[string]any{"text": "Your claim {{claim.id}} was denied."}),
		},
		[]domain.Edge{e("start", "rule", ""), e("rule", "body", "")},
	)
	res, err := runtime.NewEngine(runtime.WithContent(letters)).Evaluate(context.Background(), g,
		request(`{"claim":{"status":"DENIED","id":"C-1"}}`))
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Empty(t, res.RenderedContent)
	assert.Equal(t, domain.OutcomeAborted, res.Outcome)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "appeal-notice", res.Violations[0].RuleID)
	assert.Equal(t, domain.LevelBlocking, res.Violations[0].Level)
}

func TestEvaluate_AdvisoryAndFailClosedTrigger(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("rule", domain.NodeTypeComplianceRule, map[string]any{
				"ruleId":  "needs-review",
				"trigger": "{{member.age}} > 'x'",
				"level":   "required",
			}),
			n("body", domain.NodeTypeDynamicText, map[string]any{"text": "Hello"}),
		},
		[]domain.Edge{e("start", "rule", ""), e("rule", "body", "")},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g, request(`{"member":{"age":40}}`))
	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Equal(t, "Hello", res.RenderedContent)
	assert.Equal(t, domain.OutcomeAdvisory, res.Outcome)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.WarnCompliance, res.Warnings[0].Kind)
}

func TestEvaluate_ConcurrentRequestsAreIsolated(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("double", domain.NodeTypeDerivedVariable, map[string]any{"name": "twice", "expression": "{{n}} * 2"}),
			n("out", domain.NodeTypeDynamicText, map[string]any{"text": "{{twice}}"}),
		},
		[]domain.Edge{e("start", "double", ""), e("double", "out", "")},
	)
	eng := runtime.NewEngine()

	var wg sync.WaitGroup
	got := make([]string, 40)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Evaluate(context.Background(), g, request(fmt.Sprintf(`{"n":%d}`, i)))
			if err == nil {
				got[i] = res.RenderedContent
			}
		}(i)
	}
	wg.Wait()
	for i, s := range got {
		assert.Equal(t, fmt.Sprint(i*2), s)
	}
}

func TestEvaluate_SwitchDefaultAndNoMatch(t *testing.T) {
	build := func(withDefault bool) *domain.Graph {
		nodes := []domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("sw", domain.NodeTypeSwitch, map[string]any{"discriminant": "{{plan}}"}),
			n("gold", domain.NodeTypeDynamicText, map[string]any{"text": "gold"}),
		}
		edges := []domain.Edge{e("start", "sw", ""), e("sw", "gold", "GOLD")}
		if withDefault {
			nodes = append(nodes, n("other", domain.NodeTypeDynamicText, map[string]any{"text": "other"}))
			edges = append(edges, e("sw", "other", "default"))
		}
		return compile(t, nodes, edges)
	}
	eng := runtime.NewEngine()

	res, err := eng.Evaluate(context.Background(), build(true), request(`{"plan":"GOLD"}`))
	require.NoError(t, err)
	assert.Equal(t, "gold", res.RenderedContent)

	res, err = eng.Evaluate(context.Background(), build(true), request(`{"plan":"SILVER"}`))
	require.NoError(t, err)
	assert.Equal(t, "other", res.RenderedContent)

	res, err = eng.Evaluate(context.Background(), build(false), request(`{"plan":"SILVER"}`))
	require.NoError(t, err)
	assert.Empty(t, res.RenderedContent)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.WarnNoMatch, res.Warnings[0].Kind)
}

func TestEvaluate_LanguageFallbackAndComponents(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("lang", domain.NodeTypeSetLanguage, map[string]any{"language": "{{member.language}}"}),
			n("hello", domain.NodeTypeBlock, map[string]any{"blockId": "greeting"}),
			n("appeal", domain.NodeTypeBlock, map[string]any{"blockId": "appeal-rights"}),
			n("sig", domain.NodeTypeComponent, map[string]any{"componentId": "signature", "params": map[string]any{"signer": "Dr. {{provider.name}}"}}),
			n("extra", domain.NodeTypeBlock, map[string]any{"blockId": "nope", "optional": true}),
		},
		[]domain.Edge{e("start", "lang", ""), e("lang", "hello", ""), e("hello", "appeal", ""), e("appeal", "sig", ""), e("sig", "extra", "")},
		domain.VariableDefinition{Key: "member.name", Required: true},
	)
	res, err := runtime.NewEngine(runtime.WithContent(letters)).Evaluate(context.Background(), g,
		request(`{"member":{"language":"es-MX"},"provider":{"name":"Lee"}}`))
	require.NoError(t, err)

	assert.Equal(t, "es-MX", res.Language)
	assert.Equal(t, "Dear [MISSING: member.name],\n\nPuede apelar esta decisión.\n\nSincerely, Dr. Lee", res.RenderedContent)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, domain.FlagFromComponent, res.Flags[0].Source)

	kinds := map[domain.WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[domain.WarnMissingVariable])
	assert.Equal(t, 1, kinds[domain.WarnContentNotFound])
}

func TestEvaluate_ComponentParamsStayInComponent(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("sig", domain.NodeTypeComponent, map[string]any{"componentId": "signature", "params": map[string]any{"signer": "Dr. Lee"}}),
			n("after", domain.NodeTypeDynamicText, map[string]any{"text": "[{{params.signer}}]"}),
		},
		[]domain.Edge{e("start", "sig", ""), e("sig", "after", "")},
	)
	res, err := runtime.NewEngine(runtime.WithContent(letters)).Evaluate(context.Background(), g, request(`{}`))
	require.NoError(t, err)

	assert.Contains(t, res.RenderedContent, "Sincerely, Dr. Lee")
	assert.Contains(t, res.RenderedContent, "[]")
	assert.NotContains(t, res.RenderedContent, "[Dr. Lee]")
}

func TestEvaluate_MissingContentPlaceholder(t *testing.T) {
	g := compile(t,
		[]domain.Node{n("start", domain.NodeTypeStart, nil), n("b", domain.NodeTypeBlock, map[string]any{"blockId": "nowhere"})},
		[]domain.Edge{e("start", "b", "")},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g, request(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "[MISSING CONTENT: nowhere]", res.RenderedContent)
}

func TestEvaluate_HideAndStyle(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("hide", domain.NodeTypeHide, map[string]any{"condition": "{{member.optOut}} == true"}),
			n("promo", domain.NodeTypeDynamicText, map[string]any{"text": "Join our program."}),
			n("bold", domain.NodeTypeFormatting, map[string]any{"bold": true}),
			n("tail", domain.NodeTypeDynamicText, map[string]any{"text": "Thanks"}),
		},
		[]domain.Edge{
			e("start", "hide", ""),
			e("hide", "promo", "body"),
			e("hide", "bold", ""),
			e("bold", "tail", ""),
		},
	)
	eng := runtime.NewEngine()

	req := request(`{"member":{"optOut":true}}`)
	req.Format = "markdown"
	res, err := eng.Evaluate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, "**Thanks**", res.RenderedContent)

	req = request(`{"member":{"optOut":false}}`)
	req.Format = "markdown"
	res, err = eng.Evaluate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, "Join our program.**Thanks**", res.RenderedContent)
}

func TestEvaluate_LocaleStyleHTML(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("rtl", domain.NodeTypeLocaleStyle, map[string]any{"locale": "ar", "direction": "rtl"}),
			n("hello", domain.NodeTypeDynamicText, map[string]any{"text": "hello"}),
		},
		[]domain.Edge{
			e("start", "rtl", ""),
			e("rtl", "hello", "body"),
		},
	)
	req := request(`{}`)
	req.Format = "html"

	res, err := runtime.NewEngine().Evaluate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, `<div lang="ar" dir="rtl">hello</div>`, res.RenderedContent)
}

func TestEvaluate_ChannelRouting(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("ch", domain.NodeTypeChannel, nil),
			n("fax", domain.NodeTypeDynamicText, map[string]any{"text": "fax cover"}),
			n("rest", domain.NodeTypeChannelFallback, map[string]any{"supported": []any{"email"}}),
			n("rich", domain.NodeTypeDynamicText, map[string]any{"text": "rich"}),
			n("plain", domain.NodeTypeDynamicText, map[string]any{"text": "plain"}),
		},
		[]domain.Edge{
			e("start", "ch", ""),
			e("ch", "fax", "fax"),
			e("ch", "rest", "default"),
			e("rest", "rich", "primary"),
			e("rest", "plain", "fallback"),
		},
	)
	eng := runtime.NewEngine()
	for channel, want := range map[string]string{"FAX": "fax cover", "email": "rich", "mail": "plain"} {
		req := request(`{}`)
		req.Channel = channel
		res, err := eng.Evaluate(context.Background(), g, req)
		require.NoError(t, err)
		assert.Equal(t, want, res.RenderedContent, channel)
	}
}

func TestEvaluate_TableLoop(t *testing.T) {
	g := compile(t,
		[]domain.Node{
			n("start", domain.NodeTypeStart, nil),
			n("table", domain.NodeTypeTableLoop, map[string]any{
				"source":       "claim.lines",
				"itemVariable": "line",
				"columns": []any{
					map[string]any{"header": "Code", "template": "{{line.code}}"},
					map[string]any{"header": "Amount", "template": "{{line.amount}}"},
				},
			}),
		},
		[]domain.Edge{e("start", "table", "")},
	)
	res, err := runtime.NewEngine().Evaluate(context.Background(), g,
		request(`{"claim":{"lines":[{"code":"99213","amount":80},{"code":"85025","amount":12.5}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "Code\tAmount\n99213\t80\n85025\t12.5", res.RenderedContent)
}

func TestEvaluate_Errors(t *testing.T) {
	g := denialGraph(t)
	eng := runtime.NewEngine()

	_, err := eng.Evaluate(context.Background(), g, request(`[1,2]`))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Evaluate(ctx, g, request(`{}`))
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_VisitBudget(t *testing.T) {
	res, err := runtime.NewEngine(runtime.WithMaxNodeVisits(2), runtime.WithContent(letters)).
		Evaluate(context.Background(), denialGraph(t), request(`{"claim":{"status":"DENIED"}}`))
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Contains(t, res.AbortReason, "budget")
	assert.Empty(t, res.RenderedContent)
}

func TestEvaluate_LifecycleHooks(t *testing.T) {
	var (
		mu      sync.Mutex
		entered []string
		left    int
		done    *domain.EvaluationEvent
	)
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, ev *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, ev.NodeID)
		},
		OnNodeLeave: func(_ context.Context, _ *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			left++
		},
		OnEvaluationDone: func(_ context.Context, ev *domain.EvaluationEvent) { done = ev },
	}
	eng := runtime.NewEngine(
		runtime.WithContent(letters),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithRequestIDs(func() string { return "req-1" }),
	)
	res, err := eng.Evaluate(context.Background(), denialGraph(t), request(`{"claim":{"status":"DENIED"}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "denied", "appeal"}, entered)
	assert.Equal(t, 3, left)
	require.NotNil(t, done)
	assert.Equal(t, "req-1", done.RequestID)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, domain.OutcomeClean, done.Outcome)
}
