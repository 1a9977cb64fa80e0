package render_test

import (
	"testing"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variable(path string, value any, def *domain.VariableDefinition) domain.RenderInstruction {
	return domain.RenderInstruction{
		Kind: domain.KindVariable,
		Var:  &domain.VariableRef{Path: path, Value: value, Found: value != nil, Definition: def},
	}
}

func lit(s string) domain.RenderInstruction { return domain.Literal("", s) }

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]render.Format{"": render.FormatHTML, "HTML": render.FormatHTML, "md": render.FormatMarkdown, "text": render.FormatText} {
		got, err := render.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := render.ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRender_RepeatedJoinsWithSeparatorOnly(t *testing.T) {
	items := [][]domain.RenderInstruction{
		{lit("$"), variable("line.amount", 10.0, nil)},
		{lit("$"), variable("line.amount", 20.0, nil)},
		{lit("$"), variable("line.amount", 30.0, nil)},
	}
	in := []domain.RenderInstruction{{Kind: domain.KindRepeated, Items: items, Separator: ", "}}

	for _, f := range []render.Format{render.FormatHTML, render.FormatMarkdown, render.FormatText} {
		out, warnings := render.New(f, "en").Render(in)
		assert.Equal(t, "$10, $20, $30", out, f)
		assert.Empty(t, warnings)
	}
}

func TestRender_HTMLEscapesDataNotContent(t *testing.T) {
	in := []domain.RenderInstruction{
		{Kind: domain.KindBlock, RefID: "greeting", Children: []domain.RenderInstruction{
			lit("<p>Dear "), variable("member.name", "<script>x</script>", nil), lit(",</p>"),
		}},
	}
	out, _ := render.New(render.FormatHTML, "en").Render(in)
	assert.Equal(t, `<div class="lg-block" data-block-id="greeting"><p>Dear &lt;script&gt;x&lt;/script&gt;,</p></div>`, out)
}

func TestRender_MissingVariables(t *testing.T) {
	required := &domain.VariableDefinition{Key: "member.id", Required: true}
	in := []domain.RenderInstruction{
		lit("ID: "), {Kind: domain.KindVariable, NodeID: "t1", Var: &domain.VariableRef{Path: "member.id", Definition: required}},
		lit(" Nick: "), variable("member.nickname", nil, nil),
	}

	out, warnings := render.New(render.FormatText, "en").Render(in)
	assert.Equal(t, "ID: [MISSING: member.id] Nick:", out)
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnMissingVariable, warnings[0].Kind)
	assert.Equal(t, "t1", warnings[0].NodeID)
}

func TestRender_TextBlocksAreParagraphs(t *testing.T) {
	in := []domain.RenderInstruction{
		lit("Dear Ada,"),
		{Kind: domain.KindBlock, RefID: "a", Children: []domain.RenderInstruction{lit("First.")}},
		{Kind: domain.KindBlock, RefID: "b", Children: []domain.RenderInstruction{lit("Second.")}},
		lit("\n"),
	}
	out, _ := render.New(render.FormatText, "en").Render(in)
	assert.Equal(t, "Dear Ada,\n\nFirst.\n\nSecond.", out)
}

func TestRender_Tables(t *testing.T) {
	cell := func(s string) domain.RenderInstruction {
		return domain.RenderInstruction{Kind: domain.KindStyled, Style: &domain.Style{Kind: domain.StyleCell}, Children: []domain.RenderInstruction{lit(s)}}
	}
	in := []domain.RenderInstruction{{
		Kind:  domain.KindRepeated,
		Table: &domain.TableSpec{Headers: []string{"Code", "Amount"}},
		Items: [][]domain.RenderInstruction{{cell("A1"), cell("$10")}, {cell("B2"), cell("$20")}},
	}}

	html, _ := render.New(render.FormatHTML, "en").Render(in)
	assert.Equal(t, `<table class="lg-table"><thead><tr><th>Code</th><th>Amount</th></tr></thead><tbody><tr><td>A1</td><td>$10</td></tr><tr><td>B2</td><td>$20</td></tr></tbody></table>`, html)

	md, _ := render.New(render.FormatMarkdown, "en").Render(in)
	assert.Equal(t, "| Code | Amount |\n| --- | --- |\n| A1 | $10 |\n| B2 | $20 |", md)

	txt, _ := render.New(render.FormatText, "en").Render(in)
	assert.Equal(t, "Code\tAmount\nA1\t$10\nB2\t$20", txt)
}

func TestRender_Styles(t *testing.T) {
	alert := domain.RenderInstruction{
		Kind:     domain.KindStyled,
		Style:    &domain.Style{Kind: domain.NodeTypeAlertStyle, Attrs: map[string]string{"level": "warning", "title": "Important"}},
		Children: []domain.RenderInstruction{lit("Act by May 1.")},
	}
	bold := domain.RenderInstruction{
		Kind:     domain.KindStyled,
		Style:    &domain.Style{Kind: domain.NodeTypeFormatting, Attrs: map[string]string{"bold": "true"}},
		Children: []domain.RenderInstruction{lit("now")},
	}

	html, _ := render.New(render.FormatHTML, "en").Render([]domain.RenderInstruction{alert, bold})
	assert.Equal(t, `<div class="lg-alert lg-alert-warning" role="note"><strong>Important</strong>Act by May 1.</div><span style="font-weight:bold">now</span>`, html)

	md, _ := render.New(render.FormatMarkdown, "en").Render([]domain.RenderInstruction{alert, bold})
	assert.Equal(t, "> **Important**\n>\n> Act by May 1.\n\n**now**", md)

	txt, _ := render.New(render.FormatText, "en").Render([]domain.RenderInstruction{alert, bold})
	assert.Equal(t, "Important\nAct by May 1.\n\nnow", txt)
}

func TestRender_LocaleStyle(t *testing.T) {
	in := []domain.RenderInstruction{{
		Kind:     domain.KindStyled,
		Style:    &domain.Style{Kind: domain.NodeTypeLocaleStyle, Attrs: map[string]string{"lang": "he", "dir": "rtl"}},
		Children: []domain.RenderInstruction{lit("shalom")},
	}}

	html, _ := render.New(render.FormatHTML, "en").Render(in)
	assert.Equal(t, `<div lang="he" dir="rtl">shalom</div>`, html)

	txt, _ := render.New(render.FormatText, "en").Render(in)
	assert.Equal(t, "shalom", txt)
}

func TestRender_Deterministic(t *testing.T) {
	in := []domain.RenderInstruction{{
		Kind:     domain.KindStyled,
		Style:    &domain.Style{Kind: domain.NodeTypeFormatting, Attrs: map[string]string{"color": "red", "bold": "true", "italic": "true", "size": "12pt"}},
		Children: []domain.RenderInstruction{variable("m", map[string]any{"b": 1.0, "a": "x"}, nil)},
	}}
	r := render.New(render.FormatHTML, "en")
	first, _ := r.Render(in)
	for i := 0; i < 20; i++ {
		out, _ := r.Render(in)
		assert.Equal(t, first, out)
	}
}
