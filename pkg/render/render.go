// Package render serializes render instructions into the final letter text.
//
// Authored content (literals, block bodies, separators) is trusted and written
// as is; data values are escaped for the output format. Output is a pure
// function of the instructions, the format and the locale.
package render

import (
	"fmt"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
	"golang.org/x/text/language"
)

// Format is an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat validates a format name. The empty string means html.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatHTML, nil
	case "md":
		return FormatMarkdown, nil
	case "txt", "plain":
		return FormatText, nil
	case FormatHTML, FormatMarkdown, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Renderer turns instructions into text. A Renderer is immutable and safe for
// concurrent use.
type Renderer struct {
	format Format
	tag    language.Tag
	w      writer
}

// New creates a renderer. locale is a BCP 47 tag used for number, currency and
// case formatting; an unparsable or empty locale means American English.
func New(format Format, locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.AmericanEnglish
	}
	r := &Renderer{format: format, tag: tag}
	switch format {
	case FormatMarkdown:
		r.w = markdownWriter{}
	case FormatText:
		r.w = textWriter{}
	default:
		r.format = FormatHTML
		r.w = htmlWriter{}
	}
	return r
}

// Format returns the output format.
func (r *Renderer) Format() Format { return r.format }

// Render serializes instructions. Missing required variables produce a visible
// marker and a warning.
func (r *Renderer) Render(instrs []domain.RenderInstruction) (string, []domain.Warning) {
	st := &state{}
	out := r.render(st, instrs)
	return r.w.finish(out), st.warnings
}

type state struct {
	warnings []domain.Warning
}

func (r *Renderer) render(st *state, instrs []domain.RenderInstruction) string {
	var sb strings.Builder
	for i := range instrs {
		sb.WriteString(r.one(st, &instrs[i]))
	}
	return sb.String()
}

func (r *Renderer) one(st *state, in *domain.RenderInstruction) string {
	switch in.Kind {
	case domain.KindLiteral:
		return in.Text
	case domain.KindVariable:
		return r.variable(st, in)
	case domain.KindBlock, domain.KindComponent:
		return r.w.block(in.Kind, in.RefID, r.render(st, in.Children))
	case domain.KindRepeated:
		if in.Table != nil {
			return r.table(st, in)
		}
		parts := make([]string, 0, len(in.Items))
		for _, item := range in.Items {
			parts = append(parts, r.render(st, item))
		}
		return strings.Join(parts, in.Separator)
	case domain.KindStyled:
		if in.Style == nil {
			return r.render(st, in.Children)
		}
		return r.w.styled(in.Style, r.render(st, in.Children))
	}
	return ""
}

func (r *Renderer) variable(st *state, in *domain.RenderInstruction) string {
	ref := in.Var
	if ref == nil {
		return ""
	}
	if !ref.Found {
		if !ref.Required() {
			return ""
		}
		st.warnings = append(st.warnings, domain.Warning{
			NodeID:  in.NodeID,
			Kind:    domain.WarnMissingVariable,
			Message: fmt.Sprintf("required variable %s is missing", ref.Path),
		})
		return r.w.escape("[MISSING: " + ref.Path + "]")
	}
	s := FormatValue(r.tag, ref.Value, ref.Definition)
	return r.w.value(s)
}

func (r *Renderer) table(st *state, in *domain.RenderInstruction) string {
	rows := make([][]string, 0, len(in.Items))
	for _, item := range in.Items {
		var cells []string
		for i := range item {
			cell := &item[i]
			if cell.Kind == domain.KindStyled && cell.Style != nil && cell.Style.Kind == domain.StyleCell {
				cells = append(cells, r.render(st, cell.Children))
				continue
			}
			cells = append(cells, r.one(st, cell))
		}
		rows = append(rows, cells)
	}
	return r.w.table(in.Table.Headers, rows)
}
