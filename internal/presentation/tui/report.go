package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Report prints evaluation results for people at a terminal.
type Report struct {
	w   io.Writer
	out *termenv.Output
	// markdown renders markdown letters; nil prints them verbatim.
	markdown func(string) (string, error)
}

// NewReport creates a Report on w. Markdown letters are rendered through glamour
// only when w is a terminal.
func NewReport(w io.Writer) *Report {
	r := &Report{w: w, out: termenv.NewOutput(w)}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil || width > 120 {
			width = 100
		}
		if md, err := NewRenderer(width); err == nil {
			r.markdown = md
		}
	}
	return r
}

func (r *Report) styled(s, color string, bold bool) termenv.Style {
	st := r.out.String(s).Foreground(r.out.Color(color))
	if bold {
		st = st.Bold()
	}
	return st
}

// Print writes the letter followed by its compliance summary.
func (r *Report) Print(res *domain.EvaluationResult) {
	header := fmt.Sprintf("%s  %s", res.GraphID, outcomeLabel(res.Outcome))
	if res.GraphVersion != "" {
		header = fmt.Sprintf("%s@%s  %s", res.GraphID, res.GraphVersion, outcomeLabel(res.Outcome))
	}
	fmt.Fprintln(r.w, r.styled(header, outcomeColor(res.Outcome), true))
	fmt.Fprintln(r.w, r.styled(strings.Repeat("─", 40), "#6b7280", false))

	if res.Aborted {
		fmt.Fprintln(r.w, r.styled("No letter may be sent: "+res.AbortReason, "#dc2626", true))
	} else {
		fmt.Fprintln(r.w, r.letter(res))
	}

	r.section("Violations", len(res.Violations), "#dc2626", func() {
		for _, v := range res.Violations {
			line := fmt.Sprintf("[%s] %s: %s", v.Level, v.RuleID, v.Message)
			if v.RequiredAction != "" {
				line += " (" + v.RequiredAction + ")"
			}
			fmt.Fprintln(r.w, "  "+line)
		}
	})
	r.section("Review flags", len(res.Flags), "#d97706", func() {
		for _, f := range res.Flags {
			fmt.Fprintf(r.w, "  [%s] %s\n", f.Source, f.Message)
		}
	})
	r.section("Warnings", len(res.Warnings), "#6b7280", func() {
		for _, w := range res.Warnings {
			fmt.Fprintln(r.w, "  "+w.String())
		}
	})
}

func (r *Report) letter(res *domain.EvaluationResult) string {
	if r.markdown != nil && res.Format == "markdown" {
		if out, err := r.markdown(res.RenderedContent); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return res.RenderedContent
}

func (r *Report) section(title string, n int, color string, body func()) {
	if n == 0 {
		return
	}
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, r.styled(fmt.Sprintf("%s (%d)", title, n), color, true))
	body()
}

func outcomeLabel(o domain.Outcome) string {
	return strings.ToUpper(string(o))
}

func outcomeColor(o domain.Outcome) string {
	switch o {
	case domain.OutcomeAborted:
		return "#dc2626"
	case domain.OutcomeAdvisory:
		return "#d97706"
	}
	return "#16a34a"
}
