package render

import (
	"html"
	"sort"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// writer implements one output format.
type writer interface {
	// escape protects engine-generated text such as missing markers.
	escape(s string) string
	// value writes a formatted data value.
	value(s string) string
	block(kind domain.InstructionKind, id, body string) string
	table(headers []string, rows [][]string) string
	styled(style *domain.Style, body string) string
	finish(s string) string
}

type htmlWriter struct{}

func (htmlWriter) escape(s string) string { return html.EscapeString(s) }

func (htmlWriter) value(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func (htmlWriter) block(kind domain.InstructionKind, id, body string) string {
	attr := "data-block-id"
	if kind == domain.KindComponent {
		attr = "data-component-id"
	}
	return `<div class="lg-` + string(kind) + `" ` + attr + `="` + html.EscapeString(id) + `">` + body + `</div>`
}

func (htmlWriter) table(headers []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString(`<table class="lg-table">`)
	if len(headers) > 0 {
		sb.WriteString("<thead><tr>")
		for _, h := range headers {
			sb.WriteString("<th>" + h + "</th>")
		}
		sb.WriteString("</tr></thead>")
	}
	sb.WriteString("<tbody>")
	for _, row := range rows {
		sb.WriteString("<tr>")
		for _, c := range row {
			sb.WriteString("<td>" + c + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

func (htmlWriter) styled(style *domain.Style, body string) string {
	a := style.Attrs
	switch style.Kind {
	case domain.NodeTypeAlertStyle:
		level := a["level"]
		if level == "" {
			level = "info"
		}
		title := ""
		if a["title"] != "" {
			title = "<strong>" + html.EscapeString(a["title"]) + "</strong>"
		}
		return `<div class="lg-alert lg-alert-` + html.EscapeString(level) + `" role="note">` + title + body + `</div>`
	case domain.NodeTypeLocaleStyle:
		var attrs string
		if a["lang"] != "" {
			attrs += ` lang="` + html.EscapeString(a["lang"]) + `"`
		}
		if a["dir"] != "" {
			attrs += ` dir="` + html.EscapeString(a["dir"]) + `"`
		}
		return "<div" + attrs + ">" + body + "</div>"
	case domain.NodeTypeFormatting:
		return `<span style="` + html.EscapeString(cssOf(a)) + `">` + body + `</span>`
	}
	return body
}

func (htmlWriter) finish(s string) string { return s }

func cssOf(a map[string]string) string {
	var decls []string
	if a["bold"] == "true" {
		decls = append(decls, "font-weight:bold")
	}
	if a["italic"] == "true" {
		decls = append(decls, "font-style:italic")
	}
	if a["underline"] == "true" {
		decls = append(decls, "text-decoration:underline")
	}
	if a["align"] != "" {
		decls = append(decls, "display:block;text-align:"+a["align"])
	}
	if a["size"] != "" {
		decls = append(decls, "font-size:"+a["size"])
	}
	if a["color"] != "" {
		decls = append(decls, "color:"+a["color"])
	}
	sort.Strings(decls)
	return strings.Join(decls, ";")
}

// paragraph marks block-level content in the plain formats; finish turns runs
// of markers into a single blank line.
const paragraph = "\x00"

type textWriter struct{}

func (textWriter) escape(s string) string { return s }
func (textWriter) value(s string) string  { return s }

func (textWriter) block(_ domain.InstructionKind, _ string, body string) string {
	return paragraph + body + paragraph
}

func (textWriter) table(headers []string, rows [][]string) string {
	var lines []string
	if len(headers) > 0 {
		lines = append(lines, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return paragraph + strings.Join(lines, "\n") + paragraph
}

func (textWriter) styled(style *domain.Style, body string) string {
	if style.Kind == domain.NodeTypeAlertStyle {
		title := style.Attrs["title"]
		if title == "" {
			title = strings.ToUpper(style.Attrs["level"])
		}
		if title == "" {
			return paragraph + body + paragraph
		}
		return paragraph + title + "\n" + body + paragraph
	}
	return body
}

func (textWriter) finish(s string) string { return finishPlain(s) }

type markdownWriter struct{}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", "#", `\#`, "|", `\|`,
)

func (markdownWriter) escape(s string) string { return markdownEscaper.Replace(s) }
func (markdownWriter) value(s string) string  { return markdownEscaper.Replace(s) }

func (markdownWriter) block(_ domain.InstructionKind, _ string, body string) string {
	return paragraph + body + paragraph
}

func (markdownWriter) table(headers []string, rows [][]string) string {
	cols := len(headers)
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	line := func(cells []string) string {
		padded := make([]string, cols)
		copy(padded, cells)
		for i := range padded {
			padded[i] = strings.ReplaceAll(padded[i], "\n", " ")
		}
		return "| " + strings.Join(padded, " | ") + " |"
	}
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}
	lines := []string{line(headers), line(sep)}
	for _, r := range rows {
		lines = append(lines, line(r))
	}
	return paragraph + strings.Join(lines, "\n") + paragraph
}

func (markdownWriter) styled(style *domain.Style, body string) string {
	a := style.Attrs
	switch style.Kind {
	case domain.NodeTypeFormatting:
		if a["italic"] == "true" {
			body = "_" + body + "_"
		}
		if a["bold"] == "true" {
			body = "**" + body + "**"
		}
		return body
	case domain.NodeTypeAlertStyle:
		text := strings.Trim(strings.ReplaceAll(body, paragraph, "\n\n"), "\n")
		if a["title"] != "" {
			text = "**" + a["title"] + "**\n\n" + text
		}
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight("> "+l, " ")
		}
		return paragraph + strings.Join(lines, "\n") + paragraph
	}
	return body
}

func (markdownWriter) finish(s string) string { return finishPlain(s) }

// finishPlain converts paragraph markers into blank lines and trims the result.
func finishPlain(s string) string {
	parts := strings.Split(s, paragraph)
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, strings.Trim(p, "\n"))
	}
	return strings.TrimSpace(strings.Join(out, "\n\n"))
}
