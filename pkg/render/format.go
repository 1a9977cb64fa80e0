package render

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/expr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatValue renders a resolved value using its definition's format options.
// Values without a definition are rendered with expr.Stringify. The result is
// not escaped.
func FormatValue(tag language.Tag, v any, def *domain.VariableDefinition) string {
	if def == nil {
		return expr.Stringify(v)
	}
	f := def.Format
	var s string
	switch {
	case f.Currency != "" || def.Type == domain.VarCurrency:
		if x, ok := number(v); ok {
			s = expr.Currency(tag, x, f.Currency)
		} else {
			s = expr.Stringify(v)
		}
	case f.Decimals != nil:
		if x, ok := number(v); ok {
			s = expr.GroupedNumber(tag, x, *f.Decimals)
		} else {
			s = expr.Stringify(v)
		}
	case f.Date != "" || def.Type == domain.VarDate:
		s = formatDate(v, f.Date)
	case f.Phone != "" || def.Type == domain.VarPhone:
		s = formatPhone(expr.Stringify(v), f.Phone)
	case f.Address != "" || def.Type == domain.VarAddress:
		s = formatAddress(v, f.Address)
	default:
		s = expr.Stringify(v)
	}
	return applyCase(tag, s, f.Case)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func formatDate(v any, pattern string) string {
	s := expr.Stringify(v)
	t, ok := expr.ParseDate(s)
	if !ok {
		return s
	}
	if pattern == "" {
		pattern = "short"
	}
	return t.Format(expr.DateLayout(pattern))
}

func formatPhone(s, style string) string {
	var digits []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return s
	}
	d := string(digits)
	if style == "e164" {
		return "+1" + d
	}
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}

// formatAddress renders {line1, line2, city, state, zip|postalCode}. Multiline
// output puts street lines and "city, state zip" on separate lines.
func formatAddress(v any, style string) string {
	m, ok := v.(map[string]any)
	if !ok {
		return expr.Stringify(v)
	}
	get := func(k string) string { return strings.TrimSpace(expr.Stringify(m[k])) }
	zip := get("zip")
	if zip == "" {
		zip = get("postalCode")
	}
	locality := strings.TrimSpace(strings.Join(nonEmpty(get("city"), strings.TrimSpace(get("state")+" "+zip)), ", "))
	parts := nonEmpty(get("line1"), get("line2"), locality)
	if style == "multiline" {
		return strings.Join(parts, "\n")
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func applyCase(tag language.Tag, s, mode string) string {
	switch mode {
	case "upper":
		return cases.Upper(tag).String(s)
	case "lower":
		return cases.Lower(tag).String(s)
	case "title":
		return cases.Title(tag).String(s)
	case "sentence":
		lower := cases.Lower(tag).String(s)
		r, size := utf8.DecodeRuneInString(lower)
		if r == utf8.RuneError {
			return lower
		}
		return string(unicode.ToUpper(r)) + lower[size:]
	}
	return s
}
