package expr

import (
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// ParseDate accepts ISO-8601 dates (2006-01-02) and RFC 3339 timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{isoDate, time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var datePatterns = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"DD", "02"},
	{"YY", "06"},
	{"M", "1"},
	{"D", "2"},
}

var namedLayouts = map[string]string{
	"iso":    isoDate,
	"short":  "01/02/2006",
	"medium": "Jan 2, 2006",
	"long":   "January 2, 2006",
	"full":   "Monday, January 2, 2006",
}

// DateLayout converts an author-facing pattern (MM/DD/YYYY, "long", ...) into a Go layout.
// Unknown named layouts fall back to ISO.
func DateLayout(pattern string) string {
	if pattern == "" {
		return isoDate
	}
	if l, ok := namedLayouts[strings.ToLower(pattern)]; ok {
		return l
	}
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, p := range datePatterns {
			if strings.HasPrefix(pattern[i:], p.token) {
				sb.WriteString(p.layout)
				i += len(p.token)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}

func argDate(name string, args []any, i int) (time.Time, error) {
	s, err := argString(name, args, i)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, evalErr(InvalidArgument, "%s: %q is not a date", name, s)
	}
	return t, nil
}

func today(env Env, _ []any) (any, error) {
	return env.Now().Format(isoDate), nil
}

func dateAdd(_ Env, args []any) (any, error) {
	t, err := argDate("DATE_ADD", args, 0)
	if err != nil {
		return nil, err
	}
	n, err := argNumber("DATE_ADD", args, 1)
	if err != nil {
		return nil, err
	}
	unit := "days"
	if len(args) > 2 {
		if unit, err = argString("DATE_ADD", args, 2); err != nil {
			return nil, err
		}
	}
	k := int(n)
	switch strings.ToLower(unit) {
	case "day", "days", "d":
		t = t.AddDate(0, 0, k)
	case "month", "months", "m":
		t = t.AddDate(0, k, 0)
	case "year", "years", "y":
		t = t.AddDate(k, 0, 0)
	default:
		return nil, evalErr(InvalidArgument, "DATE_ADD: unknown unit %q", unit)
	}
	return t.Format(isoDate), nil
}

// dateDiff returns b - a in the given unit (days by default).
func dateDiff(_ Env, args []any) (any, error) {
	a, err := argDate("DATE_DIFF", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := argDate("DATE_DIFF", args, 1)
	if err != nil {
		return nil, err
	}
	unit := "days"
	if len(args) > 2 {
		if unit, err = argString("DATE_DIFF", args, 2); err != nil {
			return nil, err
		}
	}
	switch strings.ToLower(unit) {
	case "day", "days", "d":
		return float64(int(b.Sub(a).Hours() / 24)), nil
	case "month", "months", "m":
		return float64(monthsBetween(a, b)), nil
	case "year", "years", "y":
		return float64(monthsBetween(a, b) / 12), nil
	}
	return nil, evalErr(InvalidArgument, "DATE_DIFF: unknown unit %q", unit)
}

func monthsBetween(a, b time.Time) int {
	sign := 1
	if b.Before(a) {
		a, b = b, a
		sign = -1
	}
	m := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
	if b.Day() < a.Day() {
		m--
	}
	return sign * m
}

func year(_ Env, args []any) (any, error) {
	t, err := argDate("YEAR", args, 0)
	if err != nil {
		return nil, err
	}
	return float64(t.Year()), nil
}

func formatDate(_ Env, args []any) (any, error) {
	t, err := argDate("FORMAT_DATE", args, 0)
	if err != nil {
		return nil, err
	}
	pattern := ""
	if len(args) > 1 {
		if pattern, err = argString("FORMAT_DATE", args, 1); err != nil {
			return nil, err
		}
	}
	return t.Format(DateLayout(pattern)), nil
}
