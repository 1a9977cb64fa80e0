package expr

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type builtin func(env Env, args []any) (any, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"SUM":             aggregate("SUM"),
		"COUNT":           count,
		"MIN":             aggregate("MIN"),
		"MAX":             aggregate("MAX"),
		"AVG":             aggregate("AVG"),
		"ROUND":           round,
		"ABS":             abs,
		"UPPER":           caseFn("UPPER", cases.Upper),
		"LOWER":           caseFn("LOWER", cases.Lower),
		"TRIM":            stringFn("TRIM", strings.TrimSpace),
		"LEN":             length,
		"CONCAT":          concat,
		"CONTAINS":        contains,
		"TODAY":           today,
		"DATE_ADD":        dateAdd,
		"DATE_DIFF":       dateDiff,
		"YEAR":            year,
		"FORMAT_DATE":     formatDate,
		"FORMAT_NUMBER":   formatNumber,
		"FORMAT_CURRENCY": formatCurrency,
	}
}

// Functions lists the names of the built-in functions, sorted.
func Functions() []string {
	names := []string{"IF", "COALESCE"}
	for k := range builtins {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// numbers flattens aggregate arguments. A single array plus a string field name
// aggregates that field of every element.
func numbers(name string, args []any) ([]float64, error) {
	var items []any
	if len(args) == 2 {
		if arr, ok := args[0].([]any); ok {
			if field, ok := args[1].(string); ok {
				for _, e := range arr {
					if obj, ok := e.(map[string]any); ok {
						items = append(items, Normalize(obj[field]))
					} else {
						items = append(items, nil)
					}
				}
				return toFloats(name, items)
			}
		}
	}
	for _, a := range args {
		if arr, ok := a.([]any); ok {
			items = append(items, arr...)
		} else {
			items = append(items, a)
		}
	}
	return toFloats(name, items)
}

func toFloats(name string, items []any) ([]float64, error) {
	out := make([]float64, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
			continue
		case float64:
			out = append(out, v)
		default:
			return nil, evalErr(TypeMismatch, "%s expects numbers, got %s", name, TypeName(it))
		}
	}
	return out, nil
}

func aggregate(name string) builtin {
	return func(_ Env, args []any) (any, error) {
		nums, err := numbers(name, args)
		if err != nil {
			return nil, err
		}
		if len(nums) == 0 {
			if name == "SUM" {
				return 0.0, nil
			}
			return nil, nil
		}
		acc := nums[0]
		sum := 0.0
		for _, n := range nums {
			sum += n
			switch name {
			case "MIN":
				acc = math.Min(acc, n)
			case "MAX":
				acc = math.Max(acc, n)
			}
		}
		switch name {
		case "SUM":
			return sum, nil
		case "AVG":
			return sum / float64(len(nums)), nil
		}
		return acc, nil
	}
}

func count(_ Env, args []any) (any, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	if len(args) == 2 {
		arr, ok := args[0].([]any)
		field, fok := args[1].(string)
		if ok && fok {
			n := 0
			for _, e := range arr {
				if obj, ok := e.(map[string]any); ok && obj[field] != nil {
					n++
				}
			}
			return float64(n), nil
		}
	}
	n := 0
	for _, a := range args {
		switch v := a.(type) {
		case []any:
			n += len(v)
		case nil:
		default:
			n++
		}
	}
	return float64(n), nil
}

func argNumber(name string, args []any, i int) (float64, error) {
	if i >= len(args) {
		return 0, evalErr(InvalidArgument, "%s: missing argument %d", name, i+1)
	}
	f, ok := args[i].(float64)
	if !ok {
		return 0, evalErr(TypeMismatch, "%s: argument %d must be a number, got %s", name, i+1, TypeName(args[i]))
	}
	return f, nil
}

func argString(name string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", evalErr(InvalidArgument, "%s: missing argument %d", name, i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", evalErr(TypeMismatch, "%s: argument %d must be a string, got %s", name, i+1, TypeName(args[i]))
	}
	return s, nil
}

func round(_ Env, args []any) (any, error) {
	x, err := argNumber("ROUND", args, 0)
	if err != nil {
		return nil, err
	}
	digits := 0.0
	if len(args) > 1 {
		if digits, err = argNumber("ROUND", args, 1); err != nil {
			return nil, err
		}
	}
	p := math.Pow(10, math.Trunc(digits))
	return math.Round(x*p) / p, nil
}

func abs(_ Env, args []any) (any, error) {
	x, err := argNumber("ABS", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Abs(x), nil
}

// Localizer is implemented by environments that know the letter's language.
type Localizer interface {
	Language() language.Tag
}

func languageOf(env Env) language.Tag {
	if l, ok := env.(Localizer); ok {
		return l.Language()
	}
	return language.Und
}

// caseFn maps case with the rules of the environment's language.
func caseFn(name string, caser func(language.Tag, ...cases.Option) cases.Caser) builtin {
	return func(env Env, args []any) (any, error) {
		c := caser(languageOf(env))
		return stringFn(name, c.String)(env, args)
	}
}

func stringFn(name string, fn func(string) string) builtin {
	return func(_ Env, args []any) (any, error) {
		if len(args) != 1 {
			return nil, evalErr(InvalidArgument, "%s expects 1 argument, got %d", name, len(args))
		}
		if args[0] == nil {
			return nil, nil
		}
		s, err := argString(name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func length(_ Env, args []any) (any, error) {
	if len(args) != 1 {
		return nil, evalErr(InvalidArgument, "LEN expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return 0.0, nil
	case string:
		return float64(utf8.RuneCountInString(v)), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	}
	return nil, evalErr(TypeMismatch, "LEN expects string or array, got %s", TypeName(args[0]))
}

func concat(_ Env, args []any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(Stringify(a))
	}
	return sb.String(), nil
}

func contains(_ Env, args []any) (any, error) {
	if len(args) != 2 {
		return nil, evalErr(InvalidArgument, "CONTAINS expects 2 arguments, got %d", len(args))
	}
	switch h := args[0].(type) {
	case nil:
		return false, nil
	case string:
		needle, ok := args[1].(string)
		if !ok {
			return nil, evalErr(TypeMismatch, "CONTAINS on a string needs a string needle, got %s", TypeName(args[1]))
		}
		return strings.Contains(h, needle), nil
	case []any:
		for _, e := range h {
			if e == nil || args[1] == nil {
				if e == nil && args[1] == nil {
					return true, nil
				}
				continue
			}
			if TypeName(e) != TypeName(args[1]) {
				continue
			}
			if eq, _ := equal(e, args[1]); eq {
				return true, nil
			}
		}
		return false, nil
	}
	return nil, evalErr(TypeMismatch, "CONTAINS expects string or array, got %s", TypeName(args[0]))
}

func formatNumber(_ Env, args []any) (any, error) {
	x, err := argNumber("FORMAT_NUMBER", args, 0)
	if err != nil {
		return nil, err
	}
	decimals := 0
	if len(args) > 1 {
		d, err := argNumber("FORMAT_NUMBER", args, 1)
		if err != nil {
			return nil, err
		}
		decimals = int(d)
	}
	return GroupedNumber(language.English, x, decimals), nil
}

func formatCurrency(_ Env, args []any) (any, error) {
	x, err := argNumber("FORMAT_CURRENCY", args, 0)
	if err != nil {
		return nil, err
	}
	code := "USD"
	if len(args) > 1 {
		if code, err = argString("FORMAT_CURRENCY", args, 1); err != nil {
			return nil, err
		}
	}
	return Currency(language.English, x, code), nil
}

// GroupedNumber formats x with the locale's digit grouping and a fixed number of decimals.
func GroupedNumber(tag language.Tag, x float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return message.NewPrinter(tag).Sprintf(fmt.Sprintf("%%.%df", decimals), x)
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"BRL": "R$",
	"CAD": "CA$",
	"MXN": "MX$",
}

// Currency formats x as an amount with two decimals and a currency symbol.
func Currency(tag language.Tag, x float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	amount := GroupedNumber(tag, x, 2)
	if sym, ok := currencySymbols[code]; ok {
		return sign + sym + amount
	}
	return sign + code + " " + amount
}
