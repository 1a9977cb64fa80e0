package expr

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Normalize converts Go values into the evaluator's value model:
// nil, bool, float64, string, []any and map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, float64, string:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	default:
		return fmt.Sprint(x)
	}
}

// TypeName returns the value-model name of v, used in error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatNumber renders a float without trailing zeros (10 -> "10", 2.5 -> "2.5").
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Stringify renders a value as plain text. Objects and arrays become compact JSON
// with sorted keys so the output is deterministic.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			sb.WriteString(strconv.Quote(Stringify(x[k])))
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return fmt.Sprint(x)
	}
}

// Truthy converts a condition result into a boolean. Only booleans and null are accepted;
// null counts as false.
func Truthy(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	default:
		return false, evalErr(TypeMismatch, "expected bool, got %s", TypeName(v))
	}
}

func equal(a, b any) (bool, error) {
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		if !ok {
			break
		}
		return x == y, nil
	case float64:
		y, ok := b.(float64)
		if !ok {
			break
		}
		return x == y, nil
	case string:
		y, ok := b.(string)
		if !ok {
			break
		}
		return x == y, nil
	case []any:
		y, ok := b.([]any)
		if !ok {
			break
		}
		if len(x) != len(y) {
			return false, nil
		}
		for i := range x {
			eq, err := equal(x[i], y[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case map[string]any:
		if _, ok := b.(map[string]any); !ok {
			break
		}
		return Stringify(a) == Stringify(b), nil
	}
	return false, evalErr(TypeMismatch, "cannot compare %s with %s", TypeName(a), TypeName(b))
}

// Literal renders v as expression source, so configs expressed as field/operator/value
// can be compiled like hand-written expressions.
func Literal(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case string:
		return strconv.Quote(x)
	default:
		return strconv.Quote(Stringify(x))
	}
}
