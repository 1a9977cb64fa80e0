package scope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/lettergraph/pkg/expr"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrInvalidData is returned when the data context is not a JSON object.
var ErrInvalidData = errors.New("data context must be a JSON object")

// Data is a read-only snapshot of the request's data context.
// Merges return a new snapshot; the bytes of an existing one never change.
type Data struct {
	raw []byte
}

// NewData validates raw and wraps it. Empty input is treated as {}.
func NewData(raw json.RawMessage) (*Data, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &Data{raw: []byte("{}")}, nil
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, ErrInvalidData
	}
	return &Data{raw: append([]byte(nil), raw...)}, nil
}

// FromMap marshals m into a snapshot.
func FromMap(m map[string]any) (*Data, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal data context: %w", err)
	}
	return NewData(raw)
}

// Get resolves a dotted path (member.name, claim.lines.0.amount).
func (d *Data) Get(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	r := gjson.GetBytes(d.raw, escapePath(path))
	if !r.Exists() {
		return nil, false
	}
	return expr.Normalize(r.Value()), true
}

// Raw returns a copy of the snapshot bytes.
func (d *Data) Raw() json.RawMessage {
	return append(json.RawMessage(nil), d.raw...)
}

// Merge returns a new snapshot with value written at path.
func (d *Data) Merge(path string, value json.RawMessage) (*Data, error) {
	if !expr.IsPath(path) {
		return nil, fmt.Errorf("invalid merge target %q", path)
	}
	if !gjson.ValidBytes(value) {
		return nil, fmt.Errorf("merge %s: value is not valid JSON", path)
	}
	buf := append([]byte(nil), d.raw...)
	out, err := sjson.SetRawBytes(buf, escapePath(path), value)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", path, err)
	}
	return &Data{raw: out}, nil
}

// escapePath protects gjson's wildcard and modifier characters so that authored
// paths are always literal key lookups.
func escapePath(path string) string {
	if !strings.ContainsAny(path, `*?|#@!\`) {
		return path
	}
	var sb strings.Builder
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '*', '?', '|', '#', '@', '!', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(path[i])
	}
	return sb.String()
}
