package redact_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/redact"
)

func TestRedactor_Map(t *testing.T) {
	r := redact.Default()
	in := map[string]any{
		"name": "Ana",
		"ssn":  "999-99-9999",
		"member": map[string]any{
			"dateOfBirth": "1970-01-01",
			"plan":        "HMO",
			"contacts": []any{
				map[string]any{"phoneNumber": "555-0100", "type": "home"},
			},
		},
	}

	out := r.Map(in)

	assert.Equal(t, "Ana", out["name"])
	assert.Equal(t, redact.Mask, out["ssn"])
	member := out["member"].(map[string]any)
	assert.Equal(t, redact.Mask, member["dateOfBirth"])
	assert.Equal(t, "HMO", member["plan"])
	contact := member["contacts"].([]any)[0].(map[string]any)
	assert.Equal(t, redact.Mask, contact["phoneNumber"])
	assert.Equal(t, "home", contact["type"])

	assert.Equal(t, "999-99-9999", in["ssn"], "input must not be modified")
	assert.Equal(t, "1970-01-01", in["member"].(map[string]any)["dateOfBirth"])
}

func TestRedactor_JSONAndResult(t *testing.T) {
	r, err := redact.New(`(?i)secret`)
	require.NoError(t, err)

	assert.JSONEq(t, `{"a":1,"mySecret":"***"}`, string(r.JSON(json.RawMessage(`{"a":1,"mySecret":"x"}`))))
	assert.Equal(t, `[1,2]`, string(r.JSON(json.RawMessage(`[1,2]`))))

	res := &domain.EvaluationResult{RenderedContent: "Hi", DerivedVariables: map[string]any{"secretCode": "42", "total": 10.0}}
	masked := r.Result(res)
	assert.Equal(t, redact.Mask, masked.DerivedVariables["secretCode"])
	assert.Equal(t, 10.0, masked.DerivedVariables["total"])
	assert.Equal(t, "42", res.DerivedVariables["secretCode"])
	assert.Equal(t, "Hi", masked.RenderedContent)
}

func TestRedactor_ReplaceAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redact.Default().ReplaceAttr}))
	logger.Info("lookup", "email", "ana@example.org", "graph_id", "denial")

	assert.Contains(t, buf.String(), "email=***")
	assert.Contains(t, buf.String(), "graph_id=denial")
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := redact.New("(")
	assert.Error(t, err)
}
