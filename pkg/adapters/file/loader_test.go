package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports/tests"
)

const denialYAML = `id: denial
version: "3"
nodes:
  - id: start
    type: start
  - id: check
    type: condition
    config:
      expression: claim.amount > 100
      position: {x: 10, y: 20}
  - id: high
    type: dynamic_text
    config:
      text: "Amount {{claim.amount}}"
edges:
  - {id: e1, source: start, target: check}
  - {id: e2, source: check, target: high, label: "true"}
variables:
  - key: claim.amount
    type: number
    required: true
`

const noticeJSON = `{"nodes":[{"id":"start","type":"start"}],"edges":[]}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestLoader_Contract(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"denial.yaml":          denialYAML,
		"medicaid/notice.json": noticeJSON,
		"README.md":            "not a graph",
	})
	tests.GraphLoaderContractTest(t, New(dir), map[string]int{
		"denial":          3,
		"medicaid/notice": 1,
	})
}

func TestLoader_YAMLMatchesJSONTypes(t *testing.T) {
	dir := writeFiles(t, map[string]string{"denial.yml": denialYAML})

	doc, err := New(dir).Load(context.Background(), "denial")
	require.NoError(t, err)
	assert.Equal(t, "3", doc.Version)
	assert.Equal(t, map[string]any{"x": 10.0, "y": 20.0}, doc.Nodes[1].Config["position"])
	assert.Equal(t, domain.VariableType("number"), doc.Variables[0].Type)
	assert.True(t, doc.Variables[0].Required)
	assert.Equal(t, "true", doc.Edges[1].Label)
}

func TestLoader_IDDefaultsToPath(t *testing.T) {
	dir := writeFiles(t, map[string]string{"medicaid/notice.json": noticeJSON})

	doc, err := New(dir).Load(context.Background(), "medicaid/notice")
	require.NoError(t, err)
	assert.Equal(t, "medicaid/notice", doc.ID)
}

func TestLoader_RejectsEscapingIDs(t *testing.T) {
	_, err := New(t.TempDir()).Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestLoader_MalformedFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"broken.json": `{"nodes": [`})

	_, err := New(dir).Load(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrGraphNotFound)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestLoader_ListMissingDir(t *testing.T) {
	ids, err := New(filepath.Join(t.TempDir(), "none")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
