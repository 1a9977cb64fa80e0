package compiler

import (
	"fmt"
	"sort"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// Normalize returns a copy of doc without editor presentation keys in node
// configs and with generated ids for edges that have none. doc is not modified.
func Normalize(doc *domain.GraphDocument) *domain.GraphDocument {
	out := *doc
	out.Nodes = make([]domain.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		n.Config = stripPresentation(n.Config)
		out.Nodes[i] = n
	}
	out.Edges = make([]domain.Edge, len(doc.Edges))
	for i, e := range doc.Edges {
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s->%s#%d", e.Source, e.Target, i)
		}
		out.Edges[i] = e
	}
	out.Variables = append([]domain.VariableDefinition(nil), doc.Variables...)
	return &out
}

func stripPresentation(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	for _, k := range presentationKeys {
		delete(out, k)
	}
	return out
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
