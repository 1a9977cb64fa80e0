// Package validator checks the structure of a graph document: identity of nodes
// and edges, the entry node, acyclicity, reachability and the branch edges each
// node family requires.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/registry"
)

// Result is the outcome of a structural check.
type Result struct {
	// Entry is the resolved entry node id, empty when it could not be determined.
	Entry string
	// Order is a topological order of the nodes. Incomplete when a cycle exists.
	Order    []string
	Problems []domain.Problem
}

// OK reports whether no problem was found.
func (r *Result) OK() bool { return len(r.Problems) == 0 }

type checker struct {
	doc      *domain.GraphDocument
	nodes    *registry.Nodes
	byID     map[string]domain.Node
	unique   []domain.Node // first occurrence of each id, document order
	edges    []domain.Edge // edges with known endpoints and distinct endpoints
	incoming map[string]int
	outgoing map[string][]domain.Edge
	res      Result
}

// ValidateGraph checks doc against the node catalog. Problems are reported in a
// deterministic order: by kind (see Sort), then by document order.
func ValidateGraph(doc *domain.GraphDocument, nodes *registry.Nodes) *Result {
	c := &checker{
		doc:      doc,
		nodes:    nodes,
		byID:     make(map[string]domain.Node, len(doc.Nodes)),
		incoming: make(map[string]int),
		outgoing: make(map[string][]domain.Edge),
	}
	if len(doc.Nodes) == 0 {
		c.add(domain.GraphEmpty, "", "", "graph has no nodes")
		return &c.res
	}
	c.identity()
	c.links()
	c.entry()
	reached := c.reach()
	cyclic := c.topology()
	c.orphans(reached, cyclic)
	c.branches()
	Sort(c.res.Problems)
	return &c.res
}

func (c *checker) add(kind domain.GraphErrorKind, nodeID, edgeID, format string, args ...any) {
	c.res.Problems = append(c.res.Problems, domain.Problem{Kind: kind, NodeID: nodeID, EdgeID: edgeID, Msg: fmt.Sprintf(format, args...)})
}

func (c *checker) identity() {
	for _, n := range c.doc.Nodes {
		if n.ID == "" {
			c.add(domain.GraphDuplicateID, "", "", "node with empty id")
			continue
		}
		if _, dup := c.byID[n.ID]; dup {
			c.add(domain.GraphDuplicateID, n.ID, "", "duplicate node id %q", n.ID)
			continue
		}
		c.byID[n.ID] = n
		c.unique = append(c.unique, n)
	}
	seen := map[string]bool{}
	for _, e := range c.doc.Edges {
		if e.ID == "" {
			continue
		}
		if seen[e.ID] {
			c.add(domain.GraphDuplicateID, "", e.ID, "duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
	}
	for _, n := range c.unique {
		if _, ok := c.nodes.Lookup(n.Type); !ok {
			c.add(domain.GraphUnknownType, n.ID, "", "unknown node type %q", n.Type)
		}
	}
}

func (c *checker) links() {
	for _, e := range c.doc.Edges {
		_, srcOK := c.byID[e.Source]
		_, dstOK := c.byID[e.Target]
		switch {
		case !srcOK:
			c.add(domain.GraphDanglingEdge, "", e.ID, "source %q does not exist", e.Source)
		case !dstOK:
			c.add(domain.GraphDanglingEdge, "", e.ID, "target %q does not exist", e.Target)
		case e.Source == e.Target:
			c.add(domain.GraphSelfReference, e.Source, e.ID, "edge points back to its source")
		default:
			c.edges = append(c.edges, e)
			c.incoming[e.Target]++
			c.outgoing[e.Source] = append(c.outgoing[e.Source], e)
		}
	}
}

func (c *checker) entry() {
	if id := c.doc.EntryID; id != "" {
		if _, ok := c.byID[id]; !ok {
			c.add(domain.GraphEntry, id, "", "entry node %q does not exist", id)
			return
		}
		if c.incoming[id] > 0 {
			c.add(domain.GraphEntry, id, "", "entry node has incoming edges")
			return
		}
		c.res.Entry = id
		return
	}

	var roots, starts []string
	for _, n := range c.unique {
		if c.incoming[n.ID] > 0 {
			continue
		}
		roots = append(roots, n.ID)
		if n.Type == domain.NodeTypeStart {
			starts = append(starts, n.ID)
		}
	}
	switch {
	case len(roots) == 1:
		c.res.Entry = roots[0]
	case len(starts) == 1:
		// Other roots are reported as orphans.
		c.res.Entry = starts[0]
	case len(roots) == 0:
		c.add(domain.GraphEntry, "", "", "no node without incoming edges; set entryId")
	default:
		c.add(domain.GraphEntry, "", "", "multiple entry candidates (%s); set entryId", strings.Join(roots, ", "))
	}
}

func (c *checker) reach() map[string]bool {
	reached := map[string]bool{}
	if c.res.Entry == "" {
		return reached
	}
	queue := []string{c.res.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		for _, e := range c.outgoing[id] {
			if !reached[e.Target] {
				queue = append(queue, e.Target)
			}
		}
	}
	return reached
}

// topology runs Kahn's algorithm. It returns the nodes left on a cycle.
func (c *checker) topology() map[string]bool {
	indeg := make(map[string]int, len(c.byID))
	for id := range c.byID {
		indeg[id] = c.incoming[id]
	}
	var queue []string
	for _, n := range c.unique {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		c.res.Order = append(c.res.Order, id)
		for _, e := range c.outgoing[id] {
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}

	cyclic := map[string]bool{}
	var ids []string
	for _, n := range c.unique {
		if indeg[n.ID] > 0 {
			cyclic[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	if len(ids) > 0 {
		c.add(domain.GraphCycle, ids[0], "", "cycle detected among nodes %s", strings.Join(ids, ", "))
	}
	return cyclic
}

func (c *checker) orphans(reached, cyclic map[string]bool) {
	if c.res.Entry == "" {
		return
	}
	for _, n := range c.unique {
		if reached[n.ID] || cyclic[n.ID] {
			continue
		}
		c.add(domain.GraphOrphan, n.ID, "", "node is not reachable from entry %q", c.res.Entry)
	}
}

func (c *checker) branches() {
	for _, n := range c.unique {
		def, ok := c.nodes.Lookup(n.Type)
		if !ok {
			continue
		}
		if msg := checkBranch(def.Branch, n, c.outgoing[n.ID]); msg != "" {
			c.add(domain.GraphBranch, n.ID, "", "%s", msg)
		}
	}
}

func checkBranch(mode registry.BranchMode, n domain.Node, out []domain.Edge) string {
	count := map[string]int{}
	for _, e := range out {
		count[e.Label]++
	}
	others := func(allowed ...string) []string {
		var bad []string
		for label := range count {
			if !contains(allowed, label) {
				bad = append(bad, fmt.Sprintf("%q", label))
			}
		}
		sort.Strings(bad)
		return bad
	}

	switch mode {
	case registry.BranchSequential:
		if bad := others(""); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchBoolean:
		if count[domain.LabelTrue] != 1 || count[domain.LabelFalse] != 1 {
			return fmt.Sprintf("needs exactly one true and one false edge, has %d true and %d false", count[domain.LabelTrue], count[domain.LabelFalse])
		}
		if bad := others(domain.LabelTrue, domain.LabelFalse); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchElse:
		if count[domain.LabelTrue] != 1 || count[domain.LabelFalse] > 1 {
			return "needs exactly one true edge and at most one false edge"
		}
		if bad := others(domain.LabelTrue, domain.LabelFalse); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchLabeled:
		if count[""] > 0 {
			return "every outgoing edge needs a label"
		}
		for label, k := range count {
			if k > 1 {
				return fmt.Sprintf("label %q used by %d edges", label, k)
			}
		}
		if cases := stringsOf(n.Config["cases"]); len(cases) > 0 {
			if bad := others(append(cases, domain.LabelDefault)...); len(bad) > 0 {
				return "labels not listed in cases: " + strings.Join(bad, ", ")
			}
		}
	case registry.BranchFallback:
		if count[domain.LabelPrimary] != 1 || count[domain.LabelFallback] != 1 {
			return "needs exactly one primary and one fallback edge"
		}
		if bad := others(domain.LabelPrimary, domain.LabelFallback); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchWrap:
		if count[domain.LabelBody] > 1 {
			return "at most one body edge is allowed"
		}
		if bad := others("", domain.LabelBody); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchData:
		if count[domain.LabelError] > 1 {
			return "at most one error edge is allowed"
		}
		if bad := others("", domain.LabelError); len(bad) > 0 {
			return "unexpected edge labels " + strings.Join(bad, ", ")
		}
	case registry.BranchTerminal:
		if len(out) > 0 {
			return "must not have outgoing edges"
		}
	}
	return ""
}

var kindRank = map[domain.GraphErrorKind]int{
	domain.GraphEmpty:          0,
	domain.GraphDuplicateID:    1,
	domain.GraphUnknownType:    2,
	domain.GraphInvalidVarDefs: 3,
	domain.GraphInvalidConfig:  4,
	domain.GraphInvalidExpr:    5,
	domain.GraphDanglingEdge:   6,
	domain.GraphSelfReference:  7,
	domain.GraphEntry:          8,
	domain.GraphCycle:          9,
	domain.GraphOrphan:         10,
	domain.GraphBranch:         11,
}

// Sort orders problems by kind, keeping document order within a kind.
func Sort(problems []domain.Problem) {
	sort.SliceStable(problems, func(i, j int) bool {
		return kindRank[problems[i].Kind] < kindRank[problems[j].Kind]
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func stringsOf(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return nil
}
