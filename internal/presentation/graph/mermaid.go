package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lettergraph/pkg/domain"
)

// GraphOverlay marks nodes of one evaluation on the chart.
type GraphOverlay struct {
	// Included nodes contributed content to the letter.
	Included []string
	// Flagged nodes raised a warning, violation or review flag.
	Flagged []string
}

// OverlayFromResult builds an overlay from an evaluation result.
func OverlayFromResult(res *domain.EvaluationResult) *GraphOverlay {
	o := &GraphOverlay{}
	for _, c := range res.IncludedContent {
		if c.NodeID != "" {
			o.Included = append(o.Included, c.NodeID)
		}
	}
	for _, w := range res.Warnings {
		o.Flagged = append(o.Flagged, w.NodeID)
	}
	for _, v := range res.Violations {
		o.Flagged = append(o.Flagged, v.NodeID)
	}
	for _, f := range res.Flags {
		o.Flagged = append(o.Flagged, f.NodeID)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart from a graph document.
// Shapes follow the node's role:
// - Start: ((Circle))
// - Branching (condition, switch, channel, clinical triggers): {Rhombus}
// - Data calls: [(Cylinder)]
// - Content (block, component, include): [[Subroutine]]
// - Compliance rules: {{Hexagon}}
// - Default: [Rectangle]
// Error edges are dotted.
func GenerateMermaid(doc *domain.GraphDocument, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range doc.Nodes {
		opener, closer := shape(node.Type)
		label := fmt.Sprintf("%s<br/><small>%s</small>", quote(node.ID), node.Type)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, label, closer)
	}

	for _, e := range doc.Edges {
		arrow := "-->"
		switch {
		case e.Label == domain.LabelError:
			arrow = "-. \"error\" .->"
		case e.Label != "":
			arrow = fmt.Sprintf("-- \"%s\" -->", quote(e.Label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Evaluation overlay\n")
		sb.WriteString("    classDef included fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef flagged fill:#fff3e0,stroke:#ef6c00,stroke-width:3px,color:#000;\n")
		writeClass(&sb, overlay.Included, "included")
		writeClass(&sb, overlay.Flagged, "flagged")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeStart:
		return "((", "))"
	case domain.NodeTypeCondition, domain.NodeTypeElse, domain.NodeTypeExpression, domain.NodeTypeSwitch,
		domain.NodeTypeChannel, domain.NodeTypeChannelFallback,
		domain.NodeTypeDiagnosisMatch, domain.NodeTypeRiskScore, domain.NodeTypeHEDISTrigger,
		domain.NodeTypePCPAssignment, domain.NodeTypeProgramEligibility:
		return "{", "}"
	case domain.NodeTypeQuery, domain.NodeTypeAPICall, domain.NodeTypePushData, domain.NodeTypeFHIRQuery, domain.NodeTypeDataJoin:
		return "[(", ")]"
	case domain.NodeTypeBlock, domain.NodeTypeComponent, domain.NodeTypeInclude:
		return "[[", "]]"
	case domain.NodeTypeComplianceRule:
		return "{{", "}}"
	}
	return "[", "]"
}

// quote keeps labels inside Mermaid's double-quoted strings.
func quote(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
