package domain

// InstructionKind tags the variant held by a RenderInstruction.
type InstructionKind string

const (
	KindLiteral   InstructionKind = "literal"
	KindVariable  InstructionKind = "variable"
	KindBlock     InstructionKind = "block"
	KindComponent InstructionKind = "component"
	KindRepeated  InstructionKind = "repeated"
	KindStyled    InstructionKind = "styled"
)

// VariableRef is a resolved variable reference. Formatting is deferred to the renderer.
type VariableRef struct {
	Path       string              `json:"path"`
	Value      any                 `json:"value,omitempty"`
	Found      bool                `json:"found"`
	Definition *VariableDefinition `json:"definition,omitempty"`
}

// Required reports whether a missing value must be rendered as a visible marker.
func (v *VariableRef) Required() bool {
	return v.Definition != nil && v.Definition.Required
}

// TableSpec turns a repeated instruction into a table with one row per item.
type TableSpec struct {
	Headers []string `json:"headers"`
}

// Style is the metadata of a styled wrapper.
type Style struct {
	Kind  NodeType          `json:"kind"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// RenderInstruction is one element of the ordered list the renderer serializes.
// Which fields are meaningful depends on Kind:
//
//	literal    Text (authored content, trusted)
//	variable   Var
//	block      RefID, Tags, Children
//	component  RefID, Tags, Flags, Children
//	repeated   Items, Separator, Table
//	styled     Style, Children
type RenderInstruction struct {
	Kind      InstructionKind       `json:"kind"`
	NodeID    string                `json:"nodeId,omitempty"`
	Text      string                `json:"text,omitempty"`
	Var       *VariableRef          `json:"var,omitempty"`
	RefID     string                `json:"refId,omitempty"`
	Tags      []string              `json:"tags,omitempty"`
	Flags     []string              `json:"flags,omitempty"`
	Children  []RenderInstruction   `json:"children,omitempty"`
	Items     [][]RenderInstruction `json:"items,omitempty"`
	Separator string                `json:"separator,omitempty"`
	Table     *TableSpec            `json:"table,omitempty"`
	Style     *Style                `json:"style,omitempty"`
}

// Literal builds a literal instruction.
func Literal(nodeID, text string) RenderInstruction {
	return RenderInstruction{Kind: KindLiteral, NodeID: nodeID, Text: text}
}
