package domain

// NodeType identifies the behaviour of a node. The set is closed; the registry
// rejects any type not listed here.
type NodeType string

const (
	NodeTypeStart      NodeType = "start"
	NodeTypeCondition  NodeType = "condition"
	NodeTypeElse       NodeType = "else"
	NodeTypeExpression NodeType = "expression"
	NodeTypeSwitch     NodeType = "switch"
	NodeTypeReturn     NodeType = "return"
	NodeTypeFlag       NodeType = "flag"

	NodeTypeLoop      NodeType = "loop"
	NodeTypeTableLoop NodeType = "table_loop"

	NodeTypeBlock       NodeType = "block"
	NodeTypeInclude     NodeType = "include"
	NodeTypeComponent   NodeType = "component"
	NodeTypeDynamicText NodeType = "dynamic_text"

	NodeTypeFormatting  NodeType = "formatting"
	NodeTypeAlertStyle  NodeType = "alert_style"
	NodeTypeHide        NodeType = "hide"
	NodeTypeLocaleStyle NodeType = "locale_style"

	NodeTypeChannel         NodeType = "channel"
	NodeTypeChannelFallback NodeType = "channel_fallback"
	NodeTypeSetLanguage     NodeType = "set_language"
	NodeTypeSetVariation    NodeType = "set_variation"

	NodeTypeSetVariable     NodeType = "set_variable"
	NodeTypeDerivedVariable NodeType = "derived_variable"

	NodeTypeQuery     NodeType = "query"
	NodeTypeAPICall   NodeType = "api_call"
	NodeTypePushData  NodeType = "push_data"
	NodeTypeFHIRQuery NodeType = "fhir_query"
	NodeTypeDataJoin  NodeType = "data_join"

	NodeTypeDiagnosisMatch     NodeType = "diagnosis_match"
	NodeTypeRiskScore          NodeType = "risk_score"
	NodeTypeHEDISTrigger       NodeType = "hedis_trigger"
	NodeTypePCPAssignment      NodeType = "pcp_assignment"
	NodeTypeProgramEligibility NodeType = "program_eligibility"

	NodeTypeComplianceRule NodeType = "compliance_rule"
)

// Edge labels with engine-defined meaning. Switch and channel nodes use
// arbitrary labels (case values, channel names) in addition to these.
const (
	LabelTrue     = "true"
	LabelFalse    = "false"
	LabelDefault  = "default"
	LabelBody     = "body"
	LabelFallback = "fallback"
	LabelPrimary  = "primary"
	LabelError    = "error"
)

// Node is a typed unit of logic as authored.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Edge is a directed, optionally labelled link between two nodes.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// GraphDocument is the external form of a logic graph as produced by the editor.
type GraphDocument struct {
	ID        string               `json:"id" yaml:"id"`
	Version   string               `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes     []Node               `json:"nodes" yaml:"nodes"`
	Edges     []Edge               `json:"edges" yaml:"edges"`
	EntryID   string               `json:"entryId,omitempty" yaml:"entryId,omitempty"`
	Variables []VariableDefinition `json:"variables,omitempty" yaml:"variables,omitempty"`
	Metadata  map[string]string    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
