package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/schema"
)

// BranchMode describes which outgoing edge labels a node family accepts.
type BranchMode string

const (
	// BranchSequential nodes follow all unlabeled edges in document order.
	BranchSequential BranchMode = "sequential"
	// BranchBoolean nodes need exactly one "true" and one "false" edge.
	BranchBoolean BranchMode = "boolean"
	// BranchElse nodes need a "true" edge and may have a "false" edge.
	BranchElse BranchMode = "else"
	// BranchLabeled nodes (switch, channel) take arbitrary unique labels plus an optional "default".
	BranchLabeled BranchMode = "labeled"
	// BranchFallback nodes need exactly one "primary" and one "fallback" edge.
	BranchFallback BranchMode = "fallback"
	// BranchWrap nodes take at most one "body" edge plus unlabeled continuation edges.
	BranchWrap BranchMode = "wrap"
	// BranchData nodes take unlabeled edges plus at most one "error" edge.
	BranchData BranchMode = "data"
	// BranchTerminal nodes have no outgoing edges.
	BranchTerminal BranchMode = "terminal"
)

// NodeDefinition describes one node type of the catalog.
type NodeDefinition struct {
	Type        domain.NodeType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Branch      BranchMode      `json:"branch"`
	Schema      schema.Schema   `json:"schema"`
	// NewConfig returns a zero config record the compiler decodes into.
	NewConfig func() domain.NodeConfig `json:"-"`
}

// Nodes is the node type catalog.
type Nodes struct {
	mu   sync.RWMutex
	defs map[domain.NodeType]NodeDefinition
}

// NewNodes creates an empty catalog.
func NewNodes() *Nodes {
	return &Nodes{defs: make(map[domain.NodeType]NodeDefinition)}
}

// Builtin returns a catalog holding every built-in node type.
func Builtin() *Nodes {
	n := NewNodes()
	for _, def := range builtinNodes() {
		n.Register(def)
	}
	return n
}

// Register adds a definition. An existing definition of the same type is overwritten.
func (n *Nodes) Register(def NodeDefinition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.defs[def.Type] = def
}

// Lookup returns the definition of t.
func (n *Nodes) Lookup(t domain.NodeType) (NodeDefinition, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	def, ok := n.defs[t]
	return def, ok
}

// List returns all definitions ordered by category, then type.
func (n *Nodes) List() []NodeDefinition {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]NodeDefinition, 0, len(n.defs))
	for _, d := range n.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}

var (
	optString  = schema.Optional(schema.String())
	optBool    = schema.Optional(schema.Bool())
	optInt     = schema.Optional(schema.Int())
	stringList = schema.Slice(schema.String())

	conditionSchema = schema.Schema{
		"expression": optString,
		"field":      optString,
		"operator":   optString,
		"value":      schema.Optional(schema.Any()),
	}
	dataSchema = schema.Schema{
		"provider":  schema.String(),
		"resource":  optString,
		"method":    optString,
		"params":    schema.Optional(schema.Map()),
		"body":      optString,
		"target":    optString,
		"timeoutMs": optInt,
		"retries":   optInt,
		"critical":  optBool,
	}
	blockSchema = schema.Schema{
		"blockId":  schema.String(),
		"optional": optBool,
	}
	variableSchema = schema.Schema{
		"name":       schema.String(),
		"expression": optString,
		"value":      schema.Optional(schema.Any()),
	}
)

func empty() domain.NodeConfig { return domain.EmptyConfig{} }

func builtinNodes() []NodeDefinition {
	return []NodeDefinition{
		{Type: domain.NodeTypeStart, Category: "control", Description: "Entry marker", Branch: BranchSequential, Schema: schema.Schema{}, NewConfig: empty},
		{Type: domain.NodeTypeReturn, Category: "control", Description: "Ends the active path or loop iteration", Branch: BranchTerminal, Schema: schema.Schema{}, NewConfig: empty},
		{
			Type: domain.NodeTypeCondition, Category: "control", Description: "Follows the true or false edge", Branch: BranchBoolean,
			Schema: conditionSchema, NewConfig: func() domain.NodeConfig { return &domain.ConditionConfig{} },
		},
		{
			Type: domain.NodeTypeExpression, Category: "control", Description: "Boolean expression branch", Branch: BranchBoolean,
			Schema: conditionSchema, NewConfig: func() domain.NodeConfig { return &domain.ConditionConfig{} },
		},
		{
			Type: domain.NodeTypeElse, Category: "control", Description: "Default branch; an empty expression is always true", Branch: BranchElse,
			Schema: conditionSchema, NewConfig: func() domain.NodeConfig { return &domain.ConditionConfig{AllowEmpty: true} },
		},
		{
			Type: domain.NodeTypeSwitch, Category: "control", Description: "Follows the edge labelled with the discriminant value", Branch: BranchLabeled,
			Schema:    schema.Schema{"discriminant": schema.String(), "cases": schema.Optional(stringList)},
			NewConfig: func() domain.NodeConfig { return &domain.SwitchConfig{} },
		},
		{
			Type: domain.NodeTypeFlag, Category: "control", Description: "Adds a review flag", Branch: BranchSequential,
			Schema:    schema.Schema{"message": schema.String(), "severity": schema.Optional(schema.Enum("info", "warning", "critical"))},
			NewConfig: func() domain.NodeConfig { return &domain.FlagConfig{} },
		},

		{
			Type: domain.NodeTypeLoop, Category: "iteration", Description: "Repeats a template or body for each element", Branch: BranchWrap,
			Schema: schema.Schema{
				"source":        schema.String(),
				"itemVariable":  optString,
				"indexVariable": optString,
				"filter":        optString,
				"template":      optString,
				"separator":     optString,
				"limit":         optInt,
			},
			NewConfig: func() domain.NodeConfig { return &domain.LoopConfig{} },
		},
		{
			Type: domain.NodeTypeTableLoop, Category: "iteration", Description: "Renders a table with one row per element", Branch: BranchSequential,
			Schema: schema.Schema{
				"source":       schema.String(),
				"itemVariable": optString,
				"filter":       optString,
				"limit":        optInt,
				"columns": schema.Slice(schema.Object(schema.Schema{
					"header":   optString,
					"template": schema.String(),
				})),
			},
			NewConfig: func() domain.NodeConfig { return &domain.TableLoopConfig{} },
		},

		{Type: domain.NodeTypeBlock, Category: "content", Description: "Includes a content block", Branch: BranchSequential, Schema: blockSchema, NewConfig: func() domain.NodeConfig { return &domain.BlockConfig{} }},
		{Type: domain.NodeTypeInclude, Category: "content", Description: "Includes a shared content block", Branch: BranchSequential, Schema: blockSchema, NewConfig: func() domain.NodeConfig { return &domain.BlockConfig{} }},
		{
			Type: domain.NodeTypeComponent, Category: "content", Description: "Inserts a parameterized component", Branch: BranchSequential,
			Schema:    schema.Schema{"componentId": schema.String(), "params": schema.Optional(schema.Map()), "optional": optBool},
			NewConfig: func() domain.NodeConfig { return &domain.ComponentConfig{} },
		},
		{
			Type: domain.NodeTypeDynamicText, Category: "content", Description: "Text with {{variable}} tokens", Branch: BranchSequential,
			Schema:    schema.Schema{"text": schema.String()},
			NewConfig: func() domain.NodeConfig { return &domain.DynamicTextConfig{} },
		},

		{
			Type: domain.NodeTypeFormatting, Category: "styling", Description: "Applies text formatting to the wrapped content", Branch: BranchWrap,
			Schema: schema.Schema{
				"bold":      optBool,
				"italic":    optBool,
				"underline": optBool,
				"align":     schema.Optional(schema.Enum("left", "center", "right", "justify")),
				"size":      optString,
				"color":     optString,
			},
			NewConfig: func() domain.NodeConfig { return &domain.FormattingConfig{} },
		},
		{
			Type: domain.NodeTypeAlertStyle, Category: "styling", Description: "Wraps content in a call-out box", Branch: BranchWrap,
			Schema:    schema.Schema{"level": schema.Optional(schema.Enum("info", "warning", "critical", "success")), "title": optString},
			NewConfig: func() domain.NodeConfig { return &domain.AlertStyleConfig{} },
		},
		{
			Type: domain.NodeTypeLocaleStyle, Category: "styling", Description: "Marks content with a locale and direction", Branch: BranchWrap,
			Schema:    schema.Schema{"locale": optString, "direction": schema.Optional(schema.Enum("ltr", "rtl"))},
			NewConfig: func() domain.NodeConfig { return &domain.LocaleStyleConfig{} },
		},
		{
			Type: domain.NodeTypeHide, Category: "styling", Description: "Removes the wrapped content when the condition holds", Branch: BranchWrap,
			Schema:    schema.Schema{"condition": schema.String()},
			NewConfig: func() domain.NodeConfig { return &domain.HideConfig{} },
		},

		{Type: domain.NodeTypeChannel, Category: "channel", Description: "Follows the edge labelled with the request channel", Branch: BranchLabeled, Schema: schema.Schema{}, NewConfig: empty},
		{
			Type: domain.NodeTypeChannelFallback, Category: "channel", Description: "Primary branch for supported channels, fallback otherwise", Branch: BranchFallback,
			Schema:    schema.Schema{"supported": stringList},
			NewConfig: func() domain.NodeConfig { return &domain.ChannelFallbackConfig{} },
		},
		{
			Type: domain.NodeTypeSetLanguage, Category: "channel", Description: "Changes the language of later content lookups", Branch: BranchSequential,
			Schema:    schema.Schema{"language": schema.String()},
			NewConfig: func() domain.NodeConfig { return &domain.SetLanguageConfig{} },
		},
		{
			Type: domain.NodeTypeSetVariation, Category: "channel", Description: "Changes the variation of later content lookups", Branch: BranchSequential,
			Schema:    schema.Schema{"variation": schema.String()},
			NewConfig: func() domain.NodeConfig { return &domain.SetVariationConfig{} },
		},

		{Type: domain.NodeTypeSetVariable, Category: "variables", Description: "Binds a value in the current scope", Branch: BranchSequential, Schema: variableSchema, NewConfig: func() domain.NodeConfig { return &domain.SetVariableConfig{} }},
		{Type: domain.NodeTypeDerivedVariable, Category: "variables", Description: "Computes a derived variable", Branch: BranchSequential, Schema: variableSchema, NewConfig: func() domain.NodeConfig { return &domain.SetVariableConfig{} }},

		{Type: domain.NodeTypeQuery, Category: "data", Description: "Queries a data provider", Branch: BranchData, Schema: dataSchema, NewConfig: func() domain.NodeConfig { return &domain.DataConfig{} }},
		{Type: domain.NodeTypeAPICall, Category: "data", Description: "Calls an external API", Branch: BranchData, Schema: dataSchema, NewConfig: func() domain.NodeConfig { return &domain.DataConfig{} }},
		{Type: domain.NodeTypePushData, Category: "data", Description: "Sends data to an external system", Branch: BranchData, Schema: dataSchema, NewConfig: func() domain.NodeConfig { return &domain.DataConfig{} }},
		{Type: domain.NodeTypeFHIRQuery, Category: "data", Description: "Reads a FHIR resource", Branch: BranchData, Schema: dataSchema, NewConfig: func() domain.NodeConfig { return &domain.DataConfig{} }},
		{
			Type: domain.NodeTypeDataJoin, Category: "data", Description: "Joins two arrays of the data context by key", Branch: BranchData,
			Schema: schema.Schema{
				"left":     schema.String(),
				"right":    schema.String(),
				"leftKey":  schema.String(),
				"rightKey": optString,
				"target":   optString,
				"inner":    optBool,
			},
			NewConfig: func() domain.NodeConfig { return &domain.DataJoinConfig{} },
		},

		{
			Type: domain.NodeTypeDiagnosisMatch, Category: "clinical", Description: "True when a diagnosis code matches", Branch: BranchBoolean,
			Schema:    schema.Schema{"field": optString, "codeField": optString, "codes": stringList},
			NewConfig: func() domain.NodeConfig { return &domain.DiagnosisMatchConfig{} },
		},
		{
			Type: domain.NodeTypeRiskScore, Category: "clinical", Description: "Compares the member risk score with a threshold", Branch: BranchBoolean,
			Schema: schema.Schema{
				"field":     optString,
				"operator":  schema.Optional(schema.Enum(">", ">=", "<", "<=", "==", "!=")),
				"threshold": schema.Float(),
			},
			NewConfig: func() domain.NodeConfig { return &domain.RiskScoreConfig{} },
		},
		{
			Type: domain.NodeTypeHEDISTrigger, Category: "clinical", Description: "True when a HEDIS care gap is open", Branch: BranchBoolean,
			Schema:    schema.Schema{"field": optString, "measureField": optString, "measures": stringList},
			NewConfig: func() domain.NodeConfig { return &domain.HEDISTriggerConfig{} },
		},
		{
			Type: domain.NodeTypePCPAssignment, Category: "clinical", Description: "True when a primary care provider is assigned", Branch: BranchBoolean,
			Schema:    schema.Schema{"field": optString, "providerIds": schema.Optional(stringList)},
			NewConfig: func() domain.NodeConfig { return &domain.PCPAssignmentConfig{} },
		},
		{
			Type: domain.NodeTypeProgramEligibility, Category: "clinical", Description: "True when the member is enrolled in the programs", Branch: BranchBoolean,
			Schema:    schema.Schema{"field": optString, "programs": stringList, "match": schema.Optional(schema.Enum("any", "all"))},
			NewConfig: func() domain.NodeConfig { return &domain.ProgramEligibilityConfig{} },
		},

		{
			Type: domain.NodeTypeComplianceRule, Category: "compliance", Description: "Registers a compliance rule", Branch: BranchSequential,
			Schema: schema.Schema{
				"ruleId":              schema.String(),
				"name":                optString,
				"trigger":             schema.String(),
				"level":               schema.Optional(schema.Enum("none", "recommended", "required", "blocking")),
				"blockingRule":        optBool,
				"requiredAction":      optString,
				"requiredBlockId":     optString,
				"requiredComponentId": optString,
			},
			NewConfig: func() domain.NodeConfig { return &domain.ComplianceRuleConfig{} },
		},
	}
}
