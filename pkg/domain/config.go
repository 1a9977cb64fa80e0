package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/lettergraph/pkg/expr"
)

// NodeConfig is the typed configuration record of a node. The compiler decodes
// Node.Config into the record registered for the node type and calls Validate.
type NodeConfig interface {
	Validate() error
}

// ExpressionSource is implemented by configs holding expressions that are
// parsed once at load time. Keys name the field, values are expression sources.
type ExpressionSource interface {
	ExpressionFields() map[string]string
}

// TemplateSource is implemented by configs holding {{var}} text templates.
type TemplateSource interface {
	TemplateFields() map[string]string
}

// EmptyConfig is used by node types without configuration (start, return, channel).
type EmptyConfig struct{}

func (EmptyConfig) Validate() error { return nil }

// ConditionConfig drives condition, expression and else nodes. Either Expression
// or Field+Operator(+Value) is used.
type ConditionConfig struct {
	Expression string `mapstructure:"expression"`
	Field      string `mapstructure:"field"`
	Operator   string `mapstructure:"operator"`
	Value      any    `mapstructure:"value"`
	// AllowEmpty is set by the registry for else nodes.
	AllowEmpty bool `mapstructure:"-"`
}

func (c *ConditionConfig) Validate() error {
	if c.Expression != "" && c.Field != "" {
		return errors.New("expression and field are mutually exclusive")
	}
	if c.Expression == "" && c.Field == "" && !c.AllowEmpty {
		return errors.New("expression or field is required")
	}
	if c.Field != "" {
		_, err := c.Source()
		return err
	}
	return nil
}

// Source returns the condition as expression text, translating the structured form.
func (c *ConditionConfig) Source() (string, error) {
	if c.Expression != "" || c.Field == "" {
		return c.Expression, nil
	}
	ref := "{{" + c.Field + "}}"
	op := strings.ToLower(strings.TrimSpace(c.Operator))
	switch op {
	case "", "==", "=", "eq", "equals":
		return ref + " == " + expr.Literal(c.Value), nil
	case "!=", "ne", "neq", "not_equals":
		return ref + " != " + expr.Literal(c.Value), nil
	case ">", "gt", "greater_than":
		return ref + " > " + expr.Literal(c.Value), nil
	case ">=", "gte", "greater_or_equal":
		return ref + " >= " + expr.Literal(c.Value), nil
	case "<", "lt", "less_than":
		return ref + " < " + expr.Literal(c.Value), nil
	case "<=", "lte", "less_or_equal":
		return ref + " <= " + expr.Literal(c.Value), nil
	case "contains":
		return "CONTAINS(" + ref + ", " + expr.Literal(c.Value) + ")", nil
	case "exists", "not_empty":
		return "COALESCE(" + ref + ") != null", nil
	case "not_exists", "empty":
		return "COALESCE(" + ref + ") == null", nil
	case "in":
		values, ok := expr.Normalize(c.Value).([]any)
		if !ok || len(values) == 0 {
			return "", errors.New("operator in needs a non-empty list value")
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = ref + " == " + expr.Literal(v)
		}
		return "(" + strings.Join(parts, " || ") + ")", nil
	}
	return "", fmt.Errorf("unknown operator %q", c.Operator)
}

func (c *ConditionConfig) ExpressionFields() map[string]string {
	src, err := c.Source()
	if err != nil || src == "" {
		return nil
	}
	return map[string]string{"expression": src}
}

// SwitchConfig selects one outgoing edge by the formatted value of Discriminant.
type SwitchConfig struct {
	Discriminant string   `mapstructure:"discriminant"`
	Cases        []string `mapstructure:"cases"`
}

func (c *SwitchConfig) Validate() error {
	if c.Discriminant == "" {
		return errors.New("discriminant is required")
	}
	return nil
}

func (c *SwitchConfig) ExpressionFields() map[string]string {
	return map[string]string{"discriminant": c.Discriminant}
}

// LoopConfig repeats a template or a body subgraph for every element of Source.
type LoopConfig struct {
	Source        string `mapstructure:"source"`
	ItemVariable  string `mapstructure:"itemVariable"`
	IndexVariable string `mapstructure:"indexVariable"`
	Filter        string `mapstructure:"filter"`
	Template      string `mapstructure:"template"`
	Separator     string `mapstructure:"separator"`
	Limit         int    `mapstructure:"limit"`
}

func (c *LoopConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.ItemVariable == "" {
		c.ItemVariable = "item"
	}
	if !expr.IsPath(c.ItemVariable) || strings.Contains(c.ItemVariable, ".") {
		return fmt.Errorf("itemVariable %q must be a simple name", c.ItemVariable)
	}
	if c.IndexVariable != "" && (!expr.IsPath(c.IndexVariable) || strings.Contains(c.IndexVariable, ".")) {
		return fmt.Errorf("indexVariable %q must be a simple name", c.IndexVariable)
	}
	if c.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func (c *LoopConfig) ExpressionFields() map[string]string {
	m := map[string]string{"source": c.Source}
	if c.Filter != "" {
		m["filter"] = c.Filter
	}
	return m
}

func (c *LoopConfig) TemplateFields() map[string]string {
	if c.Template == "" {
		return nil
	}
	return map[string]string{"template": c.Template}
}

// TableColumn is one column of a table loop.
type TableColumn struct {
	Header   string `mapstructure:"header"`
	Template string `mapstructure:"template"`
}

// TableLoopConfig renders one table row per element of Source.
type TableLoopConfig struct {
	Source       string        `mapstructure:"source"`
	ItemVariable string        `mapstructure:"itemVariable"`
	Filter       string        `mapstructure:"filter"`
	Columns      []TableColumn `mapstructure:"columns"`
	Limit        int           `mapstructure:"limit"`
}

func (c *TableLoopConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.ItemVariable == "" {
		c.ItemVariable = "item"
	}
	if !expr.IsPath(c.ItemVariable) || strings.Contains(c.ItemVariable, ".") {
		return fmt.Errorf("itemVariable %q must be a simple name", c.ItemVariable)
	}
	if len(c.Columns) == 0 {
		return errors.New("at least one column is required")
	}
	for i, col := range c.Columns {
		if col.Template == "" {
			return fmt.Errorf("column %d: template is required", i)
		}
	}
	if c.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func (c *TableLoopConfig) ExpressionFields() map[string]string {
	m := map[string]string{"source": c.Source}
	if c.Filter != "" {
		m["filter"] = c.Filter
	}
	return m
}

func (c *TableLoopConfig) TemplateFields() map[string]string {
	m := make(map[string]string, len(c.Columns))
	for i, col := range c.Columns {
		m[ColumnKey(i)] = col.Template
	}
	return m
}

// ColumnKey names the compiled template of table column i.
func ColumnKey(i int) string { return fmt.Sprintf("column.%d", i) }

// BlockConfig includes a content block (block and include nodes).
type BlockConfig struct {
	BlockID  string `mapstructure:"blockId"`
	Optional bool   `mapstructure:"optional"`
}

func (c *BlockConfig) Validate() error {
	if c.BlockID == "" {
		return errors.New("blockId is required")
	}
	return nil
}

// ComponentConfig inserts a parameterized component.
type ComponentConfig struct {
	ComponentID string         `mapstructure:"componentId"`
	Params      map[string]any `mapstructure:"params"`
	Optional    bool           `mapstructure:"optional"`
}

func (c *ComponentConfig) Validate() error {
	if c.ComponentID == "" {
		return errors.New("componentId is required")
	}
	return nil
}

// DynamicTextConfig is literal text with {{var}} tokens.
type DynamicTextConfig struct {
	Text string `mapstructure:"text"`
}

func (c *DynamicTextConfig) Validate() error { return nil }

func (c *DynamicTextConfig) TemplateFields() map[string]string {
	return map[string]string{"text": c.Text}
}

// FormattingConfig wraps downstream content in text formatting.
type FormattingConfig struct {
	Bold      bool   `mapstructure:"bold"`
	Italic    bool   `mapstructure:"italic"`
	Underline bool   `mapstructure:"underline"`
	Align     string `mapstructure:"align"`
	Size      string `mapstructure:"size"`
	Color     string `mapstructure:"color"`
}

func (c *FormattingConfig) Validate() error {
	switch c.Align {
	case "", "left", "center", "right", "justify":
		return nil
	}
	return fmt.Errorf("unknown align %q", c.Align)
}

// Attrs returns the non-zero style attributes.
func (c *FormattingConfig) Attrs() map[string]string {
	m := map[string]string{}
	if c.Bold {
		m["bold"] = "true"
	}
	if c.Italic {
		m["italic"] = "true"
	}
	if c.Underline {
		m["underline"] = "true"
	}
	if c.Align != "" {
		m["align"] = c.Align
	}
	if c.Size != "" {
		m["size"] = c.Size
	}
	if c.Color != "" {
		m["color"] = c.Color
	}
	return m
}

// AlertStyleConfig wraps downstream content in a call-out box.
type AlertStyleConfig struct {
	Level string `mapstructure:"level"`
	Title string `mapstructure:"title"`
}

func (c *AlertStyleConfig) Validate() error {
	switch c.Level {
	case "":
		c.Level = "info"
	case "info", "warning", "critical", "success":
	default:
		return fmt.Errorf("unknown alert level %q", c.Level)
	}
	return nil
}

// LocaleStyleConfig marks downstream content with a locale and text direction.
type LocaleStyleConfig struct {
	Locale    string `mapstructure:"locale"`
	Direction string `mapstructure:"direction"`
}

func (c *LocaleStyleConfig) Validate() error {
	switch c.Direction {
	case "", "ltr", "rtl":
	default:
		return fmt.Errorf("unknown direction %q", c.Direction)
	}
	if c.Locale == "" && c.Direction == "" {
		return errors.New("locale or direction is required")
	}
	return nil
}

// HideConfig removes the wrapped content when Condition is true.
type HideConfig struct {
	Condition string `mapstructure:"condition"`
}

func (c *HideConfig) Validate() error {
	if c.Condition == "" {
		return errors.New("condition is required")
	}
	return nil
}

func (c *HideConfig) ExpressionFields() map[string]string {
	return map[string]string{"condition": c.Condition}
}

// ChannelFallbackConfig lists the channels the primary branch supports.
type ChannelFallbackConfig struct {
	Supported []string `mapstructure:"supported"`
}

func (c *ChannelFallbackConfig) Validate() error {
	if len(c.Supported) == 0 {
		return errors.New("supported is required")
	}
	return nil
}

// Supports reports whether channel is in the supported list (case-insensitive).
func (c *ChannelFallbackConfig) Supports(channel string) bool {
	for _, s := range c.Supported {
		if strings.EqualFold(s, channel) {
			return true
		}
	}
	return false
}

// SetLanguageConfig changes the language used by later content lookups.
type SetLanguageConfig struct {
	Language string `mapstructure:"language"`
}

func (c *SetLanguageConfig) Validate() error {
	if c.Language == "" {
		return errors.New("language is required")
	}
	return nil
}

func (c *SetLanguageConfig) TemplateFields() map[string]string {
	return map[string]string{"language": c.Language}
}

// SetVariationConfig changes the variation used by later content lookups.
type SetVariationConfig struct {
	Variation string `mapstructure:"variation"`
}

func (c *SetVariationConfig) Validate() error {
	if c.Variation == "" {
		return errors.New("variation is required")
	}
	return nil
}

func (c *SetVariationConfig) TemplateFields() map[string]string {
	return map[string]string{"variation": c.Variation}
}

// SetVariableConfig writes a value into the current scope (set_variable and derived_variable).
type SetVariableConfig struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
	Value      any    `mapstructure:"value"`
}

func (c *SetVariableConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if !expr.IsPath(c.Name) || strings.Contains(c.Name, ".") {
		return fmt.Errorf("name %q must be a simple identifier", c.Name)
	}
	if c.Expression != "" && c.Value != nil {
		return errors.New("expression and value are mutually exclusive")
	}
	if c.Expression == "" && c.Value == nil {
		return errors.New("expression or value is required")
	}
	return nil
}

func (c *SetVariableConfig) ExpressionFields() map[string]string {
	if c.Expression == "" {
		return nil
	}
	return map[string]string{"expression": c.Expression}
}

// DataConfig configures query, api_call, push_data and fhir_query nodes.
type DataConfig struct {
	Provider  string         `mapstructure:"provider"`
	Resource  string         `mapstructure:"resource"`
	Method    string         `mapstructure:"method"`
	Params    map[string]any `mapstructure:"params"`
	Body      string         `mapstructure:"body"`
	Target    string         `mapstructure:"target"`
	TimeoutMs int            `mapstructure:"timeoutMs"`
	Retries   int            `mapstructure:"retries"`
	Critical  bool           `mapstructure:"critical"`
}

func (c *DataConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	if c.TimeoutMs < 0 || c.Retries < 0 {
		return errors.New("timeoutMs and retries must not be negative")
	}
	if c.Target != "" && !expr.IsPath(c.Target) {
		return fmt.Errorf("target %q is not a valid path", c.Target)
	}
	return nil
}

// TemplateFields exposes string params, resource and body as templates so they can
// reference the data context, for example {{member.id}}.
func (c *DataConfig) TemplateFields() map[string]string {
	m := map[string]string{}
	if c.Resource != "" {
		m["resource"] = c.Resource
	}
	if c.Body != "" {
		m["body"] = c.Body
	}
	for k, v := range c.Params {
		if s, ok := v.(string); ok {
			m["params."+k] = s
		}
	}
	return m
}

// DataJoinConfig merges two arrays of the data context by key without a provider.
type DataJoinConfig struct {
	Left     string `mapstructure:"left"`
	Right    string `mapstructure:"right"`
	LeftKey  string `mapstructure:"leftKey"`
	RightKey string `mapstructure:"rightKey"`
	Target   string `mapstructure:"target"`
	// Inner drops left rows without a match.
	Inner bool `mapstructure:"inner"`
}

func (c *DataJoinConfig) Validate() error {
	if c.Left == "" || c.Right == "" || c.LeftKey == "" {
		return errors.New("left, right and leftKey are required")
	}
	if c.RightKey == "" {
		c.RightKey = c.LeftKey
	}
	if c.Target != "" && !expr.IsPath(c.Target) {
		return fmt.Errorf("target %q is not a valid path", c.Target)
	}
	return nil
}

// DiagnosisMatchConfig is true when any diagnosis code at Field matches Codes.
// Codes ending in * match by prefix.
type DiagnosisMatchConfig struct {
	Field     string   `mapstructure:"field"`
	CodeField string   `mapstructure:"codeField"`
	Codes     []string `mapstructure:"codes"`
}

func (c *DiagnosisMatchConfig) Validate() error {
	if c.Field == "" {
		c.Field = "member.diagnoses"
	}
	if c.CodeField == "" {
		c.CodeField = "code"
	}
	if len(c.Codes) == 0 {
		return errors.New("codes is required")
	}
	return nil
}

// RiskScoreConfig compares the numeric score at Field with Threshold.
type RiskScoreConfig struct {
	Field     string  `mapstructure:"field"`
	Operator  string  `mapstructure:"operator"`
	Threshold float64 `mapstructure:"threshold"`
}

func (c *RiskScoreConfig) Validate() error {
	if c.Field == "" {
		c.Field = "member.riskScore"
	}
	switch c.Operator {
	case "":
		c.Operator = ">="
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

// HEDISTriggerConfig is true when the member has an open care gap for one of Measures.
type HEDISTriggerConfig struct {
	Field        string   `mapstructure:"field"`
	MeasureField string   `mapstructure:"measureField"`
	Measures     []string `mapstructure:"measures"`
}

func (c *HEDISTriggerConfig) Validate() error {
	if c.Field == "" {
		c.Field = "member.careGaps"
	}
	if c.MeasureField == "" {
		c.MeasureField = "measure"
	}
	if len(c.Measures) == 0 {
		return errors.New("measures is required")
	}
	return nil
}

// PCPAssignmentConfig is true when a primary care provider is assigned and,
// when ProviderIDs is set, is one of them.
type PCPAssignmentConfig struct {
	Field       string   `mapstructure:"field"`
	ProviderIDs []string `mapstructure:"providerIds"`
}

func (c *PCPAssignmentConfig) Validate() error {
	if c.Field == "" {
		c.Field = "member.pcp.id"
	}
	return nil
}

// ProgramEligibilityConfig is true when the member is enrolled in the listed programs.
type ProgramEligibilityConfig struct {
	Field    string   `mapstructure:"field"`
	Programs []string `mapstructure:"programs"`
	// Match is "any" (default) or "all".
	Match string `mapstructure:"match"`
}

func (c *ProgramEligibilityConfig) Validate() error {
	if c.Field == "" {
		c.Field = "enrollment.programs"
	}
	if len(c.Programs) == 0 {
		return errors.New("programs is required")
	}
	switch c.Match {
	case "":
		c.Match = "any"
	case "any", "all":
	default:
		return fmt.Errorf("unknown match %q", c.Match)
	}
	return nil
}

// ComplianceRuleConfig registers a rule with the compliance checker.
type ComplianceRuleConfig struct {
	RuleID              string `mapstructure:"ruleId"`
	Name                string `mapstructure:"name"`
	Trigger             string `mapstructure:"trigger"`
	Level               string `mapstructure:"level"`
	BlockingRule        bool   `mapstructure:"blockingRule"`
	RequiredAction      string `mapstructure:"requiredAction"`
	RequiredBlockID     string `mapstructure:"requiredBlockId"`
	RequiredComponentID string `mapstructure:"requiredComponentId"`
}

func (c *ComplianceRuleConfig) Validate() error {
	if c.RuleID == "" {
		return errors.New("ruleId is required")
	}
	if c.Trigger == "" {
		return errors.New("trigger is required")
	}
	if _, err := ParseComplianceLevel(c.Level); err != nil {
		return err
	}
	return nil
}

func (c *ComplianceRuleConfig) ExpressionFields() map[string]string {
	return map[string]string{"trigger": c.Trigger}
}

// Rule converts the config into the checker's rule model. blockingRule=true wins over level.
func (c *ComplianceRuleConfig) Rule() ComplianceRule {
	level, _ := ParseComplianceLevel(c.Level)
	if c.BlockingRule {
		level = LevelBlocking
	}
	return ComplianceRule{
		RuleID:              c.RuleID,
		Name:                c.Name,
		Trigger:             c.Trigger,
		RequiredAction:      c.RequiredAction,
		Level:               level,
		RequiredBlockID:     c.RequiredBlockID,
		RequiredComponentID: c.RequiredComponentID,
	}
}

// FlagConfig records a review flag.
type FlagConfig struct {
	Message  string `mapstructure:"message"`
	Severity string `mapstructure:"severity"`
}

func (c *FlagConfig) Validate() error {
	if c.Message == "" {
		return errors.New("message is required")
	}
	if c.Severity == "" {
		c.Severity = "info"
	}
	return nil
}

func (c *FlagConfig) TemplateFields() map[string]string {
	return map[string]string{"message": c.Message}
}
