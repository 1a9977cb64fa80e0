package domain

// VariableType is the declared data type of a variable.
type VariableType string

const (
	VarString   VariableType = "string"
	VarNumber   VariableType = "number"
	VarBoolean  VariableType = "boolean"
	VarDate     VariableType = "date"
	VarCurrency VariableType = "currency"
	VarPhone    VariableType = "phone"
	VarAddress  VariableType = "address"
	VarList     VariableType = "list"
	VarObject   VariableType = "object"
)

// FormatOptions controls how a variable is rendered. Options are applied by the
// renderer only; computed values stay raw so they remain usable in arithmetic.
type FormatOptions struct {
	// Date is a pattern such as MM/DD/YYYY or a named layout (short, medium, long, full, iso).
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
	// Currency is an ISO 4217 code. Setting it renders numbers as money.
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
	// Decimals fixes the number of fraction digits for numbers.
	Decimals *int `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	// Phone is a phone style, currently "us" or "e164".
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
	// Address is "inline" (default) or "multiline".
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Case is one of upper, lower, title, sentence.
	Case string `json:"case,omitempty" yaml:"case,omitempty"`
}

// VariableDefinition declares a variable the graph reads from the data context.
type VariableDefinition struct {
	Key      string        `json:"key" yaml:"key"`
	Type     VariableType  `json:"type,omitempty" yaml:"type,omitempty"`
	Group    string        `json:"group,omitempty" yaml:"group,omitempty"`
	Format   FormatOptions `json:"format,omitempty" yaml:"format,omitempty"`
	Required bool          `json:"required,omitempty" yaml:"required,omitempty"`
}
