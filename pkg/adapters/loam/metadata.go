package loam

// ContentMetadata is the frontmatter of a block or component document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type ContentMetadata struct {
	// ID is the content id referenced by graphs. Defaults to the file name.
	ID        string `json:"id" mapstructure:"id"`
	Language  string `json:"language" mapstructure:"language"`
	Variation string `json:"variation" mapstructure:"variation"`

	// Kind is informational ("block" or "component").
	Kind string `json:"kind" mapstructure:"kind"`

	Tags            []string `json:"tags" mapstructure:"tags"`
	ComplianceFlags []string `json:"compliance_flags" mapstructure:"compliance_flags"`
}
