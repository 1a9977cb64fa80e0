package domain

// Outcome is how a caller should treat an evaluation.
type Outcome string

const (
	// OutcomeClean is a letter with no violations.
	OutcomeClean Outcome = "clean"
	// OutcomeAdvisory is a letter with non-blocking violations attached.
	OutcomeAdvisory Outcome = "advisory"
	// OutcomeAborted means no content may be sent.
	OutcomeAborted Outcome = "aborted"
)

// WarningKind classifies node-level problems that did not stop evaluation.
type WarningKind string

const (
	WarnExpression      WarningKind = "expression"
	WarnMissingVariable WarningKind = "missing_variable"
	WarnContentNotFound WarningKind = "content_not_found"
	WarnExternalCall    WarningKind = "external_call"
	WarnNoMatch         WarningKind = "no_match"
	WarnCompliance      WarningKind = "compliance"
	WarnClinicalField   WarningKind = "clinical_field"
	WarnLimit           WarningKind = "limit"
)

// Warning is a node-level problem recorded in the result.
type Warning struct {
	NodeID  string      `json:"nodeId,omitempty"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.NodeID == "" {
		return string(w.Kind) + ": " + w.Message
	}
	return w.NodeID + ": " + string(w.Kind) + ": " + w.Message
}

// ContentRef records a block or component that made it into the letter.
type ContentRef struct {
	Kind      InstructionKind `json:"kind"`
	ID        string          `json:"id"`
	Language  string          `json:"language,omitempty"`
	Variation string          `json:"variation,omitempty"`
	NodeID    string          `json:"nodeId,omitempty"`
}

// EvaluationResult is produced once per request and never reused.
type EvaluationResult struct {
	RequestID        string         `json:"requestId"`
	GraphID          string         `json:"graphId"`
	GraphVersion     string         `json:"graphVersion,omitempty"`
	Channel          string         `json:"channel,omitempty"`
	Language         string         `json:"language,omitempty"`
	Variation        string         `json:"variation,omitempty"`
	Format           string         `json:"format"`
	RenderedContent  string         `json:"renderedContent"`
	Violations       []Violation    `json:"violations"`
	Warnings         []Warning      `json:"warnings"`
	DerivedVariables map[string]any `json:"derivedVariables"`
	Aborted          bool           `json:"aborted"`
	AbortReason      string         `json:"abortReason,omitempty"`
	Flags            []ReviewFlag   `json:"flags"`
	IncludedContent  []ContentRef   `json:"includedContent,omitempty"`
	Outcome          Outcome        `json:"outcome"`
}

// Blocking returns the blocking violations of the result.
func (r *EvaluationResult) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Level == LevelBlocking {
			out = append(out, v)
		}
	}
	return out
}
