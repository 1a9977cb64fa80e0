package domain

import (
	"fmt"
	"strings"
)

// ComplianceLevel classifies what an unmet compliance rule means for the letter.
type ComplianceLevel string

const (
	LevelNone        ComplianceLevel = "none"
	LevelRecommended ComplianceLevel = "recommended"
	LevelRequired    ComplianceLevel = "required"
	LevelBlocking    ComplianceLevel = "blocking"
)

// ParseComplianceLevel normalises a level name. The empty string maps to LevelRequired.
func ParseComplianceLevel(s string) (ComplianceLevel, error) {
	switch l := ComplianceLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelRequired, nil
	case LevelNone, LevelRecommended, LevelRequired, LevelBlocking:
		return l, nil
	}
	return "", fmt.Errorf("unknown compliance level %q", s)
}

// ComplianceRule is a rule node registered with the compliance checker.
type ComplianceRule struct {
	RuleID              string          `json:"ruleId"`
	Name                string          `json:"name,omitempty"`
	Trigger             string          `json:"trigger,omitempty"`
	RequiredAction      string          `json:"requiredAction,omitempty"`
	Level               ComplianceLevel `json:"level"`
	RequiredBlockID     string          `json:"requiredBlockId,omitempty"`
	RequiredComponentID string          `json:"requiredComponentId,omitempty"`
}

// Violation is a triggered rule whose requirement was not met.
type Violation struct {
	RuleID         string          `json:"ruleId"`
	Name           string          `json:"name,omitempty"`
	Level          ComplianceLevel `json:"level"`
	Message        string          `json:"message"`
	RequiredAction string          `json:"requiredAction,omitempty"`
	NodeID         string          `json:"nodeId,omitempty"`
}

// FlagSource tells where a review flag came from.
type FlagSource string

const (
	FlagFromNode       FlagSource = "flag"
	FlagFromComponent  FlagSource = "component"
	FlagFromCompliance FlagSource = "compliance"
)

// ReviewFlag asks a human reviewer to look at something in the letter.
type ReviewFlag struct {
	NodeID   string     `json:"nodeId,omitempty"`
	Source   FlagSource `json:"source"`
	Severity string     `json:"severity,omitempty"`
	Message  string     `json:"message"`
}
