package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraph is the sentinel wrapped by every *GraphError.
	ErrGraph = errors.New("invalid graph")
	// ErrExternalCall is the sentinel wrapped by every *ExternalCallError.
	ErrExternalCall = errors.New("external call failed")
	// ErrCancelled is returned when the caller cancels an evaluation.
	ErrCancelled = errors.New("evaluation cancelled")
	// ErrGraphNotFound is returned by loaders and caches for unknown graph ids.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrContentNotFound is returned by content repositories for unknown block or component ids.
	ErrContentNotFound = errors.New("content not found")
	// ErrProviderNotFound is returned when a data node names an unregistered provider.
	ErrProviderNotFound = errors.New("data provider not found")
	// ErrProviderRejected marks provider failures that retrying cannot fix,
	// such as a 4xx answer from an HTTP endpoint.
	ErrProviderRejected = errors.New("data provider rejected the call")
	// ErrInvalidRequest is returned when a request cannot be evaluated at all,
	// for example when its data context is not a JSON object.
	ErrInvalidRequest = errors.New("invalid request")
)

// GraphErrorKind classifies structural problems found while loading a graph.
type GraphErrorKind string

const (
	GraphEmpty          GraphErrorKind = "empty"
	GraphDuplicateID    GraphErrorKind = "duplicate_id"
	GraphUnknownType    GraphErrorKind = "unknown_type"
	GraphInvalidConfig  GraphErrorKind = "invalid_config"
	GraphDanglingEdge   GraphErrorKind = "dangling_edge"
	GraphSelfReference  GraphErrorKind = "self_reference"
	GraphEntry          GraphErrorKind = "entry"
	GraphCycle          GraphErrorKind = "cycle"
	GraphOrphan         GraphErrorKind = "orphan"
	GraphBranch         GraphErrorKind = "branch"
	GraphInvalidExpr    GraphErrorKind = "invalid_expression"
	GraphInvalidVarDefs GraphErrorKind = "invalid_variables"
)

// Problem is a single structural finding.
type Problem struct {
	Kind   GraphErrorKind `json:"kind"`
	NodeID string         `json:"nodeId,omitempty"`
	EdgeID string         `json:"edgeId,omitempty"`
	Msg    string         `json:"message"`
}

func (p Problem) String() string {
	var where string
	switch {
	case p.NodeID != "":
		where = " node " + p.NodeID
	case p.EdgeID != "":
		where = " edge " + p.EdgeID
	}
	return fmt.Sprintf("%s%s: %s", p.Kind, where, p.Msg)
}

// GraphError aggregates the structural problems of a graph. It aborts a request
// before evaluation starts. Problems are in deterministic order; the first one is
// mirrored in Kind, NodeID, EdgeID and Msg.
type GraphError struct {
	GraphID  string
	Kind     GraphErrorKind
	NodeID   string
	EdgeID   string
	Msg      string
	Problems []Problem
}

// NewGraphError builds a GraphError from a non-empty list of problems.
func NewGraphError(graphID string, problems []Problem) *GraphError {
	first := problems[0]
	return &GraphError{
		GraphID:  graphID,
		Kind:     first.Kind,
		NodeID:   first.NodeID,
		EdgeID:   first.EdgeID,
		Msg:      first.Msg,
		Problems: problems,
	}
}

func (e *GraphError) Error() string {
	prefix := "graph"
	if e.GraphID != "" {
		prefix = fmt.Sprintf("graph %q", e.GraphID)
	}
	if len(e.Problems) <= 1 {
		return fmt.Sprintf("%s: %s", prefix, Problem{Kind: e.Kind, NodeID: e.NodeID, EdgeID: e.EdgeID, Msg: e.Msg})
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s: %d problems: %s", prefix, len(e.Problems), strings.Join(parts, "; "))
}

func (e *GraphError) Unwrap() error { return ErrGraph }

// Has reports whether any problem is of the given kind.
func (e *GraphError) Has(kind GraphErrorKind) bool {
	for _, p := range e.Problems {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// ExternalCallError reports a failed data provider call after retries.
type ExternalCallError struct {
	NodeID   string
	Provider string
	Attempts int
	Err      error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("provider %q for node %s failed after %d attempt(s): %v", e.Provider, e.NodeID, e.Attempts, e.Err)
}

func (e *ExternalCallError) Unwrap() []error { return []error{ErrExternalCall, e.Err} }
