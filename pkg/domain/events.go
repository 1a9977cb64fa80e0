package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventNodeLeave      EventType = "node_leave"
	EventProviderCall   EventType = "provider_call"
	EventProviderReturn EventType = "provider_return"
	EventEvaluationDone EventType = "evaluation_done"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
	GraphID   string    `json:"graph_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
}

// ProviderEvent represents a data provider call made by a data node.
type ProviderEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Provider string        `json:"provider"`
	Attempt  int           `json:"attempt,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// EvaluationEvent summarises a finished evaluation.
type EvaluationEvent struct {
	EventBase
	Outcome    Outcome       `json:"outcome"`
	Violations int           `json:"violations"`
	Warnings   int           `json:"warnings"`
	Duration   time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional and must be safe for concurrent use.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnProviderCall   func(context.Context, *ProviderEvent)
	OnProviderReturn func(context.Context, *ProviderEvent)
	OnEvaluationDone func(context.Context, *EvaluationEvent)
}
