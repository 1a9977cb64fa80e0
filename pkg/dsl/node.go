package dsl

import "github.com/aretw0/lettergraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node and its outgoing edges.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Set sets a config key.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	n.node.Config[key] = value
	return n
}

// Entry marks the node as the graph entry.
func (n *NodeBuilder) Entry() *NodeBuilder {
	n.builder.doc.EntryID = n.node.ID
	return n
}

// To adds an unlabelled edge to target.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target, "")
	return n
}

// When adds an edge labelled label, for example a branch or a switch case.
func (n *NodeBuilder) When(label, target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target, label)
	return n
}

// Body links the subgraph evaluated by loops and styling nodes.
func (n *NodeBuilder) Body(target string) *NodeBuilder {
	return n.When(domain.LabelBody, target)
}

// OnError links the branch taken when a data node fails.
func (n *NodeBuilder) OnError(target string) *NodeBuilder {
	return n.When(domain.LabelError, target)
}

// Optional marks a block or component as optional.
func (n *NodeBuilder) Optional() *NodeBuilder {
	return n.Set("optional", true)
}

// Critical makes a failing data node abort the evaluation.
func (n *NodeBuilder) Critical() *NodeBuilder {
	return n.Set("critical", true)
}

// RequireBlock makes a compliance rule demand that blockID is in the letter.
func (n *NodeBuilder) RequireBlock(blockID string) *NodeBuilder {
	return n.Set("requiredBlockId", blockID)
}

// Node returns the node built so far.
func (n *NodeBuilder) Node() domain.Node {
	return n.node
}

// Start adds the start node and marks it as entry.
func (b *Builder) Start(id string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeStart).Entry()
}

// Condition adds a boolean branch on expression.
func (b *Builder) Condition(id, expression string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeCondition).Set("expression", expression)
}

// Switch adds a multi-way branch on discriminant.
func (b *Builder) Switch(id, discriminant string, cases ...string) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeSwitch).Set("discriminant", discriminant)
	if len(cases) > 0 {
		nb.Set("cases", cases)
	}
	return nb
}

// Text adds a dynamic text node.
func (b *Builder) Text(id, text string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeDynamicText).Set("text", text)
}

// Block includes a reusable content block.
func (b *Builder) Block(id, blockID string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeBlock).Set("blockId", blockID)
}

// Component includes a parameterised component.
func (b *Builder) Component(id, componentID string, params map[string]any) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeComponent).Set("componentId", componentID)
	if len(params) > 0 {
		nb.Set("params", params)
	}
	return nb
}

// Loop repeats template for every element of source, joined by separator.
func (b *Builder) Loop(id, source, template, separator string) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeLoop).Set("source", source).Set("separator", separator)
	if template != "" {
		nb.Set("template", template)
	}
	return nb
}

// SetVariable binds name to the result of expression.
func (b *Builder) SetVariable(id, name, expression string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeSetVariable).Set("name", name).Set("expression", expression)
}

// Derived adds a derived variable computed from expression.
func (b *Builder) Derived(id, name, expression string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeDerivedVariable).Set("name", name).Set("expression", expression)
}

// Query adds a data node that reads resource from provider.
func (b *Builder) Query(id, provider, resource string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeQuery).Set("provider", provider).Set("resource", resource)
}

// Rule adds a compliance rule.
func (b *Builder) Rule(id, ruleID, trigger string, level domain.ComplianceLevel, blocking bool) *NodeBuilder {
	return b.Add(id, domain.NodeTypeComplianceRule).
		Set("ruleId", ruleID).
		Set("trigger", trigger).
		Set("level", string(level)).
		Set("blockingRule", blocking)
}

// Flag raises a review flag with message.
func (b *Builder) Flag(id, message string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeFlag).Set("message", message)
}
