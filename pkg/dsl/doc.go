/*
Package dsl provides a Go DSL for programmatically constructing lettergraph
logic graphs.

It builds the same GraphDocument the visual editor produces, using a fluent
builder instead of hand-written JSON or YAML. This is particularly useful for
unit tests, generated graphs and IDE autocompletion.

Example usage:

	b := dsl.New("denial-letter").Version("3")

	b.Start("start").To("is_denied")

	b.Condition("is_denied", "{{claim.status}} == 'DENIED'").
		When(domain.LabelTrue, "appeal").
		When(domain.LabelFalse, "approval")

	b.Block("appeal", "appeal-rights")
	b.Block("approval", "approval-notice")

	// The resulting loader can be passed to lettergraph.New via WithLoader.
	loader, err := b.Build()
*/
package dsl
