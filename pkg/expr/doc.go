/*
Package expr implements the expression language used by condition, computation and
rule nodes.

Source text is tokenized, parsed by a recursive-descent parser into a small AST and
evaluated by a tree walker. Variables are written either as {{path.to.field}} or as
bare dotted identifiers; resolution is delegated to an Env so the caller controls
scoping and the missing-variable policy.

	p, err := expr.Compile("{{claim.status}} == 'DENIED' && SUM(claim.lines, 'amount') > 100")
	res, err := p.Run(env)

Values are nil, bool, float64, string, []any and map[string]any. Comparing
incompatible types yields an *EvalError of kind TypeMismatch rather than a silent false.
*/
package expr
