package expr

// node is an element of the expression syntax tree.
type node interface {
	pos() int
}

type literalNode struct {
	at    int
	value any
}

type varNode struct {
	at   int
	path string
}

type unaryNode struct {
	at      int
	op      string
	operand node
}

type binaryNode struct {
	at          int
	op          string
	left, right node
}

type callNode struct {
	at   int
	name string // upper-cased
	args []node
}

func (n *literalNode) pos() int { return n.at }
func (n *varNode) pos() int     { return n.at }
func (n *unaryNode) pos() int   { return n.at }
func (n *binaryNode) pos() int  { return n.at }
func (n *callNode) pos() int    { return n.at }

// walkVars calls fn for every variable path referenced by n.
func walkVars(n node, fn func(string)) {
	switch v := n.(type) {
	case *varNode:
		fn(v.path)
	case *unaryNode:
		walkVars(v.operand, fn)
	case *binaryNode:
		walkVars(v.left, fn)
		walkVars(v.right, fn)
	case *callNode:
		for _, a := range v.args {
			walkVars(a, fn)
		}
	}
}
