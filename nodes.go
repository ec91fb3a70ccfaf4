package formula

import (
	"strconv"
	"strings"
)

// node is a node in the syntax tree of a formula.
type node struct {
	kind nodeKind
	// text is the number literal, variable name, or function name.
	text string
	// fn is the function a nodeCall invokes.
	fn Func
	// args holds one operand for unary operators, two for binary operators,
	// and the arguments of a call in order.
	args []*node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum  // number literal
	nodeName // variable lookup
	nodeCall // function call

	nodeNeg  // -x
	nodePlus // +x

	nodeAdd
	nodeSub
	nodeMul
	nodeDiv
	nodePow

	// Comparisons give 1 if true and 0 otherwise.
	nodeLt
	nodeLe
	nodeGt
	nodeGe
	nodeEq
	nodeNe
)

var nodeNames = [...]string{
	nodeNone: "None",
	nodeNum:  "Num",
	nodeName: "Name",
	nodeCall: "Call",
	nodeNeg:  "Neg",
	nodePlus: "Plus",
	nodeAdd:  "Add",
	nodeSub:  "Sub",
	nodeMul:  "Mul",
	nodeDiv:  "Div",
	nodePow:  "Pow",
	nodeLt:   "Lt",
	nodeLe:   "Le",
	nodeGt:   "Gt",
	nodeGe:   "Ge",
	nodeEq:   "Eq",
	nodeNe:   "Ne",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeNames[k]
}

// operator is the grammar of an operator token.
type operator struct {
	kind nodeKind
	// prec is the binding power. Higher binds tighter.
	prec int8
	// right means right-associative.
	right bool
}

var binaryOps = map[string]operator{
	"<":  {nodeLt, 0, false},
	"<=": {nodeLe, 0, false},
	">":  {nodeGt, 0, false},
	">=": {nodeGe, 0, false},
	"==": {nodeEq, 0, false},
	"!=": {nodeNe, 0, false},
	"+":  {nodeAdd, 1, false},
	"-":  {nodeSub, 1, false},
	"*":  {nodeMul, 5, false},
	"/":  {nodeDiv, 5, false},
	"^":  {nodePow, 15, true},
}

var unaryOps = map[string]operator{
	"+": {nodePlus, 10, true},
	"-": {nodeNeg, 10, true},
}

// whole is the binding power that admits every operator, used to parse a
// complete subexpression.
var whole = operator{prec: -128, right: true}

// binds reports whether an operator o met after an operand must take that
// operand from an enclosing operator outer.
func (o operator) binds(outer operator) bool {
	if o.prec != outer.prec {
		return o.prec > outer.prec
	}
	return o.right
}

// symbols maps operator node kinds back to their text.
var symbols = func() map[nodeKind]string {
	m := make(map[nodeKind]string, len(binaryOps)+len(unaryOps))
	for text, op := range binaryOps {
		m[op.kind] = text
	}
	for text, op := range unaryOps {
		m[op.kind] = text
	}
	return m
}()

// String formats the tree as a formula with every operation parenthesized.
// The result parses to the same tree.
func (n *node) String() string {
	var b strings.Builder
	n.format(&b)
	return b.String()
}

func (n *node) format(b *strings.Builder) {
	switch n.kind {
	case nodeNum, nodeName:
		b.WriteString(n.text)
	case nodeCall:
		b.WriteString(n.text)
		b.WriteByte('(')
		for i, arg := range n.args {
			if i > 0 {
				b.WriteString(", ")
			}
			arg.format(b)
		}
		b.WriteByte(')')
	case nodeNeg, nodePlus:
		b.WriteByte('(')
		b.WriteString(symbols[n.kind])
		n.args[0].format(b)
		b.WriteByte(')')
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodePow, nodeLt, nodeLe, nodeGt, nodeGe, nodeEq, nodeNe:
		b.WriteByte('(')
		n.args[0].format(b)
		b.WriteByte(' ')
		b.WriteString(symbols[n.kind])
		b.WriteByte(' ')
		n.args[1].format(b)
		b.WriteByte(')')
	default:
		panic("formula: cannot format node kind " + n.kind.String())
	}
}
