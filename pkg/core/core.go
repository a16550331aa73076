// Package core defines the algebraic intermediate representation that the
// loop-lifting translator consumes.
//
// Trees arrive already built and scope-checked from a front end that is not
// part of this module. Every node kind is a distinct struct implementing the
// Node marker interface; binding constructs (For, Let) reference the Var
// objects they introduce, and VarRef nodes reference the same objects, so
// binder/use identity is pointer identity.
package core

// Node is the interface implemented by all IR nodes.
type Node interface {
	node()
}

// Var is a bound variable shared between its binder and its use sites.
// Annotation state (vid, base scope, liveness) lives outside the tree in
// scope.Annotation; Var itself never changes after the tree is built.
type Var struct {
	Name string
}

// ===== Binding and control =====

// VarRef is a use of a bound variable.
type VarRef struct {
	Var *Var
}

func (*VarRef) node() {}

// Seq concatenates the results of two expressions, ordered left before right
// within each iteration context.
type Seq struct {
	Left  Node
	Right Node
}

func (*Seq) node() {}

// For iterates the Source sequence, binding Var to each item (and Pos, when
// non-nil, to its 1-based position) while evaluating Body once per item.
type For struct {
	Var    *Var
	Pos    *Var // optional positional binding
	Source Node
	Body   Node
}

func (*For) node() {}

// Let binds Var to the whole value of Bound while evaluating Body. Let does
// not introduce an iteration scope.
type Let struct {
	Var   *Var
	Bound Node
	Body  Node
}

func (*Let) node() {}

// IfThenElse evaluates Cond (a boolean per context) and selects between the
// branches per iteration context.
type IfThenElse struct {
	Cond Node
	Then Node
	Else Node
}

func (*IfThenElse) node() {}

// ===== Path navigation =====

// Axis enumerates the tree-navigation axes a PathStep may request.
type Axis uint8

const (
	AxisAncestor Axis = iota
	AxisAncestorOrSelf
	AxisAttribute
	AxisChild
	AxisDescendant
	AxisDescendantOrSelf
	AxisFollowing
	AxisFollowingSibling
	AxisParent
	AxisPreceding
	AxisPrecedingSibling
	AxisSelf
)

// String returns the axis name as written in step syntax.
func (a Axis) String() string {
	switch a {
	case AxisAncestor:
		return "ancestor"
	case AxisAncestorOrSelf:
		return "ancestor-or-self"
	case AxisAttribute:
		return "attribute"
	case AxisChild:
		return "child"
	case AxisDescendant:
		return "descendant"
	case AxisDescendantOrSelf:
		return "descendant-or-self"
	case AxisFollowing:
		return "following"
	case AxisFollowingSibling:
		return "following-sibling"
	case AxisParent:
		return "parent"
	case AxisPreceding:
		return "preceding"
	case AxisPrecedingSibling:
		return "preceding-sibling"
	case AxisSelf:
		return "self"
	default:
		return "unknown"
	}
}

// TestKind enumerates node tests attached to a path step.
type TestKind uint8

const (
	TestName TestKind = iota // name test, possibly wildcarded
	TestAnyNode
	TestElement
	TestText
	TestComment
	TestPI
	TestDocument
	TestAttr
)

// NodeTest qualifies which nodes a step accepts. For TestName, empty NS
// matches the empty namespace and Wildcard* flags match any value in that
// position.
type NodeTest struct {
	Kind       TestKind
	NS         string
	Loc        string
	WildcardNS bool
	WildcardLc bool
}

// PathStep navigates from every node in the input along Axis, keeping nodes
// accepted by Test.
type PathStep struct {
	Axis  Axis
	Test  NodeTest
	Input Node
}

func (*PathStep) node() {}

// ===== Constructors =====

// QName is a qualified name (namespace URI + local part).
type QName struct {
	NS  string
	Loc string
}

// TagName denotes a statically known qualified name, loop-lifted as a
// constant.
type TagName struct {
	Name QName
}

func (*TagName) node() {}

// ElemConstr constructs one element per context with Name evaluating to the
// tag and Content supplying child nodes and attributes.
type ElemConstr struct {
	Name    Node
	Content Node
}

func (*ElemConstr) node() {}

// AttrConstr constructs one attribute per context from a single string value.
type AttrConstr struct {
	Name  Node
	Value Node
}

func (*AttrConstr) node() {}

// TextConstr constructs one text node per context from a single string value.
type TextConstr struct {
	Value Node
}

func (*TextConstr) node() {}

// ===== Constants =====

// LitString is a string literal.
type LitString struct {
	Value string
}

func (*LitString) node() {}

// LitInt is an integer literal.
type LitInt struct {
	Value int64
}

func (*LitInt) node() {}

// LitDec is a decimal literal (carried as float64, interned separately from
// doubles).
type LitDec struct {
	Value float64
}

func (*LitDec) node() {}

// LitDbl is a double literal.
type LitDbl struct {
	Value float64
}

func (*LitDbl) node() {}

// True is the boolean constant true.
type True struct{}

func (*True) node() {}

// False is the boolean constant false.
type False struct{}

func (*False) node() {}

// Empty is the empty sequence.
type Empty struct{}

func (*Empty) node() {}

// Root denotes the root of the most recently loaded document.
type Root struct{}

func (*Root) node() {}

// SeqCast wraps an expression in a sequence-type cast. The translator
// ignores the target type and lowers the operand unchanged.
type SeqCast struct {
	Type    string
	Operand Node
}

func (*SeqCast) node() {}

// Apply is a builtin function application dispatched by qualified name.
type Apply struct {
	Fn   QName
	Args []Node
}

func (*Apply) node() {}

// Children returns the child expressions of n in evaluation order. Used by
// generic traversals that do not care about node kind.
func Children(n Node) []Node {
	switch c := n.(type) {
	case *Seq:
		return []Node{c.Left, c.Right}
	case *For:
		return []Node{c.Source, c.Body}
	case *Let:
		return []Node{c.Bound, c.Body}
	case *IfThenElse:
		return []Node{c.Cond, c.Then, c.Else}
	case *PathStep:
		return []Node{c.Input}
	case *ElemConstr:
		return []Node{c.Name, c.Content}
	case *AttrConstr:
		return []Node{c.Name, c.Value}
	case *TextConstr:
		return []Node{c.Value}
	case *SeqCast:
		return []Node{c.Operand}
	case *Apply:
		return c.Args
	default:
		return nil
	}
}
