package forms

import "fmt"

// ExprKind discriminates the expression variants.
type ExprKind uint8

const (
	// ExprLiteral pushes a literal string value.
	ExprLiteral ExprKind = 1

	// ExprParam reads a function parameter by name.
	ExprParam ExprKind = 2

	// ExprConcat concatenates its two operands.
	ExprConcat ExprKind = 3

	// ExprEq compares its two operands, yielding "true" or "false".
	ExprEq ExprKind = 4

	// ExprIf evaluates Args[1] when Args[0] is truthy, Args[2] otherwise.
	ExprIf ExprKind = 5

	// ExprCall calls a function in the same module by name; arity is the
	// argument count.
	ExprCall ExprKind = 6

	// ExprHostCall invokes a host intrinsic by name.
	ExprHostCall ExprKind = 7
)

// String returns a human-readable name for ExprKind.
func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "literal"
	case ExprParam:
		return "param"
	case ExprConcat:
		return "concat"
	case ExprEq:
		return "eq"
	case ExprIf:
		return "if"
	case ExprCall:
		return "call"
	case ExprHostCall:
		return "hostcall"
	default:
		return fmt.Sprintf("ExprKind(%d)", uint8(k))
	}
}

// Expr is an expression node. Text holds the literal value, parameter
// name, or call target depending on Kind; Args holds the operands.
type Expr struct {
	Kind ExprKind `cbor:"1,keyasint"`
	Text string   `cbor:"2,keyasint,omitempty"`
	Args []Expr   `cbor:"3,keyasint,omitempty"`
}

// Lit builds a literal expression.
func Lit(value string) Expr {
	return Expr{Kind: ExprLiteral, Text: value}
}

// Param builds a parameter reference.
func Param(name string) Expr {
	return Expr{Kind: ExprParam, Text: name}
}

// Concat builds a string concatenation.
func Concat(a, b Expr) Expr {
	return Expr{Kind: ExprConcat, Args: []Expr{a, b}}
}

// Eq builds an equality comparison.
func Eq(a, b Expr) Expr {
	return Expr{Kind: ExprEq, Args: []Expr{a, b}}
}

// If builds a conditional expression.
func If(cond, then, els Expr) Expr {
	return Expr{Kind: ExprIf, Args: []Expr{cond, then, els}}
}

// Call builds a local function call.
func Call(name string, args ...Expr) Expr {
	return Expr{Kind: ExprCall, Text: name, Args: args}
}

// HostCall builds a host intrinsic invocation.
func HostCall(name string, args ...Expr) Expr {
	return Expr{Kind: ExprHostCall, Text: name, Args: args}
}

func cloneExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = Expr{Kind: e.Kind, Text: e.Text, Args: cloneExprs(e.Args)}
	}
	return out
}
