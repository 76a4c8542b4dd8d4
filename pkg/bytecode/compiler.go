package bytecode

import (
	"fmt"

	"github.com/seam-lang/seam/pkg/forms"
)

// Diagnostic is one compile problem, attributed to the function being
// compiled.
type Diagnostic struct {
	Function forms.FuncRef
	Message  string
}

// String formats the diagnostic as "name/arity: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Function, d.Message)
}

// Compiler lowers one function's expression tree to a chunk.
type Compiler struct {
	chunk *Chunk
	fn    *forms.Function

	// Parameter slot allocation
	paramSlots map[string]uint8

	// Module-local functions callable from this one
	locals map[forms.FuncRef]bool

	// Problem collection; compilation continues after a diagnostic so all
	// problems in a function surface at once.
	diags []Diagnostic
}

// CompileFunction lowers a function to bytecode. locals is the set of
// (name, arity) pairs defined in the enclosing module; calls outside that
// set are diagnosed. On any diagnostic the chunk result is nil.
func CompileFunction(fn *forms.Function, locals map[forms.FuncRef]bool) (*Chunk, []Diagnostic) {
	c := &Compiler{
		chunk:      NewChunk(),
		fn:         fn,
		paramSlots: make(map[string]uint8),
		locals:     locals,
	}

	if len(fn.Params) > 255 {
		c.errorf("too many parameters (%d)", len(fn.Params))
		return nil, c.diags
	}
	for i, param := range fn.Params {
		c.paramSlots[param] = uint8(i)
	}
	c.chunk.ParamCount = uint8(len(fn.Params))
	c.chunk.ParamNames = append([]string{}, fn.Params...)

	// Statement list: intermediate results are popped, the last is returned.
	if len(fn.Body) == 0 {
		c.chunk.Emit(OpReturnEmpty)
	} else {
		for i, expr := range fn.Body {
			c.compileExpr(expr)
			if i < len(fn.Body)-1 {
				c.chunk.Emit(OpPop)
			}
		}
		c.chunk.Emit(OpReturn)
	}

	if len(c.diags) > 0 {
		return nil, c.diags
	}
	return c.chunk, nil
}

func (c *Compiler) compileExpr(e forms.Expr) {
	switch e.Kind {
	case forms.ExprLiteral:
		switch e.Text {
		case "":
			c.chunk.Emit(OpConstEmpty)
		case "true":
			c.chunk.Emit(OpConstTrue)
		case "false":
			c.chunk.Emit(OpConstFalse)
		default:
			c.chunk.EmitConstant(e.Text)
		}

	case forms.ExprParam:
		slot, ok := c.paramSlots[e.Text]
		if !ok {
			c.errorf("unknown parameter %q", e.Text)
			return
		}
		c.chunk.EmitWithOperand(OpLoadParam, slot)

	case forms.ExprConcat:
		if !c.expectArgs(e, 2) {
			return
		}
		c.compileExpr(e.Args[0])
		c.compileExpr(e.Args[1])
		c.chunk.Emit(OpConcat)

	case forms.ExprEq:
		if !c.expectArgs(e, 2) {
			return
		}
		c.compileExpr(e.Args[0])
		c.compileExpr(e.Args[1])
		c.chunk.Emit(OpEq)

	case forms.ExprIf:
		if !c.expectArgs(e, 3) {
			return
		}
		c.compileExpr(e.Args[0])
		elseJump := c.chunk.EmitJump(OpJumpFalse)
		c.compileExpr(e.Args[1])
		endJump := c.chunk.EmitJump(OpJump)
		c.chunk.PatchJump(elseJump)
		c.compileExpr(e.Args[2])
		c.chunk.PatchJump(endJump)

	case forms.ExprCall:
		ref := forms.FuncRef{Name: e.Text, Arity: len(e.Args)}
		if !c.locals[ref] {
			c.errorf("call to undefined function %s", ref)
			return
		}
		for _, arg := range e.Args {
			c.compileExpr(arg)
		}
		idx := c.chunk.AddConstant(e.Text)
		c.chunk.EmitWithOperand(OpCallLocal, byte(idx>>8), byte(idx), byte(len(e.Args)))

	case forms.ExprHostCall:
		// Host intrinsics are resolved at run time; any name is accepted here.
		for _, arg := range e.Args {
			c.compileExpr(arg)
		}
		idx := c.chunk.AddConstant(e.Text)
		c.chunk.EmitWithOperand(OpCallHost, byte(idx>>8), byte(idx), byte(len(e.Args)))

	default:
		c.errorf("unknown expression kind %s", e.Kind)
	}
}

func (c *Compiler) expectArgs(e forms.Expr, n int) bool {
	if len(e.Args) != n {
		c.errorf("%s expression needs %d operands, has %d", e.Kind, n, len(e.Args))
		return false
	}
	return true
}

func (c *Compiler) errorf(format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Function: c.fn.Ref(),
		Message:  fmt.Sprintf(format, args...),
	})
}
