package bytecode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/seam-lang/seam/pkg/forms"
)

// mapResolver resolves local calls against a fixed table.
type mapResolver map[string]func(args ...string) (string, error)

func (r mapResolver) CallLocal(name string, args ...string) (string, error) {
	fn, ok := r[name]
	if !ok {
		return "", fmt.Errorf("undefined function %s/%d", name, len(args))
	}
	return fn(args...)
}

// recordingHost records every host call and returns a canned value.
type recordingHost struct {
	calls  []string
	result string
}

func (h *recordingHost) CallHost(name string, args ...string) (string, error) {
	h.calls = append(h.calls, name+"("+strings.Join(args, ",")+")")
	return h.result, nil
}

func run(t *testing.T, fn *forms.Function, args ...string) string {
	t.Helper()
	chunk := compileOK(t, fn, nil)
	result, err := NewVM().Execute(chunk, args)
	if err != nil {
		t.Fatalf("Execute %s failed: %v", fn.Ref(), err)
	}
	return result
}

func TestVMLiteral(t *testing.T) {
	got := run(t, &forms.Function{Name: "greet", Body: []forms.Expr{forms.Lit("hello")}})
	if got != "hello" {
		t.Errorf("result = %q, want hello", got)
	}
}

func TestVMEmptyBody(t *testing.T) {
	got := run(t, &forms.Function{Name: "noop"})
	if got != "" {
		t.Errorf("result = %q, want empty", got)
	}
}

func TestVMConcatParams(t *testing.T) {
	got := run(t, &forms.Function{
		Name:   "join",
		Params: []string{"a", "b"},
		Body:   []forms.Expr{forms.Concat(forms.Param("a"), forms.Param("b"))},
	}, "foo", "bar")
	if got != "foobar" {
		t.Errorf("result = %q, want foobar", got)
	}
}

func TestVMMissingParamReadsEmpty(t *testing.T) {
	got := run(t, &forms.Function{
		Name:   "join",
		Params: []string{"a", "b"},
		Body:   []forms.Expr{forms.Concat(forms.Param("a"), forms.Param("b"))},
	}, "foo")
	if got != "foo" {
		t.Errorf("result = %q, want foo", got)
	}
}

func TestVMEq(t *testing.T) {
	fn := &forms.Function{
		Name:   "same",
		Params: []string{"a", "b"},
		Body:   []forms.Expr{forms.Eq(forms.Param("a"), forms.Param("b"))},
	}
	if got := run(t, fn, "x", "x"); got != "true" {
		t.Errorf("eq(x,x) = %q, want true", got)
	}
	if got := run(t, fn, "x", "y"); got != "false" {
		t.Errorf("eq(x,y) = %q, want false", got)
	}
}

func TestVMIf(t *testing.T) {
	fn := &forms.Function{
		Name:   "pick",
		Params: []string{"x"},
		Body: []forms.Expr{
			forms.If(forms.Eq(forms.Param("x"), forms.Lit("1")), forms.Lit("one"), forms.Lit("other")),
		},
	}
	if got := run(t, fn, "1"); got != "one" {
		t.Errorf("pick(1) = %q, want one", got)
	}
	if got := run(t, fn, "2"); got != "other" {
		t.Errorf("pick(2) = %q, want other", got)
	}
}

func TestVMTruthiness(t *testing.T) {
	// Condition is the raw param: "" and "false" select the else branch.
	fn := &forms.Function{
		Name:   "branch",
		Params: []string{"c"},
		Body:   []forms.Expr{forms.If(forms.Param("c"), forms.Lit("yes"), forms.Lit("no"))},
	}
	tests := []struct {
		cond, want string
	}{
		{"true", "yes"},
		{"anything", "yes"},
		{"false", "no"},
		{"", "no"},
	}
	for _, tt := range tests {
		if got := run(t, fn, tt.cond); got != tt.want {
			t.Errorf("branch(%q) = %q, want %q", tt.cond, got, tt.want)
		}
	}
}

func TestVMLocalCall(t *testing.T) {
	locals := map[forms.FuncRef]bool{
		{Name: "shout", Arity: 1}: true,
	}
	chunk, diags := CompileFunction(&forms.Function{
		Name: "caller",
		Body: []forms.Expr{forms.Call("shout", forms.Lit("hi"))},
	}, locals)
	if len(diags) > 0 {
		t.Fatalf("compile failed: %v", diags)
	}

	vm := NewVM()
	vm.SetResolver(mapResolver{
		"shout": func(args ...string) (string, error) {
			return strings.ToUpper(args[0]), nil
		},
	})
	got, err := vm.Execute(chunk, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "HI" {
		t.Errorf("result = %q, want HI", got)
	}
}

func TestVMLocalCallWithoutResolver(t *testing.T) {
	locals := map[forms.FuncRef]bool{{Name: "shout", Arity: 0}: true}
	chunk, diags := CompileFunction(&forms.Function{
		Name: "caller",
		Body: []forms.Expr{forms.Call("shout")},
	}, locals)
	if len(diags) > 0 {
		t.Fatalf("compile failed: %v", diags)
	}

	_, err := NewVM().Execute(chunk, nil)
	if err == nil || !strings.Contains(err.Error(), "no call resolver") {
		t.Errorf("err = %v, want missing resolver error", err)
	}
}

func TestVMHostCall(t *testing.T) {
	chunk, diags := CompileFunction(&forms.Function{
		Name: "ver",
		Body: []forms.Expr{forms.HostCall("release")},
	}, nil)
	if len(diags) > 0 {
		t.Fatalf("compile failed: %v", diags)
	}

	h := &recordingHost{result: "18.2"}
	vm := NewVM()
	vm.SetHostDispatcher(h)
	got, err := vm.Execute(chunk, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "18.2" {
		t.Errorf("result = %q, want 18.2", got)
	}
	if len(h.calls) != 1 || h.calls[0] != "release()" {
		t.Errorf("host calls = %v, want [release()]", h.calls)
	}
}

func TestVMHostCallWithoutDispatcher(t *testing.T) {
	chunk, diags := CompileFunction(&forms.Function{
		Name: "ver",
		Body: []forms.Expr{forms.HostCall("release")},
	}, nil)
	if len(diags) > 0 {
		t.Fatalf("compile failed: %v", diags)
	}

	_, err := NewVM().Execute(chunk, nil)
	if err == nil || !strings.Contains(err.Error(), "no host dispatcher") {
		t.Errorf("err = %v, want missing dispatcher error", err)
	}
}

func TestVMStackUnderflow(t *testing.T) {
	c := NewChunk()
	c.Emit(OpPop)
	if _, err := NewVM().Execute(c, nil); err == nil {
		t.Error("POP on empty stack accepted")
	}
}

func TestVMUnknownOpcode(t *testing.T) {
	c := NewChunk()
	c.Code = append(c.Code, 0xEE)
	_, err := NewVM().Execute(c, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown opcode") {
		t.Errorf("err = %v, want unknown opcode error", err)
	}
}

func TestVMConstantIndexOutOfRange(t *testing.T) {
	c := NewChunk()
	c.EmitWithOperand(OpConst, 0, 9)
	c.Emit(OpReturn)
	_, err := NewVM().Execute(c, nil)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("err = %v, want out of range error", err)
	}
}
