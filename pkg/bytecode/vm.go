package bytecode

import (
	"encoding/binary"
	"fmt"
)

// StackSize is the fixed operand stack size per frame.
const StackSize = 256

// CallResolver is the interface for resolving module-local function calls.
// Resolution happens at call time, so a hot-swapped module is observed by
// the very next call.
type CallResolver interface {
	// CallLocal calls a function in the executing module by name.
	CallLocal(name string, args ...string) (string, error)
}

// HostDispatcher is the interface for host intrinsic calls.
type HostDispatcher interface {
	// CallHost invokes a host intrinsic by name.
	CallHost(name string, args ...string) (string, error)
}

// VM executes chunks. All values are strings.
type VM struct {
	// Trace enables instruction tracing to stdout.
	Trace bool

	resolver CallResolver
	host     HostDispatcher
}

// NewVM creates a VM with no resolver or host dispatcher; chunks that
// perform calls need both set before execution.
func NewVM() *VM {
	return &VM{}
}

// SetResolver sets the handler for OpCallLocal.
func (vm *VM) SetResolver(r CallResolver) {
	vm.resolver = r
}

// SetHostDispatcher sets the handler for OpCallHost.
func (vm *VM) SetHostDispatcher(h HostDispatcher) {
	vm.host = h
}

// Execute runs a chunk with the given arguments and returns its result.
// Each call executes in a fresh frame, so Execute is reentrant: a local
// call made by the chunk may run another chunk on the same VM.
func (vm *VM) Execute(chunk *Chunk, args []string) (string, error) {
	var stack [StackSize]string
	sp := 0
	ip := 0
	code := chunk.Code

	push := func(v string) error {
		if sp >= StackSize {
			return fmt.Errorf("stack overflow at ip=%d", ip)
		}
		stack[sp] = v
		sp++
		return nil
	}

	for ip < len(code) {
		op := Opcode(code[ip])
		ip++

		if vm.Trace {
			fmt.Printf("[%04x] %-14s sp=%d\n", ip-1, op.String(), sp)
		}

		switch op {
		case OpNop:
			// Do nothing

		case OpPop:
			if sp < 1 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-1)
			}
			sp--

		case OpDup:
			if sp < 1 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-1)
			}
			if err := push(stack[sp-1]); err != nil {
				return "", err
			}

		case OpConst:
			idx := binary.BigEndian.Uint16(code[ip:])
			ip += 2
			if int(idx) >= len(chunk.Constants) {
				return "", fmt.Errorf("constant index %d out of range", idx)
			}
			if err := push(chunk.Constants[idx]); err != nil {
				return "", err
			}

		case OpConstEmpty:
			if err := push(""); err != nil {
				return "", err
			}

		case OpConstTrue:
			if err := push("true"); err != nil {
				return "", err
			}

		case OpConstFalse:
			if err := push("false"); err != nil {
				return "", err
			}

		case OpLoadParam:
			idx := code[ip]
			ip++
			if int(idx) < len(args) {
				if err := push(args[idx]); err != nil {
					return "", err
				}
			} else {
				// Missing param reads as empty
				if err := push(""); err != nil {
					return "", err
				}
			}

		case OpEq:
			if sp < 2 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-1)
			}
			b := stack[sp-1]
			a := stack[sp-2]
			sp -= 2
			if a == b {
				stack[sp] = "true"
			} else {
				stack[sp] = "false"
			}
			sp++

		case OpConcat:
			if sp < 2 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-1)
			}
			b := stack[sp-1]
			a := stack[sp-2]
			sp -= 2
			stack[sp] = a + b
			sp++

		case OpJump:
			delta := int16(binary.BigEndian.Uint16(code[ip:]))
			ip += 2
			ip += int(delta)

		case OpJumpFalse:
			delta := int16(binary.BigEndian.Uint16(code[ip:]))
			ip += 2
			if sp < 1 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-3)
			}
			sp--
			if !truthy(stack[sp]) {
				ip += int(delta)
			}

		case OpCallLocal:
			idx := binary.BigEndian.Uint16(code[ip:])
			argc := int(code[ip+2])
			ip += 3
			if int(idx) >= len(chunk.Constants) {
				return "", fmt.Errorf("call target index %d out of range", idx)
			}
			if sp < argc {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-4)
			}
			if vm.resolver == nil {
				return "", fmt.Errorf("no call resolver for local call %s/%d", chunk.Constants[idx], argc)
			}
			callArgs := make([]string, argc)
			copy(callArgs, stack[sp-argc:sp])
			sp -= argc
			result, err := vm.resolver.CallLocal(chunk.Constants[idx], callArgs...)
			if err != nil {
				return "", err
			}
			if err := push(result); err != nil {
				return "", err
			}

		case OpCallHost:
			idx := binary.BigEndian.Uint16(code[ip:])
			argc := int(code[ip+2])
			ip += 3
			if int(idx) >= len(chunk.Constants) {
				return "", fmt.Errorf("host call index %d out of range", idx)
			}
			if sp < argc {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-4)
			}
			if vm.host == nil {
				return "", fmt.Errorf("no host dispatcher for host call %q", chunk.Constants[idx])
			}
			callArgs := make([]string, argc)
			copy(callArgs, stack[sp-argc:sp])
			sp -= argc
			result, err := vm.host.CallHost(chunk.Constants[idx], callArgs...)
			if err != nil {
				return "", err
			}
			if err := push(result); err != nil {
				return "", err
			}

		case OpReturn:
			if sp < 1 {
				return "", fmt.Errorf("stack underflow at ip=%d", ip-1)
			}
			return stack[sp-1], nil

		case OpReturnEmpty:
			return "", nil

		default:
			return "", fmt.Errorf("unknown opcode 0x%02X at ip=%d", byte(op), ip-1)
		}
	}

	// Fell off the end without an explicit return
	return "", nil
}

// truthy follows the string-value convention: everything except "" and
// "false" is true.
func truthy(v string) bool {
	return v != "" && v != "false"
}
