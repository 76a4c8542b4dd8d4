package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst      Opcode = 0x10 // Push constant from pool: OpConst <index:u16>
	OpConstEmpty Opcode = 0x11 // Push ""
	OpConstTrue  Opcode = 0x12 // Push "true"
	OpConstFalse Opcode = 0x13 // Push "false"

	// ========================================================================
	// Parameters (0x20-0x2F)
	// ========================================================================

	OpLoadParam Opcode = 0x20 // Push parameter: OpLoadParam <index:u8>

	// ========================================================================
	// Comparison (0x60-0x6F)
	// ========================================================================

	OpEq Opcode = 0x60 // Pop two, push "true" if equal, "false" otherwise

	// ========================================================================
	// String operations (0x70-0x7F)
	// ========================================================================

	OpConcat Opcode = 0x70 // Concatenate top two strings

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <offset:i16>
	OpJumpFalse Opcode = 0x81 // Jump if top is falsy: OpJumpFalse <offset:i16>

	// ========================================================================
	// Calls (0x90-0x9F)
	// ========================================================================

	OpCallLocal Opcode = 0x90 // Call module-local function: OpCallLocal <ref:u16> <argc:u8>
	OpCallHost  Opcode = 0x91 // Call host intrinsic: OpCallHost <name:u16> <argc:u8>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn      Opcode = 0xF0 // Return top of stack
	OpReturnEmpty Opcode = 0xF1 // Return ""
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	OpConst:      {"CONST", 0, 1, 2},
	OpConstEmpty: {"CONST_EMPTY", 0, 1, 0},
	OpConstTrue:  {"CONST_TRUE", 0, 1, 0},
	OpConstFalse: {"CONST_FALSE", 0, 1, 0},

	OpLoadParam: {"LOAD_PARAM", 0, 1, 1},

	OpEq: {"EQ", 2, 1, 0},

	OpConcat: {"CONCAT", 2, 1, 0},

	OpJump:      {"JUMP", 0, 0, 2},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, 2},

	OpCallLocal: {"CALL_LOCAL", -1, 1, 3}, // Pops argc args
	OpCallHost:  {"CALL_HOST", -1, 1, 3},  // Pops argc args

	OpReturn:      {"RETURN", 1, 0, 0},
	OpReturnEmpty: {"RETURN_EMPTY", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpFalse
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnEmpty
}

// IsCall returns true if this opcode is a call instruction.
func (op Opcode) IsCall() bool {
	return op == OpCallLocal || op == OpCallHost
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
