package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Seam Bytecode v%d\n", c.Version))

	// Parameters
	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): ", c.ParamCount))
		for i, p := range c.ParamNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p)
		}
		sb.WriteString("\n")
	}

	// Constant pool
	if len(c.Constants) > 0 {
		sb.WriteString(fmt.Sprintf("; Constants (%d):\n", len(c.Constants)))
		for i, s := range c.Constants {
			sb.WriteString(fmt.Sprintf(";   [%d] %q\n", i, s))
		}
	}

	// Instructions
	ip := 0
	for ip < len(c.Code) {
		ip = c.disassembleInstruction(&sb, ip)
	}

	return sb.String()
}

// disassembleInstruction writes one instruction and returns the next offset.
func (c *Chunk) disassembleInstruction(sb *strings.Builder, ip int) int {
	op := Opcode(c.Code[ip])
	info := GetOpcodeInfo(op)

	sb.WriteString(fmt.Sprintf("%04x  %-14s", ip, info.Name))

	next := ip + 1
	switch op {
	case OpConst:
		idx := binary.BigEndian.Uint16(c.Code[next:])
		sb.WriteString(fmt.Sprintf(" %d", idx))
		if int(idx) < len(c.Constants) {
			sb.WriteString(fmt.Sprintf(" ; %q", c.Constants[idx]))
		}
		next += 2

	case OpLoadParam:
		slot := c.Code[next]
		sb.WriteString(fmt.Sprintf(" %d", slot))
		if int(slot) < len(c.ParamNames) {
			sb.WriteString(fmt.Sprintf(" ; %s", c.ParamNames[slot]))
		}
		next++

	case OpJump, OpJumpFalse:
		delta := int16(binary.BigEndian.Uint16(c.Code[next:]))
		next += 2
		sb.WriteString(fmt.Sprintf(" %+d ; -> %04x", delta, next+int(delta)))

	case OpCallLocal, OpCallHost:
		idx := binary.BigEndian.Uint16(c.Code[next:])
		argc := c.Code[next+2]
		next += 3
		target := fmt.Sprintf("#%d", idx)
		if int(idx) < len(c.Constants) {
			target = c.Constants[idx]
		}
		sb.WriteString(fmt.Sprintf(" %s/%d", target, argc))

	default:
		// No operands
	}

	sb.WriteString("\n")
	return next
}
