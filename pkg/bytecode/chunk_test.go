package bytecode

import (
	"bytes"
	"testing"
)

func TestNewChunk(t *testing.T) {
	c := NewChunk()

	if c.Version != BytecodeVersion {
		t.Errorf("Version = %d, want %d", c.Version, BytecodeVersion)
	}
	if c.Code == nil {
		t.Error("Code is nil")
	}
	if c.Constants == nil {
		t.Error("Constants is nil")
	}
}

func TestChunkAddConstant(t *testing.T) {
	c := NewChunk()

	idx0 := c.AddConstant("hello")
	if idx0 != 0 {
		t.Errorf("First constant index = %d, want 0", idx0)
	}

	idx1 := c.AddConstant("world")
	if idx1 != 1 {
		t.Errorf("Second constant index = %d, want 1", idx1)
	}

	// Duplicate - should return existing index
	idx2 := c.AddConstant("hello")
	if idx2 != 0 {
		t.Errorf("Duplicate constant index = %d, want 0", idx2)
	}

	if c.ConstantCount() != 2 {
		t.Errorf("ConstantCount() = %d, want 2", c.ConstantCount())
	}
	if c.GetConstant(1) != "world" {
		t.Errorf("GetConstant(1) = %q, want %q", c.GetConstant(1), "world")
	}
}

func TestChunkEmitJumpAndPatch(t *testing.T) {
	c := NewChunk()

	c.Emit(OpConstTrue)
	placeholder := c.EmitJump(OpJumpFalse)
	c.EmitConstant("then")
	c.PatchJump(placeholder)

	// Jump delta counts from after the two offset bytes
	wantDelta := c.CurrentOffset() - (placeholder + 2)
	gotDelta := int(int16(uint16(c.Code[placeholder])<<8 | uint16(c.Code[placeholder+1])))
	if gotDelta != wantDelta {
		t.Errorf("patched delta = %d, want %d", gotDelta, wantDelta)
	}
}

func TestChunkSerializeRoundTrip(t *testing.T) {
	c := NewChunk()
	c.ParamCount = 2
	c.ParamNames = []string{"a", "b"}
	c.EmitWithOperand(OpLoadParam, 0)
	c.EmitWithOperand(OpLoadParam, 1)
	c.Emit(OpConcat)
	c.EmitConstant("suffix")
	c.Emit(OpConcat)
	c.Emit(OpReturn)

	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if got.Version != c.Version {
		t.Errorf("version = %d, want %d", got.Version, c.Version)
	}
	if !bytes.Equal(got.Code, c.Code) {
		t.Errorf("code = %v, want %v", got.Code, c.Code)
	}
	if len(got.Constants) != 1 || got.Constants[0] != "suffix" {
		t.Errorf("constants = %v, want [suffix]", got.Constants)
	}
	if got.ParamCount != 2 || got.ParamNames[1] != "b" {
		t.Errorf("params = %d %v, want 2 [a b]", got.ParamCount, got.ParamNames)
	}
}

func TestDeserializeRejectsBadInput(t *testing.T) {
	if _, err := Deserialize([]byte{}); err == nil {
		t.Error("empty input accepted")
	}
	if _, err := Deserialize([]byte("XXXX\x00\x01")); err == nil {
		t.Error("bad magic accepted")
	}

	c := NewChunk()
	c.EmitConstant("x")
	c.Emit(OpReturn)
	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	for _, n := range []int{7, len(data) / 2, len(data) - 1} {
		if _, err := Deserialize(data[:n]); err == nil {
			t.Errorf("truncated input (%d bytes) accepted", n)
		}
	}
}
