// Package bytecode implements the compiled representation of seam
// functions: a small string-valued stack machine.
//
// A Chunk holds the instructions, constant pool, and parameter metadata of
// one function. CompileFunction lowers a forms.Function to a Chunk; the VM
// executes chunks, delegating module-local calls to a CallResolver and
// host intrinsics to a HostDispatcher. Both are resolved at call time so
// that a module swapped mid-call is observed by the very next call.
//
// Chunks serialize to a compact binary format behind the "SMBC" magic;
// whole modules are packaged by the image package.
package bytecode
