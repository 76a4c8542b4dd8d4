package relink

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline failure taxonomy. Every failure aborts the pipeline and is
// surfaced uninterpreted to the caller; nothing is retried internally.
var (
	// ErrModuleNotFound: the target module has no loaded image.
	ErrModuleNotFound = errors.New("module has no loaded image")

	// ErrNoRepresentation: the image lacks a decodable program
	// representation (stripped image, or a corrupt embedded chunk).
	ErrNoRepresentation = errors.New("image has no decodable program representation")

	// ErrMalformedVersionTable: the gate attribute is absent or violates
	// the rule-table invariants. An authoring bug, not recoverable here.
	ErrMalformedVersionTable = errors.New("malformed version-rule table")
)

// CompileError reports that the transformed representation failed to
// recompile. The old image remains loaded and untouched.
type CompileError struct {
	Module      string
	Diagnostics []string
}

// Error lists the module and every diagnostic.
func (e *CompileError) Error() string {
	return fmt.Sprintf("recompiling %s failed: %s", e.Module, strings.Join(e.Diagnostics, "; "))
}

// LoadError reports that the host loader rejected the new image.
type LoadError struct {
	Module string
	Err    error
}

// Error names the module and the loader's reason.
func (e *LoadError) Error() string {
	return fmt.Sprintf("loading rewritten %s failed: %v", e.Module, e.Err)
}

// Unwrap returns the loader's underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
